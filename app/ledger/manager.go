package ledger

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"custody/app/models"
	"custody/app/storage/database"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type Manager struct {
	DB database.Ledger
}

func (m *Manager) Insert(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if tx.WalletID == "" || tx.Hash == "" {
		return nil, errors.New("ledger rows need a wallet and a hash")
	}
	if err := tx.Network.Validate(); err != nil {
		return nil, err
	}

	dbTx, err := m.DB.InsertTransaction(ctx, database.TransactionFromPublic(tx))
	if err != nil {
		return nil, err
	}
	return dbTx.ToPublic(), nil
}

func (m *Manager) UpdateOutcome(ctx context.Context, id string, outcome *models.Outcome) (bool, error) {
	return m.DB.UpdateOutcome(ctx, id, outcome)
}

func (m *Manager) MarkReferralProcessed(ctx context.Context, id string) (bool, error) {
	return m.DB.MarkReferralProcessed(ctx, id)
}

func (m *Manager) FindPending(ctx context.Context, txType models.TxType) ([]*models.Transaction, error) {
	return toPublic(m.DB.FindPending(ctx, string(txType)))
}

func (m *Manager) FindStale(ctx context.Context, txType models.TxType, olderThan time.Time) ([]*models.Transaction, error) {
	return toPublic(m.DB.FindStale(ctx, string(txType), olderThan))
}

func (m *Manager) FindUnprocessedReferrals(ctx context.Context) ([]*models.Transaction, error) {
	return toPublic(m.DB.FindUnprocessedReferrals(ctx))
}

func (m *Manager) Get(ctx context.Context, id string) (*models.Transaction, error) {
	dbTx, err := m.DB.GetTransaction(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, errors.Wrap(models.ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return dbTx.ToPublic(), nil
}

// History returns the wallet's transactions, newest first.
func (m *Manager) History(ctx context.Context, filter *models.HistoryFilter) ([]*models.Transaction, error) {
	limit := filter.Limit
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return toPublic(m.DB.ListTransactions(ctx, filter.WalletID, limit, filter.Offset))
}

func toPublic(rows []*database.Transaction, err error) ([]*models.Transaction, error) {
	if err != nil {
		return nil, err
	}
	result := make([]*models.Transaction, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.ToPublic())
	}
	return result, nil
}
