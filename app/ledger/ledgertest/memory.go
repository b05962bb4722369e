// Package ledgertest provides an in-memory transaction ledger for tests of
// the packages that record and reconcile transactions.
package ledgertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"custody/app/ledger"
	"custody/app/models"
	"custody/pkg/uuid"
)

var _ ledger.Service = (*Memory)(nil)

// Memory implements ledger.Service in process with the same guards as the SQL
// statements: terminal rows never change and the referral flag flips once.
type Memory struct {
	mu   sync.Mutex
	rows map[string]*models.Transaction
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{rows: make(map[string]*models.Transaction), now: time.Now}
}

// SetClock replaces the clock used for created_at and updated_at.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Put stores tx as is, keeping its status and timestamps.
func (m *Memory) Put(tx *models.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tx
	m.rows[tx.ID] = &cp
}

func (m *Memory) Insert(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *tx
	if cp.ID == "" {
		cp.ID = uuid.NewUUID()
	}
	cp.Status = models.TxPending
	cp.IsReferralProcessed = false
	cp.CreatedAt = m.now().Unix()
	m.rows[cp.ID] = &cp

	out := cp
	return &out, nil
}

func (m *Memory) UpdateOutcome(ctx context.Context, id string, outcome *models.Outcome) (bool, error) {
	if err := outcome.Validate(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok || row.Status != models.TxPending {
		return false, nil
	}
	row.Status = outcome.Status
	row.Fee = outcome.Fee
	row.FeeUSD = outcome.FeeUSD
	if outcome.Hash != "" {
		row.Hash = outcome.Hash
	}
	row.UpdatedAt = m.now().Unix()
	return true, nil
}

func (m *Memory) MarkReferralProcessed(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok || row.IsReferralProcessed {
		return false, nil
	}
	row.IsReferralProcessed = true
	row.UpdatedAt = m.now().Unix()
	return true, nil
}

func (m *Memory) filter(keep func(*models.Transaction) bool) []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*models.Transaction
	for _, row := range m.rows {
		if keep(row) {
			cp := *row
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt == result[j].CreatedAt {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt < result[j].CreatedAt
	})
	return result
}

func (m *Memory) FindPending(ctx context.Context, txType models.TxType) ([]*models.Transaction, error) {
	return m.filter(func(tx *models.Transaction) bool {
		return tx.Type == txType && tx.Status == models.TxPending
	}), nil
}

func (m *Memory) FindStale(ctx context.Context, txType models.TxType, olderThan time.Time) ([]*models.Transaction, error) {
	return m.filter(func(tx *models.Transaction) bool {
		return tx.Type == txType && tx.Status == models.TxPending && tx.CreatedAt < olderThan.Unix()
	}), nil
}

func (m *Memory) FindUnprocessedReferrals(ctx context.Context) ([]*models.Transaction, error) {
	return m.filter(func(tx *models.Transaction) bool {
		return tx.Type == models.TxSwap && tx.Status == models.TxSuccess && !tx.IsReferralProcessed
	}), nil
}

func (m *Memory) Get(ctx context.Context, id string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[id]
	if !ok {
		return nil, errors.Wrap(models.ErrTransactionNotFound, id)
	}
	cp := *row
	return &cp, nil
}

func (m *Memory) History(ctx context.Context, filter *models.HistoryFilter) ([]*models.Transaction, error) {
	rows := m.filter(func(tx *models.Transaction) bool {
		return tx.WalletID == filter.WalletID
	})
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	if filter.Offset >= uint64(len(rows)) {
		return nil, nil
	}
	rows = rows[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < uint64(len(rows)) {
		rows = rows[:filter.Limit]
	}
	return rows, nil
}
