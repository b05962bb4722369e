package ledger

import (
	"context"
	"time"

	"custody/app/models"
)

// Service is the transaction ledger. It holds no business logic: every
// mutation is a single guarded row update.
type Service interface {
	Insert(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	UpdateOutcome(ctx context.Context, id string, outcome *models.Outcome) (bool, error)
	MarkReferralProcessed(ctx context.Context, id string) (bool, error)
	FindPending(ctx context.Context, txType models.TxType) ([]*models.Transaction, error)
	FindStale(ctx context.Context, txType models.TxType, olderThan time.Time) ([]*models.Transaction, error)
	FindUnprocessedReferrals(ctx context.Context) ([]*models.Transaction, error)
	Get(ctx context.Context, id string) (*models.Transaction, error)
	History(ctx context.Context, filter *models.HistoryFilter) ([]*models.Transaction, error)
}
