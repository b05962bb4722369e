package referral

import (
	"context"

	"github.com/shopspring/decimal"

	"custody/app/models"
)

type Service interface {
	// FindReferral returns nil without an error when the user was never invited.
	FindReferral(ctx context.Context, userID string) (*models.Referral, error)
	CreditBalance(ctx context.Context, userID string, amountUSD decimal.Decimal) error
	// CreditCommission credits a swap's commission and marks the swap's
	// referral processed together. It returns false when the swap was already
	// processed. After an error the swap stays unprocessed.
	CreditCommission(ctx context.Context, txID, userID string, amountUSD decimal.Decimal) (bool, error)
}
