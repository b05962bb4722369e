package referral

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"custody/app/models"
	"custody/app/storage/database"
	"custody/pkg/log"
)

type Manager struct {
	DB database.Referrals
}

func (m *Manager) FindReferral(ctx context.Context, userID string) (*models.Referral, error) {
	referral, err := m.DB.GetReferral(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return referral.ToPublic(), nil
}

func (m *Manager) CreditBalance(ctx context.Context, userID string, amountUSD decimal.Decimal) error {
	if !amountUSD.IsPositive() {
		return nil
	}
	if err := m.DB.CreditReferral(ctx, userID, amountUSD); err != nil {
		return errors.Wrapf(err, "failed to credit %s to %s", amountUSD.String(), userID)
	}
	log.Infow("referral balance credited", "user", userID, "amount_usd", amountUSD.String())
	return nil
}

func (m *Manager) CreditCommission(ctx context.Context, txID, userID string, amountUSD decimal.Decimal) (bool, error) {
	if amountUSD.IsNegative() {
		return false, errors.Errorf("negative commission %s for %s", amountUSD.String(), txID)
	}

	credited, err := m.DB.CreditCommission(ctx, txID, userID, amountUSD)
	if err != nil {
		return false, errors.Wrapf(err, "failed to credit %s to %s", amountUSD.String(), userID)
	}
	if credited {
		log.Infow("referral commission credited", "tx", txID, "user", userID, "amount_usd", amountUSD.String())
	}
	return credited, nil
}
