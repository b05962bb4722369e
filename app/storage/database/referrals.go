package database

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const creditReferral = `UPDATE referrals SET balance = balance + $2, updated_at = $3 WHERE user_id = $1;`

func (p *Postgres) GetReferral(ctx context.Context, userID string) (*Referral, error) {
	result := new(Referral)
	if err := p.DB.GetContext(ctx, result, "SELECT * FROM referrals WHERE user_id = $1;", userID); err != nil {
		return nil, notFound(err, "a referral")
	}
	return result, nil
}

func (p *Postgres) CreditReferral(ctx context.Context, userID string, amount decimal.Decimal) error {
	res, err := p.DB.ExecContext(ctx, creditReferral, userID, amount, p.now())
	if err != nil {
		return errors.Wrap(err, "failed to credit a referral balance")
	}
	return referralFound(res)
}

// CreditCommission marks the swap's referral processed and credits the inviter
// in one transaction. It returns false without crediting when the swap was
// already processed. On error neither write is kept.
func (p *Postgres) CreditCommission(ctx context.Context, txID, userID string, amount decimal.Decimal) (bool, error) {
	var claimed bool
	err := p.inTx(ctx, func(tx *sqlx.Tx) error {
		now := p.now()

		res, err := tx.ExecContext(ctx, markReferralProcessed, txID, now)
		if err != nil {
			return errors.Wrap(err, "failed to mark a referral processed")
		}
		if claimed, err = affected(res); err != nil || !claimed {
			return err
		}

		res, err = tx.ExecContext(ctx, creditReferral, userID, amount, now)
		if err != nil {
			return errors.Wrap(err, "failed to credit a referral balance")
		}
		return referralFound(res)
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

func referralFound(res sql.Result) error {
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrap(ErrNotFound, "a referral")
	}
	return nil
}
