package database

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"custody/app/models"
	"custody/pkg/uuid"
)

const (
	insertTransaction = `INSERT INTO transactions (id, wallet_id, type, network, hash, status, amount, amount_usd, from_address,
                          to_address, currency, from_currency, to_currency, to_amount, to_amount_usd, fee,
                          fee_usd, service_fee, service_fee_usd, is_referral_processed, created_at)
VALUES (:id, :wallet_id, :type, :network, :hash, :status, :amount, :amount_usd, :from_address, :to_address,
        :currency, :from_currency, :to_currency, :to_amount, :to_amount_usd, :fee, :fee_usd, :service_fee,
        :service_fee_usd, :is_referral_processed, :created_at);`

	// only a PENDING row may be settled; an empty hash keeps the stored one
	updateOutcome = `UPDATE transactions
SET status     = $2,
    fee        = $3,
    fee_usd    = $4,
    hash       = COALESCE(NULLIF($5, ''), hash),
    updated_at = $6
WHERE id = $1
  AND status = 'PENDING';`

	markReferralProcessed = `UPDATE transactions
SET is_referral_processed = TRUE,
    updated_at            = $2
WHERE id = $1
  AND is_referral_processed = FALSE;`
)

func (p *Postgres) InsertTransaction(ctx context.Context, tx *Transaction) (*Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewUUID()
	}
	tx.CreatedAt = p.now()
	tx.Status = string(models.TxPending)
	tx.IsReferralProcessed = false

	if _, err := p.DB.NamedExecContext(ctx, insertTransaction, tx); err != nil {
		return nil, errors.Wrap(err, "failed to insert a transaction")
	}
	return tx, nil
}

func (p *Postgres) UpdateOutcome(ctx context.Context, id string, outcome *models.Outcome) (bool, error) {
	if err := outcome.Validate(); err != nil {
		return false, err
	}

	res, err := p.DB.ExecContext(
		ctx,
		updateOutcome,
		id, string(outcome.Status), outcome.Fee, outcome.FeeUSD, outcome.Hash, p.now(),
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to update a transaction outcome")
	}
	return affected(res)
}

func (p *Postgres) MarkReferralProcessed(ctx context.Context, id string) (bool, error) {
	res, err := p.DB.ExecContext(ctx, markReferralProcessed, id, p.now())
	if err != nil {
		return false, errors.Wrap(err, "failed to mark a referral processed")
	}
	return affected(res)
}

func (p *Postgres) FindPending(ctx context.Context, txType string) ([]*Transaction, error) {
	var result []*Transaction
	if err := p.DB.SelectContext(
		ctx,
		&result,
		"SELECT * FROM transactions WHERE type = $1 AND status = 'PENDING' ORDER BY created_at;",
		txType,
	); err != nil {
		return nil, errors.Wrap(err, "failed to select pending transactions")
	}
	return result, nil
}

func (p *Postgres) FindStale(ctx context.Context, txType string, olderThan time.Time) ([]*Transaction, error) {
	var result []*Transaction
	if err := p.DB.SelectContext(
		ctx,
		&result,
		"SELECT * FROM transactions WHERE type = $1 AND status = 'PENDING' AND created_at < $2 ORDER BY created_at;",
		txType, olderThan,
	); err != nil {
		return nil, errors.Wrap(err, "failed to select stale transactions")
	}
	return result, nil
}

func (p *Postgres) FindUnprocessedReferrals(ctx context.Context) ([]*Transaction, error) {
	var result []*Transaction
	if err := p.DB.SelectContext(
		ctx,
		&result,
		`SELECT * FROM transactions
WHERE type = 'SWAP' AND status = 'SUCCESS' AND is_referral_processed = FALSE
ORDER BY created_at;`,
	); err != nil {
		return nil, errors.Wrap(err, "failed to select unprocessed referrals")
	}
	return result, nil
}

func (p *Postgres) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	result := new(Transaction)
	if err := p.DB.GetContext(ctx, result, "SELECT * FROM transactions WHERE id = $1;", id); err != nil {
		return nil, notFound(err, "a transaction")
	}
	return result, nil
}

func (p *Postgres) ListTransactions(ctx context.Context, walletID string, limit, offset uint64) ([]*Transaction, error) {
	var result []*Transaction
	if err := p.DB.SelectContext(
		ctx,
		&result,
		"SELECT * FROM transactions WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3;",
		walletID, limit, offset,
	); err != nil {
		return nil, errors.Wrap(err, "failed to select transactions")
	}
	return result, nil
}
