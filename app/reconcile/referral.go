package reconcile

import (
	"context"

	"github.com/pkg/errors"

	"custody/app/models"
	"custody/pkg/log"
)

// ProcessReferrals credits the inviter of each settled swap's owner with a
// share of the swap's service fee. The credit and the processed flag are
// written together; a failed credit leaves the row for the next tick.
func (m *Manager) ProcessReferrals(ctx context.Context) error {
	rows, err := m.Ledger.FindUnprocessedReferrals(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to find unprocessed referrals")
	}

	for _, tx := range rows {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.processReferral(log.WithFields(ctx, "tx", tx.ID, "wallet", tx.WalletID), tx)
	}
	return nil
}

func (m *Manager) processReferral(ctx context.Context, tx *models.Transaction) {
	logger := log.ExtractLogger(ctx)

	if tx.Age(m.now()) > m.config.ReferralStaleAfter {
		m.skipReferral(ctx, tx, models.ErrReferralStale)
		return
	}

	owner, err := m.Owners.WalletOwner(ctx, tx.WalletID)
	if errors.Is(err, models.ErrWalletNotFound) {
		m.skipReferral(ctx, tx, err)
		return
	}
	if err != nil {
		logger.Warnw("failed to resolve wallet owner, retrying later", "error", err)
		return
	}

	ref, err := m.Referrals.FindReferral(ctx, owner)
	if err != nil {
		logger.Warnw("failed to find referral, retrying later", "user", owner, "error", err)
		return
	}
	if !ref.HasInviter() {
		m.skipReferral(ctx, tx, models.ErrReferralMissing)
		return
	}

	commission := tx.ServiceFeeUSD.Mul(m.share)
	credited, err := m.Referrals.CreditCommission(ctx, tx.ID, ref.InvitedBy, commission)
	if err != nil {
		referralsTotal.WithLabelValues("credit_failed").Inc()
		logger.Errorw("failed to credit referral commission, retrying later", "inviter", ref.InvitedBy,
			"amount_usd", commission.String(), "error", err)
		return
	}
	if !credited {
		return
	}
	referralsTotal.WithLabelValues("credited").Inc()
	logger.Infow("referral commission credited", "inviter", ref.InvitedBy, "amount_usd", commission.String())
}

func (m *Manager) skipReferral(ctx context.Context, tx *models.Transaction, reason error) {
	applied, err := m.Ledger.MarkReferralProcessed(ctx, tx.ID)
	if err != nil {
		log.ExtractLogger(ctx).Errorw("failed to mark referral processed", "error", err)
		return
	}
	if applied {
		referralsTotal.WithLabelValues("skipped").Inc()
		log.ExtractLogger(ctx).Debugw("referral commission skipped", "reason", reason)
	}
}
