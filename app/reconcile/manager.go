// Package reconcile drives ledger rows from PENDING to a terminal status and
// pays referral commissions for settled swaps.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"custody/app/ledger"
	"custody/app/models"
	"custody/app/network"
	"custody/app/notifier"
	"custody/app/price"
	"custody/app/referral"
	"custody/pkg/log"
)

const (
	jobTransfers = "transfers"
	jobSwaps     = "swaps"
	jobReferrals = "referrals"
)

// WalletOwners resolves the user that owns a wallet.
type WalletOwners interface {
	WalletOwner(ctx context.Context, walletID string) (string, error)
}

type Manager struct {
	Ledger    ledger.Service
	Networks  *network.Registry
	Prices    price.Service
	Referrals referral.Service
	Owners    WalletOwners
	Notifier  notifier.Service

	config   Config
	share    decimal.Decimal
	cron     *cron.Cron
	inflight sync.Map // transaction id -> struct{}
	now      func() time.Time
}

func NewManager(
	cfg Config,
	ledger ledger.Service,
	networks *network.Registry,
	prices price.Service,
	referrals referral.Service,
	owners WalletOwners,
	notifier notifier.Service,
) *Manager {
	cfg.applyDefaults()
	logger := log.CronLogger{Logger: log.Named("cron")}

	return &Manager{
		Ledger:    ledger,
		Networks:  networks,
		Prices:    prices,
		Referrals: referrals,
		Owners:    owners,
		Notifier:  notifier,
		config:    cfg,
		share:     decimal.NewFromFloat(cfg.ReferralShare),
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		now: time.Now,
	}
}

// Start registers the three jobs and starts the scheduler. Jobs run with a
// context derived from ctx and bounded by the tick deadline.
func (m *Manager) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{jobTransfers, m.config.TransferSpec, m.ReconcileTransfers},
		{jobSwaps, m.config.SwapSpec, m.ReconcileSwaps},
		{jobReferrals, m.config.ReferralSpec, m.ProcessReferrals},
	}

	for _, job := range jobs {
		job := job
		_, err := m.cron.AddFunc(job.spec, func() {
			m.tick(ctx, job.name, job.run)
		})
		if err != nil {
			return errors.Wrapf(err, "failed to schedule %s job", job.name)
		}
	}

	m.cron.Start()
	log.Infow("reconciliation scheduler started", "transfers", m.config.TransferSpec, "swaps", m.config.SwapSpec,
		"referrals", m.config.ReferralSpec, "workers", m.config.Workers)
	return nil
}

// Stop stops scheduling and waits for running jobs to return.
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
	log.Info("reconciliation scheduler stopped")
}

func (m *Manager) tick(parent context.Context, name string, run func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(parent, m.config.TickDeadline)
	defer cancel()

	start := time.Now()
	err := run(ctx)
	tickLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		ticksTotal.WithLabelValues(name, "error").Inc()
		log.Errorw("reconciliation job failed", "job", name, "error", err)
		return
	}
	ticksTotal.WithLabelValues(name, "ok").Inc()
}

// ReconcileTransfers polls every pending transfer.
func (m *Manager) ReconcileTransfers(ctx context.Context) error {
	rows, err := m.Ledger.FindPending(ctx, models.TxTransfer)
	if err != nil {
		return errors.Wrap(err, "failed to find pending transfers")
	}
	m.reconcile(ctx, rows)
	return nil
}

// ReconcileSwaps fails swaps pending longer than the swap window without
// asking any network, then polls the rest.
func (m *Manager) ReconcileSwaps(ctx context.Context) error {
	cutoff := m.now().Add(-m.config.SwapMaxPending)

	stale, err := m.Ledger.FindStale(ctx, models.TxSwap, cutoff)
	if err != nil {
		return errors.Wrap(err, "failed to find stale swaps")
	}
	for _, tx := range stale {
		if !m.claim(tx.ID) {
			continue
		}
		m.settle(ctx, tx, &models.Outcome{Status: models.TxFailed, Fee: decimal.Zero, FeeUSD: decimal.Zero})
		m.release(tx.ID)
	}

	pending, err := m.Ledger.FindPending(ctx, models.TxSwap)
	if err != nil {
		return errors.Wrap(err, "failed to find pending swaps")
	}
	fresh := pending[:0]
	for _, tx := range pending {
		if tx.Age(m.now()) < m.config.SwapMaxPending {
			fresh = append(fresh, tx)
		}
	}
	m.reconcile(ctx, fresh)
	return nil
}

func (m *Manager) claim(id string) bool {
	_, taken := m.inflight.LoadOrStore(id, struct{}{})
	return !taken
}

func (m *Manager) release(id string) {
	m.inflight.Delete(id)
}

// reconcile polls rows with at most config.Workers running at once. A row
// already being polled by another job is skipped.
func (m *Manager) reconcile(ctx context.Context, rows []*models.Transaction) {
	var g errgroup.Group
	g.SetLimit(m.config.Workers)

	for _, tx := range rows {
		if !m.claim(tx.ID) {
			continue
		}
		tx := tx
		g.Go(func() error {
			defer m.release(tx.ID)
			m.poll(ctx, tx)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Manager) poll(ctx context.Context, tx *models.Transaction) {
	ctx = log.WithFields(ctx, "tx", tx.ID, "network", tx.Network, "wallet", tx.WalletID, "hash", tx.Hash)
	logger := log.ExtractLogger(ctx)

	adapter, err := m.Networks.Get(tx.Network)
	if err != nil {
		logger.Errorw("no adapter for a pending transaction", "error", err)
		return
	}

	hops := models.HopsFor(tx.Hash)
	observed, err := network.Poll(ctx, adapter, network.TxRef{Hash: tx.Hash, From: tx.From}, hops)
	outcome, ok := network.Settle(observed, hops)
	if !ok {
		unconfirmedTotal.WithLabelValues(string(tx.Network), string(tx.Type)).Inc()
		if err == nil {
			err = models.ErrConfirmationTimeout
		}
		logger.Warnw("transaction is still pending", "seen", len(observed), "hops", hops, "error", err)
		return
	}

	outcome.FeeUSD = m.feeUSD(ctx, tx.Network, outcome.Fee)
	m.settle(ctx, tx, outcome)
}

// feeUSD prices fee in the network's native coin. A failing oracle yields zero.
func (m *Manager) feeUSD(ctx context.Context, n models.Network, fee decimal.Decimal) decimal.Decimal {
	if fee.IsZero() {
		return decimal.Zero
	}
	p, err := m.Prices.GetPrice(ctx, &models.TokenQuery{Symbol: n.NativeSymbol()})
	if err != nil {
		log.ExtractLogger(ctx).Warnw("failed to price the fee", "error", err)
		return decimal.Zero
	}
	return fee.Mul(p.Price)
}

func (m *Manager) settle(ctx context.Context, tx *models.Transaction, outcome *models.Outcome) {
	logger := log.ExtractLogger(ctx)

	applied, err := m.Ledger.UpdateOutcome(ctx, tx.ID, outcome)
	if err != nil {
		logger.Errorw("failed to update transaction outcome", "tx", tx.ID, "error", err)
		return
	}
	if !applied {
		logger.Debugw("transaction already settled", "tx", tx.ID)
		return
	}

	settledTotal.WithLabelValues(string(tx.Network), string(tx.Type), string(outcome.Status)).Inc()
	logger.Infow("transaction settled", "tx", tx.ID, "status", outcome.Status, "fee", outcome.Fee.String(),
		"fee_usd", outcome.FeeUSD.String())

	if m.Notifier != nil {
		m.Notifier.Notify(ctx, &models.Notification{
			ClientID: tx.WalletID,
			Message:  models.NewTransactionSettled(tx, outcome),
		})
	}
}
