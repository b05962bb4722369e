package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_reconcile_ticks_total",
		Help: "Reconciliation job runs",
	}, []string{"job", "status"})

	tickLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "custody_reconcile_tick_duration_seconds",
		Help:    "Reconciliation job run duration",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"job"})

	settledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_transactions_settled_total",
		Help: "Ledger rows moved to a terminal status",
	}, []string{"network", "type", "status"})

	unconfirmedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_transactions_unconfirmed_total",
		Help: "Polls that ended with the row still pending",
	}, []string{"network", "type"})

	referralsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "custody_referral_commissions_total",
		Help: "Processed referral commissions by result",
	}, []string{"result"})
)
