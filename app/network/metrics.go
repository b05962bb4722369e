package network

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "custody",
		Subsystem: "network",
		Name:      "rpc_calls_total",
		Help:      "RPC calls to chain nodes by network, method and result.",
	}, []string{"network", "method", "status"})

	rateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "custody",
		Subsystem: "network",
		Name:      "rate_limit_waits_total",
		Help:      "RPC calls delayed by the local rate limiter.",
	}, []string{"network"})
)
