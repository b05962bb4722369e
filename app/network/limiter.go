package network

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"custody/app/models"
)

// Limiter is a token bucket in front of a node's RPC endpoint. Every call goes
// through Do, which also records metrics and tags failures as adapter errors.
type Limiter struct {
	limiter *rate.Limiter
	network models.Network
}

func NewLimiter(network models.Network, rps float64, burst int) *Limiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst), network: network}
}

func (l *Limiter) wait(ctx context.Context) error {
	r := l.limiter.Reserve()
	if !r.OK() {
		return errors.New("rate: cannot reserve token")
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}

	rateLimitWaits.WithLabelValues(string(l.network)).Inc()
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}

// Do runs one rate limited RPC call. Errors come back as *models.AdapterError.
func (l *Limiter) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := l.wait(ctx); err != nil {
		return models.NewAdapterError(l.network, op, err)
	}

	err := fn(ctx)
	rpcCalls.WithLabelValues(string(l.network), op, classify(err)).Inc()
	if err != nil {
		return models.NewAdapterError(l.network, op, err)
	}
	return nil
}

func classify(err error) string {
	if err == nil {
		return "ok"
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return "timeout"
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "429") || strings.Contains(lower, "too many requests"):
		return "rate_limited"
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "eof"):
		return "network_error"
	default:
		return "error"
	}
}
