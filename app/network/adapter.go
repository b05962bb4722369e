// Package network defines the per-chain adapter contract and the registry that
// selects an adapter by network.
package network

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"custody/app/models"
)

// TxRef is what reconciliation knows about a submitted transaction.
type TxRef struct {
	Hash string // chain hash or correlation reference
	From string // sender address
}

// ChainTx is one observed on-chain transaction. Fee is in native units.
type ChainTx struct {
	Hash    string
	Lt      uint64 // logical time / slot / block, used to order hops
	Fee     decimal.Decimal
	Success bool
	Final   bool
}

// PollPolicy bounds how long a single reconciliation worker keeps looking
// for a transaction before leaving it for the next tick.
type PollPolicy struct {
	Attempts int
	Interval time.Duration
}

func (p PollPolicy) withDefaults() PollPolicy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	return p
}

// Adapter hides everything network specific: key derivation, balance reads,
// transfer submission and confirmation lookups.
type Adapter interface {
	Network() models.Network

	GenerateWallet(ctx context.Context) (*models.KeyMaterial, error)
	ImportWallet(ctx context.Context, secret string) (*models.KeyMaterial, error)

	// GetBalance and GetTokenBalance fail soft: an unreachable node reads as zero.
	GetBalance(ctx context.Context, address string) decimal.Decimal
	GetTokenBalance(ctx context.Context, address, contract string) decimal.Decimal
	TokenInfo(ctx context.Context, contract string) (*models.TokenMeta, error)
	ValidateAddress(address string) error

	SubmitTransfer(ctx context.Context, order *models.TransferOrder) (*models.Submission, error)
	SubmitTokenTransfer(ctx context.Context, order *models.TransferOrder) (*models.Submission, error)

	// LookupTransaction has no side effects. It returns nothing while the
	// transaction is not yet visible.
	LookupTransaction(ctx context.Context, ref TxRef) ([]*ChainTx, error)
	PollPolicy() PollPolicy
}

type Registry struct {
	adapters map[models.Network]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[models.Network]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Network()] = a
	}
	return r
}

func (r *Registry) Get(network models.Network) (Adapter, error) {
	a, ok := r.adapters[network]
	if !ok {
		return nil, errors.Wrapf(models.ErrUnsupportedNetwork, "no adapter for %s", network)
	}
	return a, nil
}

func (r *Registry) Networks() []models.Network {
	result := make([]models.Network, 0, len(r.adapters))
	for n := range r.adapters {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Poll calls LookupTransaction up to policy.Attempts times until at least
// hops distinct final transactions are seen. It returns what it saw so far
// together with the last lookup error when the budget runs out.
func Poll(ctx context.Context, a Adapter, ref TxRef, hops int) ([]*ChainTx, error) {
	policy := a.PollPolicy().withDefaults()
	seen := make(map[string]*ChainTx)
	var lastErr error

	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return collect(seen), ctx.Err()
			case <-time.After(policy.Interval):
			}
		}

		found, err := a.LookupTransaction(ctx, ref)
		if err != nil {
			lastErr = err
			continue
		}
		for _, tx := range found {
			if tx.Final {
				seen[tx.Hash] = tx
			}
		}
		if len(seen) >= hops {
			return collect(seen), nil
		}
	}

	return collect(seen), lastErr
}

func collect(seen map[string]*ChainTx) []*ChainTx {
	result := make([]*ChainTx, 0, len(seen))
	for _, tx := range seen {
		result = append(result, tx)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Lt == result[j].Lt {
			return result[i].Hash < result[j].Hash
		}
		return result[i].Lt < result[j].Lt
	})
	return result
}

// Settle folds the first hops observed transactions into an outcome: fees are
// summed, status and hash come from the last hop.
func Settle(observed []*ChainTx, hops int) (*models.Outcome, bool) {
	if hops < 1 || len(observed) < hops {
		return nil, false
	}

	fee := decimal.Zero
	for _, tx := range observed[:hops] {
		fee = fee.Add(tx.Fee)
	}
	last := observed[hops-1]

	status := models.TxFailed
	if last.Success {
		status = models.TxSuccess
	}
	return &models.Outcome{Status: status, Fee: fee, Hash: last.Hash}, true
}
