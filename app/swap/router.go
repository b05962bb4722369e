// Package swap routes token swaps to the aggregator or DEX of each network.
package swap

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"custody/app/models"
)

const bpsDenominator = 10000

type Router interface {
	Network() models.Network
	// Swap submits the swap and returns without waiting for confirmation.
	Swap(ctx context.Context, order *models.SwapOrder) (*models.SwapResult, error)
	// EstimateFee returns the expected network fee in native units.
	EstimateFee(ctx context.Context, order *models.SwapOrder) (decimal.Decimal, error)
}

type Config struct {
	ServiceFeeBps   uint16 `mapstructure:"serviceFeeBps"`
	FeeRecipient    string `mapstructure:"feeRecipient"`
	ZeroXURL        string `mapstructure:"zeroXUrl"`
	ZeroXAPIKey     string `mapstructure:"zeroXApiKey"`
	JupiterURL      string `mapstructure:"jupiterUrl"`
	JupiterReferral string `mapstructure:"jupiterReferral"`
	DedustFactory   string `mapstructure:"dedustFactory"`
	DedustReferral  string `mapstructure:"dedustReferral"`
}

func (c *Config) Validate() error {
	if c.ZeroXURL == "" {
		return errors.New("you must provide a 0x api url in a config")
	}
	if c.JupiterURL == "" {
		return errors.New("you must provide a jupiter api url in a config")
	}
	if c.DedustFactory == "" {
		return errors.New("you must provide a dedust factory address in a config")
	}
	if c.ServiceFeeBps >= bpsDenominator {
		return errors.New("you must provide a service fee below 10000 bps in a config")
	}
	return nil
}

// ServiceFee is the platform's cut of amount.
func ServiceFee(amount decimal.Decimal, bps uint16) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(bps))).Div(decimal.NewFromInt(bpsDenominator))
}

// MinOut reduces amount by slippage, truncating to whole base units.
func MinOut(amount decimal.Decimal, slippageBps uint16) decimal.Decimal {
	keep := decimal.NewFromInt(int64(bpsDenominator - int(slippageBps)))
	return amount.Mul(keep).Div(decimal.NewFromInt(bpsDenominator)).Truncate(0)
}

type Registry struct {
	routers map[models.Network]Router
}

func NewRegistry(routers ...Router) *Registry {
	r := &Registry{routers: make(map[models.Network]Router, len(routers))}
	for _, router := range routers {
		r.routers[router.Network()] = router
	}
	return r
}

func (r *Registry) Get(network models.Network) (Router, error) {
	router, ok := r.routers[network]
	if !ok {
		return nil, errors.Wrapf(models.ErrUnsupportedNetwork, "no swap router for %s", network)
	}
	return router, nil
}

func (r *Registry) Networks() []models.Network {
	result := make([]models.Network, 0, len(r.routers))
	for n := range r.routers {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
