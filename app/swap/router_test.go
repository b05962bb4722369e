package swap

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody/app/models"
)

type stubRouter struct {
	network models.Network
}

func (s stubRouter) Network() models.Network {
	return s.network
}

func (s stubRouter) Swap(context.Context, *models.SwapOrder) (*models.SwapResult, error) {
	return &models.SwapResult{}, nil
}

func (s stubRouter) EstimateFee(context.Context, *models.SwapOrder) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func TestServiceFee(t *testing.T) {
	assert.Equal(t, "0.25", ServiceFee(decimal.RequireFromString("25"), 100).String())
	assert.True(t, ServiceFee(decimal.RequireFromString("25"), 0).IsZero())
}

func TestMinOut(t *testing.T) {
	assert.Equal(t, "990", MinOut(decimal.NewFromInt(1000), 100).String())
	assert.Equal(t, "98", MinOut(decimal.NewFromInt(99), 100).String())
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(stubRouter{models.TON}, stubRouter{models.ETH})

	router, err := r.Get(models.TON)
	require.NoError(t, err)
	assert.Equal(t, models.TON, router.Network())

	_, err = r.Get(models.SOL)
	assert.ErrorIs(t, err, models.ErrUnsupportedNetwork)
	assert.Equal(t, []models.Network{models.ETH, models.TON}, r.Networks())
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{ZeroXURL: "https://api.0x.org", JupiterURL: "https://quote-api.jup.ag/v6", DedustFactory: "EQ..."}
	assert.NoError(t, cfg.Validate())

	cfg.ServiceFeeBps = 10000
	assert.Error(t, cfg.Validate())
}
