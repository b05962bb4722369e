package units

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToDecimal(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		decimals uint8
		expected string
	}{
		{"wei string", "1500000000000000000", 18, "1.5"},
		{"lamports", uint64(5000), 9, "0.000005"},
		{"big int", big.NewInt(1234567), 6, "1.234567"},
		{"nil big int", (*big.Int)(nil), 9, "0"},
		{"zero decimals", int64(42), 0, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToDecimal(tt.value, tt.decimals).String())
		})
	}
}

func TestToBase(t *testing.T) {
	assert.Equal(t, "1500000000000000000", ToBase("1.5", 18).String())
	assert.Equal(t, "1000000", ToBase(decimal.NewFromInt(1), 6).String())
	// below one base unit is dropped
	assert.Equal(t, "1", ToBase("0.0000019", 6).String())
	assert.Equal(t, uint64(250000000), ToBaseUint64(decimal.RequireFromString("0.25"), 9))
}

func TestRoundTrip(t *testing.T) {
	amount := decimal.RequireFromString("12.345678901234567891")
	assert.True(t, amount.Equal(ToDecimal(ToBase(amount, 18), 18)))
}
