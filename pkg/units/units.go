// Package units converts between on-chain integer amounts and decimal token amounts.
package units

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ToDecimal scales an integer base-unit amount (wei, lamports, nanotons) down by 10^decimals.
func ToDecimal(ivalue interface{}, decimals uint8) decimal.Decimal {
	value := new(big.Int)
	switch v := ivalue.(type) {
	case string:
		value.SetString(v, 10)
	case *big.Int:
		if v != nil {
			value = v
		}
	case uint64:
		value.SetUint64(v)
	case int64:
		value.SetInt64(v)
	}

	return decimal.NewFromBigInt(value, -int32(decimals))
}

// ToBase scales a decimal amount up by 10^decimals, truncating anything below one base unit.
func ToBase(iamount interface{}, decimals uint8) *big.Int {
	amount := decimal.Zero
	switch v := iamount.(type) {
	case string:
		amount, _ = decimal.NewFromString(v)
	case float64:
		amount = decimal.NewFromFloat(v)
	case int64:
		amount = decimal.NewFromInt(v)
	case decimal.Decimal:
		amount = v
	case *decimal.Decimal:
		if v != nil {
			amount = *v
		}
	}

	return amount.Shift(int32(decimals)).BigInt()
}

// ToBaseUint64 is ToBase for chains whose amounts fit in uint64.
func ToBaseUint64(amount decimal.Decimal, decimals uint8) uint64 {
	return ToBase(amount, decimals).Uint64()
}
