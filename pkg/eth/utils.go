package eth

import (
	"math/big"
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

var (
	addressRegex = regexp.MustCompile("^0x[0-9a-fA-F]{40}$")

	// NativeTokenAddress is the placeholder aggregators use for the chain's native coin.
	NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")
)

func CalcGasCost(gasLimit uint64, gasPrice *big.Int) *big.Int {
	gasLimitBig := new(big.Int).SetUint64(gasLimit)
	return gasLimitBig.Mul(gasLimitBig, gasPrice)
}

func IsValidAddress(iaddress interface{}) bool {
	switch v := iaddress.(type) {
	case string:
		return addressRegex.MatchString(v)
	case common.Address:
		return addressRegex.MatchString(v.Hex())
	default:
		return false
	}
}
