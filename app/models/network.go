package models

import (
	"strings"

	"github.com/pkg/errors"
)

type Network string

const (
	ETH Network = "ETH"
	BSC Network = "BSC"
	SOL Network = "SOL"
	TON Network = "TON"
)

var (
	Networks = []Network{ETH, BSC, SOL, TON}

	ErrUnsupportedNetwork = errors.New("unsupported network")
)

type networkParams struct {
	nativeSymbol   string
	nativeName     string
	nativeDecimals uint8
	stableContract string
	evm            bool
}

var params = map[Network]networkParams{
	ETH: {
		nativeSymbol:   "ETH",
		nativeName:     "Ethereum",
		nativeDecimals: 18,
		stableContract: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		evm:            true,
	},
	BSC: {
		nativeSymbol:   "BNB",
		nativeName:     "BNB",
		nativeDecimals: 18,
		stableContract: "0x55d398326f99059fF775485246999027B3197955",
		evm:            true,
	},
	SOL: {
		nativeSymbol:   "SOL",
		nativeName:     "Solana",
		nativeDecimals: 9,
		stableContract: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB",
	},
	TON: {
		nativeSymbol:   "TON",
		nativeName:     "Toncoin",
		nativeDecimals: 9,
		stableContract: "EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs",
	},
}

func ParseNetwork(s string) (Network, error) {
	n := Network(strings.ToUpper(strings.TrimSpace(s)))
	if err := n.Validate(); err != nil {
		return "", err
	}
	return n, nil
}

func (n Network) Validate() error {
	if _, ok := params[n]; !ok {
		return errors.Wrapf(ErrUnsupportedNetwork, "%q", string(n))
	}
	return nil
}

func (n Network) String() string {
	return string(n)
}

func (n Network) NativeSymbol() string {
	return params[n].nativeSymbol
}

func (n Network) NativeName() string {
	return params[n].nativeName
}

func (n Network) NativeDecimals() uint8 {
	return params[n].nativeDecimals
}

// StableContract is the USDT contract (or mint, or jetton master) on the network.
func (n Network) StableContract() string {
	return params[n].stableContract
}

func (n Network) IsEVM() bool {
	return params[n].evm
}

// SameContract compares contract addresses the way the network does: EVM
// addresses are case-insensitive, base58 and base64 ones are not.
func (n Network) SameContract(a, b string) bool {
	if n.IsEVM() {
		return strings.EqualFold(a, b)
	}
	return a == b
}
