package models

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	defaultSlippageBps = 100
	maxSlippageBps     = 5000
)

type NewSwap struct {
	WalletID     string          `json:"wallet_id"`
	FromContract string          `json:"from_contract,omitempty"` // empty for the native coin
	ToContract   string          `json:"to_contract,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	SlippageBps  uint16          `json:"slippage_bps,omitempty"`
}

func (s *NewSwap) Validate() error {
	if s.WalletID == "" {
		return errors.New("empty wallet id provided")
	}

	s.FromContract = strings.TrimSpace(s.FromContract)
	s.ToContract = strings.TrimSpace(s.ToContract)
	if s.FromContract == s.ToContract {
		return errors.New("cannot swap a token to itself")
	}

	if !s.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}

	if s.SlippageBps == 0 {
		s.SlippageBps = defaultSlippageBps
	}
	if s.SlippageBps > maxSlippageBps {
		return errors.New("slippage is too high")
	}

	return nil
}

// SwapToken is one side of a swap as the router sees it.
type SwapToken struct {
	Contract string // empty for the native coin
	Symbol   string
	Decimals uint8
}

func (t SwapToken) IsNative() bool {
	return t.Contract == ""
}

// SwapOrder is the request handed to a swap router.
type SwapOrder struct {
	Network       Network
	Keys          *KeyMaterial
	From          SwapToken
	To            SwapToken
	Amount        decimal.Decimal
	SlippageBps   uint16
	ServiceFeeBps uint16
}

type SwapResult struct {
	Hash       string          `json:"hash"`
	FromAmount decimal.Decimal `json:"from_amount"`
	ToAmount   decimal.Decimal `json:"to_amount"`
	Fee        decimal.Decimal `json:"fee"` // estimated network fee in native units
}

type SwapFeeEstimation struct {
	NetworkFee    decimal.Decimal `json:"network_fee"`
	NetworkFeeUSD decimal.Decimal `json:"network_fee_usd"`
	ServiceFee    decimal.Decimal `json:"service_fee"`
	ServiceFeeUSD decimal.Decimal `json:"service_fee_usd"`
}
