package models

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Token struct {
	Base
	WalletID              string          `json:"wallet_id"`
	Symbol                string          `json:"symbol"`
	Name                  string          `json:"name"`
	Network               Network         `json:"network"`
	Contract              string          `json:"contract,omitempty"` // empty for the native coin
	Balance               decimal.Decimal `json:"balance"`
	BalanceUSD            decimal.Decimal `json:"balance_usd"`
	Price                 decimal.Decimal `json:"price"`
	PriceChangePercentage decimal.Decimal `json:"price_change_percentage"`
	Icon                  string          `json:"icon,omitempty"`
}

func (t *Token) IsNative() bool {
	return t.Contract == ""
}

// Query is how the price oracle looks this token up.
func (t *Token) Query() *TokenQuery {
	if t.IsNative() {
		return &TokenQuery{Symbol: t.Symbol}
	}
	return &TokenQuery{Symbol: t.Symbol, Contract: t.Contract, Network: t.Network}
}

type NewToken struct {
	WalletID string `json:"wallet_id"`
	Contract string `json:"contract"`
}

func (t *NewToken) Validate() error {
	if t.WalletID == "" {
		return errors.New("empty wallet id provided")
	}

	t.Contract = strings.TrimSpace(t.Contract)
	if t.Contract == "" {
		return errors.New("empty token contract provided")
	}

	return nil
}

// TokenMeta is what the chain itself says about a token contract.
type TokenMeta struct {
	Contract string `json:"contract"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
}
