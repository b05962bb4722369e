package models

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// TokenQuery identifies a token for the price oracle: by contract when one is
// known, by symbol otherwise.
type TokenQuery struct {
	Symbol   string  `json:"symbol,omitempty"`
	Contract string  `json:"contract,omitempty"`
	Network  Network `json:"network,omitempty"`
}

func (q *TokenQuery) Validate() error {
	if q.Symbol == "" && q.Contract == "" {
		return errors.New("empty token symbol and contract provided")
	}
	return nil
}

// CacheKey is stable for the same token regardless of address case on EVM chains.
func (q *TokenQuery) CacheKey() string {
	if q.Contract != "" {
		contract := q.Contract
		if q.Network.IsEVM() {
			contract = strings.ToLower(contract)
		}
		return string(q.Network) + ":" + contract
	}
	return "sym:" + strings.ToUpper(q.Symbol)
}

type Price struct {
	Price                 decimal.Decimal `json:"price"`
	PriceChangePercentage decimal.Decimal `json:"price_change_percentage"`
}

type PriceMeta struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Logo   string `json:"logo"`
}

type ExtendedInfo struct {
	PriceMeta
	Price            decimal.Decimal `json:"price"`
	PercentChange24h decimal.Decimal `json:"percent_change_24h"`
	PercentChange7d  decimal.Decimal `json:"percent_change_7d"`
	PercentChange30d decimal.Decimal `json:"percent_change_30d"`
	MarketCap        decimal.Decimal `json:"market_cap"`
	TotalSupply      decimal.Decimal `json:"total_supply"`
	MaxSupply        decimal.Decimal `json:"max_supply"`
}

type HistoricalQuote struct {
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
}

type HistoryWindow struct {
	Start    time.Time
	End      time.Time
	Interval string // e.g. "1h", "daily"
}

func (w *HistoryWindow) Validate() error {
	if w.End.IsZero() {
		w.End = time.Now()
	}
	if w.Start.IsZero() {
		w.Start = w.End.Add(-24 * time.Hour)
	}
	if !w.Start.Before(w.End) {
		return errors.New("history window start must be before its end")
	}
	if w.Interval == "" {
		w.Interval = "1h"
	}
	return nil
}
