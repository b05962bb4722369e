package models

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxTransfer TxType = "TRANSFER"
	TxSwap     TxType = "SWAP"
)

type TxStatus string

const (
	TxPending TxStatus = "PENDING"
	TxSuccess TxStatus = "SUCCESS"
	TxFailed  TxStatus = "FAILED"
)

func (s TxStatus) IsTerminal() bool {
	return s == TxSuccess || s == TxFailed
}

// Transaction is a ledger row. It is created PENDING at submission and moves
// to a terminal status exactly once.
type Transaction struct {
	Base
	WalletID            string          `json:"wallet_id"`
	Type                TxType          `json:"type"`
	Network             Network         `json:"network"`
	Hash                string          `json:"hash"`
	Status              TxStatus        `json:"status"`
	Amount              decimal.Decimal `json:"amount"`
	AmountUSD           decimal.Decimal `json:"amount_usd"`
	From                string          `json:"from"`
	To                  string          `json:"to"`
	Currency            string          `json:"currency"`
	FromCurrency        string          `json:"from_currency,omitempty"`
	ToCurrency          string          `json:"to_currency,omitempty"`
	ToAmount            decimal.Decimal `json:"to_amount"`
	ToAmountUSD         decimal.Decimal `json:"to_amount_usd"`
	Fee                 decimal.Decimal `json:"fee"`
	FeeUSD              decimal.Decimal `json:"fee_usd"`
	ServiceFee          decimal.Decimal `json:"service_fee"`
	ServiceFeeUSD       decimal.Decimal `json:"service_fee_usd"`
	IsReferralProcessed bool            `json:"is_referral_processed"`
}

// Outcome is what reconciliation writes when a transaction settles.
type Outcome struct {
	Status TxStatus
	Fee    decimal.Decimal
	FeeUSD decimal.Decimal
	Hash   string // empty keeps the stored hash
}

func (o *Outcome) Validate() error {
	if !o.Status.IsTerminal() {
		return errors.Errorf("outcome status must be terminal, got %s", o.Status)
	}
	return nil
}

type NewTransfer struct {
	WalletID string          `json:"wallet_id"`
	To       string          `json:"to"`
	Amount   decimal.Decimal `json:"amount"`
	Contract string          `json:"contract,omitempty"` // empty for the native coin
}

func (t *NewTransfer) Validate() error {
	if t.WalletID == "" {
		return errors.New("empty wallet id provided")
	}

	if t.To == "" {
		return errors.New("empty destination address provided")
	}

	if !t.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}

	return nil
}

// TransferOrder is a signed-transfer request handed to a network adapter.
type TransferOrder struct {
	Keys     *KeyMaterial
	To       string
	Amount   decimal.Decimal
	Contract string
}

// Submission is what an adapter returns once the network accepted a transaction.
// For the cell chain Hash holds a correlation reference, not a chain hash.
type Submission struct {
	Hash         string
	EstimatedFee decimal.Decimal
}

type HistoryFilter struct {
	WalletID string
	Limit    uint64
	Offset   uint64
}
