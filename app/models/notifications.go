package models

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type NewSubscription struct {
	ClientID       string `json:"client_id"`
	ResponseWriter http.ResponseWriter
	Request        *http.Request
}

type Notification struct {
	ClientID string      `json:"client_id"`
	Message  interface{} `json:"message"`
}

// TransactionSettled is pushed to wallet subscribers when a ledger row reaches
// a terminal status.
type TransactionSettled struct {
	ID       string          `json:"id"`
	WalletID string          `json:"wallet_id"`
	Type     TxType          `json:"type"`
	Network  Network         `json:"network"`
	Hash     string          `json:"hash"`
	Status   TxStatus        `json:"status"`
	Fee      decimal.Decimal `json:"fee"`
	FeeUSD   decimal.Decimal `json:"fee_usd"`
}

func NewTransactionSettled(tx *Transaction, outcome *Outcome) *TransactionSettled {
	hash := tx.Hash
	if outcome.Hash != "" {
		hash = outcome.Hash
	}
	return &TransactionSettled{
		ID:       tx.ID,
		WalletID: tx.WalletID,
		Type:     tx.Type,
		Network:  tx.Network,
		Hash:     hash,
		Status:   outcome.Status,
		Fee:      outcome.Fee,
		FeeUSD:   outcome.FeeUSD,
	}
}
