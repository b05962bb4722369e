package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"custody/app/models"
)

var (
	ErrNotFound = errors.New("record not found")
)

type Database interface {
	Wallets
	Ledger
	Referrals
}

type Wallets interface {
	// CreateWallet inserts the wallet, its secrets and its initial tokens atomically.
	CreateWallet(ctx context.Context, wallet *Wallet, secrets *Secrets, tokens []*Token) (*Wallet, error)
	GetWallet(ctx context.Context, id string) (*Wallet, error)
	ListWallets(ctx context.Context, userID string) ([]*Wallet, error)
	DeleteWallet(ctx context.Context, id string) error
	UpdateWalletBalance(ctx context.Context, id string, balanceUSD decimal.Decimal) error
	GetSecrets(ctx context.Context, walletID string) (*Secrets, error)
	CreateToken(ctx context.Context, token *Token) (*Token, error)
	ListTokens(ctx context.Context, walletID string) ([]*Token, error)
	UpdateTokenBalances(ctx context.Context, tokens []*Token) error
}

// Ledger stores transactions. Terminal writes are guarded in SQL so a row
// leaves PENDING exactly once and its referral flag flips exactly once.
type Ledger interface {
	InsertTransaction(ctx context.Context, tx *Transaction) (*Transaction, error)
	UpdateOutcome(ctx context.Context, id string, outcome *models.Outcome) (bool, error)
	MarkReferralProcessed(ctx context.Context, id string) (bool, error)
	FindPending(ctx context.Context, txType string) ([]*Transaction, error)
	FindStale(ctx context.Context, txType string, olderThan time.Time) ([]*Transaction, error)
	FindUnprocessedReferrals(ctx context.Context) ([]*Transaction, error)
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	ListTransactions(ctx context.Context, walletID string, limit, offset uint64) ([]*Transaction, error)
}

type Referrals interface {
	GetReferral(ctx context.Context, userID string) (*Referral, error)
	CreditReferral(ctx context.Context, userID string, amount decimal.Decimal) error
	CreditCommission(ctx context.Context, txID, userID string, amount decimal.Decimal) (bool, error)
}
