package database

import (
	"time"

	"github.com/shopspring/decimal"

	"custody/app/models"
)

type Base struct {
	ID        string     `db:"id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

func (b *Base) GetUpdatedAtUnix() int64 {
	if b == nil || b.UpdatedAt == nil {
		return 0
	}
	return b.UpdatedAt.Unix()
}

func (b *Base) ToPublic() models.Base {
	return models.Base{
		ID:        b.ID,
		CreatedAt: b.CreatedAt.Unix(),
		UpdatedAt: b.GetUpdatedAtUnix(),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type Wallet struct {
	Base
	UserID       string          `db:"user_id"`
	Name         string          `db:"name"`
	Network      string          `db:"network"`
	Type         string          `db:"type"`
	Address      string          `db:"address"`
	CanBeDeleted bool            `db:"can_be_deleted"`
	BalanceUSD   decimal.Decimal `db:"balance_usd"`
}

func WalletFromPublic(w *models.Wallet) *Wallet {
	return &Wallet{
		Base:         Base{ID: w.ID},
		UserID:       w.UserID,
		Name:         w.Name,
		Network:      string(w.Network),
		Type:         string(w.Type),
		Address:      w.Address,
		CanBeDeleted: w.CanBeDeleted,
		BalanceUSD:   w.BalanceUSD,
	}
}

func (w *Wallet) ToPublic() *models.Wallet {
	return &models.Wallet{
		Base:         w.Base.ToPublic(),
		UserID:       w.UserID,
		Name:         w.Name,
		Network:      models.Network(w.Network),
		Type:         models.WalletType(w.Type),
		Address:      w.Address,
		CanBeDeleted: w.CanBeDeleted,
		BalanceUSD:   w.BalanceUSD,
	}
}

// Secrets hold sealed values only; the database never sees plaintext keys.
type Secrets struct {
	WalletID   string    `db:"wallet_id"`
	Mnemonic   string    `db:"mnemonic"`
	PrivateKey string    `db:"private_key"`
	PublicKey  string    `db:"public_key"`
	CreatedAt  time.Time `db:"created_at"`
}

type Token struct {
	Base
	WalletID              string          `db:"wallet_id"`
	Symbol                string          `db:"symbol"`
	Name                  string          `db:"name"`
	Network               string          `db:"network"`
	Contract              *string         `db:"contract"`
	Balance               decimal.Decimal `db:"balance"`
	BalanceUSD            decimal.Decimal `db:"balance_usd"`
	Price                 decimal.Decimal `db:"price"`
	PriceChangePercentage decimal.Decimal `db:"price_change_percentage"`
	Icon                  string          `db:"icon"`
}

func TokenFromPublic(t *models.Token) *Token {
	return &Token{
		Base:                  Base{ID: t.ID},
		WalletID:              t.WalletID,
		Symbol:                t.Symbol,
		Name:                  t.Name,
		Network:               string(t.Network),
		Contract:              nullable(t.Contract),
		Balance:               t.Balance,
		BalanceUSD:            t.BalanceUSD,
		Price:                 t.Price,
		PriceChangePercentage: t.PriceChangePercentage,
		Icon:                  t.Icon,
	}
}

func (t *Token) ToPublic() *models.Token {
	return &models.Token{
		Base:                  t.Base.ToPublic(),
		WalletID:              t.WalletID,
		Symbol:                t.Symbol,
		Name:                  t.Name,
		Network:               models.Network(t.Network),
		Contract:              deref(t.Contract),
		Balance:               t.Balance,
		BalanceUSD:            t.BalanceUSD,
		Price:                 t.Price,
		PriceChangePercentage: t.PriceChangePercentage,
		Icon:                  t.Icon,
	}
}

type Transaction struct {
	Base
	WalletID            string          `db:"wallet_id"`
	Type                string          `db:"type"`
	Network             string          `db:"network"`
	Hash                string          `db:"hash"`
	Status              string          `db:"status"`
	Amount              decimal.Decimal `db:"amount"`
	AmountUSD           decimal.Decimal `db:"amount_usd"`
	From                string          `db:"from_address"`
	To                  string          `db:"to_address"`
	Currency            string          `db:"currency"`
	FromCurrency        *string         `db:"from_currency"`
	ToCurrency          *string         `db:"to_currency"`
	ToAmount            decimal.Decimal `db:"to_amount"`
	ToAmountUSD         decimal.Decimal `db:"to_amount_usd"`
	Fee                 decimal.Decimal `db:"fee"`
	FeeUSD              decimal.Decimal `db:"fee_usd"`
	ServiceFee          decimal.Decimal `db:"service_fee"`
	ServiceFeeUSD       decimal.Decimal `db:"service_fee_usd"`
	IsReferralProcessed bool            `db:"is_referral_processed"`
}

func TransactionFromPublic(t *models.Transaction) *Transaction {
	return &Transaction{
		Base:                Base{ID: t.ID},
		WalletID:            t.WalletID,
		Type:                string(t.Type),
		Network:             string(t.Network),
		Hash:                t.Hash,
		Status:              string(t.Status),
		Amount:              t.Amount,
		AmountUSD:           t.AmountUSD,
		From:                t.From,
		To:                  t.To,
		Currency:            t.Currency,
		FromCurrency:        nullable(t.FromCurrency),
		ToCurrency:          nullable(t.ToCurrency),
		ToAmount:            t.ToAmount,
		ToAmountUSD:         t.ToAmountUSD,
		Fee:                 t.Fee,
		FeeUSD:              t.FeeUSD,
		ServiceFee:          t.ServiceFee,
		ServiceFeeUSD:       t.ServiceFeeUSD,
		IsReferralProcessed: t.IsReferralProcessed,
	}
}

func (t *Transaction) ToPublic() *models.Transaction {
	return &models.Transaction{
		Base:                t.Base.ToPublic(),
		WalletID:            t.WalletID,
		Type:                models.TxType(t.Type),
		Network:             models.Network(t.Network),
		Hash:                t.Hash,
		Status:              models.TxStatus(t.Status),
		Amount:              t.Amount,
		AmountUSD:           t.AmountUSD,
		From:                t.From,
		To:                  t.To,
		Currency:            t.Currency,
		FromCurrency:        deref(t.FromCurrency),
		ToCurrency:          deref(t.ToCurrency),
		ToAmount:            t.ToAmount,
		ToAmountUSD:         t.ToAmountUSD,
		Fee:                 t.Fee,
		FeeUSD:              t.FeeUSD,
		ServiceFee:          t.ServiceFee,
		ServiceFeeUSD:       t.ServiceFeeUSD,
		IsReferralProcessed: t.IsReferralProcessed,
	}
}

type Referral struct {
	UserID    string          `db:"user_id"`
	InvitedBy *string         `db:"invited_by"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt *time.Time      `db:"updated_at"`
}

func (r *Referral) ToPublic() *models.Referral {
	return &models.Referral{
		UserID:    r.UserID,
		InvitedBy: deref(r.InvitedBy),
		Balance:   r.Balance,
	}
}
