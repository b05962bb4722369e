package models

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type WalletType string

const (
	WalletGenerated WalletType = "GENERATED"
	WalletImported  WalletType = "IMPORTED"

	maxWalletNameLength = 64
)

type NewWallet struct {
	UserID  string  `json:"user_id"`
	Name    string  `json:"name"`
	Network Network `json:"network"`
}

func (w *NewWallet) Validate() error {
	if w.UserID == "" {
		return errors.New("empty user id provided")
	}

	w.Name = strings.TrimSpace(w.Name)
	if len(w.Name) > maxWalletNameLength {
		return errors.New("wallet name is too long")
	}

	return w.Network.Validate()
}

type ImportWallet struct {
	NewWallet
	Secret string `json:"secret"` // mnemonic or private key
}

func (w *ImportWallet) Validate() error {
	if err := w.NewWallet.Validate(); err != nil {
		return err
	}

	w.Secret = strings.TrimSpace(w.Secret)
	if w.Secret == "" {
		return errors.New("empty mnemonic or private key provided")
	}

	return nil
}

type Wallet struct {
	Base
	UserID       string          `json:"user_id"`
	Name         string          `json:"name"`
	Network      Network         `json:"network"`
	Type         WalletType      `json:"type"`
	Address      string          `json:"address"`
	CanBeDeleted bool            `json:"can_be_deleted"`
	BalanceUSD   decimal.Decimal `json:"balance_usd"`
	Tokens       []*Token        `json:"tokens,omitempty"`
}

// NativeToken returns the wallet's native token row if it was loaded.
func (w *Wallet) NativeToken() *Token {
	for _, t := range w.Tokens {
		if t.IsNative() {
			return t
		}
	}
	return nil
}

// FindToken returns the loaded token with the given contract ("" for native).
func (w *Wallet) FindToken(contract string) *Token {
	if contract == "" {
		return w.NativeToken()
	}
	for _, t := range w.Tokens {
		if !t.IsNative() && w.Network.SameContract(t.Contract, contract) {
			return t
		}
	}
	return nil
}

// KeyMaterial is what an adapter derives when a wallet is generated or imported.
type KeyMaterial struct {
	Address    string `json:"address"`
	Mnemonic   string `json:"-"`
	PrivateKey string `json:"-"`
	PublicKey  string `json:"public_key,omitempty"`
}

// Secrets are the signing keys of a wallet. They are sealed at rest and only
// opened right before signing.
type Secrets struct {
	WalletID   string
	Mnemonic   string
	PrivateKey string
	PublicKey  string
}

func (s *Secrets) KeyMaterial(address string) *KeyMaterial {
	return &KeyMaterial{
		Address:    address,
		Mnemonic:   s.Mnemonic,
		PrivateKey: s.PrivateKey,
		PublicKey:  s.PublicKey,
	}
}

type GeneratedWallet struct {
	Wallet   *Wallet `json:"wallet"`
	Mnemonic string  `json:"mnemonic,omitempty"` // shown once on creation
}
