// Package wallet is the entry point for everything a user does with a wallet:
// creating it, reading balances, sending and swapping.
package wallet

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
	"go.uber.org/multierr"

	"custody/app/ledger"
	"custody/app/models"
	"custody/app/network"
	"custody/app/price"
	"custody/app/storage/database"
	"custody/app/swap"
	"custody/pkg/log"
	"custody/pkg/response"
	"custody/pkg/uuid"
)

const (
	defaultQRSize = 256

	stableSymbol = "USDT"
	stableName   = "Tether USD"
)

// Sealer encrypts secrets bound to the owning wallet id.
type Sealer interface {
	Seal(plaintext, associated string) (string, error)
	Open(sealed, associated string) (string, error)
}

type Manager struct {
	DB       database.Wallets
	Ledger   ledger.Service
	Networks *network.Registry
	Swaps    *swap.Registry
	Prices   price.Service
	Sealer   Sealer

	ServiceFeeBps  uint16
	SignupNetworks []models.Network
}

func (m *Manager) GenerateWallet(ctx context.Context, wallet *models.NewWallet) (*models.GeneratedWallet, error) {
	log.AddFields(ctx, "network", wallet.Network, "user", wallet.UserID)

	if err := wallet.Validate(); err != nil {
		return nil, response.Wrap(response.CodeBadRequest, err)
	}

	created, keys, err := m.generate(ctx, wallet, true)
	if err != nil {
		return nil, err
	}

	return &models.GeneratedWallet{Wallet: created, Mnemonic: keys.Mnemonic}, nil
}

func (m *Manager) generate(ctx context.Context, wallet *models.NewWallet, canBeDeleted bool) (
	*models.Wallet, *models.KeyMaterial, error) {
	adapter, err := m.Networks.Get(wallet.Network)
	if err != nil {
		return nil, nil, response.Wrap(response.CodeBadRequest, err)
	}

	keys, err := adapter.GenerateWallet(ctx)
	if err != nil {
		return nil, nil, response.Wrap(response.CodeInternal, errors.WithMessage(err, "failed to generate a wallet"))
	}

	created, err := m.store(ctx, adapter, wallet, keys, models.WalletGenerated, canBeDeleted)
	if err != nil {
		return nil, nil, err
	}
	return created, keys, nil
}

func (m *Manager) ImportWallet(ctx context.Context, wallet *models.ImportWallet) (*models.Wallet, error) {
	log.AddFields(ctx, "network", wallet.Network, "user", wallet.UserID)

	if err := wallet.Validate(); err != nil {
		return nil, response.Wrap(response.CodeBadRequest, err)
	}

	adapter, err := m.Networks.Get(wallet.Network)
	if err != nil {
		return nil, response.Wrap(response.CodeBadRequest, err)
	}

	keys, err := adapter.ImportWallet(ctx, wallet.Secret)
	if errors.Is(err, models.ErrInvalidSecret) {
		return nil, response.Wrap(response.CodeBadRequest, err)
	}
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, errors.WithMessage(err, "failed to import a wallet"))
	}

	return m.store(ctx, adapter, &wallet.NewWallet, keys, models.WalletImported, true)
}

// store seals the keys and writes the wallet, its secrets, its native token
// and the network's USDT in one database transaction.
func (m *Manager) store(
	ctx context.Context,
	adapter network.Adapter,
	wallet *models.NewWallet,
	keys *models.KeyMaterial,
	walletType models.WalletType,
	canBeDeleted bool,
) (*models.Wallet, error) {
	name := wallet.Name
	if name == "" {
		name = fmt.Sprintf("%s wallet", wallet.Network.NativeName())
	}

	dbWallet := &database.Wallet{
		Base:         database.Base{ID: uuid.NewUUID()},
		UserID:       wallet.UserID,
		Name:         name,
		Network:      string(wallet.Network),
		Type:         string(walletType),
		Address:      keys.Address,
		CanBeDeleted: canBeDeleted,
	}

	secrets, err := m.seal(dbWallet.ID, keys)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}

	tokens := []*models.Token{
		m.nativeToken(ctx, adapter, keys.Address),
		m.stableToken(ctx, adapter, keys.Address),
	}
	dbTokens := make([]*database.Token, 0, len(tokens))
	for _, t := range tokens {
		dbWallet.BalanceUSD = dbWallet.BalanceUSD.Add(t.BalanceUSD)
		dbTokens = append(dbTokens, database.TokenFromPublic(t))
	}

	dbWallet, err = m.DB.CreateWallet(ctx, dbWallet, secrets, dbTokens)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}

	created := dbWallet.ToPublic()
	for _, t := range dbTokens {
		created.Tokens = append(created.Tokens, t.ToPublic())
	}

	log.Infow("wallet created", "wallet", created.ID, "network", created.Network, "type", walletType)
	return created, nil
}

func (m *Manager) seal(walletID string, keys *models.KeyMaterial) (*database.Secrets, error) {
	secrets := &database.Secrets{WalletID: walletID, PublicKey: keys.PublicKey}

	var err error
	if secrets.Mnemonic, err = m.Sealer.Seal(keys.Mnemonic, walletID); err != nil {
		return nil, errors.WithMessage(err, "failed to seal a mnemonic")
	}
	if secrets.PrivateKey, err = m.Sealer.Seal(keys.PrivateKey, walletID); err != nil {
		return nil, errors.WithMessage(err, "failed to seal a private key")
	}
	return secrets, nil
}

// keys opens the wallet secrets right before signing.
func (m *Manager) keys(ctx context.Context, wallet *models.Wallet) (*models.KeyMaterial, error) {
	dbSecrets, err := m.DB.GetSecrets(ctx, wallet.ID)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load wallet secrets")
	}

	secrets := &models.Secrets{WalletID: wallet.ID, PublicKey: dbSecrets.PublicKey}
	if secrets.Mnemonic, err = m.Sealer.Open(dbSecrets.Mnemonic, wallet.ID); err != nil {
		return nil, errors.WithMessage(err, "failed to open a mnemonic")
	}
	if secrets.PrivateKey, err = m.Sealer.Open(dbSecrets.PrivateKey, wallet.ID); err != nil {
		return nil, errors.WithMessage(err, "failed to open a private key")
	}
	return secrets.KeyMaterial(wallet.Address), nil
}

// ProvisionWallets creates the sign-up wallets of a user. They cannot be
// deleted. Either all of them are created or none.
func (m *Manager) ProvisionWallets(ctx context.Context, userID string, networks []models.Network) (
	[]*models.Wallet, error) {
	if len(networks) == 0 {
		networks = m.SignupNetworks
	}

	result := make([]*models.Wallet, 0, len(networks))
	for _, n := range networks {
		wallet := &models.NewWallet{UserID: userID, Network: n}
		if err := wallet.Validate(); err != nil {
			return nil, multierr.Append(response.Wrap(response.CodeBadRequest, err), m.rollback(ctx, result))
		}

		created, _, err := m.generate(ctx, wallet, false)
		if err != nil {
			return nil, multierr.Append(err, m.rollback(ctx, result))
		}
		result = append(result, created)
	}

	log.Infow("sign-up wallets provisioned", "user", userID, "count", len(result))
	return result, nil
}

func (m *Manager) rollback(ctx context.Context, wallets []*models.Wallet) error {
	var err error
	for _, w := range wallets {
		err = multierr.Append(err, errors.Wrapf(m.DB.DeleteWallet(ctx, w.ID), "failed to roll back wallet %s", w.ID))
	}
	return err
}

func (m *Manager) wallet(ctx context.Context, id string) (*models.Wallet, error) {
	if !uuid.IsValid(id) {
		return nil, response.Wrap(response.CodeNotFound, errors.Wrap(models.ErrWalletNotFound, id))
	}

	dbWallet, err := m.DB.GetWallet(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, response.Wrap(response.CodeNotFound, errors.Wrap(models.ErrWalletNotFound, id))
	}
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}
	return dbWallet.ToPublic(), nil
}

// walletWithTokens loads the wallet and its stored token rows as they are.
func (m *Manager) walletWithTokens(ctx context.Context, id string) (*models.Wallet, error) {
	wallet, err := m.wallet(ctx, id)
	if err != nil {
		return nil, err
	}

	dbTokens, err := m.DB.ListTokens(ctx, wallet.ID)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}
	wallet.Tokens = make([]*models.Token, 0, len(dbTokens))
	for _, t := range dbTokens {
		wallet.Tokens = append(wallet.Tokens, t.ToPublic())
	}
	return wallet, nil
}

// GetWallet returns the wallet with fresh balances. The native token comes
// first, the rest are ordered by USD balance.
func (m *Manager) GetWallet(ctx context.Context, id string) (*models.Wallet, error) {
	wallet, err := m.RefreshBalances(ctx, id)
	if err != nil {
		return nil, err
	}
	sortTokens(wallet.Tokens)
	return wallet, nil
}

func (m *Manager) ListWallets(ctx context.Context, userID string) ([]*models.Wallet, error) {
	if userID == "" {
		return nil, response.NewError(response.CodeBadRequest, "empty user id provided")
	}

	dbWallets, err := m.DB.ListWallets(ctx, userID)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}

	result := make([]*models.Wallet, 0, len(dbWallets))
	for _, w := range dbWallets {
		wallet, err := m.walletWithTokens(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		sortTokens(wallet.Tokens)
		result = append(result, wallet)
	}
	return result, nil
}

func (m *Manager) DeleteWallet(ctx context.Context, id string) error {
	wallet, err := m.wallet(ctx, id)
	if err != nil {
		return err
	}

	if !wallet.CanBeDeleted {
		return response.Wrap(response.CodeBadRequest, models.ErrWalletNotDeletable)
	}

	if err := m.DB.DeleteWallet(ctx, id); err != nil {
		return response.Wrap(response.CodeInternal, err)
	}

	log.Infow("wallet deleted", "wallet", id, "network", wallet.Network)
	return nil
}

// WalletOwner returns the user id of the wallet owner.
func (m *Manager) WalletOwner(ctx context.Context, walletID string) (string, error) {
	// ids are uuids in storage; anything else cannot exist
	if !uuid.IsValid(walletID) {
		return "", errors.Wrap(models.ErrWalletNotFound, walletID)
	}

	dbWallet, err := m.DB.GetWallet(ctx, walletID)
	if errors.Is(err, database.ErrNotFound) {
		return "", errors.Wrap(models.ErrWalletNotFound, walletID)
	}
	if err != nil {
		return "", err
	}
	return dbWallet.UserID, nil
}

// DepositQR renders the wallet address as a PNG QR code.
func (m *Manager) DepositQR(ctx context.Context, id string, size int) ([]byte, error) {
	wallet, err := m.wallet(ctx, id)
	if err != nil {
		return nil, err
	}

	if size <= 0 {
		size = defaultQRSize
	}

	png, err := qrcode.Encode(wallet.Address, qrcode.Medium, size)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, errors.Wrap(err, "failed to render a qr code"))
	}
	return png, nil
}

func (m *Manager) GetHistory(ctx context.Context, filter *models.HistoryFilter) ([]*models.Transaction, error) {
	if _, err := m.wallet(ctx, filter.WalletID); err != nil {
		return nil, err
	}

	history, err := m.Ledger.History(ctx, filter)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}
	return history, nil
}

// priceOf never fails: a token the oracle does not know is worth zero.
func (m *Manager) priceOf(ctx context.Context, query *models.TokenQuery) *models.Price {
	p, err := m.Prices.GetPrice(ctx, query)
	if err != nil {
		log.ExtractLogger(ctx).Warnw("price unavailable", "token", query.CacheKey(), "error", err)
		return &models.Price{Price: decimal.Zero, PriceChangePercentage: decimal.Zero}
	}
	return p
}

func (m *Manager) nativePrice(ctx context.Context, n models.Network) decimal.Decimal {
	return m.priceOf(ctx, &models.TokenQuery{Symbol: n.NativeSymbol()}).Price
}

func (m *Manager) iconOf(ctx context.Context, query *models.TokenQuery) string {
	meta, err := m.Prices.GetTokenMeta(ctx, query)
	if err != nil {
		return ""
	}
	return meta.Logo
}

func (m *Manager) nativeToken(ctx context.Context, adapter network.Adapter, address string) *models.Token {
	n := adapter.Network()
	token := &models.Token{
		Symbol:  n.NativeSymbol(),
		Name:    n.NativeName(),
		Network: n,
	}
	token.Icon = m.iconOf(ctx, token.Query())
	m.refreshToken(ctx, adapter, address, token)
	return token
}

// stableToken builds the network's USDT. Symbol and name fall back to the
// known ones when the chain cannot be read.
func (m *Manager) stableToken(ctx context.Context, adapter network.Adapter, address string) *models.Token {
	n := adapter.Network()
	token := &models.Token{
		Symbol:   stableSymbol,
		Name:     stableName,
		Network:  n,
		Contract: n.StableContract(),
	}
	if meta, err := adapter.TokenInfo(ctx, token.Contract); err != nil {
		log.ExtractLogger(ctx).Warnw("failed to read stable token info", "contract", token.Contract, "error", err)
	} else {
		token.Symbol, token.Name = meta.Symbol, meta.Name
	}
	token.Icon = m.iconOf(ctx, token.Query())
	m.refreshToken(ctx, adapter, address, token)
	return token
}
