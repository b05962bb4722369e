package wallet

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody/app/ledger/ledgertest"
	"custody/app/models"
	"custody/app/network"
	"custody/app/storage/database"
	"custody/app/swap"
	"custody/pkg/crypto"
	"custody/pkg/response"
	"custody/pkg/uuid"
)

const (
	usdt     = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	pepe     = "0x6982508145454Ce325dDbF47a25d4ec3d2311933"
	mnemonic = "test test test test test test test test test test test junk"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type memoryWallets struct {
	mu      sync.Mutex
	wallets map[string]*database.Wallet
	secrets map[string]*database.Secrets
	tokens  []*database.Token
	failOn  int // CreateWallet call that fails, 1-based
	creates int
}

func newMemoryWallets() *memoryWallets {
	return &memoryWallets{
		wallets: make(map[string]*database.Wallet),
		secrets: make(map[string]*database.Secrets),
	}
}

func (d *memoryWallets) CreateWallet(_ context.Context, wallet *database.Wallet, secrets *database.Secrets,
	tokens []*database.Token) (*database.Wallet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.creates++
	if d.creates == d.failOn {
		return nil, errors.New("connection reset")
	}

	cp := *wallet
	d.wallets[cp.ID] = &cp
	secrets.WalletID = cp.ID
	d.secrets[cp.ID] = secrets
	for _, t := range tokens {
		t.ID = uuid.NewUUID()
		t.WalletID = cp.ID
		d.tokens = append(d.tokens, t)
	}
	return &cp, nil
}

func (d *memoryWallets) GetWallet(_ context.Context, id string) (*database.Wallet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.wallets[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (d *memoryWallets) ListWallets(_ context.Context, userID string) ([]*database.Wallet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []*database.Wallet
	for _, w := range d.wallets {
		if w.UserID == userID {
			cp := *w
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (d *memoryWallets) DeleteWallet(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.wallets[id]; !ok {
		return database.ErrNotFound
	}
	delete(d.wallets, id)
	delete(d.secrets, id)
	kept := d.tokens[:0]
	for _, t := range d.tokens {
		if t.WalletID != id {
			kept = append(kept, t)
		}
	}
	d.tokens = kept
	return nil
}

func (d *memoryWallets) UpdateWalletBalance(_ context.Context, id string, balanceUSD decimal.Decimal) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wallets[id].BalanceUSD = balanceUSD
	return nil
}

func (d *memoryWallets) GetSecrets(_ context.Context, walletID string) (*database.Secrets, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.secrets[walletID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return s, nil
}

func (d *memoryWallets) CreateToken(_ context.Context, token *database.Token) (*database.Token, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	token.ID = uuid.NewUUID()
	d.tokens = append(d.tokens, token)
	cp := *token
	return &cp, nil
}

func (d *memoryWallets) ListTokens(_ context.Context, walletID string) ([]*database.Token, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []*database.Token
	for _, t := range d.tokens {
		if t.WalletID == walletID {
			cp := *t
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (d *memoryWallets) UpdateTokenBalances(_ context.Context, tokens []*database.Token) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range tokens {
		for i, t := range d.tokens {
			if t.ID == u.ID {
				cp := *u
				d.tokens[i] = &cp
			}
		}
	}
	return nil
}

type fakeAdapter struct {
	network.Adapter

	network   models.Network
	balances  map[string]decimal.Decimal // contract ("" for native) -> balance
	tokens    map[string]*models.TokenMeta
	generated int
	submitted []*models.TransferOrder
	submitErr error
}

func (a *fakeAdapter) Network() models.Network {
	return a.network
}

func (a *fakeAdapter) GenerateWallet(context.Context) (*models.KeyMaterial, error) {
	a.generated++
	return &models.KeyMaterial{
		Address:    "0x00000000000000000000000000000000000000a" + string(rune('0'+a.generated)),
		Mnemonic:   mnemonic,
		PrivateKey: "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		PublicKey:  "04abcd",
	}, nil
}

func (a *fakeAdapter) ImportWallet(_ context.Context, secret string) (*models.KeyMaterial, error) {
	if secret != mnemonic {
		return nil, errors.Wrap(models.ErrInvalidSecret, "checksum mismatch")
	}
	return &models.KeyMaterial{Address: "0x00000000000000000000000000000000000000b1", Mnemonic: secret, PrivateKey: "pk"}, nil
}

func (a *fakeAdapter) GetBalance(context.Context, string) decimal.Decimal {
	return a.balances[""]
}

func (a *fakeAdapter) GetTokenBalance(_ context.Context, _ string, contract string) decimal.Decimal {
	return a.balances[contract]
}

func (a *fakeAdapter) TokenInfo(_ context.Context, contract string) (*models.TokenMeta, error) {
	meta, ok := a.tokens[contract]
	if !ok {
		return nil, models.NewAdapterError(a.network, "tokenInfo", errors.New("execution reverted"))
	}
	return meta, nil
}

func (a *fakeAdapter) ValidateAddress(address string) error {
	if len(address) != 42 {
		return errors.Wrap(models.ErrInvalidAddress, address)
	}
	return nil
}

func (a *fakeAdapter) SubmitTransfer(_ context.Context, order *models.TransferOrder) (*models.Submission, error) {
	if a.submitErr != nil {
		return nil, a.submitErr
	}
	a.submitted = append(a.submitted, order)
	return &models.Submission{Hash: "0xtransfer", EstimatedFee: dec("0.0021")}, nil
}

func (a *fakeAdapter) SubmitTokenTransfer(ctx context.Context, order *models.TransferOrder) (*models.Submission, error) {
	return a.SubmitTransfer(ctx, order)
}

type fakeRouter struct {
	orders []*models.SwapOrder
	err    error
}

func (r *fakeRouter) Network() models.Network {
	return models.ETH
}

func (r *fakeRouter) Swap(_ context.Context, order *models.SwapOrder) (*models.SwapResult, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.orders = append(r.orders, order)
	return &models.SwapResult{Hash: "0xswap", FromAmount: order.Amount, ToAmount: dec("1990"), Fee: dec("0.004")}, nil
}

func (r *fakeRouter) EstimateFee(_ context.Context, order *models.SwapOrder) (decimal.Decimal, error) {
	if r.err != nil {
		return decimal.Zero, r.err
	}
	r.orders = append(r.orders, order)
	return dec("0.003"), nil
}

type tablePrices struct {
	prices map[string]string // cache key -> usd
}

func (p *tablePrices) GetPrice(_ context.Context, query *models.TokenQuery) (*models.Price, error) {
	v, ok := p.prices[query.CacheKey()]
	if !ok {
		return nil, errors.New("token not listed")
	}
	return &models.Price{Price: dec(v), PriceChangePercentage: dec("1.5")}, nil
}

func (p *tablePrices) GetTokenMeta(_ context.Context, query *models.TokenQuery) (*models.PriceMeta, error) {
	return &models.PriceMeta{Symbol: query.Symbol, Logo: "https://logo/" + query.Symbol}, nil
}

func (p *tablePrices) GetExtendedInfo(context.Context, *models.TokenQuery) (*models.ExtendedInfo, error) {
	return nil, errors.New("not used")
}

func (p *tablePrices) GetHistoricalQuotes(context.Context, *models.TokenQuery, *models.HistoryWindow) (
	[]*models.HistoricalQuote, error) {
	return nil, errors.New("not used")
}

type fixture struct {
	db      *memoryWallets
	adapter *fakeAdapter
	router  *fakeRouter
	ledger  *ledgertest.Memory
	sealer  *crypto.Sealer
	manager *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sealer, err := crypto.NewSealer("master-key", "salt")
	require.NoError(t, err)

	f := &fixture{
		db: newMemoryWallets(),
		adapter: &fakeAdapter{
			network:  models.ETH,
			balances: map[string]decimal.Decimal{"": dec("1"), usdt: dec("250")},
			tokens: map[string]*models.TokenMeta{
				usdt: {Contract: usdt, Symbol: "USDT", Name: "Tether USD", Decimals: 6},
				pepe: {Contract: pepe, Symbol: "PEPE", Name: "Pepe", Decimals: 18},
			},
		},
		router: &fakeRouter{},
		ledger: ledgertest.NewMemory(),
		sealer: sealer,
	}
	f.manager = &Manager{
		DB:       f.db,
		Ledger:   f.ledger,
		Networks: network.NewRegistry(f.adapter),
		Swaps:    swap.NewRegistry(f.router),
		Prices: &tablePrices{prices: map[string]string{
			"sym:ETH":                       "2000",
			"ETH:" + strings.ToLower(usdt): "1",
			"ETH:" + strings.ToLower(pepe): "0.00001",
		}},
		Sealer:         sealer,
		ServiceFeeBps:  100,
		SignupNetworks: []models.Network{models.ETH},
	}
	return f
}

// walletWithUSDT creates a deletable wallet; new wallets hold ETH and USDT.
func (f *fixture) walletWithUSDT(t *testing.T) *models.Wallet {
	t.Helper()

	created, err := f.manager.GenerateWallet(context.Background(), &models.NewWallet{UserID: "alice", Network: models.ETH})
	require.NoError(t, err)
	return created.Wallet
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	var rerr *response.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, code, rerr.Code)
}

func TestManager_GenerateWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.manager.GenerateWallet(ctx, &models.NewWallet{UserID: "alice", Network: models.ETH})
	require.NoError(t, err)

	w := created.Wallet
	assert.Equal(t, mnemonic, created.Mnemonic)
	assert.Equal(t, "Ethereum wallet", w.Name)
	assert.Equal(t, models.WalletGenerated, w.Type)
	assert.True(t, w.CanBeDeleted)
	assert.Equal(t, "2250", w.BalanceUSD.String())
	require.Len(t, w.Tokens, 2)
	assert.Equal(t, "ETH", w.Tokens[0].Symbol)
	assert.Equal(t, "https://logo/ETH", w.Tokens[0].Icon)
	assert.Equal(t, "USDT", w.Tokens[1].Symbol)
	assert.Equal(t, usdt, w.Tokens[1].Contract)
	assert.Equal(t, "250", w.Tokens[1].Balance.String())
	assert.Len(t, f.db.tokens, 2)

	stored := f.db.secrets[w.ID]
	assert.NotContains(t, stored.Mnemonic, "test")
	assert.True(t, len(stored.PrivateKey) > 3 && stored.PrivateKey[:3] == "v1:")

	keys, err := f.manager.keys(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, mnemonic, keys.Mnemonic)
	assert.Equal(t, w.Address, keys.Address)

	// secrets are bound to their wallet
	_, err = f.sealer.Open(stored.Mnemonic, "another-wallet")
	assert.Error(t, err)
}

func TestManager_GenerateWallet_StableTokenWithoutMetadata(t *testing.T) {
	f := newFixture(t)
	delete(f.adapter.tokens, usdt)

	created, err := f.manager.GenerateWallet(context.Background(), &models.NewWallet{UserID: "alice", Network: models.ETH})
	require.NoError(t, err)

	stable := created.Wallet.FindToken(usdt)
	require.NotNil(t, stable)
	assert.Equal(t, "USDT", stable.Symbol)
	assert.Equal(t, "Tether USD", stable.Name)
	assert.Equal(t, "250", stable.Balance.String())
}

func TestManager_ImportWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.manager.ImportWallet(ctx, &models.ImportWallet{
		NewWallet: models.NewWallet{UserID: "alice", Name: " main ", Network: models.ETH},
		Secret:    mnemonic,
	})
	require.NoError(t, err)
	assert.Equal(t, models.WalletImported, w.Type)
	assert.Equal(t, "main", w.Name)
	require.Len(t, w.Tokens, 2)
	assert.NotNil(t, w.FindToken(""))
	assert.NotNil(t, w.FindToken(usdt))

	_, err = f.manager.ImportWallet(ctx, &models.ImportWallet{
		NewWallet: models.NewWallet{UserID: "alice", Network: models.ETH},
		Secret:    "not a mnemonic",
	})
	requireCode(t, err, response.CodeBadRequest)
	assert.ErrorIs(t, err, models.ErrInvalidSecret)

	_, err = f.manager.ImportWallet(ctx, &models.ImportWallet{
		NewWallet: models.NewWallet{UserID: "alice", Network: models.SOL},
		Secret:    mnemonic,
	})
	requireCode(t, err, response.CodeBadRequest)
	assert.ErrorIs(t, err, models.ErrUnsupportedNetwork)
}

func TestManager_ProvisionWallets(t *testing.T) {
	t.Run("sign-up wallets cannot be deleted", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		wallets, err := f.manager.ProvisionWallets(ctx, "alice", nil)
		require.NoError(t, err)
		require.Len(t, wallets, 1)
		assert.False(t, wallets[0].CanBeDeleted)

		err = f.manager.DeleteWallet(ctx, wallets[0].ID)
		requireCode(t, err, response.CodeBadRequest)
		assert.ErrorIs(t, err, models.ErrWalletNotDeletable)
		assert.Len(t, f.db.wallets, 1)
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		f := newFixture(t)
		f.db.failOn = 2

		_, err := f.manager.ProvisionWallets(context.Background(), "alice", []models.Network{models.ETH, models.ETH})
		requireCode(t, err, response.CodeInternal)
		assert.Empty(t, f.db.wallets)
		assert.Empty(t, f.db.tokens)
	})
}

func TestManager_GetWallet_SortsTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.walletWithUSDT(t)

	_, err := f.manager.AddToken(ctx, &models.NewToken{WalletID: w.ID, Contract: pepe})
	require.NoError(t, err)
	f.adapter.balances[""] = dec("0.05") // 100 USD, less than the USDT

	got, err := f.manager.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, got.Tokens, 3)

	assert.Equal(t, "ETH", got.Tokens[0].Symbol)
	assert.Equal(t, "USDT", got.Tokens[1].Symbol)
	assert.Equal(t, "PEPE", got.Tokens[2].Symbol)

	// a zero balance is still priced
	assert.True(t, got.Tokens[2].Balance.IsZero())
	assert.Equal(t, "0.00001", got.Tokens[2].Price.String())

	assert.Equal(t, "350", got.BalanceUSD.String())
	assert.Equal(t, "350", f.db.wallets[w.ID].BalanceUSD.String())
}

func TestManager_AddToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.walletWithUSDT(t)

	_, err := f.manager.AddToken(ctx, &models.NewToken{WalletID: w.ID, Contract: strings.ToLower(usdt)})
	requireCode(t, err, response.CodeConflict)
	assert.ErrorIs(t, err, models.ErrTokenExists)

	_, err = f.manager.AddToken(ctx, &models.NewToken{WalletID: w.ID, Contract: "0x1234"})
	requireCode(t, err, response.CodeBadRequest)

	_, err = f.manager.AddToken(ctx, &models.NewToken{WalletID: "missing", Contract: pepe})
	requireCode(t, err, response.CodeNotFound)
	assert.ErrorIs(t, err, models.ErrWalletNotFound)
}

func TestManager_Transfer(t *testing.T) {
	to := "0x00000000000000000000000000000000000000c1"

	t.Run("records a pending row", func(t *testing.T) {
		f := newFixture(t)
		w := f.walletWithUSDT(t)

		tx, err := f.manager.Transfer(context.Background(), &models.NewTransfer{
			WalletID: w.ID, To: to, Amount: dec("100"), Contract: usdt,
		})
		require.NoError(t, err)

		assert.Equal(t, models.TxPending, tx.Status)
		assert.Equal(t, models.TxTransfer, tx.Type)
		assert.Equal(t, "0xtransfer", tx.Hash)
		assert.Equal(t, "USDT", tx.Currency)
		assert.Equal(t, "100", tx.AmountUSD.String())
		assert.Equal(t, "4.2", tx.FeeUSD.String())

		require.Len(t, f.adapter.submitted, 1)
		assert.Equal(t, mnemonic, f.adapter.submitted[0].Keys.Mnemonic)
		assert.Equal(t, usdt, f.adapter.submitted[0].Contract)

		stored, err := f.ledger.Get(context.Background(), tx.ID)
		require.NoError(t, err)
		assert.Equal(t, models.TxPending, stored.Status)
	})

	t.Run("balance must exceed the amount", func(t *testing.T) {
		f := newFixture(t)
		w := f.walletWithUSDT(t)

		_, err := f.manager.Transfer(context.Background(), &models.NewTransfer{
			WalletID: w.ID, To: to, Amount: dec("1"),
		})
		requireCode(t, err, response.CodeBadRequest)
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)
		assert.Empty(t, f.adapter.submitted)

		history, err := f.ledger.History(context.Background(), &models.HistoryFilter{WalletID: w.ID})
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)
		w := f.walletWithUSDT(t)

		_, err := f.manager.Transfer(context.Background(), &models.NewTransfer{
			WalletID: w.ID, To: to, Amount: dec("1"), Contract: pepe,
		})
		requireCode(t, err, response.CodeNotFound)
		assert.ErrorIs(t, err, models.ErrTokenNotFound)
	})

	t.Run("rejected submission leaves no row", func(t *testing.T) {
		f := newFixture(t)
		w := f.walletWithUSDT(t)
		f.adapter.submitErr = models.NewAdapterError(models.ETH, "sendTransaction", errors.New("nonce too low"))

		_, err := f.manager.Transfer(context.Background(), &models.NewTransfer{
			WalletID: w.ID, To: to, Amount: dec("0.5"),
		})
		requireCode(t, err, response.CodeInternal)
		assert.True(t, models.IsRetryable(err))

		history, err := f.ledger.History(context.Background(), &models.HistoryFilter{WalletID: w.ID})
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestManager_Swap(t *testing.T) {
	t.Run("charges the service fee", func(t *testing.T) {
		f := newFixture(t)
		w := f.walletWithUSDT(t)

		// the whole balance may be swapped
		tx, err := f.manager.Swap(context.Background(), &models.NewSwap{
			WalletID: w.ID, FromContract: usdt, Amount: dec("250"),
		})
		require.NoError(t, err)

		require.Len(t, f.router.orders, 1)
		order := f.router.orders[0]
		assert.Equal(t, uint8(6), order.From.Decimals)
		assert.Equal(t, uint8(18), order.To.Decimals)
		assert.True(t, order.To.IsNative())
		assert.Equal(t, uint16(100), order.SlippageBps)
		assert.Equal(t, uint16(100), order.ServiceFeeBps)

		assert.Equal(t, models.TxSwap, tx.Type)
		assert.Equal(t, models.TxPending, tx.Status)
		assert.Equal(t, "USDT", tx.FromCurrency)
		assert.Equal(t, "ETH", tx.ToCurrency)
		assert.Equal(t, "2.5", tx.ServiceFee.String())
		assert.Equal(t, "2.5", tx.ServiceFeeUSD.String())
		assert.Equal(t, "8", tx.FeeUSD.String())
		assert.Equal(t, "3980000", tx.ToAmountUSD.String())
		assert.False(t, tx.IsReferralProcessed)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		f := newFixture(t)
		w := f.walletWithUSDT(t)

		_, err := f.manager.Swap(context.Background(), &models.NewSwap{
			WalletID: w.ID, FromContract: usdt, Amount: dec("250.01"),
		})
		requireCode(t, err, response.CodeBadRequest)
		assert.ErrorIs(t, err, models.ErrInsufficientBalance)
		assert.Empty(t, f.router.orders)
	})

	t.Run("pool not ready", func(t *testing.T) {
		f := newFixture(t)
		w := f.walletWithUSDT(t)
		f.router.err = errors.Wrap(models.ErrPoolNotReady, "no route")

		_, err := f.manager.Swap(context.Background(), &models.NewSwap{
			WalletID: w.ID, ToContract: usdt, Amount: dec("0.1"),
		})
		requireCode(t, err, response.CodeBadRequest)
		assert.ErrorIs(t, err, models.ErrPoolNotReady)

		history, err := f.ledger.History(context.Background(), &models.HistoryFilter{WalletID: w.ID})
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestManager_EstimateSwapFee(t *testing.T) {
	f := newFixture(t)
	w := f.walletWithUSDT(t)

	fee, err := f.manager.EstimateSwapFee(context.Background(), &models.NewSwap{
		WalletID: w.ID, ToContract: usdt, Amount: dec("0.5"),
	})
	require.NoError(t, err)

	assert.Equal(t, "0.003", fee.NetworkFee.String())
	assert.Equal(t, "6", fee.NetworkFeeUSD.String())
	assert.Equal(t, "0.005", fee.ServiceFee.String())
	assert.Equal(t, "10", fee.ServiceFeeUSD.String())
}

func TestManager_GetHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.walletWithUSDT(t)

	for _, amount := range []string{"1", "2"} {
		_, err := f.manager.Transfer(ctx, &models.NewTransfer{
			WalletID: w.ID, To: "0x00000000000000000000000000000000000000c1", Amount: dec(amount), Contract: usdt,
		})
		require.NoError(t, err)
	}

	history, err := f.manager.GetHistory(ctx, &models.HistoryFilter{WalletID: w.ID})
	require.NoError(t, err)
	require.Len(t, history, 2)

	_, err = f.manager.GetHistory(ctx, &models.HistoryFilter{WalletID: "missing"})
	requireCode(t, err, response.CodeNotFound)
}

func TestManager_ListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.walletWithUSDT(t)

	wallets, err := f.manager.ListWallets(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, wallets, 1)
	require.Len(t, wallets[0].Tokens, 2)
	assert.True(t, wallets[0].Tokens[0].IsNative())

	require.NoError(t, f.manager.DeleteWallet(ctx, w.ID))
	assert.Empty(t, f.db.wallets)
	assert.Empty(t, f.db.secrets)

	err = f.manager.DeleteWallet(ctx, w.ID)
	requireCode(t, err, response.CodeNotFound)
}

func TestManager_WalletOwner(t *testing.T) {
	f := newFixture(t)
	w := f.walletWithUSDT(t)

	owner, err := f.manager.WalletOwner(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)

	_, err = f.manager.WalletOwner(context.Background(), "missing")
	assert.ErrorIs(t, err, models.ErrWalletNotFound)
}

func TestManager_DepositQR(t *testing.T) {
	f := newFixture(t)
	w := f.walletWithUSDT(t)

	png, err := f.manager.DepositQR(context.Background(), w.ID, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
