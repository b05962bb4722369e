// Package cellchain implements the network adapter for TON. Messages carry a
// correlation id (a text comment or a jetton query_id) instead of a known hash;
// reconciliation finds the resulting transactions by scanning the sender.
package cellchain

import (
	"context"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/address"
	"github.com/xssnick/tonutils-go/tlb"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"github.com/xssnick/tonutils-go/tvm/cell"

	"custody/app/models"
	"custody/app/network"
	"custody/pkg/log"
	"custody/pkg/units"
)

const (
	opJettonTransfer = 0xf8a7ea5

	defaultScanDepth = 50
)

var (
	// attached to a jetton transfer to pay the jetton wallets; the excess comes back
	jettonTransferValue = tlb.MustFromTON("0.05")
	jettonForwardValue  = tlb.FromNanoTONU(1)

	nativeTransferFee = decimal.RequireFromString("0.006")
	jettonTransferFee = decimal.RequireFromString("0.05")
)

type Config struct {
	LiteConfigURL string        `mapstructure:"liteConfigUrl"`
	APIURL        string        `mapstructure:"apiUrl"`
	APIKey        string        `mapstructure:"apiKey"`
	RPS           float64       `mapstructure:"rps"`
	PollAttempts  int           `mapstructure:"pollAttempts"`
	PollInterval  time.Duration `mapstructure:"pollInterval"`
	ScanDepth     int           `mapstructure:"scanDepth"`
}

func (c *Config) Validate() error {
	if c.LiteConfigURL == "" {
		return errors.New("you must provide a ton lite config url in a config")
	}
	if c.APIURL == "" {
		return errors.New("you must provide a ton api url in a config")
	}
	return nil
}

type Adapter struct {
	chain     Chain
	indexer   *Indexer
	sequence  *Sequence
	limiter   *network.Limiter
	policy    network.PollPolicy
	scanDepth int
}

func New(cfg Config, chain Chain, indexer *Indexer, sequence *Sequence) *Adapter {
	policy := network.PollPolicy{Attempts: cfg.PollAttempts, Interval: cfg.PollInterval}
	if policy.Attempts == 0 {
		policy.Attempts = 6
	}
	if policy.Interval == 0 {
		policy.Interval = 5 * time.Second
	}
	scanDepth := cfg.ScanDepth
	if scanDepth == 0 {
		scanDepth = defaultScanDepth
	}

	return &Adapter{
		chain:     chain,
		indexer:   indexer,
		sequence:  sequence,
		limiter:   network.NewLimiter(models.TON, cfg.RPS, 1),
		policy:    policy,
		scanDepth: scanDepth,
	}
}

func (a *Adapter) Network() models.Network {
	return models.TON
}

func (a *Adapter) PollPolicy() network.PollPolicy {
	return a.policy
}

// NextID returns a fresh correlation id.
func (a *Adapter) NextID() uint64 {
	return a.sequence.Next()
}

func (a *Adapter) GenerateWallet(_ context.Context) (*models.KeyMaterial, error) {
	return fromMnemonic(wallet.NewSeed())
}

func (a *Adapter) ImportWallet(_ context.Context, secret string) (*models.KeyMaterial, error) {
	return fromMnemonic(strings.Fields(secret))
}

func (a *Adapter) ValidateAddress(addr string) error {
	if _, err := address.ParseAddr(addr); err != nil {
		return errors.Wrapf(models.ErrInvalidAddress, "%s is not a ton address", addr)
	}
	return nil
}

func (a *Adapter) GetBalance(ctx context.Context, addr string) decimal.Decimal {
	account, err := a.Account(ctx, addr)
	if err != nil {
		log.Warnw("failed to get native balance", "network", models.TON, "address", addr, "error", err)
		return decimal.Zero
	}
	if !account.IsDeployed() {
		return decimal.Zero
	}
	return units.ToDecimal(account.Balance, models.TON.NativeDecimals())
}

func (a *Adapter) GetTokenBalance(ctx context.Context, addr, contract string) decimal.Decimal {
	var balance *JettonBalance
	err := a.limiter.Do(ctx, "jetton_balance", func(ctx context.Context) (err error) {
		balance, err = a.indexer.JettonBalance(ctx, addr, contract)
		return err
	})
	if err != nil {
		log.Warnw("failed to get jetton balance", "network", models.TON, "address", addr,
			"contract", contract, "error", err)
		return decimal.Zero
	}
	if balance == nil {
		return decimal.Zero
	}
	return units.ToDecimal(balance.Balance, uint8(balance.Jetton.Decimals))
}

func (a *Adapter) TokenInfo(ctx context.Context, contract string) (*models.TokenMeta, error) {
	if err := a.ValidateAddress(contract); err != nil {
		return nil, err
	}

	var info *JettonInfo
	err := a.limiter.Do(ctx, "jetton_info", func(ctx context.Context) (err error) {
		info, err = a.indexer.JettonInfo(ctx, contract)
		return err
	})
	if err != nil {
		return nil, err
	}

	decimals := models.TON.NativeDecimals()
	if info.Metadata.Decimals != "" {
		d, err := strconv.ParseUint(info.Metadata.Decimals, 10, 8)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid decimals %q of %s", info.Metadata.Decimals, contract)
		}
		decimals = uint8(d)
	}

	return &models.TokenMeta{
		Contract: contract,
		Symbol:   info.Metadata.Symbol,
		Name:     info.Metadata.Name,
		Decimals: decimals,
	}, nil
}

// SubmitTransfer sends TON with the correlation id as a text comment.
func (a *Adapter) SubmitTransfer(ctx context.Context, order *models.TransferOrder) (*models.Submission, error) {
	to, err := address.ParseAddr(order.To)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidAddress, "%s is not a ton address", order.To)
	}

	ref := models.CorrelationRef{ID: a.NextID()}
	err = a.Send(ctx, order.Keys, &Outgoing{
		To:     to,
		Amount: tlb.FromNanoTON(units.ToBase(order.Amount, models.TON.NativeDecimals())),
		Body:   CommentBody(strconv.FormatUint(ref.ID, 10)),
		Bounce: false,
	})
	if err != nil {
		return nil, err
	}

	return &models.Submission{Hash: ref.String(), EstimatedFee: nativeTransferFee}, nil
}

// SubmitTokenTransfer sends a jetton transfer to the sender's jetton wallet with
// the correlation id as query_id.
func (a *Adapter) SubmitTokenTransfer(ctx context.Context, order *models.TransferOrder) (*models.Submission, error) {
	to, err := address.ParseAddr(order.To)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidAddress, "%s is not a ton address", order.To)
	}
	from, err := address.ParseAddr(order.Keys.Address)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidAddress, "%s is not a ton address", order.Keys.Address)
	}
	meta, err := a.TokenInfo(ctx, order.Contract)
	if err != nil {
		return nil, err
	}
	jettonWallet, err := a.JettonWallet(ctx, order.Contract, order.Keys.Address)
	if err != nil {
		return nil, err
	}

	ref := models.CorrelationRef{ID: a.NextID(), Jetton: true}
	body := JettonTransferBody(ref.ID, units.ToBase(order.Amount, meta.Decimals), to, from, jettonForwardValue, nil)
	err = a.Send(ctx, order.Keys, &Outgoing{
		To:     jettonWallet,
		Amount: jettonTransferValue,
		Body:   body,
		Bounce: true,
	})
	if err != nil {
		return nil, err
	}

	return &models.Submission{Hash: ref.String(), EstimatedFee: jettonTransferFee}, nil
}

// JettonWallet resolves owner's wallet contract for the jetton master.
func (a *Adapter) JettonWallet(ctx context.Context, master, owner string) (*address.Address, error) {
	var raw string
	err := a.limiter.Do(ctx, "get_wallet_address", func(ctx context.Context) (err error) {
		raw, err = a.indexer.JettonWalletAddress(ctx, master, owner)
		return err
	})
	if err != nil {
		return nil, err
	}

	addr, err := address.ParseAddr(raw)
	if err != nil {
		// the indexer may answer in raw form
		addr, err = address.ParseRawAddr(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid jetton wallet address %s", raw)
		}
	}
	return addr, nil
}

// Account returns the on-chain state of addr.
func (a *Adapter) Account(ctx context.Context, addr string) (*Account, error) {
	var account *Account
	err := a.limiter.Do(ctx, "account", func(ctx context.Context) (err error) {
		account, err = a.indexer.Account(ctx, addr)
		return err
	})
	return account, err
}

// Send signs messages with the wallet of keys and submits them.
func (a *Adapter) Send(ctx context.Context, keys *models.KeyMaterial, messages ...*Outgoing) error {
	err := a.limiter.Do(ctx, "send", func(ctx context.Context) error {
		return a.chain.Send(ctx, words(keys), messages...)
	})
	if err != nil {
		return errors.Wrap(err, "failed to send a message")
	}

	log.Infow("message sent", "network", models.TON, "from", keys.Address, "messages", len(messages))
	return nil
}

// RunGetMethod runs a get-method through the adapter's rate limiter.
func (a *Adapter) RunGetMethod(ctx context.Context, addr *address.Address, method string, params ...interface{}) (
	[]interface{}, error) {
	var result []interface{}
	err := a.limiter.Do(ctx, method, func(ctx context.Context) (err error) {
		result, err = a.chain.RunGetMethod(ctx, addr, method, params...)
		return err
	})
	return result, err
}

// LookupTransaction scans the sender's recent transactions for ones carrying
// the correlation id of ref.Hash. Fees are total_fees in nanotons.
func (a *Adapter) LookupTransaction(ctx context.Context, ref network.TxRef) ([]*network.ChainTx, error) {
	corr, ok := models.ParseCorrelationRef(ref.Hash)
	if !ok {
		return nil, errors.Errorf("%s is not a correlation reference", ref.Hash)
	}
	id := strconv.FormatUint(corr.ID, 10)

	var txs []*Transaction
	err := a.limiter.Do(ctx, "transactions", func(ctx context.Context) (err error) {
		txs, err = a.indexer.Transactions(ctx, ref.From, a.scanDepth)
		return err
	})
	if err != nil {
		return nil, err
	}

	var result []*network.ChainTx
	for _, tx := range txs {
		if !tx.Carries(id) {
			continue
		}
		result = append(result, &network.ChainTx{
			Hash:    tx.Hash,
			Lt:      uint64(tx.Lt),
			Fee:     units.ToDecimal(tx.TotalFees, models.TON.NativeDecimals()),
			Success: tx.Success && !tx.Aborted,
			Final:   tx.Success || tx.Aborted || tx.Destroyed,
		})
	}
	return result, nil
}

// CommentBody is a text comment message body.
func CommentBody(text string) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(0, 32).
		MustStoreStringSnake(text).
		EndCell()
}

// JettonTransferBody builds a TEP-74 transfer. The response destination receives the excess.
func JettonTransferBody(queryID uint64, amount *big.Int, to, response *address.Address, forwardAmount tlb.Coins,
	forwardPayload *cell.Cell) *cell.Cell {
	return cell.BeginCell().
		MustStoreUInt(opJettonTransfer, 32).
		MustStoreUInt(queryID, 64).
		MustStoreBigCoins(amount).
		MustStoreAddr(to).
		MustStoreAddr(response).
		MustStoreMaybeRef(nil).
		MustStoreBigCoins(forwardAmount.Nano()).
		MustStoreMaybeRef(forwardPayload).
		EndCell()
}
