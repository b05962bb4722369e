// Package evm implements the network adapter for account-based EVM chains.
package evm

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"custody/app/models"
	"custody/app/network"
	"custody/pkg/eth"
	"custody/pkg/log"
	"custody/pkg/units"
)

// Client is the subset of an EVM node the adapter talks to. Both
// *ethclient.Client and the simulated backend client satisfy it.
type Client interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
}

type Config struct {
	NodeURL      string        `mapstructure:"nodeUrl"`
	RPS          float64       `mapstructure:"rps"`
	PollAttempts int           `mapstructure:"pollAttempts"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

func (c *Config) Validate() error {
	if c.NodeURL == "" {
		return errors.New("you must provide a node url in a config")
	}
	return nil
}

type Adapter struct {
	network models.Network
	client  Client
	limiter *network.Limiter
	policy  network.PollPolicy

	tokens *cache.Cache // contract -> *models.TokenMeta

	chainMu sync.Mutex
	chainID *big.Int
}

func New(n models.Network, cfg Config, client Client) *Adapter {
	policy := network.PollPolicy{Attempts: cfg.PollAttempts, Interval: cfg.PollInterval}
	if policy.Attempts == 0 {
		policy.Attempts = 10
	}
	if policy.Interval == 0 {
		policy.Interval = 3 * time.Second
	}

	return &Adapter{
		network: n,
		client:  client,
		limiter: network.NewLimiter(n, cfg.RPS, 5),
		policy:  policy,
		tokens:  cache.New(cache.NoExpiration, 0),
	}
}

func (a *Adapter) Network() models.Network {
	return a.network
}

func (a *Adapter) PollPolicy() network.PollPolicy {
	return a.policy
}

// Client exposes the node client to swap routers of the same network.
func (a *Adapter) Client() Client {
	return a.client
}

func (a *Adapter) GenerateWallet(_ context.Context) (*models.KeyMaterial, error) {
	mnemonic, err := newMnemonic()
	if err != nil {
		return nil, err
	}
	return fromMnemonic(mnemonic)
}

func (a *Adapter) ImportWallet(_ context.Context, secret string) (*models.KeyMaterial, error) {
	secret = strings.TrimSpace(secret)
	if isMnemonic(secret) {
		return fromMnemonic(secret)
	}
	return fromPrivateKey(secret)
}

func (a *Adapter) ValidateAddress(address string) error {
	if !eth.IsValidAddress(address) {
		return errors.Wrapf(models.ErrInvalidAddress, "%s is not a %s address", address, a.network)
	}
	return nil
}

func (a *Adapter) GetBalance(ctx context.Context, address string) decimal.Decimal {
	var wei *big.Int
	err := a.limiter.Do(ctx, "eth_getBalance", func(ctx context.Context) (err error) {
		wei, err = a.client.BalanceAt(ctx, common.HexToAddress(address), nil)
		return err
	})
	if err != nil {
		log.Warnw("failed to get native balance", "network", a.network, "address", address, "error", err)
		return decimal.Zero
	}
	return units.ToDecimal(wei, a.network.NativeDecimals())
}

func (a *Adapter) GetTokenBalance(ctx context.Context, address, contract string) decimal.Decimal {
	meta, err := a.TokenInfo(ctx, contract)
	if err != nil {
		log.Warnw("failed to get token info", "network", a.network, "contract", contract, "error", err)
		return decimal.Zero
	}

	var raw *big.Int
	err = a.limiter.Do(ctx, "balanceOf", func(ctx context.Context) (err error) {
		raw, err = eth.NewERC20(common.HexToAddress(contract), a.client).
			BalanceOf(&bind.CallOpts{Context: ctx}, common.HexToAddress(address))
		return err
	})
	if err != nil {
		log.Warnw("failed to get token balance", "network", a.network, "address", address,
			"contract", contract, "error", err)
		return decimal.Zero
	}
	return units.ToDecimal(raw, meta.Decimals)
}

// TokenInfo reads name, symbol and decimals of an ERC-20 contract. Results are cached for the
// lifetime of the adapter since they never change.
func (a *Adapter) TokenInfo(ctx context.Context, contract string) (*models.TokenMeta, error) {
	if err := a.ValidateAddress(contract); err != nil {
		return nil, err
	}

	key := strings.ToLower(contract)
	if cached, ok := a.tokens.Get(key); ok {
		return cached.(*models.TokenMeta), nil
	}

	token := eth.NewERC20(common.HexToAddress(contract), a.client)
	meta := &models.TokenMeta{Contract: contract}
	err := a.limiter.Do(ctx, "erc20_meta", func(ctx context.Context) (err error) {
		opts := &bind.CallOpts{Context: ctx}
		if meta.Decimals, err = token.Decimals(opts); err != nil {
			return err
		}
		if meta.Symbol, err = token.Symbol(opts); err != nil {
			return err
		}
		meta.Name, err = token.Name(opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.tokens.SetDefault(key, meta)
	return meta, nil
}

// Decimals returns 18 for the native coin and the contract's decimals otherwise.
func (a *Adapter) Decimals(ctx context.Context, contract string) (uint8, error) {
	if contract == "" || strings.EqualFold(contract, eth.NativeTokenAddress.Hex()) {
		return a.network.NativeDecimals(), nil
	}
	meta, err := a.TokenInfo(ctx, contract)
	if err != nil {
		return 0, err
	}
	return meta.Decimals, nil
}

func (a *Adapter) SubmitTransfer(ctx context.Context, order *models.TransferOrder) (*models.Submission, error) {
	if err := a.ValidateAddress(order.To); err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(order.Keys.PrivateKey)
	if err != nil {
		return nil, err
	}

	value := units.ToBase(order.Amount, a.network.NativeDecimals())
	tx, err := a.Transact(ctx, key, common.HexToAddress(order.To), value, nil)
	if err != nil {
		return nil, err
	}
	return a.submission(tx), nil
}

func (a *Adapter) SubmitTokenTransfer(ctx context.Context, order *models.TransferOrder) (*models.Submission, error) {
	if err := a.ValidateAddress(order.To); err != nil {
		return nil, err
	}
	meta, err := a.TokenInfo(ctx, order.Contract)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKey(order.Keys.PrivateKey)
	if err != nil {
		return nil, err
	}

	data, err := eth.PackTransfer(common.HexToAddress(order.To), units.ToBase(order.Amount, meta.Decimals))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack transfer")
	}

	tx, err := a.Transact(ctx, key, common.HexToAddress(order.Contract), big.NewInt(0), data)
	if err != nil {
		return nil, err
	}
	return a.submission(tx), nil
}

func (a *Adapter) submission(tx *types.Transaction) *models.Submission {
	return &models.Submission{
		Hash:         tx.Hash().Hex(),
		EstimatedFee: units.ToDecimal(eth.CalcGasCost(tx.Gas(), tx.GasPrice()), a.network.NativeDecimals()),
	}
}

// Transact signs and sends a legacy transaction, estimating the gas limit and price.
func (a *Adapter) Transact(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int,
	data []byte) (*types.Transaction, error) {
	var gasPrice *big.Int
	err := a.limiter.Do(ctx, "eth_gasPrice", func(ctx context.Context) (err error) {
		gasPrice, err = a.client.SuggestGasPrice(ctx)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to suggest gas price")
	}

	from := crypto.PubkeyToAddress(key.PublicKey)
	var gasLimit uint64
	err = a.limiter.Do(ctx, "eth_estimateGas", func(ctx context.Context) (err error) {
		gasLimit, err = a.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Value: value, Data: data})
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to estimate gas")
	}

	return a.TransactWithGas(ctx, key, to, value, data, gasLimit, gasPrice)
}

// TransactWithGas signs and sends a legacy transaction with a caller supplied gas limit and price.
func (a *Adapter) TransactWithGas(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int,
	data []byte, gasLimit uint64, gasPrice *big.Int) (*types.Transaction, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	var nonce uint64
	err := a.limiter.Do(ctx, "eth_getTransactionCount", func(ctx context.Context) (err error) {
		nonce, err = a.client.PendingNonceAt(ctx, from)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to retrieve account nonce")
	}

	chainID, err := a.getChainID(ctx)
	if err != nil {
		return nil, err
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign a transaction")
	}

	err = a.limiter.Do(ctx, "eth_sendRawTransaction", func(ctx context.Context) error {
		return a.client.SendTransaction(ctx, signedTx)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to send a transaction")
	}

	log.Infow("transaction sent", "network", a.network, "hash", signedTx.Hash().Hex(), "from", from.Hex(),
		"to", to.Hex(), "nonce", nonce)
	return signedTx, nil
}

// WaitMined blocks until tx is included and fails when it reverted.
func (a *Adapter) WaitMined(ctx context.Context, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, a.client, tx)
	if err != nil {
		return models.NewAdapterError(a.network, "wait_mined", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return errors.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return nil
}

func (a *Adapter) getChainID(ctx context.Context) (*big.Int, error) {
	a.chainMu.Lock()
	defer a.chainMu.Unlock()

	if a.chainID != nil {
		return a.chainID, nil
	}

	err := a.limiter.Do(ctx, "eth_chainId", func(ctx context.Context) (err error) {
		a.chainID, err = a.client.ChainID(ctx)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain id")
	}
	return a.chainID, nil
}

// txIndexingMessage is what geth answers for receipts while its transaction
// index is still being built.
const txIndexingMessage = "transaction indexing is in progress"

// notVisible reports whether err means the node cannot see the transaction yet.
func notVisible(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ethereum.NotFound) || strings.Contains(err.Error(), txIndexingMessage)
}

// LookupTransaction returns the receipt of ref.Hash once it is mined.
// The fee is gasUsed * effectiveGasPrice scaled from wei.
func (a *Adapter) LookupTransaction(ctx context.Context, ref network.TxRef) ([]*network.ChainTx, error) {
	hash := common.HexToHash(ref.Hash)

	var receipt *types.Receipt
	err := a.limiter.Do(ctx, "eth_getTransactionReceipt", func(ctx context.Context) (err error) {
		receipt, err = a.client.TransactionReceipt(ctx, hash)
		if notVisible(err) {
			receipt = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, nil
	}

	gasPrice := receipt.EffectiveGasPrice
	if gasPrice == nil || gasPrice.Sign() == 0 {
		var tx *types.Transaction
		err = a.limiter.Do(ctx, "eth_getTransactionByHash", func(ctx context.Context) (err error) {
			tx, _, err = a.client.TransactionByHash(ctx, hash)
			return err
		})
		if err != nil {
			return nil, err
		}
		gasPrice = tx.GasPrice()
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}

	return []*network.ChainTx{{
		Hash:    receipt.TxHash.Hex(),
		Lt:      block,
		Fee:     units.ToDecimal(eth.CalcGasCost(receipt.GasUsed, gasPrice), a.network.NativeDecimals()),
		Success: receipt.Status == types.ReceiptStatusSuccessful,
		Final:   true,
	}}, nil
}
