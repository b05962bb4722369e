// Package fastchain implements the network adapter for Solana.
package fastchain

import (
	"context"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"custody/app/models"
	"custody/app/network"
	"custody/pkg/log"
	"custody/pkg/units"
)

const lamportsPerSignature = 5000

// Client is the subset of *rpc.Client the adapter uses.
type Client interface {
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetTransaction(ctx context.Context, sig solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

type Config struct {
	RPCURL       string        `mapstructure:"rpcUrl"`
	RPS          float64       `mapstructure:"rps"`
	PollAttempts int           `mapstructure:"pollAttempts"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return errors.New("you must provide a solana rpc url in a config")
	}
	return nil
}

type Adapter struct {
	client  Client
	limiter *network.Limiter
	policy  network.PollPolicy
	mints   *cache.Cache // mint -> *models.TokenMeta
}

func New(cfg Config, client Client) *Adapter {
	policy := network.PollPolicy{Attempts: cfg.PollAttempts, Interval: cfg.PollInterval}
	if policy.Attempts == 0 {
		policy.Attempts = 10
	}
	if policy.Interval == 0 {
		policy.Interval = 2 * time.Second
	}

	return &Adapter{
		client:  client,
		limiter: network.NewLimiter(models.SOL, cfg.RPS, 5),
		policy:  policy,
		mints:   cache.New(cache.NoExpiration, 0),
	}
}

func (a *Adapter) Network() models.Network {
	return models.SOL
}

func (a *Adapter) PollPolicy() network.PollPolicy {
	return a.policy
}

// Send submits an already signed transaction through the adapter's rate limiter.
func (a *Adapter) Send(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	var sig solana.Signature
	err := a.limiter.Do(ctx, "sendTransaction", func(ctx context.Context) (err error) {
		sig, err = a.client.SendTransactionWithOpts(ctx, tx, opts)
		return err
	})
	return sig, err
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
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return errors.Wrapf(models.ErrInvalidAddress, "%s is not a solana address", address)
	}
	return nil
}

func (a *Adapter) GetBalance(ctx context.Context, address string) decimal.Decimal {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return decimal.Zero
	}

	var result *rpc.GetBalanceResult
	err = a.limiter.Do(ctx, "getBalance", func(ctx context.Context) (err error) {
		result, err = a.client.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
		return err
	})
	if err != nil {
		log.Warnw("failed to get native balance", "network", models.SOL, "address", address, "error", err)
		return decimal.Zero
	}
	return units.ToDecimal(result.Value, models.SOL.NativeDecimals())
}

func (a *Adapter) GetTokenBalance(ctx context.Context, address, contract string) decimal.Decimal {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return decimal.Zero
	}
	mint, err := solana.PublicKeyFromBase58(contract)
	if err != nil {
		return decimal.Zero
	}
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return decimal.Zero
	}

	var result *rpc.GetTokenAccountBalanceResult
	err = a.limiter.Do(ctx, "getTokenAccountBalance", func(ctx context.Context) (err error) {
		result, err = a.client.GetTokenAccountBalance(ctx, ata, rpc.CommitmentConfirmed)
		return err
	})
	if err != nil {
		// an account that never held the token has no associated account yet
		if !isAccountNotFound(err) {
			log.Warnw("failed to get token balance", "network", models.SOL, "address", address,
				"contract", contract, "error", err)
		}
		return decimal.Zero
	}
	if result.Value == nil {
		return decimal.Zero
	}
	return units.ToDecimal(result.Value.Amount, result.Value.Decimals)
}

// TokenInfo reads the mint decimals. Mints carry no symbol or name on chain.
func (a *Adapter) TokenInfo(ctx context.Context, contract string) (*models.TokenMeta, error) {
	mint, err := solana.PublicKeyFromBase58(contract)
	if err != nil {
		return nil, errors.Wrapf(models.ErrInvalidAddress, "%s is not a mint address", contract)
	}

	if cached, ok := a.mints.Get(contract); ok {
		return cached.(*models.TokenMeta), nil
	}

	var result *rpc.GetTokenSupplyResult
	err = a.limiter.Do(ctx, "getTokenSupply", func(ctx context.Context) (err error) {
		result, err = a.client.GetTokenSupply(ctx, mint, rpc.CommitmentConfirmed)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, errors.Wrap(models.ErrTokenNotFound, contract)
	}

	meta := &models.TokenMeta{Contract: contract, Decimals: result.Value.Decimals}
	a.mints.SetDefault(contract, meta)
	return meta, nil
}

func (a *Adapter) SubmitTransfer(ctx context.Context, order *models.TransferOrder) (*models.Submission, error) {
	key, to, err := a.parties(order)
	if err != nil {
		return nil, err
	}

	lamports := units.ToBaseUint64(order.Amount, models.SOL.NativeDecimals())
	instruction := system.NewTransferInstruction(lamports, key.PublicKey(), to).Build()
	return a.signAndSend(ctx, key, instruction)
}

func (a *Adapter) SubmitTokenTransfer(ctx context.Context, order *models.TransferOrder) (*models.Submission, error) {
	key, to, err := a.parties(order)
	if err != nil {
		return nil, err
	}
	meta, err := a.TokenInfo(ctx, order.Contract)
	if err != nil {
		return nil, err
	}
	mint := solana.MustPublicKeyFromBase58(order.Contract)
	owner := key.PublicKey()

	source, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find source token account")
	}
	destination, _, err := solana.FindAssociatedTokenAddress(to, mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find destination token account")
	}

	var instructions []solana.Instruction
	exists, err := a.accountExists(ctx, destination)
	if err != nil {
		return nil, err
	}
	if !exists {
		instructions = append(instructions, associatedtokenaccount.NewCreateInstruction(owner, to, mint).Build())
	}

	instructions = append(instructions, token.NewTransferCheckedInstruction(
		units.ToBaseUint64(order.Amount, meta.Decimals),
		meta.Decimals,
		source,
		mint,
		destination,
		owner,
		[]solana.PublicKey{},
	).Build())

	return a.signAndSend(ctx, key, instructions...)
}

func (a *Adapter) parties(order *models.TransferOrder) (solana.PrivateKey, solana.PublicKey, error) {
	key, err := ParsePrivateKey(order.Keys.PrivateKey)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	to, err := solana.PublicKeyFromBase58(order.To)
	if err != nil {
		return nil, solana.PublicKey{}, errors.Wrapf(models.ErrInvalidAddress, "%s is not a solana address", order.To)
	}
	return key, to, nil
}

func (a *Adapter) accountExists(ctx context.Context, account solana.PublicKey) (bool, error) {
	var info *rpc.GetAccountInfoResult
	err := a.limiter.Do(ctx, "getAccountInfo", func(ctx context.Context) (err error) {
		info, err = a.client.GetAccountInfo(ctx, account)
		if isAccountNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return info != nil && info.Value != nil, nil
}

func (a *Adapter) signAndSend(ctx context.Context, key solana.PrivateKey, instructions ...solana.Instruction) (
	*models.Submission, error) {
	var recent *rpc.GetLatestBlockhashResult
	err := a.limiter.Do(ctx, "getLatestBlockhash", func(ctx context.Context) (err error) {
		recent, err = a.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get recent blockhash")
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(key.PublicKey()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transaction")
	}

	_, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if key.PublicKey().Equals(pub) {
			return &key
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	sig, err := a.Send(ctx, tx, rpc.TransactionOpts{PreflightCommitment: rpc.CommitmentConfirmed})
	if err != nil {
		return nil, errors.Wrap(err, "failed to send transaction")
	}

	log.Infow("transaction sent", "network", models.SOL, "hash", sig.String(), "from", key.PublicKey().String())
	return &models.Submission{
		Hash:         sig.String(),
		EstimatedFee: units.ToDecimal(uint64(lamportsPerSignature*len(tx.Signatures)), models.SOL.NativeDecimals()),
	}, nil
}

// LookupTransaction returns the confirmed transaction for a signature, or nothing
// while the node has not seen it yet. The fee is meta.fee in lamports.
func (a *Adapter) LookupTransaction(ctx context.Context, ref network.TxRef) ([]*network.ChainTx, error) {
	sig, err := solana.SignatureFromBase58(ref.Hash)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid signature %s", ref.Hash)
	}

	maxVersion := uint64(0)
	var result *rpc.GetTransactionResult
	err = a.limiter.Do(ctx, "getTransaction", func(ctx context.Context) (err error) {
		result, err = a.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     rpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		if errors.Is(err, rpc.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil || result.Meta == nil {
		return nil, nil
	}

	return []*network.ChainTx{{
		Hash:    ref.Hash,
		Lt:      result.Slot,
		Fee:     units.ToDecimal(result.Meta.Fee, models.SOL.NativeDecimals()),
		Success: result.Meta.Err == nil,
		Final:   true,
	}}, nil
}

func isAccountNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "could not find account") || strings.Contains(msg, "not found")
}
