// Package fastchain swaps on Solana through the Jupiter aggregator.
package fastchain

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"custody/app/models"
	solnet "custody/app/network/fastchain"
	"custody/app/swap"
	"custody/pkg/httpclient"
	"custody/pkg/log"
	"custody/pkg/units"
)

const (
	lamportsPerSignature = 5000
	maxRetries           = uint(2)
)

var (
	wrappedSOL      = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	referralProgram = solana.MustPublicKeyFromBase58("REFER4ZgmyYx9c6He5XfaTMiGfdLwRnkV4RPp9t9iF3")
)

type Chain interface {
	Network() models.Network
	Send(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

type Router struct {
	chain    Chain
	client   *httpclient.Client
	feeBps   uint16
	referral *solana.PublicKey
}

func NewRouter(cfg swap.Config, chain Chain) (*Router, error) {
	r := &Router{
		chain: chain,
		client: httpclient.New(httpclient.Config{
			Name:    "jupiter",
			BaseURL: cfg.JupiterURL,
		}),
		feeBps: cfg.ServiceFeeBps,
	}
	if cfg.JupiterReferral != "" {
		referral, err := solana.PublicKeyFromBase58(cfg.JupiterReferral)
		if err != nil {
			return nil, errors.Wrap(err, "invalid jupiter referral account")
		}
		r.referral = &referral
	}
	return r, nil
}

func (r *Router) Network() models.Network {
	return models.SOL
}

type quoteResponse struct {
	raw       json.RawMessage
	InAmount  string `json:"inAmount"`
	OutAmount string `json:"outAmount"`
}

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports string          `json:"prioritizationFeeLamports"`
	FeeAccount                string          `json:"feeAccount,omitempty"`
}

type swapResponse struct {
	SwapTransaction           string `json:"swapTransaction"`
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports"`
}

func mint(t models.SwapToken) (solana.PublicKey, error) {
	if t.IsNative() {
		return wrappedSOL, nil
	}
	return solana.PublicKeyFromBase58(t.Contract)
}

func (r *Router) quote(ctx context.Context, order *models.SwapOrder) (*quoteResponse, solana.PublicKey, error) {
	inputMint, err := mint(order.From)
	if err != nil {
		return nil, solana.PublicKey{}, errors.Wrapf(err, "invalid input mint %s", order.From.Contract)
	}
	outputMint, err := mint(order.To)
	if err != nil {
		return nil, solana.PublicKey{}, errors.Wrapf(err, "invalid output mint %s", order.To.Contract)
	}

	query := url.Values{
		"inputMint":   {inputMint.String()},
		"outputMint":  {outputMint.String()},
		"amount":      {units.ToBase(order.Amount, order.From.Decimals).String()},
		"slippageBps": {strconv.Itoa(int(order.SlippageBps))},
	}
	if r.referral != nil && order.ServiceFeeBps > 0 {
		query.Set("platformFeeBps", strconv.Itoa(int(order.ServiceFeeBps)))
	}

	var raw json.RawMessage
	if err = r.client.Get(ctx, "/quote", query, &raw); err != nil {
		return nil, solana.PublicKey{}, models.NewAdapterError(models.SOL, "jupiter_quote", err)
	}
	q := &quoteResponse{raw: raw}
	if err = json.Unmarshal(raw, q); err != nil {
		return nil, solana.PublicKey{}, errors.Wrap(err, "failed to decode jupiter quote")
	}
	if q.OutAmount == "" || q.OutAmount == "0" {
		return nil, solana.PublicKey{}, errors.Wrap(models.ErrPoolNotReady, "jupiter found no route")
	}
	return q, inputMint, nil
}

// feeAccount is the referral token account that collects the platform fee in feeMint.
func (r *Router) feeAccount(feeMint solana.PublicKey) (string, error) {
	if r.referral == nil {
		return "", nil
	}
	account, _, err := solana.FindProgramAddress([][]byte{
		[]byte("referral_ata"),
		r.referral.Bytes(),
		feeMint.Bytes(),
	}, referralProgram)
	if err != nil {
		return "", errors.Wrap(err, "failed to derive referral fee account")
	}
	return account.String(), nil
}

func (r *Router) build(ctx context.Context, order *models.SwapOrder) (*quoteResponse, *swapResponse, error) {
	q, inputMint, err := r.quote(ctx, order)
	if err != nil {
		return nil, nil, err
	}

	req := &swapRequest{
		QuoteResponse:             q.raw,
		UserPublicKey:             order.Keys.Address,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: "auto",
	}
	if order.ServiceFeeBps > 0 {
		if req.FeeAccount, err = r.feeAccount(inputMint); err != nil {
			return nil, nil, err
		}
	}

	resp := &swapResponse{}
	if err = r.client.Post(ctx, "/swap", req, resp); err != nil {
		return nil, nil, models.NewAdapterError(models.SOL, "jupiter_swap", err)
	}
	if resp.SwapTransaction == "" {
		return nil, nil, errors.New("jupiter returned no swap transaction")
	}
	return q, resp, nil
}

func (r *Router) EstimateFee(ctx context.Context, order *models.SwapOrder) (decimal.Decimal, error) {
	if order.Keys == nil {
		if _, _, err := r.quote(ctx, order); err != nil {
			return decimal.Zero, err
		}
		return units.ToDecimal(uint64(lamportsPerSignature), models.SOL.NativeDecimals()), nil
	}

	_, resp, err := r.build(ctx, order)
	if err != nil {
		return decimal.Zero, err
	}
	return units.ToDecimal(lamportsPerSignature+resp.PrioritizationFeeLamports, models.SOL.NativeDecimals()), nil
}

// Swap signs the transaction Jupiter built for the wallet and submits it
// without preflight, letting the node retry the broadcast twice.
func (r *Router) Swap(ctx context.Context, order *models.SwapOrder) (*models.SwapResult, error) {
	key, err := solnet.ParsePrivateKey(order.Keys.PrivateKey)
	if err != nil {
		return nil, err
	}

	q, resp, err := r.build(ctx, order)
	if err != nil {
		return nil, err
	}

	tx, err := solana.TransactionFromBase64(resp.SwapTransaction)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode swap transaction")
	}

	_, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if key.PublicKey().Equals(pub) {
			return &key
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign swap transaction")
	}

	retries := maxRetries
	sig, err := r.chain.Send(ctx, tx, rpc.TransactionOpts{
		SkipPreflight: true,
		MaxRetries:    &retries,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to send swap transaction")
	}

	log.Infow("swap sent", "network", models.SOL, "hash", sig.String(), "in", q.InAmount, "out", q.OutAmount)
	fee := uint64(lamportsPerSignature*len(tx.Signatures)) + resp.PrioritizationFeeLamports
	return &models.SwapResult{
		Hash:       sig.String(),
		FromAmount: order.Amount,
		ToAmount:   units.ToDecimal(q.OutAmount, order.To.Decimals),
		Fee:        units.ToDecimal(fee, models.SOL.NativeDecimals()),
	}, nil
}
