// Package evm swaps on EVM chains through the 0x allowance-holder API.
package evm

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"net/url"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"custody/app/models"
	evmnet "custody/app/network/evm"
	"custody/app/swap"
	"custody/pkg/eth"
	"custody/pkg/httpclient"
	"custody/pkg/log"
	"custody/pkg/units"
)

var chainIDs = map[models.Network]int64{
	models.ETH: 1,
	models.BSC: 56,
}

// Chain is what the router needs from the network adapter.
type Chain interface {
	Network() models.Network
	Decimals(ctx context.Context, contract string) (uint8, error)
	Transact(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte) (*types.Transaction, error)
	TransactWithGas(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte,
		gasLimit uint64, gasPrice *big.Int) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) error
}

type Router struct {
	chain  Chain
	client *httpclient.Client
	config swap.Config
}

func NewRouter(cfg swap.Config, chain Chain) *Router {
	return &Router{
		chain: chain,
		client: httpclient.New(httpclient.Config{
			Name:    "0x-" + chain.Network().String(),
			BaseURL: cfg.ZeroXURL,
			Headers: map[string]string{
				"0x-api-key": cfg.ZeroXAPIKey,
				"0x-version": "v2",
			},
		}),
		config: cfg,
	}
}

func (r *Router) Network() models.Network {
	return r.chain.Network()
}

type allowanceIssue struct {
	Actual  string `json:"actual"`
	Spender string `json:"spender"`
}

type issues struct {
	Allowance *allowanceIssue `json:"allowance"`
}

type quoteTransaction struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
	Value    string `json:"value"`
}

type price struct {
	LiquidityAvailable bool              `json:"liquidityAvailable"`
	BuyAmount          string            `json:"buyAmount"`
	SellAmount         string            `json:"sellAmount"`
	Gas                string            `json:"gas"`
	GasPrice           string            `json:"gasPrice"`
	TotalNetworkFee    string            `json:"totalNetworkFee"`
	Issues             issues            `json:"issues"`
	Transaction        *quoteTransaction `json:"transaction,omitempty"`
}

func (r *Router) query(ctx context.Context, order *models.SwapOrder, taker string) (url.Values, *big.Int, error) {
	fromDecimals, err := r.chain.Decimals(ctx, order.From.Contract)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to get sell token decimals")
	}
	sellAmount := units.ToBase(order.Amount, fromDecimals)

	sellToken := tokenAddress(order.From)
	query := url.Values{
		"chainId":     {strconv.FormatInt(chainIDs[r.Network()], 10)},
		"sellToken":   {sellToken},
		"buyToken":    {tokenAddress(order.To)},
		"sellAmount":  {sellAmount.String()},
		"slippageBps": {strconv.Itoa(int(order.SlippageBps))},
	}
	if taker != "" {
		query.Set("taker", taker)
	}
	if r.config.FeeRecipient != "" && order.ServiceFeeBps > 0 {
		query.Set("swapFeeRecipient", r.config.FeeRecipient)
		query.Set("swapFeeBps", strconv.Itoa(int(order.ServiceFeeBps)))
		query.Set("swapFeeToken", sellToken)
	}
	return query, sellAmount, nil
}

func tokenAddress(t models.SwapToken) string {
	if t.IsNative() {
		return eth.NativeTokenAddress.Hex()
	}
	return t.Contract
}

func (r *Router) EstimateFee(ctx context.Context, order *models.SwapOrder) (decimal.Decimal, error) {
	taker := ""
	if order.Keys != nil {
		taker = order.Keys.Address
	}
	query, _, err := r.query(ctx, order, taker)
	if err != nil {
		return decimal.Zero, err
	}

	p := &price{}
	if err = r.client.Get(ctx, "/swap/allowance-holder/price", query, p); err != nil {
		return decimal.Zero, models.NewAdapterError(r.Network(), "0x_price", err)
	}
	if !p.LiquidityAvailable {
		return decimal.Zero, errors.Wrap(models.ErrPoolNotReady, "no liquidity for the pair")
	}
	return networkFee(p), nil
}

// Swap takes an indicative price, then a firm quote, approves the allowance
// holder when the allowance is short and submits the quoted calldata.
func (r *Router) Swap(ctx context.Context, order *models.SwapOrder) (*models.SwapResult, error) {
	key, err := evmnet.ParsePrivateKey(order.Keys.PrivateKey)
	if err != nil {
		return nil, err
	}

	query, sellAmount, err := r.query(ctx, order, order.Keys.Address)
	if err != nil {
		return nil, err
	}

	indicative := &price{}
	if err = r.client.Get(ctx, "/swap/allowance-holder/price", query, indicative); err != nil {
		return nil, models.NewAdapterError(r.Network(), "0x_price", err)
	}
	if !indicative.LiquidityAvailable {
		return nil, errors.Wrap(models.ErrPoolNotReady, "no liquidity for the pair")
	}

	quote := &price{}
	if err = r.client.Get(ctx, "/swap/allowance-holder/quote", query, quote); err != nil {
		return nil, models.NewAdapterError(r.Network(), "0x_quote", err)
	}
	if quote.Transaction == nil {
		return nil, errors.New("0x quote has no transaction")
	}

	if !order.From.IsNative() && quote.Issues.Allowance != nil {
		if err = r.approve(ctx, key, order.From.Contract, quote.Issues.Allowance, sellAmount); err != nil {
			return nil, err
		}
	}

	tx, err := r.submit(ctx, key, quote.Transaction)
	if err != nil {
		return nil, err
	}

	// the swap is broadcast; nothing below may fail
	return &models.SwapResult{
		Hash:       tx.Hash().Hex(),
		FromAmount: order.Amount,
		ToAmount:   units.ToDecimal(quote.BuyAmount, order.To.Decimals),
		Fee:        units.ToDecimal(eth.CalcGasCost(tx.Gas(), tx.GasPrice()), r.Network().NativeDecimals()),
	}, nil
}

func (r *Router) approve(ctx context.Context, key *ecdsa.PrivateKey, token string, issue *allowanceIssue,
	sellAmount *big.Int) error {
	actual, ok := new(big.Int).SetString(issue.Actual, 10)
	if !ok {
		actual = big.NewInt(0)
	}
	if actual.Cmp(sellAmount) >= 0 {
		return nil
	}

	data, err := eth.PackApprove(common.HexToAddress(issue.Spender), sellAmount)
	if err != nil {
		return errors.Wrap(err, "failed to pack approve")
	}

	log.Infow("approving allowance holder", "network", r.Network(), "token", token, "spender", issue.Spender,
		"amount", sellAmount.String())
	tx, err := r.chain.Transact(ctx, key, common.HexToAddress(token), big.NewInt(0), data)
	if err != nil {
		return errors.Wrap(err, "failed to send approve")
	}
	if err = r.chain.WaitMined(ctx, tx); err != nil {
		return errors.Wrap(err, "approve was not mined")
	}
	return nil
}

func (r *Router) submit(ctx context.Context, key *ecdsa.PrivateKey, qt *quoteTransaction) (*types.Transaction, error) {
	gas, err := strconv.ParseUint(qt.Gas, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid quoted gas %q", qt.Gas)
	}
	gasPrice, ok := new(big.Int).SetString(qt.GasPrice, 10)
	if !ok {
		return nil, errors.Errorf("invalid quoted gas price %q", qt.GasPrice)
	}
	value, ok := new(big.Int).SetString(qt.Value, 10)
	if !ok {
		value = big.NewInt(0)
	}
	data, err := decodeHex(qt.Data)
	if err != nil {
		return nil, err
	}

	return r.chain.TransactWithGas(ctx, key, common.HexToAddress(qt.To), value, data, gas, gasPrice)
}

func networkFee(p *price) decimal.Decimal {
	if p.TotalNetworkFee != "" {
		return units.ToDecimal(p.TotalNetworkFee, 18)
	}
	gas, _ := strconv.ParseUint(p.Gas, 10, 64)
	gasPrice, ok := new(big.Int).SetString(p.GasPrice, 10)
	if !ok {
		return decimal.Zero
	}
	return units.ToDecimal(eth.CalcGasCost(gas, gasPrice), 18)
}

func decodeHex(s string) ([]byte, error) {
	data := common.FromHex(s)
	if len(data) == 0 && s != "" && s != "0x" {
		return nil, errors.Errorf("invalid calldata %q", s)
	}
	return data, nil
}
