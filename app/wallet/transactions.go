package wallet

import (
	"context"

	"github.com/pkg/errors"

	"custody/app/models"
	"custody/app/network"
	"custody/app/swap"
	"custody/pkg/log"
	"custody/pkg/response"
)

// Transfer signs and submits a transfer, then records it as PENDING. Nothing
// is recorded when the network rejects it.
func (m *Manager) Transfer(ctx context.Context, transfer *models.NewTransfer) (*models.Transaction, error) {
	log.AddFields(ctx, "wallet", transfer.WalletID, "contract", transfer.Contract, "to", transfer.To)

	if err := transfer.Validate(); err != nil {
		return nil, response.Wrap(response.CodeBadRequest, err)
	}

	wallet, err := m.walletWithTokens(ctx, transfer.WalletID)
	if err != nil {
		return nil, err
	}
	token := wallet.FindToken(transfer.Contract)
	if token == nil {
		return nil, response.Wrap(response.CodeNotFound, models.ErrTokenNotFound)
	}

	adapter, err := m.Networks.Get(wallet.Network)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}
	if err := adapter.ValidateAddress(transfer.To); err != nil {
		return nil, response.Wrap(response.CodeBadRequest, err)
	}

	// the balance has to cover the amount and leave something for fees
	balance := balanceOf(ctx, adapter, wallet.Address, token)
	if !balance.GreaterThan(transfer.Amount) {
		return nil, response.Wrap(response.CodeBadRequest, errors.Wrapf(models.ErrInsufficientBalance,
			"%s %s available", balance.String(), token.Symbol))
	}

	keys, err := m.keys(ctx, wallet)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}

	order := &models.TransferOrder{Keys: keys, To: transfer.To, Amount: transfer.Amount, Contract: token.Contract}
	var submission *models.Submission
	if token.IsNative() {
		submission, err = adapter.SubmitTransfer(ctx, order)
	} else {
		submission, err = adapter.SubmitTokenTransfer(ctx, order)
	}
	if err != nil {
		return nil, submitError(err, "failed to submit a transfer")
	}

	tokenPrice := m.priceOf(ctx, token.Query()).Price
	nativePrice := tokenPrice
	if !token.IsNative() {
		nativePrice = m.nativePrice(ctx, wallet.Network)
	}

	return m.record(ctx, &models.Transaction{
		WalletID:  wallet.ID,
		Type:      models.TxTransfer,
		Network:   wallet.Network,
		Hash:      submission.Hash,
		Status:    models.TxPending,
		Amount:    transfer.Amount,
		AmountUSD: transfer.Amount.Mul(tokenPrice),
		From:      wallet.Address,
		To:        transfer.To,
		Currency:  token.Symbol,
		Fee:       submission.EstimatedFee,
		FeeUSD:    submission.EstimatedFee.Mul(nativePrice),
	})
}

// Swap hands the order to the network's router and records it as PENDING
// with the service fee charged on the sold amount.
func (m *Manager) Swap(ctx context.Context, newSwap *models.NewSwap) (*models.Transaction, error) {
	log.AddFields(ctx, "wallet", newSwap.WalletID, "from", newSwap.FromContract, "to", newSwap.ToContract)

	p, err := m.prepareSwap(ctx, newSwap)
	if err != nil {
		return nil, err
	}

	balance := balanceOf(ctx, p.adapter, p.wallet.Address, p.from)
	if balance.LessThan(newSwap.Amount) {
		return nil, response.Wrap(response.CodeBadRequest, errors.Wrapf(models.ErrInsufficientBalance,
			"%s %s available", balance.String(), p.from.Symbol))
	}

	if p.order.Keys, err = m.keys(ctx, p.wallet); err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}

	result, err := p.router.Swap(ctx, p.order)
	if err != nil {
		return nil, submitError(err, "failed to submit a swap")
	}

	fromPrice := m.priceOf(ctx, p.from.Query()).Price
	toPrice := m.priceOf(ctx, p.to.Query()).Price
	nativePrice := m.nativePrice(ctx, p.wallet.Network)
	serviceFee := swap.ServiceFee(newSwap.Amount, m.ServiceFeeBps)

	return m.record(ctx, &models.Transaction{
		WalletID:      p.wallet.ID,
		Type:          models.TxSwap,
		Network:       p.wallet.Network,
		Hash:          result.Hash,
		Status:        models.TxPending,
		Amount:        newSwap.Amount,
		AmountUSD:     newSwap.Amount.Mul(fromPrice),
		From:          p.wallet.Address,
		To:            p.wallet.Address,
		Currency:      p.from.Symbol,
		FromCurrency:  p.from.Symbol,
		ToCurrency:    p.to.Symbol,
		ToAmount:      result.ToAmount,
		ToAmountUSD:   result.ToAmount.Mul(toPrice),
		Fee:           result.Fee,
		FeeUSD:        result.Fee.Mul(nativePrice),
		ServiceFee:    serviceFee,
		ServiceFeeUSD: serviceFee.Mul(fromPrice),
	})
}

func (m *Manager) EstimateSwapFee(ctx context.Context, newSwap *models.NewSwap) (*models.SwapFeeEstimation, error) {
	p, err := m.prepareSwap(ctx, newSwap)
	if err != nil {
		return nil, err
	}

	if p.order.Keys, err = m.keys(ctx, p.wallet); err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}

	fee, err := p.router.EstimateFee(ctx, p.order)
	if err != nil {
		return nil, submitError(err, "failed to estimate a swap fee")
	}

	fromPrice := m.priceOf(ctx, p.from.Query()).Price
	serviceFee := swap.ServiceFee(newSwap.Amount, m.ServiceFeeBps)
	return &models.SwapFeeEstimation{
		NetworkFee:    fee,
		NetworkFeeUSD: fee.Mul(m.nativePrice(ctx, p.wallet.Network)),
		ServiceFee:    serviceFee,
		ServiceFeeUSD: serviceFee.Mul(fromPrice),
	}, nil
}

type preparedSwap struct {
	wallet  *models.Wallet
	adapter network.Adapter
	router  swap.Router
	from    *models.Token
	to      *models.Token
	order   *models.SwapOrder
}

// prepareSwap resolves both sides of a swap to wallet tokens and builds the
// router order without keys.
func (m *Manager) prepareSwap(ctx context.Context, newSwap *models.NewSwap) (*preparedSwap, error) {
	if err := newSwap.Validate(); err != nil {
		return nil, response.Wrap(response.CodeBadRequest, err)
	}

	wallet, err := m.walletWithTokens(ctx, newSwap.WalletID)
	if err != nil {
		return nil, err
	}
	from := wallet.FindToken(newSwap.FromContract)
	to := wallet.FindToken(newSwap.ToContract)
	if from == nil || to == nil {
		return nil, response.Wrap(response.CodeNotFound, models.ErrTokenNotFound)
	}

	adapter, err := m.Networks.Get(wallet.Network)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}
	router, err := m.Swaps.Get(wallet.Network)
	if err != nil {
		return nil, response.Wrap(response.CodeBadRequest, err)
	}

	fromSide, err := swapToken(ctx, adapter, from)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}
	toSide, err := swapToken(ctx, adapter, to)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}

	return &preparedSwap{
		wallet:  wallet,
		adapter: adapter,
		router:  router,
		from:    from,
		to:      to,
		order: &models.SwapOrder{
			Network:       wallet.Network,
			From:          fromSide,
			To:            toSide,
			Amount:        newSwap.Amount,
			SlippageBps:   newSwap.SlippageBps,
			ServiceFeeBps: m.ServiceFeeBps,
		},
	}, nil
}

func swapToken(ctx context.Context, adapter network.Adapter, t *models.Token) (models.SwapToken, error) {
	if t.IsNative() {
		return models.SwapToken{Symbol: t.Symbol, Decimals: t.Network.NativeDecimals()}, nil
	}

	meta, err := adapter.TokenInfo(ctx, t.Contract)
	if err != nil {
		return models.SwapToken{}, errors.WithMessagef(err, "failed to read %s decimals", t.Symbol)
	}
	return models.SwapToken{Contract: t.Contract, Symbol: t.Symbol, Decimals: meta.Decimals}, nil
}

// record writes the PENDING row of a submitted transaction.
func (m *Manager) record(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	logger := log.ExtractLogger(ctx).With("type", tx.Type, "network", tx.Network, "hash", tx.Hash)

	stored, err := m.Ledger.Insert(ctx, tx)
	if err != nil {
		// the chain already has it; reconciliation cannot see it without a row
		logger.Errorw("failed to record a submitted transaction", "error", err)
		return nil, response.Wrap(response.CodeInternal, err)
	}

	logger.Infow("transaction submitted", "id", stored.ID, "amount", tx.Amount.String())
	return stored, nil
}

func submitError(err error, message string) error {
	err = errors.WithMessage(err, message)
	switch {
	case errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrInvalidAddress),
		errors.Is(err, models.ErrPoolNotReady),
		errors.Is(err, models.ErrVaultNotReady):
		return response.Wrap(response.CodeBadRequest, err)
	default:
		return response.Wrap(response.CodeInternal, err)
	}
}
