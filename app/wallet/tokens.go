package wallet

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"custody/app/models"
	"custody/app/network"
	"custody/app/storage/database"
	"custody/pkg/log"
	"custody/pkg/response"
)

// RefreshBalances reads every token balance from the chain, reprices it and
// stores the result together with the wallet's USD total.
func (m *Manager) RefreshBalances(ctx context.Context, id string) (*models.Wallet, error) {
	wallet, err := m.walletWithTokens(ctx, id)
	if err != nil {
		return nil, err
	}

	adapter, err := m.Networks.Get(wallet.Network)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}

	total := decimal.Zero
	updates := make([]*database.Token, 0, len(wallet.Tokens))
	for _, t := range wallet.Tokens {
		m.refreshToken(ctx, adapter, wallet.Address, t)
		total = total.Add(t.BalanceUSD)
		updates = append(updates, database.TokenFromPublic(t))
	}

	if err := m.DB.UpdateTokenBalances(ctx, updates); err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}
	if err := m.DB.UpdateWalletBalance(ctx, wallet.ID, total); err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}
	wallet.BalanceUSD = total

	return wallet, nil
}

// refreshToken sets balance, price and USD value in place. A token with a
// zero balance is still priced.
func (m *Manager) refreshToken(ctx context.Context, adapter network.Adapter, address string, t *models.Token) {
	t.Balance = balanceOf(ctx, adapter, address, t)

	p := m.priceOf(ctx, t.Query())
	t.Price = p.Price
	t.PriceChangePercentage = p.PriceChangePercentage
	t.BalanceUSD = t.Balance.Mul(t.Price)
}

func (m *Manager) AddToken(ctx context.Context, token *models.NewToken) (*models.Token, error) {
	log.AddFields(ctx, "wallet", token.WalletID, "contract", token.Contract)

	if err := token.Validate(); err != nil {
		return nil, response.Wrap(response.CodeBadRequest, err)
	}

	wallet, err := m.walletWithTokens(ctx, token.WalletID)
	if err != nil {
		return nil, err
	}
	if wallet.FindToken(token.Contract) != nil {
		return nil, response.Wrap(response.CodeConflict, models.ErrTokenExists)
	}

	adapter, err := m.Networks.Get(wallet.Network)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}
	if err := adapter.ValidateAddress(token.Contract); err != nil {
		return nil, response.Wrap(response.CodeBadRequest, err)
	}

	meta, err := adapter.TokenInfo(ctx, token.Contract)
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, errors.WithMessage(err, "failed to read token info"))
	}

	result := &models.Token{
		WalletID: wallet.ID,
		Symbol:   meta.Symbol,
		Name:     meta.Name,
		Network:  wallet.Network,
		Contract: token.Contract,
	}
	result.Icon = m.iconOf(ctx, result.Query())
	m.refreshToken(ctx, adapter, wallet.Address, result)

	dbToken, err := m.DB.CreateToken(ctx, database.TokenFromPublic(result))
	if err != nil {
		return nil, response.Wrap(response.CodeInternal, err)
	}

	log.Infow("token added", "wallet", wallet.ID, "symbol", result.Symbol, "contract", result.Contract)
	return dbToken.ToPublic(), nil
}

// sortTokens puts the native token first and orders the rest by USD balance,
// largest first.
func sortTokens(tokens []*models.Token) {
	sort.SliceStable(tokens, func(i, j int) bool {
		a, b := tokens[i], tokens[j]
		if a.IsNative() != b.IsNative() {
			return a.IsNative()
		}
		return a.BalanceUSD.GreaterThan(b.BalanceUSD)
	})
}

// balanceOf is the live on-chain balance of a wallet token.
func balanceOf(ctx context.Context, adapter network.Adapter, address string, t *models.Token) decimal.Decimal {
	if t.IsNative() {
		return adapter.GetBalance(ctx, address)
	}
	return adapter.GetTokenBalance(ctx, address, t.Contract)
}
