package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"custody/pkg/uuid"
)

const (
	insertWallet = `INSERT INTO wallets (id, user_id, name, network, type, address, can_be_deleted, balance_usd, created_at)
VALUES (:id, :user_id, :name, :network, :type, :address, :can_be_deleted, :balance_usd, :created_at);`

	insertSecrets = `INSERT INTO secrets (wallet_id, mnemonic, private_key, public_key, created_at)
VALUES (:wallet_id, :mnemonic, :private_key, :public_key, :created_at);`

	insertToken = `INSERT INTO tokens (id, wallet_id, symbol, name, network, contract, balance, balance_usd, price,
                    price_change_percentage, icon, created_at)
VALUES (:id, :wallet_id, :symbol, :name, :network, :contract, :balance, :balance_usd, :price,
        :price_change_percentage, :icon, :created_at);`
)

func (p *Postgres) CreateWallet(ctx context.Context, wallet *Wallet, secrets *Secrets, tokens []*Token) (*Wallet, error) {
	now := p.now()
	if wallet.ID == "" {
		wallet.ID = uuid.NewUUID()
	}
	wallet.CreatedAt = now

	err := p.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertWallet, wallet); err != nil {
			return errors.Wrap(err, "failed to insert a wallet")
		}

		if secrets != nil {
			secrets.WalletID = wallet.ID
			secrets.CreatedAt = now
			if _, err := tx.NamedExecContext(ctx, insertSecrets, secrets); err != nil {
				return errors.Wrap(err, "failed to insert wallet secrets")
			}
		}

		for _, t := range tokens {
			t.ID = uuid.NewUUID()
			t.WalletID = wallet.ID
			t.CreatedAt = now
			if _, err := tx.NamedExecContext(ctx, insertToken, t); err != nil {
				return errors.Wrapf(err, "failed to insert token %s", t.Symbol)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

func (p *Postgres) GetWallet(ctx context.Context, id string) (*Wallet, error) {
	result := new(Wallet)
	if err := p.DB.GetContext(ctx, result, "SELECT * FROM wallets WHERE id = $1 LIMIT 1;", id); err != nil {
		return nil, notFound(err, "a wallet")
	}
	return result, nil
}

func (p *Postgres) ListWallets(ctx context.Context, userID string) ([]*Wallet, error) {
	var result []*Wallet
	if err := p.DB.SelectContext(
		ctx,
		&result,
		"SELECT * FROM wallets WHERE user_id = $1 ORDER BY created_at;",
		userID,
	); err != nil {
		return nil, errors.Wrap(err, "failed to select wallets")
	}
	return result, nil
}

// DeleteWallet removes the wallet; secrets, tokens and transactions go with it.
func (p *Postgres) DeleteWallet(ctx context.Context, id string) error {
	res, err := p.DB.ExecContext(ctx, "DELETE FROM wallets WHERE id = $1;", id)
	if err != nil {
		return errors.Wrap(err, "failed to delete a wallet")
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrap(ErrNotFound, "a wallet")
	}
	return nil
}

func (p *Postgres) UpdateWalletBalance(ctx context.Context, id string, balanceUSD decimal.Decimal) error {
	_, err := p.DB.ExecContext(
		ctx,
		"UPDATE wallets SET balance_usd = $2, updated_at = $3 WHERE id = $1;",
		id, balanceUSD, p.now(),
	)
	return errors.Wrap(err, "failed to update wallet balance")
}

func (p *Postgres) GetSecrets(ctx context.Context, walletID string) (*Secrets, error) {
	result := new(Secrets)
	if err := p.DB.GetContext(ctx, result, "SELECT * FROM secrets WHERE wallet_id = $1;", walletID); err != nil {
		return nil, notFound(err, "wallet secrets")
	}
	return result, nil
}

func (p *Postgres) CreateToken(ctx context.Context, token *Token) (*Token, error) {
	token.ID = uuid.NewUUID()
	token.CreatedAt = p.now()
	if _, err := p.DB.NamedExecContext(ctx, insertToken, token); err != nil {
		return nil, errors.Wrap(err, "failed to insert a token")
	}
	return token, nil
}

func (p *Postgres) ListTokens(ctx context.Context, walletID string) ([]*Token, error) {
	var result []*Token
	if err := p.DB.SelectContext(
		ctx,
		&result,
		"SELECT * FROM tokens WHERE wallet_id = $1 ORDER BY created_at;",
		walletID,
	); err != nil {
		return nil, errors.Wrap(err, "failed to select tokens")
	}
	return result, nil
}

func (p *Postgres) UpdateTokenBalances(ctx context.Context, tokens []*Token) error {
	if len(tokens) == 0 {
		return nil
	}
	now := p.now()
	return p.inTx(ctx, func(tx *sqlx.Tx) error {
		for _, t := range tokens {
			t.UpdatedAt = &now
			if _, err := tx.NamedExecContext(
				ctx,
				`UPDATE tokens SET balance = :balance, balance_usd = :balance_usd, price = :price,
                  price_change_percentage = :price_change_percentage, updated_at = :updated_at WHERE id = :id;`,
				t,
			); err != nil {
				return errors.Wrapf(err, "failed to update token %s", t.ID)
			}
		}
		return nil
	})
}
