package wallet

import (
	"context"

	"custody/app/models"
)

type Service interface {
	GenerateWallet(ctx context.Context, wallet *models.NewWallet) (*models.GeneratedWallet, error)
	ImportWallet(ctx context.Context, wallet *models.ImportWallet) (*models.Wallet, error)
	ProvisionWallets(ctx context.Context, userID string, networks []models.Network) ([]*models.Wallet, error)
	GetWallet(ctx context.Context, id string) (*models.Wallet, error)
	ListWallets(ctx context.Context, userID string) ([]*models.Wallet, error)
	DeleteWallet(ctx context.Context, id string) error
	RefreshBalances(ctx context.Context, id string) (*models.Wallet, error)
	AddToken(ctx context.Context, token *models.NewToken) (*models.Token, error)
	DepositQR(ctx context.Context, id string, size int) ([]byte, error)

	Transfer(ctx context.Context, transfer *models.NewTransfer) (*models.Transaction, error)
	Swap(ctx context.Context, swap *models.NewSwap) (*models.Transaction, error)
	EstimateSwapFee(ctx context.Context, swap *models.NewSwap) (*models.SwapFeeEstimation, error)
	GetHistory(ctx context.Context, filter *models.HistoryFilter) ([]*models.Transaction, error)

	WalletOwner(ctx context.Context, walletID string) (string, error)
}
