package evm

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custody/app/models"
	"custody/app/network"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func newSimulated(t *testing.T) (*Adapter, *simulated.Backend, *models.KeyMaterial) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	funded := crypto.PubkeyToAddress(key.PublicKey)

	backend := simulated.NewBackend(types.GenesisAlloc{
		funded: {Balance: new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18))},
	})
	t.Cleanup(func() { _ = backend.Close() })

	adapter := New(models.ETH, Config{PollAttempts: 1, PollInterval: time.Millisecond}, backend.Client())
	keys := &models.KeyMaterial{
		Address:    funded.Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key))[2:],
	}
	return adapter, backend, keys
}

func TestImportWallet_KnownMnemonic(t *testing.T) {
	a := New(models.ETH, Config{}, nil)

	keys, err := a.ImportWallet(context.Background(), testMnemonic)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", keys.Address)
	assert.Equal(t, testMnemonic, keys.Mnemonic)
	assert.Len(t, keys.PrivateKey, 64)

	fromKey, err := a.ImportWallet(context.Background(), "0x"+keys.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, keys.Address, fromKey.Address)
	assert.Empty(t, fromKey.Mnemonic)
}

func TestGenerateThenImport(t *testing.T) {
	a := New(models.BSC, Config{}, nil)

	generated, err := a.GenerateWallet(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, generated.Mnemonic)

	imported, err := a.ImportWallet(context.Background(), generated.Mnemonic)
	require.NoError(t, err)
	assert.Equal(t, generated.Address, imported.Address)
	assert.Equal(t, generated.PrivateKey, imported.PrivateKey)
}

func TestImportWallet_Invalid(t *testing.T) {
	a := New(models.ETH, Config{}, nil)

	_, err := a.ImportWallet(context.Background(), "definitely not a key")
	assert.ErrorIs(t, err, models.ErrInvalidSecret)
}

func TestValidateAddress(t *testing.T) {
	a := New(models.ETH, Config{}, nil)

	assert.NoError(t, a.ValidateAddress("0x9858EfFD232B4033E47d90003D41EC34EcaEda94"))
	assert.ErrorIs(t, a.ValidateAddress("0x123"), models.ErrInvalidAddress)
}

func TestTransferAndLookup(t *testing.T) {
	a, backend, keys := newSimulated(t)
	ctx := context.Background()

	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	sub, err := a.SubmitTransfer(ctx, &models.TransferOrder{
		Keys:   keys,
		To:     to.Hex(),
		Amount: decimal.RequireFromString("1.5"),
	})
	require.NoError(t, err)
	assert.True(t, sub.EstimatedFee.IsPositive())

	// not mined yet
	found, err := a.LookupTransaction(ctx, network.TxRef{Hash: sub.Hash, From: keys.Address})
	require.NoError(t, err)
	assert.Empty(t, found)

	backend.Commit()

	// the receipt shows up once the node has indexed the block
	require.Eventually(t, func() bool {
		found, err = a.LookupTransaction(ctx, network.TxRef{Hash: sub.Hash, From: keys.Address})
		return err == nil && len(found) == 1
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, sub.Hash, found[0].Hash)
	assert.True(t, found[0].Success)
	assert.True(t, found[0].Final)
	assert.True(t, found[0].Fee.IsPositive())
	assert.True(t, found[0].Fee.LessThanOrEqual(sub.EstimatedFee))

	assert.True(t, decimal.RequireFromString("1.5").Equal(a.GetBalance(ctx, to.Hex())))
}

func TestPollSettlesTransfer(t *testing.T) {
	a, backend, keys := newSimulated(t)
	ctx := context.Background()

	sub, err := a.SubmitTransfer(ctx, &models.TransferOrder{
		Keys:   keys,
		To:     "0x00000000000000000000000000000000000000bb",
		Amount: decimal.RequireFromString("0.01"),
	})
	require.NoError(t, err)
	backend.Commit()

	observed, err := network.Poll(ctx, a, network.TxRef{Hash: sub.Hash}, 1)
	require.NoError(t, err)

	outcome, ok := network.Settle(observed, 1)
	require.True(t, ok)
	assert.Equal(t, models.TxSuccess, outcome.Status)
	assert.Equal(t, sub.Hash, outcome.Hash)
}

func TestGetBalance_FailsSoft(t *testing.T) {
	a, backend, _ := newSimulated(t)
	require.NoError(t, backend.Close())

	assert.True(t, a.GetBalance(context.Background(), "0x00000000000000000000000000000000000000aa").IsZero())
}

func TestNotVisible(t *testing.T) {
	assert.False(t, notVisible(nil))
	assert.True(t, notVisible(ethereum.NotFound))
	assert.True(t, notVisible(errors.Wrap(ethereum.NotFound, "receipt")))
	assert.True(t, notVisible(errors.New("transaction indexing is in progress")))
	assert.False(t, notVisible(errors.New("connection refused")))
}
