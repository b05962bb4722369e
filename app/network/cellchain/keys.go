package cellchain

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
	"github.com/xssnick/tonutils-go/ton/wallet"

	"custody/app/models"
)

const (
	mainnetGlobalID = -239
	mnemonicLength  = 24
)

var walletVersion = wallet.ConfigV5R1Final{NetworkGlobalID: mainnetGlobalID, Workchain: 0}

// openWallet derives the V5R1 wallet of words. api may be nil when only the
// address and keys are needed.
func openWallet(api wallet.TonAPI, words []string) (*wallet.Wallet, error) {
	if len(words) != mnemonicLength {
		return nil, errors.Wrapf(models.ErrInvalidSecret, "expected %d words, got %d", mnemonicLength, len(words))
	}
	w, err := wallet.FromSeed(api, words, walletVersion)
	if err != nil {
		return nil, errors.Wrap(models.ErrInvalidSecret, err.Error())
	}
	return w, nil
}

func fromMnemonic(words []string) (*models.KeyMaterial, error) {
	w, err := openWallet(nil, words)
	if err != nil {
		return nil, err
	}

	key := w.PrivateKey()
	return &models.KeyMaterial{
		Address:    w.WalletAddress().String(),
		Mnemonic:   strings.Join(words, " "),
		PrivateKey: hex.EncodeToString(key),
		PublicKey:  hex.EncodeToString(key.Public().(ed25519.PublicKey)),
	}, nil
}

func words(keys *models.KeyMaterial) []string {
	return strings.Fields(keys.Mnemonic)
}
