package fastchain

import (
	"crypto/ed25519"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"

	"custody/app/models"
)

func newMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate entropy")
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate mnemonic")
	}
	return mnemonic, nil
}

// fromMnemonic derives the keypair the way solana-keygen does: the first 32 bytes
// of the BIP-39 seed are the ed25519 seed.
func fromMnemonic(mnemonic string) (*models.KeyMaterial, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, errors.Wrap(models.ErrInvalidSecret, err.Error())
	}

	key := solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize]))
	keys := keyMaterial(key)
	keys.Mnemonic = mnemonic
	return keys, nil
}

func fromPrivateKey(raw string) (*models.KeyMaterial, error) {
	key, err := ParsePrivateKey(raw)
	if err != nil {
		return nil, err
	}
	return keyMaterial(key), nil
}

func ParsePrivateKey(raw string) (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromBase58(strings.TrimSpace(raw))
	if err != nil {
		return nil, errors.Wrap(models.ErrInvalidSecret, err.Error())
	}
	if err := key.Validate(); err != nil {
		return nil, errors.Wrap(models.ErrInvalidSecret, err.Error())
	}
	return key, nil
}

func keyMaterial(key solana.PrivateKey) *models.KeyMaterial {
	address := key.PublicKey().String()
	return &models.KeyMaterial{
		Address:    address,
		PrivateKey: key.String(),
		PublicKey:  address,
	}
}

func isMnemonic(secret string) bool {
	return len(strings.Fields(secret)) > 1 && bip39.IsMnemonicValid(secret)
}
