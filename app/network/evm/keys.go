package evm

import (
	"crypto/ecdsa"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"

	"custody/app/models"
)

const derivationPath = "m/44'/60'/0'/0/0"

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

func fromMnemonic(mnemonic string) (*models.KeyMaterial, error) {
	wallet, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, errors.Wrap(models.ErrInvalidSecret, err.Error())
	}

	account, err := wallet.Derive(hdwallet.MustParseDerivationPath(derivationPath), false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive account")
	}

	privateKey, err := wallet.PrivateKeyHex(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to export private key")
	}
	publicKey, err := wallet.PublicKeyHex(account)
	if err != nil {
		return nil, errors.Wrap(err, "failed to export public key")
	}

	return &models.KeyMaterial{
		Address:    account.Address.Hex(),
		Mnemonic:   mnemonic,
		PrivateKey: privateKey,
		PublicKey:  publicKey,
	}, nil
}

func fromPrivateKey(raw string) (*models.KeyMaterial, error) {
	key, err := ParsePrivateKey(raw)
	if err != nil {
		return nil, err
	}

	return &models.KeyMaterial{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key))[2:],
		PublicKey:  hexutil.Encode(crypto.FromECDSAPub(&key.PublicKey))[4:],
	}, nil
}

// ParsePrivateKey accepts a hex private key with or without the 0x prefix.
func ParsePrivateKey(raw string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw), "0x"))
	if err != nil {
		return nil, errors.Wrap(models.ErrInvalidSecret, err.Error())
	}
	return key, nil
}

func isMnemonic(secret string) bool {
	return len(strings.Fields(secret)) > 1 && bip39.IsMnemonicValid(secret)
}
