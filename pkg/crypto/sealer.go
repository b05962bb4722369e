package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32

	sealedPrefix = "v1:"
)

var (
	ErrMalformedSealed = errors.New("malformed sealed value")
)

// Sealer encrypts short secrets with AES-256-GCM. The key is derived once
// with scrypt, every value gets a fresh nonce.
type Sealer struct {
	aead cipher.AEAD
}

func NewSealer(masterKey, salt string) (*Sealer, error) {
	if masterKey == "" || salt == "" {
		return nil, errors.New("empty master key or salt")
	}

	key, err := scrypt.Key([]byte(masterKey), []byte(salt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive a sealing key")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create a cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create gcm")
	}

	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext bound to associated (e.g. the owning wallet id).
// Empty plaintexts stay empty.
func (s *Sealer) Seal(plaintext, associated string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "failed to read a nonce")
	}

	out := s.aead.Seal(nonce, nonce, []byte(plaintext), []byte(associated))
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. The associated value must match the one used to seal.
func (s *Sealer) Open(sealed, associated string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return "", ErrMalformedSealed
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil {
		return "", errors.Wrap(ErrMalformedSealed, err.Error())
	}
	ns := s.aead.NonceSize()
	if len(raw) < ns {
		return "", ErrMalformedSealed
	}

	plaintext, err := s.aead.Open(nil, raw[:ns], raw[ns:], []byte(associated))
	if err != nil {
		return "", errors.Wrap(err, "failed to open a sealed value")
	}
	return string(plaintext), nil
}
