package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// GetSHA256 returns the hex encoded HMAC-SHA256 of text keyed with secret.
func GetSHA256(text, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySHA256 compares signature against GetSHA256(text, secret) in constant time.
func VerifySHA256(text, secret, signature string) bool {
	return hmac.Equal([]byte(GetSHA256(text, secret)), []byte(signature))
}
