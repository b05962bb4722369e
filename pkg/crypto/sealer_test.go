package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealer(t *testing.T) {
	s, err := NewSealer("master", "salt")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		sealed, err := s.Seal("abandon ability able", "wallet-1")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sealed, sealedPrefix))
		assert.NotContains(t, sealed, "abandon")

		opened, err := s.Open(sealed, "wallet-1")
		require.NoError(t, err)
		assert.Equal(t, "abandon ability able", opened)
	})

	t.Run("fresh nonce per value", func(t *testing.T) {
		a, err := s.Seal("key", "w")
		require.NoError(t, err)
		b, err := s.Seal("key", "w")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("bound to wallet", func(t *testing.T) {
		sealed, err := s.Seal("key", "wallet-1")
		require.NoError(t, err)
		_, err = s.Open(sealed, "wallet-2")
		assert.Error(t, err)
	})

	t.Run("tampered", func(t *testing.T) {
		sealed, err := s.Seal("key", "w")
		require.NoError(t, err)
		b := []byte(sealed)
		b[len(b)-2] ^= 1
		_, err = s.Open(string(b), "w")
		assert.Error(t, err)
	})

	t.Run("empty and malformed", func(t *testing.T) {
		sealed, err := s.Seal("", "w")
		require.NoError(t, err)
		assert.Empty(t, sealed)

		_, err = s.Open("plain", "w")
		assert.ErrorIs(t, err, ErrMalformedSealed)
	})

	t.Run("different master key", func(t *testing.T) {
		sealed, err := s.Seal("key", "w")
		require.NoError(t, err)
		other, err := NewSealer("other", "salt")
		require.NoError(t, err)
		_, err = other.Open(sealed, "w")
		assert.Error(t, err)
	})
}
