package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSHA256(t *testing.T) {
	const text = "some data to hash"
	const secret = "secret"
	const expected = "ab7bca798ad67207c5717d6a33090562d90ec29817af683c5f9f5d9da78a0f5d"

	assert.Equal(t, expected, GetSHA256(text, secret))
	assert.True(t, VerifySHA256(text, secret, expected))
	assert.False(t, VerifySHA256(text, "other", expected))
}
