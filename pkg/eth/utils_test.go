package eth

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"))
	assert.True(t, IsValidAddress(common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")))
	assert.False(t, IsValidAddress("0xdAC17F958D2ee523a2206206994597C13D831e"))
	assert.False(t, IsValidAddress("EQCxE6mUtQJKFnGfaROTKOt1lZbDiiX1kCixRv7Nw2Id_sDs"))
	assert.False(t, IsValidAddress(42))
}

func TestCalcGasCost(t *testing.T) {
	assert.Equal(t, big.NewInt(21000*5_000_000_000), CalcGasCost(21000, big.NewInt(5_000_000_000)))
}

func TestPackTransfer(t *testing.T) {
	data, err := PackTransfer(common.HexToAddress("0x0000000000000000000000000000000000000001"), big.NewInt(1))
	require.NoError(t, err)
	assert.Len(t, data, 4+32+32)
	assert.Equal(t, "0xa9059cbb", hexutil.Encode(data[:4]))

	data, err = PackApprove(common.HexToAddress("0x0000000000000000000000000000000000000001"), big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "0x095ea7b3", hexutil.Encode(data[:4]))
}
