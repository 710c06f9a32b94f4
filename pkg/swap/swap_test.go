package swap

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/hyperfill/intent-filler/pkg/evmclient"
	"github.com/hyperfill/intent-filler/pkg/registry"
)

func TestTickSpacingTable(t *testing.T) {
	require.Equal(t, int32(1), tickSpacingFor(100))
	require.Equal(t, int32(10), tickSpacingFor(500))
	require.Equal(t, int32(60), tickSpacingFor(3000))
	require.Equal(t, int32(200), tickSpacingFor(10000))
	require.Equal(t, int32(60), tickSpacingFor(2500)) // default
}

func TestSlippageFloor(t *testing.T) {
	amount := big.NewInt(1_000_000)
	require.Equal(t, big.NewInt(990_000), slippageFloor(amount, 100)) // 1%
	require.Equal(t, big.NewInt(1_000_000), slippageFloor(amount, 0))
}

func TestBetterThanExactIn(t *testing.T) {
	require.True(t, betterThan(big.NewInt(110), big.NewInt(100), false))
	require.False(t, betterThan(big.NewInt(90), big.NewInt(100), false))
}

func TestBetterThanExactOut(t *testing.T) {
	require.True(t, betterThan(big.NewInt(90), big.NewInt(100), true))
	require.False(t, betterThan(big.NewInt(110), big.NewInt(100), true))
}

func TestWithinThresholdPrefersV4WhenClose(t *testing.T) {
	best := big.NewInt(1_000_000)
	closeV4 := big.NewInt(991_000) // 0.9% below best
	require.True(t, withinThreshold(closeV4, best, false))

	farV4 := big.NewInt(900_000) // 10% below best
	require.False(t, withinThreshold(farV4, best, false))
}

func TestWithinThresholdV4BetterAlwaysWins(t *testing.T) {
	best := big.NewInt(1_000_000)
	betterV4 := big.NewInt(1_100_000)
	require.True(t, withinThreshold(betterV4, best, false))
}

func TestBuildPathDirectWhenIntermediateIsTokenIn(t *testing.T) {
	weth := common.HexToAddress("0x9999999999999999999999999999999999999999")
	reg := registry.NewInMemory([]registry.ChainSpec{
		{StateMachineID: "EVM-1", WrappedNative: registry.TokenConfig{Address: weth, Decimals: 18}},
	})
	r := New(evmclient.NewRegistry(nil), reg)

	tokenIn := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenOut := common.HexToAddress("0x2222222222222222222222222222222222222222")
	path := r.buildPath("EVM-1", tokenIn, tokenOut, tokenIn)
	require.Equal(t, []common.Address{tokenIn, tokenOut}, path)
}

func TestBytesCompareAddr(t *testing.T) {
	a := common.HexToAddress("0x0000000000000000000000000000000000000001")
	b := common.HexToAddress("0x0000000000000000000000000000000000000002")
	require.Equal(t, -1, bytesCompareAddr(a, b))
	require.Equal(t, 1, bytesCompareAddr(b, a))
	require.Equal(t, 0, bytesCompareAddr(a, a))
}
