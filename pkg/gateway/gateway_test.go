package gateway

import (
	"context"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/hyperfill/intent-filler/pkg/bridgehost"
	"github.com/hyperfill/intent-filler/pkg/contractsvc"
	"github.com/hyperfill/intent-filler/pkg/fillerconfig"
	"github.com/hyperfill/intent-filler/pkg/merkle"
	"github.com/hyperfill/intent-filler/pkg/order"
)

func TestAdjustDecimalsUpscale(t *testing.T) {
	amount := big.NewInt(1_000_000) // 6 decimals
	got := adjustDecimals(amount, 6, 18)
	require.Equal(t, new(big.Int).Mul(amount, big.NewInt(1e12)), got)
}

func TestAdjustDecimalsDownscale(t *testing.T) {
	amount := new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1e12)) // 18 decimals
	got := adjustDecimals(amount, 18, 6)
	require.Equal(t, big.NewInt(1_000_000), got)
}

func TestAdjustDecimalsNoOp(t *testing.T) {
	amount := big.NewInt(42)
	got := adjustDecimals(amount, 18, 18)
	require.Equal(t, amount, got)
}

func TestPadBps(t *testing.T) {
	require.Equal(t, big.NewInt(10_050), padBps(big.NewInt(10_000), 50))
	require.Equal(t, big.NewInt(13_000), padBps(big.NewInt(10_000), 3000))
}

func TestMappingSlotDeterministicAndSensitiveToKey(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	s1 := mappingSlot(a, big.NewInt(0))
	s2 := mappingSlot(a, big.NewInt(0))
	require.Equal(t, s1, s2)

	s3 := mappingSlot(b, big.NewInt(0))
	require.NotEqual(t, s1, s3)

	s4 := mappingSlot(a, big.NewInt(1))
	require.NotEqual(t, s1, s4)
}

func TestDoubleMappingSlotDiffersFromSingle(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	single := mappingSlot(a, big.NewInt(1))
	double := doubleMappingSlot(a, b, big.NewInt(1))
	require.NotEqual(t, single, double)
}

func TestProofSiblingsDecodesHexPath(t *testing.T) {
	leaf := sha256.Sum256([]byte("commitment"))
	_, proof, err := merkle.BuildSimulationTree(leaf[:], 1, 4)
	require.NoError(t, err)

	siblings, err := proofSiblings(proof)
	require.NoError(t, err)
	require.Len(t, siblings, len(proof.Path))
}

func TestEstimatePostGasFallsBackWithoutBridge(t *testing.T) {
	g := New(fillerconfig.DefaultGatewayConfig(), nil, nil, nil, nil, 2)

	ord := &order.Order{SourceChain: "EVM-1", DestChain: "EVM-97"}
	gas := g.estimatePostGas(context.Background(), ord, bridgehost.PostRequest{}, common.Hash{})
	require.Equal(t, contractsvc.FallbackPostGas, gas)
}
