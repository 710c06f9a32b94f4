package bridgehost

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func samplePostRequest() PostRequest {
	return PostRequest{
		Source:           "EVM-10200",
		Dest:             "EVM-97",
		Nonce:            3,
		From:             common.HexToAddress("0xEa4f0BF1A61B2Ca42d0BE1c20FCba50D4E6C7E7E"),
		To:               common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TimeoutTimestamp: 65_337_297,
		Body:             []byte("redeem-escrow"),
	}
}

func sampleInclusionProof() InclusionProof {
	return InclusionProof{
		Height: 1000,
		Siblings: [][32]byte{
			common.HexToHash("0xaa"),
			common.HexToHash("0xbb"),
		},
		LeafIndex: big.NewInt(3),
		TreeSize:  big.NewInt(16),
	}
}

func TestPackHandlePostRequestsStartsWithSelector(t *testing.T) {
	data, err := PackHandlePostRequests(samplePostRequest(), sampleInclusionProof())
	require.NoError(t, err)
	require.True(t, len(data) > 4)
	require.Equal(t, handlePostRequestsSelector, data[:4])
}

func TestPackHandlePostRequestsDeterministic(t *testing.T) {
	a, err := PackHandlePostRequests(samplePostRequest(), sampleInclusionProof())
	require.NoError(t, err)
	b, err := PackHandlePostRequests(samplePostRequest(), sampleInclusionProof())
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestPackHandlePostRequestsSensitiveToProof(t *testing.T) {
	base, err := PackHandlePostRequests(samplePostRequest(), sampleInclusionProof())
	require.NoError(t, err)

	changed := sampleInclusionProof()
	changed.Height = 1001
	other, err := PackHandlePostRequests(samplePostRequest(), changed)
	require.NoError(t, err)

	require.NotEqual(t, base, other)
}
