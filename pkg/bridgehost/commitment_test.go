package bridgehost

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func sampleGetRequest() GetRequest {
	return GetRequest{
		Source:           "EVM-97",
		Dest:             "EVM-10200",
		Nonce:            7,
		From:             common.HexToAddress("0xEa4f0BF1A61B2Ca42d0BE1c20FCba50D4E6C7E7E"),
		TimeoutTimestamp: 65_337_297,
		Keys:             [][]byte{[]byte("slot-a"), []byte("slot-b")},
		Height:           1000,
		Context:          []byte("ctx"),
	}
}

func TestGetRequestCommitmentStable(t *testing.T) {
	a, err := GetRequestCommitment(sampleGetRequest())
	require.NoError(t, err)

	rebuilt := sampleGetRequest()
	rebuilt.Keys = [][]byte{[]byte("slot-a"), []byte("slot-b")}
	b, err := GetRequestCommitment(rebuilt)
	require.NoError(t, err)

	require.Equal(t, a, b)
}

func TestGetRequestCommitmentSensitiveToNonce(t *testing.T) {
	a, err := GetRequestCommitment(sampleGetRequest())
	require.NoError(t, err)

	changed := sampleGetRequest()
	changed.Nonce = 8
	b, err := GetRequestCommitment(changed)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
}

func TestPostRequestCommitmentDiffersFromGetRequest(t *testing.T) {
	getC, err := GetRequestCommitment(sampleGetRequest())
	require.NoError(t, err)

	post := PostRequest{
		Source:           "EVM-10200",
		Dest:             "EVM-97",
		Nonce:            7,
		From:             common.HexToAddress("0xEa4f0BF1A61B2Ca42d0BE1c20FCba50D4E6C7E7E"),
		To:               common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TimeoutTimestamp: 65_337_297,
		Body:             []byte("redeem-escrow"),
	}
	postC, err := PostRequestCommitment(post)
	require.NoError(t, err)

	require.NotEqual(t, getC, postC)
}

func TestCommitmentSlotHashDeterministic(t *testing.T) {
	c := common.HexToHash("0xabc123")
	a := CommitmentSlotHash(c)
	b := CommitmentSlotHash(c)
	require.Equal(t, a, b)

	other := CommitmentSlotHash(common.HexToHash("0xdef456"))
	require.NotEqual(t, a, other)
}

func TestStateCommitmentSlotsSequential(t *testing.T) {
	base, overlay, stateRoot := StateCommitmentSlots(2, 1000)

	wantOverlay := new(big.Int).Add(base.Big(), big.NewInt(1))
	require.Equal(t, wantOverlay, overlay.Big())

	wantStateRoot := new(big.Int).Add(base.Big(), big.NewInt(2))
	require.Equal(t, wantStateRoot, stateRoot.Big())
}
