package contractsvc

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/hyperfill/intent-filler/pkg/order"
)

func TestCalculateRequiredEthValueSumsNativeOnly(t *testing.T) {
	usdc := common.HexToHash("0x000000000000000000000000A0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	outputs := []order.PaymentInfo{
		{Token: order.NativeToken, Amount: big.NewInt(1_000)},
		{Token: usdc, Amount: big.NewInt(5_000)},
		{Token: order.NativeToken, Amount: big.NewInt(250)},
	}
	require.Equal(t, big.NewInt(1_250), CalculateRequiredEthValue(outputs))
}

func TestCalculateRequiredEthValueNoNative(t *testing.T) {
	usdc := common.HexToHash("0x000000000000000000000000A0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	outputs := []order.PaymentInfo{{Token: usdc, Amount: big.NewInt(5_000)}}
	require.Equal(t, big.NewInt(0), CalculateRequiredEthValue(outputs))
}

func TestFilledSlotDeterministicAndSensitiveToCommitment(t *testing.T) {
	a := common.HexToHash("0x01")
	b := common.HexToHash("0x02")

	s1 := filledSlot(a)
	s2 := filledSlot(a)
	require.Equal(t, s1, s2)

	s3 := filledSlot(b)
	require.NotEqual(t, s1, s3)
}

func TestRedeemEscrowBodyStableAndTagged(t *testing.T) {
	commitment := common.HexToHash("0xaa")
	beneficiary := common.HexToHash("0xbb")
	tokens := []order.TokenInfo{
		{Token: common.HexToHash("0x1111111111111111111111111111111111111111"), Amount: big.NewInt(100)},
	}

	body1, err := RedeemEscrowBody(commitment, beneficiary, tokens)
	require.NoError(t, err)
	require.Equal(t, byte(0), body1[0])

	body2, err := RedeemEscrowBody(commitment, beneficiary, tokens)
	require.NoError(t, err)
	require.Equal(t, body1, body2)

	otherBeneficiary := common.HexToHash("0xcc")
	body3, err := RedeemEscrowBody(commitment, otherBeneficiary, tokens)
	require.NoError(t, err)
	require.NotEqual(t, body1, body3)
}
