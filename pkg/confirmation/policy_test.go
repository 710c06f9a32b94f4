package confirmation

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetConfirmationBlocksScenarioS6(t *testing.T) {
	p := NewPolicy(map[uint64]Range{
		1: {
			MinAmount:        big.NewInt(100),
			MaxAmount:        big.NewInt(1000),
			MinConfirmations: 2,
			MaxConfirmations: 12,
		},
	})

	cases := []struct {
		amount   int64
		expected uint32
	}{
		{50, 2},
		{100, 2},
		{1000, 12},
		{550, 7},
	}
	for _, c := range cases {
		got, err := p.GetConfirmationBlocks(1, big.NewInt(c.amount))
		require.NoError(t, err)
		require.Equal(t, c.expected, got, "amount=%d", c.amount)
	}
}

func TestGetConfirmationBlocksUnknownChain(t *testing.T) {
	p := NewPolicy(nil)
	_, err := p.GetConfirmationBlocks(999, big.NewInt(500))
	require.ErrorIs(t, err, ErrUnknownChain)
}
