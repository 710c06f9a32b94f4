package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestInMemoryUnknownChain(t *testing.T) {
	r := NewInMemory(nil)
	_, err := r.ChainConfigFor("EVM-1")
	require.ErrorIs(t, err, ErrUnknownChain)
}

func TestInMemoryRoundTrip(t *testing.T) {
	r := NewInMemory([]ChainSpec{
		{
			StateMachineID: "EVM-97",
			ChainID:        97,
			RPCURL:         "https://bsc-testnet.example",
			IntentGateway:  common.HexToAddress("0x1"),
			USDC:           TokenConfig{Address: common.HexToAddress("0x2"), Decimals: 6},
		},
	})

	cfg, err := r.ChainConfigFor("EVM-97")
	require.NoError(t, err)
	require.EqualValues(t, 97, cfg.ChainID)

	usdc, err := r.USDC("EVM-97")
	require.NoError(t, err)
	require.EqualValues(t, 6, usdc.Decimals)
}

func TestLoadChainRegistryYAML(t *testing.T) {
	doc := []byte(`
- state_machine_id: EVM-97
  chain_id: 97
  rpc_url: "https://bsc-testnet.example"
  usdc:
    address: "0x0000000000000000000000000000000000000002"
    decimals: 6
  popular_tokens:
    - "0x0000000000000000000000000000000000000003"
`)
	r, err := LoadChainRegistryYAML(doc)
	require.NoError(t, err)

	popular, err := r.PopularTokens("EVM-97")
	require.NoError(t, err)
	require.Len(t, popular, 1)
}
