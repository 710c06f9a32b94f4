package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// yamlTokenConfig / yamlChainSpec mirror ChainSpec/TokenConfig with string
// addresses, the serializable shape used by fixture files on disk.
type yamlTokenConfig struct {
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
}

type yamlChainSpec struct {
	StateMachineID   string          `yaml:"state_machine_id"`
	ChainID          uint64          `yaml:"chain_id"`
	RPCURL           string          `yaml:"rpc_url"`
	IntentGateway    string          `yaml:"intent_gateway"`
	Host             string          `yaml:"host"`
	Handler          string          `yaml:"handler"`
	FeeToken         yamlTokenConfig `yaml:"fee_token"`
	WrappedNative    yamlTokenConfig `yaml:"wrapped_native"`
	DAI              yamlTokenConfig `yaml:"dai"`
	USDC             yamlTokenConfig `yaml:"usdc"`
	USDT             yamlTokenConfig `yaml:"usdt"`
	V2Router         string          `yaml:"v2_router"`
	V2Factory        string          `yaml:"v2_factory"`
	V3Factory        string          `yaml:"v3_factory"`
	V3Quoter         string          `yaml:"v3_quoter"`
	UniversalRouter  string          `yaml:"universal_router"`
	V4Quoter         string          `yaml:"v4_quoter"`
	Permit2          string          `yaml:"permit2"`
	ConsensusStateID string          `yaml:"consensus_state_id"`
	PopularTokens    []string        `yaml:"popular_tokens"`
}

// LoadChainRegistryYAML parses a YAML document (as produced for local/dev
// fixtures and test doubles) into an InMemory ChainRegistry. Intended as a
// convenience for wiring cmd/filler and tests only — production chain
// configuration is out of core scope (spec.md §1 Non-goals).
func LoadChainRegistryYAML(data []byte) (*InMemory, error) {
	var raw []yamlChainSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("registry: parse yaml: %w", err)
	}

	specs := make([]ChainSpec, 0, len(raw))
	for _, c := range raw {
		popular := make([]common.Address, 0, len(c.PopularTokens))
		for _, p := range c.PopularTokens {
			popular = append(popular, common.HexToAddress(p))
		}
		specs = append(specs, ChainSpec{
			StateMachineID:   c.StateMachineID,
			ChainID:          c.ChainID,
			RPCURL:           c.RPCURL,
			IntentGateway:    common.HexToAddress(c.IntentGateway),
			Host:             common.HexToAddress(c.Host),
			Handler:          common.HexToAddress(c.Handler),
			FeeToken:         yamlToken(c.FeeToken),
			WrappedNative:    yamlToken(c.WrappedNative),
			DAI:              yamlToken(c.DAI),
			USDC:             yamlToken(c.USDC),
			USDT:             yamlToken(c.USDT),
			V2Router:         common.HexToAddress(c.V2Router),
			V2Factory:        common.HexToAddress(c.V2Factory),
			V3Factory:        common.HexToAddress(c.V3Factory),
			V3Quoter:         common.HexToAddress(c.V3Quoter),
			UniversalRouter:  common.HexToAddress(c.UniversalRouter),
			V4Quoter:         common.HexToAddress(c.V4Quoter),
			Permit2:          common.HexToAddress(c.Permit2),
			ConsensusStateID: []byte(c.ConsensusStateID),
			PopularTokens:    popular,
		})
	}
	return NewInMemory(specs), nil
}

func yamlToken(t yamlTokenConfig) TokenConfig {
	return TokenConfig{Address: common.HexToAddress(t.Address), Decimals: t.Decimals}
}
