package confirmation

import (
	"fmt"
	"math/big"

	"gopkg.in/yaml.v3"
)

// yamlRange mirrors Range with string amounts, the serializable shape used
// by on-disk fixture/config files.
type yamlRange struct {
	ChainID          uint64 `yaml:"chain_id"`
	MinAmount        string `yaml:"min_amount"`
	MaxAmount        string `yaml:"max_amount"`
	MinConfirmations uint32 `yaml:"min_confirmations"`
	MaxConfirmations uint32 `yaml:"max_confirmations"`
}

// LoadPolicyYAML parses a YAML document into a Policy, one Range per
// configured chain ID. Grounded on pkg/registry/yaml.go's on-disk
// serializable mirror-struct pattern.
func LoadPolicyYAML(data []byte) (*Policy, error) {
	var raw []yamlRange
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("confirmation: parse yaml: %w", err)
	}

	ranges := make(map[uint64]Range, len(raw))
	for _, r := range raw {
		minAmt, ok := new(big.Int).SetString(r.MinAmount, 10)
		if !ok {
			return nil, fmt.Errorf("confirmation: chain %d: invalid min_amount %q", r.ChainID, r.MinAmount)
		}
		maxAmt, ok := new(big.Int).SetString(r.MaxAmount, 10)
		if !ok {
			return nil, fmt.Errorf("confirmation: chain %d: invalid max_amount %q", r.ChainID, r.MaxAmount)
		}
		ranges[r.ChainID] = Range{
			MinAmount:        minAmt,
			MaxAmount:        maxAmt,
			MinConfirmations: r.MinConfirmations,
			MaxConfirmations: r.MaxConfirmations,
		}
	}
	return NewPolicy(ranges), nil
}
