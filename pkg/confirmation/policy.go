// Package confirmation implements ConfirmationPolicy (spec.md §4.1): mapping
// a (chainID, USD amount) pair to the number of block confirmations the
// scheduler must wait for before treating an order as final enough to fill.
package confirmation

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/hyperfill/intent-filler/pkg/ratio"
)

// ErrUnknownChain is returned when no Range is configured for a chain ID.
var ErrUnknownChain = errors.New("confirmation: unknown chain")

// Range describes the interpolation bounds for a single chain.
type Range struct {
	MinAmount        *big.Int
	MaxAmount        *big.Int
	MinConfirmations uint32
	MaxConfirmations uint32
}

// Policy maps chain IDs to confirmation Ranges. The zero value is usable
// with Configure.
type Policy struct {
	ranges map[uint64]Range
}

// NewPolicy builds a Policy from a per-chain configuration map.
func NewPolicy(ranges map[uint64]Range) *Policy {
	p := &Policy{ranges: make(map[uint64]Range, len(ranges))}
	for id, r := range ranges {
		p.ranges[id] = r
	}
	return p
}

// Configure sets or replaces the Range for chainID.
func (p *Policy) Configure(chainID uint64, r Range) {
	if p.ranges == nil {
		p.ranges = make(map[uint64]Range)
	}
	p.ranges[chainID] = r
}

// GetConfirmationBlocks returns the number of block confirmations required
// for an order worth amount (expressed in the same unit as the configured
// Range) on chainID.
//
//   - amount <= MinAmount -> MinConfirmations
//   - amount >= MaxAmount -> MaxConfirmations
//   - otherwise, linear interpolation rounded half-up via pkg/ratio
//
// Returns ErrUnknownChain if chainID has no configured Range.
func (p *Policy) GetConfirmationBlocks(chainID uint64, amount *big.Int) (uint32, error) {
	r, ok := p.ranges[chainID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	return ratio.InterpolateLinear(amount, r.MinAmount, r.MaxAmount, r.MinConfirmations, r.MaxConfirmations), nil
}
