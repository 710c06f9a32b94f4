// Package registry defines the ChainRegistry external collaborator
// (spec.md §6): a read-only source of per-chain addresses, decimals and
// popular tokens. Construction of a concrete registry (address lists, RPC
// URLs) is explicitly out of core scope per spec.md §1 Non-goals; this
// package only defines the interface core components depend on plus a
// small in-memory reference implementation for tests and local wiring,
// grounded on pkg/chain/strategy/interface.go's ChainConfig/SupportedChains.
package registry

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrUnknownChain is returned when a state-machine identifier has no
// configured ChainConfig.
var ErrUnknownChain = errors.New("registry: unknown chain")

// TokenConfig pairs a token address with its decimal count.
type TokenConfig struct {
	Address  common.Address
	Decimals uint8
}

// ChainConfig is the read-only configuration for a single chain, as
// returned by ChainConfig().
type ChainConfig struct {
	ChainID              uint64
	RPCURL               string
	IntentGatewayAddress common.Address
}

// ChainRegistry is the read-only external interface consumed by
// SwapRouter, ContractInteractionService, IntentGateway and FillStrategy.
// Implementations must be safe for concurrent use; all methods are queries
// over immutable configuration.
type ChainRegistry interface {
	ChainConfigFor(stateMachineID string) (ChainConfig, error)
	HostAddress(stateMachineID string) (common.Address, error)
	HandlerAddress(stateMachineID string) (common.Address, error)
	IntentGatewayAddress(stateMachineID string) (common.Address, error)

	FeeToken(stateMachineID string) (TokenConfig, error)
	WrappedNative(stateMachineID string) (TokenConfig, error)
	DAI(stateMachineID string) (TokenConfig, error)
	USDC(stateMachineID string) (TokenConfig, error)
	USDT(stateMachineID string) (TokenConfig, error)

	UniswapV2Router(stateMachineID string) (common.Address, error)
	UniswapV2Factory(stateMachineID string) (common.Address, error)
	UniswapV3Factory(stateMachineID string) (common.Address, error)
	UniswapV3Quoter(stateMachineID string) (common.Address, error)
	UniversalRouter(stateMachineID string) (common.Address, error)
	UniswapV4Quoter(stateMachineID string) (common.Address, error)
	Permit2(stateMachineID string) (common.Address, error)

	ChainID(stateMachineID string) (uint64, error)
	ConsensusStateID(stateMachineID string) ([]byte, error)
	PopularTokens(stateMachineID string) ([]common.Address, error)
}

// chainEntry is the full set of facts the in-memory registry holds per
// chain; real deployments would source these from a config service instead.
type chainEntry struct {
	cfg              ChainConfig
	host             common.Address
	handler          common.Address
	feeToken         TokenConfig
	wrappedNative    TokenConfig
	dai              TokenConfig
	usdc             TokenConfig
	usdt             TokenConfig
	v2Router         common.Address
	v2Factory        common.Address
	v3Factory        common.Address
	v3Quoter         common.Address
	universalRouter  common.Address
	v4Quoter         common.Address
	permit2          common.Address
	consensusStateID []byte
	popularTokens    []common.Address
}

// InMemory is a ChainRegistry backed by a map built at construction time.
// Safe for concurrent reads once constructed (it is never mutated after
// NewInMemory returns).
type InMemory struct {
	chains map[string]chainEntry
}

// ChainSpec is the constructor-time input for a single chain's entry in
// InMemory; fields mirror ChainRegistry's getters one-for-one.
type ChainSpec struct {
	StateMachineID   string
	ChainID          uint64
	RPCURL           string
	IntentGateway    common.Address
	Host             common.Address
	Handler          common.Address
	FeeToken         TokenConfig
	WrappedNative    TokenConfig
	DAI              TokenConfig
	USDC             TokenConfig
	USDT             TokenConfig
	V2Router         common.Address
	V2Factory        common.Address
	V3Factory        common.Address
	V3Quoter         common.Address
	UniversalRouter  common.Address
	V4Quoter         common.Address
	Permit2          common.Address
	ConsensusStateID []byte
	PopularTokens    []common.Address
}

// NewInMemory builds an InMemory registry from a list of chain specs.
func NewInMemory(specs []ChainSpec) *InMemory {
	m := make(map[string]chainEntry, len(specs))
	for _, s := range specs {
		m[s.StateMachineID] = chainEntry{
			cfg: ChainConfig{
				ChainID:              s.ChainID,
				RPCURL:               s.RPCURL,
				IntentGatewayAddress: s.IntentGateway,
			},
			host:             s.Host,
			handler:          s.Handler,
			feeToken:         s.FeeToken,
			wrappedNative:    s.WrappedNative,
			dai:              s.DAI,
			usdc:             s.USDC,
			usdt:             s.USDT,
			v2Router:         s.V2Router,
			v2Factory:        s.V2Factory,
			v3Factory:        s.V3Factory,
			v3Quoter:         s.V3Quoter,
			universalRouter:  s.UniversalRouter,
			v4Quoter:         s.V4Quoter,
			permit2:          s.Permit2,
			consensusStateID: s.ConsensusStateID,
			popularTokens:    s.PopularTokens,
		}
	}
	return &InMemory{chains: m}
}

func (r *InMemory) entry(stateMachineID string) (chainEntry, error) {
	e, ok := r.chains[stateMachineID]
	if !ok {
		return chainEntry{}, fmt.Errorf("%w: %s", ErrUnknownChain, stateMachineID)
	}
	return e, nil
}

func (r *InMemory) ChainConfigFor(id string) (ChainConfig, error) {
	e, err := r.entry(id)
	return e.cfg, err
}

func (r *InMemory) HostAddress(id string) (common.Address, error) {
	e, err := r.entry(id)
	return e.host, err
}

func (r *InMemory) HandlerAddress(id string) (common.Address, error) {
	e, err := r.entry(id)
	return e.handler, err
}

func (r *InMemory) IntentGatewayAddress(id string) (common.Address, error) {
	e, err := r.entry(id)
	return e.cfg.IntentGatewayAddress, err
}

func (r *InMemory) FeeToken(id string) (TokenConfig, error) {
	e, err := r.entry(id)
	return e.feeToken, err
}

func (r *InMemory) WrappedNative(id string) (TokenConfig, error) {
	e, err := r.entry(id)
	return e.wrappedNative, err
}

func (r *InMemory) DAI(id string) (TokenConfig, error) {
	e, err := r.entry(id)
	return e.dai, err
}

func (r *InMemory) USDC(id string) (TokenConfig, error) {
	e, err := r.entry(id)
	return e.usdc, err
}

func (r *InMemory) USDT(id string) (TokenConfig, error) {
	e, err := r.entry(id)
	return e.usdt, err
}

func (r *InMemory) UniswapV2Router(id string) (common.Address, error) {
	e, err := r.entry(id)
	return e.v2Router, err
}

func (r *InMemory) UniswapV2Factory(id string) (common.Address, error) {
	e, err := r.entry(id)
	return e.v2Factory, err
}

func (r *InMemory) UniswapV3Factory(id string) (common.Address, error) {
	e, err := r.entry(id)
	return e.v3Factory, err
}

func (r *InMemory) UniswapV3Quoter(id string) (common.Address, error) {
	e, err := r.entry(id)
	return e.v3Quoter, err
}

func (r *InMemory) UniversalRouter(id string) (common.Address, error) {
	e, err := r.entry(id)
	return e.universalRouter, err
}

func (r *InMemory) UniswapV4Quoter(id string) (common.Address, error) {
	e, err := r.entry(id)
	return e.v4Quoter, err
}

func (r *InMemory) Permit2(id string) (common.Address, error) {
	e, err := r.entry(id)
	return e.permit2, err
}

func (r *InMemory) ChainID(id string) (uint64, error) {
	e, err := r.entry(id)
	return e.cfg.ChainID, err
}

func (r *InMemory) ConsensusStateID(id string) ([]byte, error) {
	e, err := r.entry(id)
	return e.consensusStateID, err
}

func (r *InMemory) PopularTokens(id string) ([]common.Address, error) {
	e, err := r.entry(id)
	return e.popularTokens, err
}

var _ ChainRegistry = (*InMemory)(nil)
