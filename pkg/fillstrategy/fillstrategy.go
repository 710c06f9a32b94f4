// Package fillstrategy implements FillStrategy (spec.md §4.5): decides
// whether an order can be filled and executes the fill. Grounded on
// pkg/contractsvc/pkg/gateway for their respective checks, and on
// pkg/confirmation for the post-submission wait, following the teacher's
// pattern of a strategy package that composes several external
// collaborators rather than owning their logic.
package fillstrategy

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperfill/intent-filler/pkg/confirmation"
	"github.com/hyperfill/intent-filler/pkg/contractsvc"
	"github.com/hyperfill/intent-filler/pkg/evmclient"
	"github.com/hyperfill/intent-filler/pkg/fillerr"
	"github.com/hyperfill/intent-filler/pkg/gateway"
	"github.com/hyperfill/intent-filler/pkg/order"
	"github.com/hyperfill/intent-filler/pkg/ratio"
	"github.com/hyperfill/intent-filler/pkg/registry"
)

// tokenKind classifies a token address by the stablecoin/wrapped-native
// family it belongs to, for the pairwise kind-matching rule in
// validate_order_inputs_outputs.
type tokenKind int

const (
	kindUnknown tokenKind = iota
	kindNative
	kindWETH
	kindDAI
	kindUSDC
	kindUSDT
)

// classify resolves tok's tokenKind on chain against the ChainRegistry's
// known token set (native, WETH, DAI, USDC, USDT) — the supported token
// set spec.md §4.5 requires inputs/outputs to be drawn from.
func classify(reg registry.ChainRegistry, chain string, tok common.Hash) tokenKind {
	if order.IsNative(tok) {
		return kindNative
	}
	if !order.HasZeroUpperBytes(tok) {
		return kindUnknown
	}
	addr := order.HashToAddress(tok)

	if t, err := reg.WrappedNative(chain); err == nil && t.Address == addr {
		return kindWETH
	}
	if t, err := reg.DAI(chain); err == nil && t.Address == addr {
		return kindDAI
	}
	if t, err := reg.USDC(chain); err == nil && t.Address == addr {
		return kindUSDC
	}
	if t, err := reg.USDT(chain); err == nil && t.Address == addr {
		return kindUSDT
	}
	return kindUnknown
}

// kindsCompatible reports whether two classified tokens may appear as a
// matching input/output pair: identical stablecoin kinds, or either side
// of the native/WETH equivalence class.
func kindsCompatible(a, b tokenKind) bool {
	if a == kindUnknown || b == kindUnknown {
		return false
	}
	if a == b {
		return true
	}
	nativeOrWeth := func(k tokenKind) bool { return k == kindNative || k == kindWETH }
	return nativeOrWeth(a) && nativeOrWeth(b)
}

// ValidateOrderInputsOutputs implements validate_order_inputs_outputs.
func ValidateOrderInputsOutputs(reg registry.ChainRegistry, contracts *contractsvc.Service, ord *order.Order) bool {
	if len(ord.Inputs) != len(ord.Outputs) {
		return false
	}
	for i, in := range ord.Inputs {
		out := ord.Outputs[i]

		srcKind := classify(reg, ord.SourceChain, in.Token)
		destKind := classify(reg, ord.DestChain, out.Token)
		if !kindsCompatible(srcKind, destKind) {
			return false
		}

		srcDecimals := contracts.TokenDecimals(context.Background(), ord.SourceChain, order.HashToAddress(in.Token))
		destDecimals := contracts.TokenDecimals(context.Background(), ord.DestChain, order.HashToAddress(out.Token))
		if srcKind == kindNative {
			srcDecimals = 18
		}
		if destKind == kindNative {
			destDecimals = 18
		}
		if !ratio.CompareDecimalValues(in.Amount, srcDecimals, out.Amount, destDecimals) {
			return false
		}
	}
	return true
}

// Strategy is FillStrategy.
type Strategy struct {
	clients   evmclient.Registry
	registry  registry.ChainRegistry
	contracts *contractsvc.Service
	gateway   *gateway.Gateway
	policy    *confirmation.Policy
	wallet    common.Address
	key       *ecdsa.PrivateKey
}

// New builds a Strategy for a single filler wallet.
func New(clients evmclient.Registry, reg registry.ChainRegistry, contracts *contractsvc.Service, gw *gateway.Gateway, policy *confirmation.Policy, key *ecdsa.PrivateKey) (*Strategy, error) {
	wallet, err := evmclient.PublicAddressFromKey(key)
	if err != nil {
		return nil, fillerr.New(fillerr.KindFatal, "fillstrategy.new", err)
	}
	return &Strategy{clients: clients, registry: reg, contracts: contracts, gateway: gw, policy: policy, wallet: wallet, key: key}, nil
}

// CanFill implements can_fill.
func (s *Strategy) CanFill(ctx context.Context, ord *order.Order) (bool, error) {
	if !ValidateOrderInputsOutputs(s.registry, s.contracts, ord) {
		return false, nil
	}
	ok, err := s.contracts.CheckTokenBalances(ctx, ord.Outputs, ord.DestChain, s.wallet)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	commitment, err := order.Commitment(ord)
	if err != nil {
		return false, fillerr.New(fillerr.KindFatal, "can_fill", err)
	}
	filled, err := s.contracts.CheckIfOrderFilled(ctx, ord.DestChain, commitment)
	if err != nil {
		return false, err
	}
	return !filled, nil
}

// ExecutionResult is the outcome of Execute.
type ExecutionResult struct {
	Success          bool
	TxHash           common.Hash
	GasUsed          uint64
	GasPrice         *big.Int
	ConfirmedAtBlock uint64
	ProcessingTimeMs int64
}

// Execute implements execute: the 5-step approve/estimate/fill/confirm
// sequence of spec.md §4.5 (timing is measured by the caller supplying a
// monotonic start time, since Date.now()-style wall-clock reads belong to
// the composition root, not this package).
func (s *Strategy) Execute(ctx context.Context, ord *order.Order, startedAt time.Time) (ExecutionResult, error) {
	if err := s.contracts.ApproveTokensIfNeeded(ctx, ord, ord.DestChain, s.key); err != nil {
		return ExecutionResult{}, err
	}

	estimate, err := s.gateway.EstimateFill(ctx, ord, s.wallet)
	if err != nil {
		return ExecutionResult{}, err
	}
	ord.Fees = estimate.FeeTokenAmount

	destClient, err := s.clients.Client(ord.DestChain)
	if err != nil {
		return ExecutionResult{}, fillerr.New(fillerr.KindConfig, "execute", err)
	}
	destGateway, err := s.registry.IntentGatewayAddress(ord.DestChain)
	if err != nil {
		return ExecutionResult{}, fillerr.New(fillerr.KindConfig, "execute", err)
	}

	nativeTotal := contractsvc.CalculateRequiredEthValue(ord.Outputs)
	protocolFeeNative := new(big.Int).Sub(estimate.NativeTokenAmount, nativeTotal)
	if protocolFeeNative.Sign() < 0 {
		protocolFeeNative = big.NewInt(0)
	}
	value := new(big.Int).Add(nativeTotal, protocolFeeNative)

	gasLimit, err := destClient.EstimateGas(ctx, ethereum.CallMsg{To: &destGateway, From: s.wallet, Value: value, Data: estimate.PostRequestCalldata})
	if err != nil {
		gasLimit = 3_000_000
	}

	receipt, err := destClient.SendContractCall(ctx, s.key, destGateway, value, estimate.PostRequestCalldata, gasLimit)
	if err != nil {
		return ExecutionResult{}, fillerr.New(fillerr.KindRPC, "execute", err)
	}

	chainID, err := s.registry.ChainID(ord.DestChain)
	if err != nil {
		return ExecutionResult{}, fillerr.New(fillerr.KindConfig, "execute", err)
	}
	usdValue := estimate.NativeTokenAmount
	confirmations, err := s.policy.GetConfirmationBlocks(chainID, usdValue)
	if err != nil {
		return ExecutionResult{}, fillerr.New(fillerr.KindConfig, "execute", err)
	}

	if err := s.waitForConfirmations(ctx, destClient, receipt.BlockNumber.Uint64(), confirmations); err != nil {
		return ExecutionResult{}, err
	}

	return ExecutionResult{
		Success:          receipt.Status == 1,
		TxHash:           receipt.TxHash,
		GasUsed:          receipt.GasUsed,
		GasPrice:         receipt.EffectiveGasPrice,
		ConfirmedAtBlock: receipt.BlockNumber.Uint64(),
		ProcessingTimeMs: time.Since(startedAt).Milliseconds(),
	}, nil
}

func (s *Strategy) waitForConfirmations(ctx context.Context, client *evmclient.Client, seenAtBlock uint64, confirmations uint32) error {
	target := seenAtBlock + uint64(confirmations)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		current, err := client.LatestBlockNumber(ctx)
		if err != nil {
			return fillerr.New(fillerr.KindRPC, "wait_for_confirmations", err)
		}
		if current >= target {
			return nil
		}
		select {
		case <-ctx.Done():
			return fillerr.New(fillerr.KindTimeout, "wait_for_confirmations", ctx.Err())
		case <-ticker.C:
		}
	}
}
