// Package contractsvc implements ContractInteractionService (spec.md
// §4.3): concrete, typed contract interactions and gas estimation used by
// FillStrategy and IntentGateway. Grounded on pkg/ethereum/client.go's
// balance/gas-estimation operations, generalized from a single-chain
// client to the multi-chain evmclient.Registry capability (Design Note
// §9: pass a minimal client-resolution capability instead of holding
// back-references to a shared manager).
package contractsvc

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"

	"github.com/hyperfill/intent-filler/pkg/bridgehost"
	"github.com/hyperfill/intent-filler/pkg/evmclient"
	"github.com/hyperfill/intent-filler/pkg/fillerr"
	"github.com/hyperfill/intent-filler/pkg/order"
	"github.com/hyperfill/intent-filler/pkg/registry"
)

// orderFilledSlot is the storage slot index the intent gateway maps order
// commitments to a filled flag under.
var orderFilledSlot = big.NewInt(5)

// redeemEscrowArgs is the ABI tuple for the redeem-escrow request body:
// (commitment bytes32, beneficiary bytes32, tokens (bytes32,uint256)[]).
var redeemEscrowArgs abi.Arguments

type abiRedeemToken struct {
	Token  [32]byte
	Amount *big.Int
}

func init() {
	tokenComponents := []abi.ArgumentMarshaling{
		{Name: "token", Type: "bytes32"},
		{Name: "amount", Type: "uint256"},
	}
	tokensType, err := abi.NewType("tuple[]", "", tokenComponents)
	if err != nil {
		panic("contractsvc: bad abi type tuple[]: " + err.Error())
	}
	bytes32Type, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		panic("contractsvc: bad abi type bytes32: " + err.Error())
	}
	redeemEscrowArgs = abi.Arguments{
		{Name: "commitment", Type: bytes32Type},
		{Name: "beneficiary", Type: bytes32Type},
		{Name: "tokens", Type: tokensType},
	}
}

func toAbiTokens(tokens []order.TokenInfo) []abiRedeemToken {
	out := make([]abiRedeemToken, len(tokens))
	for i, t := range tokens {
		amount := t.Amount
		if amount == nil {
			amount = big.NewInt(0)
		}
		out[i] = abiRedeemToken{Token: t.Token, Amount: amount}
	}
	return out
}

// Conservative gas fallbacks used when estimation fails (spec.md §4.3).
// FallbackPostGas is exported since pkg/gateway falls back to the same
// figure whenever its estimate_gas_for_post path fails (no bridge chain
// configured, an RPC, packing or simulation error).
const (
	fallbackFillGas = uint64(3_000_000)
	FallbackPostGas = uint64(270_000)
	fallbackPostGas = FallbackPostGas
	// nativeGasBuffer pads the native balance check for the filler's own
	// transaction gas cost.
	nativeGasBuffer = 600_000
)

// FillGasEstimate bundles the two gas figures estimate_gas_fill_post
// returns.
type FillGasEstimate struct {
	FillGas uint64
	PostGas uint64
}

// Service is ContractInteractionService.
type Service struct {
	clients  evmclient.Registry
	registry registry.ChainRegistry
}

// New builds a Service over a multi-chain client registry and a
// ChainRegistry of addresses/decimals.
func New(clients evmclient.Registry, reg registry.ChainRegistry) *Service {
	return &Service{clients: clients, registry: reg}
}

// TokenBalance returns the balance of tokenAddr held by walletAddr on
// chain. The native token (order.NativeToken) uses the chain's native
// balance RPC; anything else is read via ERC20 balanceOf.
func (s *Service) TokenBalance(ctx context.Context, chain string, tokenAddr, walletAddr common.Address) (*big.Int, error) {
	c, err := s.clients.Client(chain)
	if err != nil {
		return nil, fillerr.New(fillerr.KindConfig, "token_balance", err)
	}
	if tokenAddr == (common.Address{}) {
		bal, err := c.NativeBalance(ctx, walletAddr)
		if err != nil {
			return nil, fillerr.New(fillerr.KindRPC, "token_balance", err)
		}
		return bal, nil
	}
	bal, err := c.TokenBalance(ctx, tokenAddr, walletAddr)
	if err != nil {
		return nil, fillerr.New(fillerr.KindRPC, "token_balance", err)
	}
	return bal, nil
}

// TokenDecimals returns tokenAddr's decimals on chain. The native token is
// always 18; ERC20 decimals() failures default to 18 rather than erroring,
// per spec.md §4.3.
func (s *Service) TokenDecimals(ctx context.Context, chain string, tokenAddr common.Address) uint8 {
	if tokenAddr == (common.Address{}) {
		return 18
	}
	c, err := s.clients.Client(chain)
	if err != nil {
		return 18
	}
	dec, err := c.TokenDecimals(ctx, tokenAddr)
	if err != nil {
		return 18
	}
	return dec
}

// CheckTokenBalances verifies the filler wallet has enough of each output
// token, plus a fixed native gas buffer for the native total. Returns
// false (not an error) on any shortfall, per spec.md §4.3.
func (s *Service) CheckTokenBalances(ctx context.Context, outputs []order.PaymentInfo, destChain string, wallet common.Address) (bool, error) {
	native := new(big.Int).SetInt64(nativeGasBuffer)
	required := make(map[common.Address]*big.Int)

	for _, out := range outputs {
		addr := order.HashToAddress(out.Token)
		if order.IsNative(out.Token) {
			native.Add(native, out.Amount)
			continue
		}
		acc := required[addr]
		if acc == nil {
			acc = new(big.Int)
			required[addr] = acc
		}
		acc.Add(acc, out.Amount)
	}

	nativeBal, err := s.TokenBalance(ctx, destChain, common.Address{}, wallet)
	if err != nil {
		return false, err
	}
	if nativeBal.Cmp(native) < 0 {
		return false, nil
	}

	for addr, amount := range required {
		bal, err := s.TokenBalance(ctx, destChain, addr, wallet)
		if err != nil {
			return false, err
		}
		if bal.Cmp(amount) < 0 {
			return false, nil
		}
	}
	return true, nil
}

// ApproveTokensIfNeeded ensures the filler wallet has granted the gateway
// unlimited allowance for each distinct ERC20 output token plus the fee
// token, submitting approve(gateway, MaxUint256) where the current
// allowance falls short.
func (s *Service) ApproveTokensIfNeeded(ctx context.Context, ord *order.Order, chain string, privateKey *ecdsa.PrivateKey) error {
	c, err := s.clients.Client(chain)
	if err != nil {
		return fillerr.New(fillerr.KindConfig, "approve_tokens_if_needed", err)
	}
	gateway, err := s.registry.IntentGatewayAddress(chain)
	if err != nil {
		return fillerr.New(fillerr.KindConfig, "approve_tokens_if_needed", err)
	}
	fromAddr, err := evmclient.PublicAddressFromKey(privateKey)
	if err != nil {
		return fillerr.New(fillerr.KindFatal, "approve_tokens_if_needed", err)
	}

	tokens := map[common.Address]struct{}{}
	for _, out := range ord.Outputs {
		if !order.IsNative(out.Token) {
			tokens[order.HashToAddress(out.Token)] = struct{}{}
		}
	}
	feeToken, err := s.registry.FeeToken(chain)
	if err == nil && (feeToken.Address != common.Address{}) {
		tokens[feeToken.Address] = struct{}{}
	}

	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	for token := range tokens {
		allowance, err := c.Allowance(ctx, token, fromAddr, gateway)
		if err != nil {
			return fillerr.New(fillerr.KindRPC, "approve_tokens_if_needed", err)
		}
		if allowance.Cmp(maxUint256) >= 0 {
			continue
		}
		data, err := c.PackApprove(gateway, maxUint256)
		if err != nil {
			return fillerr.New(fillerr.KindFatal, "approve_tokens_if_needed", err)
		}
		if _, err := c.SendContractCall(ctx, privateKey, token, nil, data, 100_000); err != nil {
			return fillerr.New(fillerr.KindRPC, "approve_tokens_if_needed", err)
		}
	}
	return nil
}

// CalculateRequiredEthValue sums the native-token output amounts.
func CalculateRequiredEthValue(outputs []order.PaymentInfo) *big.Int {
	total := new(big.Int)
	for _, out := range outputs {
		if order.IsNative(out.Token) {
			total.Add(total, out.Amount)
		}
	}
	return total
}

// CheckIfOrderFilled reads the gateway's filled-flag storage slot for
// commitment on chain.
func (s *Service) CheckIfOrderFilled(ctx context.Context, chain string, commitment common.Hash) (bool, error) {
	c, err := s.clients.Client(chain)
	if err != nil {
		return false, fillerr.New(fillerr.KindConfig, "check_if_order_filled", err)
	}
	gateway, err := s.registry.IntentGatewayAddress(chain)
	if err != nil {
		return false, fillerr.New(fillerr.KindConfig, "check_if_order_filled", err)
	}
	slot := filledSlot(commitment)
	val, err := c.StorageAt(ctx, gateway, slot)
	if err != nil {
		return false, fillerr.New(fillerr.KindRPC, "check_if_order_filled", err)
	}
	return val != (common.Hash{}), nil
}

func filledSlot(commitment common.Hash) common.Hash {
	var slotBytes [32]byte
	orderFilledSlot.FillBytes(slotBytes[:])
	buf := append(append([]byte{}, commitment.Bytes()...), slotBytes[:]...)
	return crypto.Keccak256Hash(buf)
}

// EstimateGasFillPost estimates the destination fill gas and the
// source-chain post-request handling gas, falling back to conservative
// constants on error (spec.md §4.3).
func (s *Service) EstimateGasFillPost(ctx context.Context, srcChain, destChain string, fillMsg, postMsg ethereum.CallMsg) FillGasEstimate {
	est := FillGasEstimate{FillGas: fallbackFillGas, PostGas: fallbackPostGas}

	if c, err := s.clients.Client(destChain); err == nil {
		if gas, err := c.EstimateGas(ctx, fillMsg); err == nil {
			est.FillGas = gas
		}
	}
	if c, err := s.clients.Client(srcChain); err == nil {
		if gas, err := c.EstimateGas(ctx, postMsg); err == nil {
			est.PostGas = gas
		}
	}
	return est
}

// EstimateGasForPost takes handlePostRequests calldata the caller has
// already packed (the redeem-escrow PostRequest and its proof), builds a
// state override placing simulatedRoot into the overlay-root slot at
// latestStateMachineHeight, and simulates that call against the source
// chain's host to estimate its gas cost.
func (s *Service) EstimateGasForPost(
	ctx context.Context,
	ord *order.Order,
	paraID uint64,
	latestStateMachineHeight uint64,
	simulatedRoot common.Hash,
	handlePostRequestsCalldata []byte,
) (uint64, error) {
	c, err := s.clients.Client(ord.SourceChain)
	if err != nil {
		return 0, fillerr.New(fillerr.KindConfig, "estimate_gas_for_post", err)
	}
	host, err := s.registry.HostAddress(ord.SourceChain)
	if err != nil {
		return 0, fillerr.New(fillerr.KindConfig, "estimate_gas_for_post", err)
	}

	_, overlaySlot, _ := bridgehost.StateCommitmentSlots(paraID, latestStateMachineHeight)

	overrides := map[common.Address]gethclient.OverrideAccount{
		host: {
			StateDiff: map[common.Hash]common.Hash{
				overlaySlot: simulatedRoot,
			},
		},
	}
	msg := ethereum.CallMsg{To: &host, Data: handlePostRequestsCalldata}
	if _, err := c.CallWithOverrides(ctx, msg, overrides); err != nil {
		return 0, fillerr.New(fillerr.KindSimulation, "estimate_gas_for_post", err)
	}
	gas, err := c.EstimateGas(ctx, msg)
	if err != nil {
		return fallbackPostGas, nil
	}
	return gas, nil
}

// RedeemEscrowBody encodes the canonical redeem-escrow request body:
// u8(requestKind=0) ∥ abi_encode(commitment, beneficiary, tokens[]).
func RedeemEscrowBody(commitment, beneficiary common.Hash, tokens []order.TokenInfo) ([]byte, error) {
	packed, err := redeemEscrowArgs.Pack(commitment, beneficiary, toAbiTokens(tokens))
	if err != nil {
		return nil, fmt.Errorf("contractsvc: pack redeem-escrow body: %w", err)
	}
	body := make([]byte, 0, 1+len(packed))
	body = append(body, 0)
	body = append(body, packed...)
	return body, nil
}
