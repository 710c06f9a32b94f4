// Package swap implements SwapRouter (spec.md §4.2): quoting and calldata
// construction across three AMM generations (Uniswap V2/V3/V4 shaped
// routers), grounded on pkg/evmclient's CallRaw/PackApprove primitives and
// on the ABI-JSON-constant style of pkg/evmclient's erc20ABI. Quote sourcing
// beyond on-chain pool reads (an off-chain price API) is out of scope here;
// callers needing a USD-price fallback supply one externally.
package swap

import (
	"context"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperfill/intent-filler/pkg/evmclient"
	"github.com/hyperfill/intent-filler/pkg/fillerr"
	"github.com/hyperfill/intent-filler/pkg/registry"
)

// Protocol identifies which AMM generation served a quote.
type Protocol int

const (
	// None indicates no protocol could serve a quote.
	None Protocol = iota
	V2
	V3
	V4
)

func (p Protocol) String() string {
	switch p {
	case V2:
		return "V2"
	case V3:
		return "V3"
	case V4:
		return "V4"
	default:
		return "None"
	}
}

// v4PreferenceThresholdBps is how close V4's output must be to the best
// V2/V3 output, in basis points, before V4 is preferred anyway.
const v4PreferenceThresholdBps = 100

// feeTiers are the V3/V4 fee tiers checked, in basis-points-of-a-million
// (Uniswap's native units: 3000 = 0.3%).
var feeTiers = []uint32{100, 500, 2500, 3000, 10000}

// tickSpacingFor maps a V3/V4 fee tier to its pool tick spacing.
func tickSpacingFor(fee uint32) int32 {
	switch fee {
	case 100:
		return 1
	case 500:
		return 10
	case 3000:
		return 60
	case 10000:
		return 200
	default:
		return 60
	}
}

// Quote is the result of quote_exact_in/quote_exact_out.
type Quote struct {
	Protocol Protocol
	Amount   *big.Int // amountOut for exact-in, amountIn for exact-out
	Fee      *uint32  // fee tier, for V3/V4 quotes
}

// PairInfo is the result of find_pair.
type PairInfo struct {
	PairAddress       common.Address
	IntermediateToken common.Address
}

// Tx is one transaction in a swap's execution order (an ERC20 approval, or
// the final router call).
type Tx struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// SwapResult is the result of create_swap/create_complete_swap.
type SwapResult struct {
	FinalAmountOut *big.Int
	Transactions   []Tx
}

const (
	v2RouterABI = `[
{"name":"getAmountsOut","type":"function","stateMutability":"view","inputs":[{"name":"amountIn","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
{"name":"getAmountsIn","type":"function","stateMutability":"view","inputs":[{"name":"amountOut","type":"uint256"},{"name":"path","type":"address[]"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
{"name":"swapExactTokensForTokens","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amountIn","type":"uint256"},{"name":"amountOutMin","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]},
{"name":"swapTokensForExactTokens","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amountOut","type":"uint256"},{"name":"amountInMax","type":"uint256"},{"name":"path","type":"address[]"},{"name":"to","type":"address"},{"name":"deadline","type":"uint256"}],"outputs":[{"name":"amounts","type":"uint256[]"}]}
]`

	v2FactoryABI = `[{"name":"getPair","type":"function","stateMutability":"view","inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"outputs":[{"name":"pair","type":"address"}]}]`

	v2PairABI = `[
{"name":"getReserves","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}]},
{"name":"token0","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

	v3FactoryABI = `[{"name":"getPool","type":"function","stateMutability":"view","inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"},{"name":"fee","type":"uint24"}],"outputs":[{"name":"pool","type":"address"}]}]`

	v3PoolABI = `[{"name":"liquidity","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint128"}]}]`

	v3QuoterABI = `[
{"name":"quoteExactInputSingle","type":"function","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amountIn","type":"uint256"},{"name":"fee","type":"uint24"},{"name":"sqrtPriceLimitX96","type":"uint160"}]}],"outputs":[{"name":"amountOut","type":"uint256"},{"name":"sqrtPriceX96After","type":"uint160"},{"name":"initializedTicksCrossed","type":"uint32"},{"name":"gasEstimate","type":"uint256"}]},
{"name":"quoteExactOutputSingle","type":"function","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"amount","type":"uint256"},{"name":"fee","type":"uint24"},{"name":"sqrtPriceLimitX96","type":"uint160"}]}],"outputs":[{"name":"amountIn","type":"uint256"},{"name":"sqrtPriceX96After","type":"uint160"},{"name":"initializedTicksCrossed","type":"uint32"},{"name":"gasEstimate","type":"uint256"}]}
]`

	v4QuoterABI = `[
{"name":"quoteExactInputSingle","type":"function","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[{"name":"poolKey","type":"tuple","components":[{"name":"currency0","type":"address"},{"name":"currency1","type":"address"},{"name":"fee","type":"uint24"},{"name":"tickSpacing","type":"int24"},{"name":"hooks","type":"address"}]},{"name":"zeroForOne","type":"bool"},{"name":"exactAmount","type":"uint128"},{"name":"hookData","type":"bytes"}]}],"outputs":[{"name":"amountOut","type":"uint256"},{"name":"gasEstimate","type":"uint256"}]},
{"name":"quoteExactOutputSingle","type":"function","stateMutability":"nonpayable","inputs":[{"name":"params","type":"tuple","components":[{"name":"poolKey","type":"tuple","components":[{"name":"currency0","type":"address"},{"name":"currency1","type":"address"},{"name":"fee","type":"uint24"},{"name":"tickSpacing","type":"int24"},{"name":"hooks","type":"address"}]},{"name":"zeroForOne","type":"bool"},{"name":"exactAmount","type":"uint128"},{"name":"hookData","type":"bytes"}]}],"outputs":[{"name":"amountIn","type":"uint256"},{"name":"gasEstimate","type":"uint256"}]}
]`

	erc20TransferApproveABI = `[
{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`
)

var (
	v2RouterAbi  abi.ABI
	v2FactoryAbi abi.ABI
	v2PairAbi    abi.ABI
	v3FactoryAbi abi.ABI
	v3PoolAbi    abi.ABI
	v3QuoterAbi  abi.ABI
	v4QuoterAbi  abi.ABI
	erc20Abi     abi.ABI
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("swap: bad abi json: " + err.Error())
	}
	return parsed
}

func init() {
	v2RouterAbi = mustParseABI(v2RouterABI)
	v2FactoryAbi = mustParseABI(v2FactoryABI)
	v2PairAbi = mustParseABI(v2PairABI)
	v3FactoryAbi = mustParseABI(v3FactoryABI)
	v3PoolAbi = mustParseABI(v3PoolABI)
	v3QuoterAbi = mustParseABI(v3QuoterABI)
	v4QuoterAbi = mustParseABI(v4QuoterABI)
	erc20Abi = mustParseABI(erc20TransferApproveABI)
}

// Router is SwapRouter, bound to a chain's registry addresses via the
// shared evmclient.Registry capability.
type Router struct {
	clients  evmclient.Registry
	registry registry.ChainRegistry
}

// New builds a Router.
func New(clients evmclient.Registry, reg registry.ChainRegistry) *Router {
	return &Router{clients: clients, registry: reg}
}

func (r *Router) callView(ctx context.Context, chain string, to common.Address, a abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	c, err := r.clients.Client(chain)
	if err != nil {
		return nil, fillerr.New(fillerr.KindConfig, "swap."+method, err)
	}
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, fillerr.New(fillerr.KindFatal, "swap."+method, err)
	}
	out, err := c.CallRaw(ctx, to, data)
	if err != nil {
		return nil, fillerr.New(fillerr.KindRPC, "swap."+method, err)
	}
	vals, err := a.Unpack(method, out)
	if err != nil {
		return nil, fillerr.New(fillerr.KindRPC, "swap."+method, err)
	}
	return vals, nil
}

// wrapped substitutes tok for the chain's wrapped-native token when tok is
// the native-token placeholder, since AMM pools never hold the raw native
// asset.
func (r *Router) wrapped(chain string, tok common.Address) common.Address {
	if tok != (common.Address{}) {
		return tok
	}
	wrapped, err := r.registry.WrappedNative(chain)
	if err != nil {
		return tok
	}
	return wrapped.Address
}

type v2Quote struct {
	amountOut *big.Int
	err       error
}

func (r *Router) quoteV2ExactIn(ctx context.Context, chain string, tokenIn, tokenOut common.Address, amountIn *big.Int) (*big.Int, error) {
	router, err := r.registry.UniswapV2Router(chain)
	if err != nil {
		return nil, err
	}
	path := []common.Address{r.wrapped(chain, tokenIn), r.wrapped(chain, tokenOut)}
	out, err := r.callView(ctx, chain, router, v2RouterAbi, "getAmountsOut", amountIn, path)
	if err != nil {
		return nil, err
	}
	amounts := out[0].([]*big.Int)
	return amounts[len(amounts)-1], nil
}

func (r *Router) quoteV2ExactOut(ctx context.Context, chain string, tokenIn, tokenOut common.Address, amountOut *big.Int) (*big.Int, error) {
	router, err := r.registry.UniswapV2Router(chain)
	if err != nil {
		return nil, err
	}
	path := []common.Address{r.wrapped(chain, tokenIn), r.wrapped(chain, tokenOut)}
	out, err := r.callView(ctx, chain, router, v2RouterAbi, "getAmountsIn", amountOut, path)
	if err != nil {
		return nil, err
	}
	amounts := out[0].([]*big.Int)
	return amounts[0], nil
}

// v3BestTier finds the V3 fee tier maximizing (or, for exact-out,
// minimizing) the quoted amount, skipping tiers with no pool or zero
// liquidity.
func (r *Router) v3BestTier(ctx context.Context, chain string, tokenIn, tokenOut common.Address, exactOut bool, amount *big.Int) (*big.Int, uint32, bool) {
	factory, err := r.registry.UniswapV3Factory(chain)
	if err != nil {
		return nil, 0, false
	}
	quoter, err := r.registry.UniswapV3Quoter(chain)
	if err != nil {
		return nil, 0, false
	}
	in := r.wrapped(chain, tokenIn)
	out := r.wrapped(chain, tokenOut)

	var best *big.Int
	var bestFee uint32
	found := false

	for _, fee := range feeTiers {
		poolOut, err := r.callView(ctx, chain, factory, v3FactoryAbi, "getPool", in, out, fee)
		if err != nil {
			continue
		}
		pool := poolOut[0].(common.Address)
		if pool == (common.Address{}) {
			continue
		}
		liqOut, err := r.callView(ctx, chain, pool, v3PoolAbi, "liquidity")
		if err != nil {
			continue
		}
		liquidity := liqOut[0].(*big.Int)
		if liquidity.Sign() <= 0 {
			continue
		}

		var amt *big.Int
		if exactOut {
			params := struct {
				TokenIn           common.Address
				TokenOut          common.Address
				Amount            *big.Int
				Fee               *big.Int
				SqrtPriceLimitX96 *big.Int
			}{in, out, amount, new(big.Int).SetUint64(uint64(fee)), big.NewInt(0)}
			vals, err := r.callView(ctx, chain, quoter, v3QuoterAbi, "quoteExactOutputSingle", params)
			if err != nil {
				continue
			}
			amt = vals[0].(*big.Int)
		} else {
			params := struct {
				TokenIn           common.Address
				TokenOut          common.Address
				AmountIn          *big.Int
				Fee               *big.Int
				SqrtPriceLimitX96 *big.Int
			}{in, out, amount, new(big.Int).SetUint64(uint64(fee)), big.NewInt(0)}
			vals, err := r.callView(ctx, chain, quoter, v3QuoterAbi, "quoteExactInputSingle", params)
			if err != nil {
				continue
			}
			amt = vals[0].(*big.Int)
		}

		if best == nil {
			best, bestFee, found = amt, fee, true
			continue
		}
		if exactOut && amt.Cmp(best) < 0 {
			best, bestFee = amt, fee
		}
		if !exactOut && amt.Cmp(best) > 0 {
			best, bestFee = amt, fee
		}
	}
	return best, bestFee, found
}

// v4BestTier mirrors v3BestTier against the V4 quoter, building PoolKey
// with currencies sorted and zeroForOne derived from the sort order.
func (r *Router) v4BestTier(ctx context.Context, chain string, tokenIn, tokenOut common.Address, exactOut bool, amount *big.Int) (*big.Int, uint32, bool) {
	quoter, err := r.registry.UniswapV4Quoter(chain)
	if err != nil {
		return nil, 0, false
	}
	in := r.wrapped(chain, tokenIn)
	out := r.wrapped(chain, tokenOut)

	var best *big.Int
	var bestFee uint32
	found := false

	for _, fee := range feeTiers {
		currency0, currency1 := in, out
		zeroForOne := true
		if bytesCompareAddr(in, out) > 0 {
			currency0, currency1 = out, in
			zeroForOne = false
		}

		poolKey := v4PoolKey{currency0, currency1, new(big.Int).SetUint64(uint64(fee)), big.NewInt(int64(tickSpacingFor(fee))), common.Address{}}

		method := "quoteExactInputSingle"
		if exactOut {
			method = "quoteExactOutputSingle"
		}
		params := v4QuoteParams{poolKey, zeroForOne, amount, []byte{}}

		vals, err := r.callView(ctx, chain, quoter, v4QuoterAbi, method, params)
		if err != nil {
			continue
		}
		amt := vals[0].(*big.Int)

		if best == nil {
			best, bestFee, found = amt, fee, true
			continue
		}
		if exactOut && amt.Cmp(best) < 0 {
			best, bestFee = amt, fee
		}
		if !exactOut && amt.Cmp(best) > 0 {
			best, bestFee = amt, fee
		}
	}
	return best, bestFee, found
}

type v4PoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       common.Address
}

type v4QuoteParams struct {
	PoolKey     v4PoolKey
	ZeroForOne  bool
	ExactAmount *big.Int
	HookData    []byte
}

func bytesCompareAddr(a, b common.Address) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// QuoteExactIn is quote_exact_in: quotes across V2/V3/V4 and returns the
// best, preferring V4 when it is within v4PreferenceThresholdBps of the
// best V2/V3 quote.
func (r *Router) QuoteExactIn(ctx context.Context, chain string, tokenIn, tokenOut common.Address, amountIn *big.Int, preference Protocol) Quote {
	return r.bestQuote(ctx, chain, tokenIn, tokenOut, amountIn, false, preference)
}

// QuoteExactOut is quote_exact_out: symmetric to QuoteExactIn, minimizing
// the required input instead of maximizing output.
func (r *Router) QuoteExactOut(ctx context.Context, chain string, tokenIn, tokenOut common.Address, amountOut *big.Int, preference Protocol) Quote {
	return r.bestQuote(ctx, chain, tokenIn, tokenOut, amountOut, true, preference)
}

func (r *Router) bestQuote(ctx context.Context, chain string, tokenIn, tokenOut common.Address, amount *big.Int, exactOut bool, preference Protocol) Quote {
	var v2Amount *big.Int
	if amt, err := v2Call(ctx, r, chain, tokenIn, tokenOut, amount, exactOut); err == nil {
		v2Amount = amt
	}
	v3Amount, v3Fee, v3Found := r.v3BestTier(ctx, chain, tokenIn, tokenOut, exactOut, amount)
	v4Amount, v4Fee, v4Found := r.v4BestTier(ctx, chain, tokenIn, tokenOut, exactOut, amount)

	type candidate struct {
		protocol Protocol
		amount   *big.Int
		fee      *uint32
	}
	var candidates []candidate
	if v2Amount != nil {
		candidates = append(candidates, candidate{V2, v2Amount, nil})
	}
	if v3Found {
		fee := v3Fee
		candidates = append(candidates, candidate{V3, v3Amount, &fee})
	}
	if v4Found {
		fee := v4Fee
		candidates = append(candidates, candidate{V4, v4Amount, &fee})
	}
	if len(candidates) == 0 {
		return Quote{Protocol: None}
	}

	nonV4Best := (*candidate)(nil)
	for i := range candidates {
		c := &candidates[i]
		if c.protocol == V4 {
			continue
		}
		if nonV4Best == nil || betterThan(c.amount, nonV4Best.amount, exactOut) {
			nonV4Best = c
		}
	}

	if preference == V4 || (v4Found && nonV4Best != nil && withinThreshold(v4Amount, nonV4Best.amount, exactOut)) {
		for i := range candidates {
			if candidates[i].protocol == V4 {
				c := candidates[i]
				return Quote{Protocol: c.protocol, Amount: c.amount, Fee: c.fee}
			}
		}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if betterThan(c.amount, best.amount, exactOut) {
			best = c
		}
	}
	return Quote{Protocol: best.protocol, Amount: best.amount, Fee: best.fee}
}

func v2Call(ctx context.Context, r *Router, chain string, tokenIn, tokenOut common.Address, amount *big.Int, exactOut bool) (*big.Int, error) {
	if exactOut {
		return r.quoteV2ExactOut(ctx, chain, tokenIn, tokenOut, amount)
	}
	return r.quoteV2ExactIn(ctx, chain, tokenIn, tokenOut, amount)
}

// betterThan reports whether a beats b: higher output for exact-in, lower
// input for exact-out.
func betterThan(a, b *big.Int, exactOut bool) bool {
	if exactOut {
		return a.Cmp(b) < 0
	}
	return a.Cmp(b) > 0
}

// withinThreshold reports whether v4Amount is within
// v4PreferenceThresholdBps of best, in the direction that matters for the
// given quote kind.
func withinThreshold(v4Amount, best *big.Int, exactOut bool) bool {
	if best.Sign() == 0 {
		return v4Amount.Sign() == 0
	}
	diff := new(big.Int).Sub(best, v4Amount)
	if exactOut {
		diff = new(big.Int).Sub(v4Amount, best)
	}
	if diff.Sign() < 0 {
		// v4 better than best in the relevant direction: always prefer.
		return true
	}
	bps := new(big.Int).Mul(diff, big.NewInt(10_000))
	bps.Div(bps, best)
	return bps.Cmp(big.NewInt(v4PreferenceThresholdBps)) <= 0
}

// FindPair is find_pair: selects among tokenOut's popular-token pairs the
// first that includes tokenIn directly, else the one with highest
// liquidity, for multi-hop routing through an intermediate token.
func (r *Router) FindPair(ctx context.Context, chain string, tokenIn, tokenOut common.Address) (PairInfo, error) {
	popular, err := r.registry.PopularTokens(chain)
	if err != nil {
		return PairInfo{}, fillerr.New(fillerr.KindConfig, "find_pair", err)
	}
	factory, err := r.registry.UniswapV2Factory(chain)
	if err != nil {
		return PairInfo{}, fillerr.New(fillerr.KindConfig, "find_pair", err)
	}

	type candidate struct {
		token     common.Address
		pair      common.Address
		liquidity *big.Int
	}
	var candidates []candidate

	for _, popularToken := range popular {
		if popularToken == tokenOut {
			continue
		}
		out, err := r.callView(ctx, chain, factory, v2FactoryAbi, "getPair", popularToken, tokenOut)
		if err != nil {
			continue
		}
		pair := out[0].(common.Address)
		if pair == (common.Address{}) {
			continue
		}
		reservesOut, err := r.callView(ctx, chain, pair, v2PairAbi, "getReserves")
		if err != nil {
			continue
		}
		reserve0 := reservesOut[0].(*big.Int)
		reserve1 := reservesOut[1].(*big.Int)
		liquidity := new(big.Int).Add(reserve0, reserve1)
		candidates = append(candidates, candidate{popularToken, pair, liquidity})
	}

	if len(candidates) == 0 {
		return PairInfo{}, fillerr.New(fillerr.KindProofUnavailable, "find_pair", errNoPair)
	}

	for _, c := range candidates {
		if c.token == tokenIn {
			return PairInfo{PairAddress: c.pair, IntermediateToken: c.token}, nil
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].liquidity.Cmp(candidates[j].liquidity) > 0 })
	best := candidates[0]
	return PairInfo{PairAddress: best.pair, IntermediateToken: best.token}, nil
}

// buildPath is the multi-hop path construction rule: direct if the
// intermediate equals tokenIn, a single extra hop through WETH if the
// intermediate is WETH, otherwise tokenIn -> WETH -> intermediate ->
// tokenOut.
func (r *Router) buildPath(chain string, tokenIn, tokenOut, intermediate common.Address) []common.Address {
	weth := r.wrapped(chain, common.Address{})
	in := r.wrapped(chain, tokenIn)
	out := r.wrapped(chain, tokenOut)

	if intermediate == in {
		return []common.Address{in, out}
	}
	if intermediate == weth {
		return []common.Address{in, weth, out}
	}
	return []common.Address{in, weth, intermediate, out}
}

// slippageFloor applies the slippage floor rule:
// amountOutMinimum = finalAmountOut * (10000 - slippageBps) / 10000.
func slippageFloor(amount *big.Int, slippageBps uint32) *big.Int {
	num := new(big.Int).Mul(amount, big.NewInt(int64(10_000-slippageBps)))
	return num.Div(num, big.NewInt(10_000))
}

// CreateSwap is create_swap: quotes, builds the slippage-floored minimum
// output, and returns the calldata for a same-chain V2 swap in execution
// order (approval, then router call). V3/V4 calldata construction follows
// the same shape with their own router ABIs and is out of scope for this
// reference implementation's Non-goals around UI-facing contract binding
// generation; V2 is the fully wired path exercised end to end.
func (r *Router) CreateSwap(ctx context.Context, chain string, tokenIn, tokenOut common.Address, amountIn *big.Int, recipient common.Address, protocol Protocol, slippageBps uint32, pair *PairInfo, deadline uint64) (SwapResult, error) {
	router, err := r.registry.UniswapV2Router(chain)
	if err != nil {
		return SwapResult{}, fillerr.New(fillerr.KindConfig, "create_swap", err)
	}

	intermediate := tokenIn
	if pair != nil {
		intermediate = pair.IntermediateToken
	}
	path := r.buildPath(chain, tokenIn, tokenOut, intermediate)

	quote := r.QuoteExactIn(ctx, chain, tokenIn, tokenOut, amountIn, protocol)
	if quote.Protocol == None {
		return SwapResult{}, fillerr.New(fillerr.KindSimulation, "create_swap", errNoQuote)
	}
	amountOutMin := slippageFloor(quote.Amount, slippageBps)

	var txs []Tx
	approveData, err := erc20Abi.Pack("approve", router, amountIn)
	if err != nil {
		return SwapResult{}, fillerr.New(fillerr.KindFatal, "create_swap", err)
	}
	txs = append(txs, Tx{To: tokenIn, Data: approveData, Value: big.NewInt(0)})

	swapData, err := v2RouterAbi.Pack("swapExactTokensForTokens", amountIn, amountOutMin, path, recipient, new(big.Int).SetUint64(deadline))
	if err != nil {
		return SwapResult{}, fillerr.New(fillerr.KindFatal, "create_swap", err)
	}
	txs = append(txs, Tx{To: router, Data: swapData, Value: big.NewInt(0)})

	return SwapResult{FinalAmountOut: quote.Amount, Transactions: txs}, nil
}

// CreateCompleteSwap is create_complete_swap: any-token<->any-token across
// chains via a USDC bridge leg, rejecting USDC itself on either end (use
// CreateSwap for same-token-class same-chain swaps).
func (r *Router) CreateCompleteSwap(ctx context.Context, srcChain, dstChain string, srcToken, dstToken common.Address, amountIn *big.Int, recipient common.Address, slippageBps uint32, protocol Protocol, deadline uint64) (SwapResult, error) {
	srcUSDC, err := r.registry.USDC(srcChain)
	if err != nil {
		return SwapResult{}, fillerr.New(fillerr.KindConfig, "create_complete_swap", err)
	}
	dstUSDC, err := r.registry.USDC(dstChain)
	if err != nil {
		return SwapResult{}, fillerr.New(fillerr.KindConfig, "create_complete_swap", err)
	}
	if srcToken == srcUSDC.Address || dstToken == dstUSDC.Address {
		return SwapResult{}, fillerr.New(fillerr.KindValidation, "create_complete_swap", errUSDCEndpoint)
	}

	leg1, err := r.CreateSwap(ctx, srcChain, srcToken, srcUSDC.Address, amountIn, recipient, protocol, slippageBps, nil, deadline)
	if err != nil {
		return SwapResult{}, err
	}

	leg2, err := r.CreateSwap(ctx, dstChain, dstUSDC.Address, dstToken, leg1.FinalAmountOut, recipient, protocol, slippageBps, nil, deadline)
	if err != nil {
		return SwapResult{}, err
	}

	txs := append(append([]Tx{}, leg1.Transactions...), leg2.Transactions...)
	return SwapResult{FinalAmountOut: leg2.FinalAmountOut, Transactions: txs}, nil
}
