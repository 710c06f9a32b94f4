// Package evmclient is a thin wrapper around go-ethereum's ethclient/abi/bind
// packages, grounded on pkg/ethereum/client.go's Client: a single struct
// holding a dialed *ethclient.Client plus the handful of read/write
// operations ContractInteractionService, SwapRouter and IntentGateway need
// (balances, decimals, allowances, approvals, arbitrary contract calls,
// transaction submission and confirmation waiting). ABI calldata
// construction for specific domain contracts is out of scope here (spec.md
// §1 Non-goals) — callers pass already-packed calldata or a method ABI.
package evmclient

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// erc20ABI is the minimal ERC20 surface used for balance/decimals/allowance
// queries and approvals.
const erc20ABI = `[
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"},
{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
]`

// Client wraps a dialed ethclient.Client for a single chain.
type Client struct {
	raw     *ethclient.Client
	geth    *gethclient.Client
	chainID *big.Int
	erc20   abi.ABI
}

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, url string, chainID int64) (*Client, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("evmclient: dial %s: %w", url, err)
	}
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("evmclient: parse erc20 abi: %w", err)
	}
	return &Client{
		raw:     ethclient.NewClient(rc),
		geth:    gethclient.New(rc),
		chainID: big.NewInt(chainID),
		erc20:   parsed,
	}, nil
}

// Geth returns the gethclient surface, used for calls that require state
// overrides (simulating handlePostRequests/fillOrder against a
// hypothetical storage slot per spec.md §4.3/§4.4).
func (c *Client) Geth() *gethclient.Client { return c.geth }

// Raw returns the underlying ethclient.Client for callers that need the
// full surface (log filters, block subscriptions).
func (c *Client) Raw() *ethclient.Client { return c.raw }

// ChainID returns the chain ID this client was constructed with.
func (c *Client) ChainID() *big.Int { return c.chainID }

// LatestBlockNumber returns the current block height, used by the
// confirmation tracker to compute how many blocks have elapsed since an
// order was observed.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.raw.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("evmclient: block number: %w", err)
	}
	return n, nil
}

// NativeBalance returns the chain's native-token balance of address.
func (c *Client) NativeBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	bal, err := c.raw.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("evmclient: native balance: %w", err)
	}
	return bal, nil
}

// TokenBalance returns token.balanceOf(owner).
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// TokenDecimals returns token.decimals().
func (c *Client) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.call(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}
	return out[0].(uint8), nil
}

// Allowance returns token.allowance(owner, spender).
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// PackApprove builds calldata for token.approve(spender, amount).
func (c *Client) PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	data, err := c.erc20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("evmclient: pack approve: %w", err)
	}
	return data, nil
}

func (c *Client) call(ctx context.Context, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.erc20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("evmclient: pack %s: %w", method, err)
	}
	result, err := c.raw.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("evmclient: call %s: %w", method, err)
	}
	out, err := c.erc20.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("evmclient: unpack %s: %w", method, err)
	}
	return out, nil
}

// StorageAt reads a single 32-byte storage slot, used for commitment-slot
// verification against a remote host/handler contract.
func (c *Client) StorageAt(ctx context.Context, addr common.Address, slot common.Hash) (common.Hash, error) {
	data, err := c.raw.StorageAt(ctx, addr, slot, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("evmclient: storage at %s/%s: %w", addr, slot, err)
	}
	return common.BytesToHash(data), nil
}

// CallRaw performs a read-only call with already-encoded calldata, for
// callers (SwapRouter quoting, IntentGateway reads) that build calldata
// themselves by packing ABI-JSON definitions with accounts/abi.
func (c *Client) CallRaw(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	out, err := c.raw.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("evmclient: call raw: %w", err)
	}
	return out, nil
}

// CallWithOverrides performs a read-only simulation with a per-account
// state override map, used to simulate handlePostRequests/fillOrder
// against a hypothetical storage layout (overlay-root slot, mock token
// balances/allowances) before submitting the real transaction.
func (c *Client) CallWithOverrides(ctx context.Context, msg ethereum.CallMsg, overrides map[common.Address]gethclient.OverrideAccount) ([]byte, error) {
	out, err := c.geth.CallContract(ctx, msg, nil, &overrides)
	if err != nil {
		return nil, fmt.Errorf("evmclient: call with overrides: %w", err)
	}
	return out, nil
}

// Transactor builds signing options for privateKey, suitable for use with
// accounts/abi/bind generated contract bindings.
func (c *Client) Transactor(privateKey *ecdsa.PrivateKey) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("evmclient: transactor: %w", err)
	}
	return auth, nil
}

// SendRaw submits an already-signed transaction; pair it with WaitMined
// to obtain the receipt.
func (c *Client) SendRaw(ctx context.Context, tx *types.Transaction) error {
	if err := c.raw.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("evmclient: send transaction: %w", err)
	}
	return nil
}

// WaitMined blocks until tx is included and returns its receipt.
func (c *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.raw, tx)
	if err != nil {
		return nil, fmt.Errorf("evmclient: wait mined: %w", err)
	}
	return receipt, nil
}

// SendContractCall builds, signs, submits and waits for a transaction
// calling to with the already-packed data, mirroring
// pkg/ethereum/client.go's SendContractTransaction but taking calldata
// directly instead of an ABI string, since callers here build calldata
// from their own typed ABI (pkg/order, pkg/bridgehost, ERC20 approve).
func (c *Client) SendContractCall(ctx context.Context, privateKey *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte, gasLimit uint64) (*types.Receipt, error) {
	from, err := PublicAddressFromKey(privateKey)
	if err != nil {
		return nil, err
	}
	nonce, err := c.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, err
	}
	gasPrice, err := c.SuggestGasPrice(ctx, nil)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = big.NewInt(0)
	}
	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), privateKey)
	if err != nil {
		return nil, fmt.Errorf("evmclient: sign transaction: %w", err)
	}
	if err := c.SendRaw(ctx, signed); err != nil {
		return nil, err
	}
	return c.WaitMined(ctx, signed)
}

// SuggestGasPrice returns the network's suggested gas price, floored at
// floor if non-nil (mirrors pkg/ethereum/client.go's 5 Gwei floor, made a
// caller-supplied parameter instead of a hardcoded constant).
func (c *Client) SuggestGasPrice(ctx context.Context, floor *big.Int) (*big.Int, error) {
	price, err := c.raw.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("evmclient: suggest gas price: %w", err)
	}
	if floor != nil && price.Cmp(floor) < 0 {
		return new(big.Int).Set(floor), nil
	}
	return price, nil
}

// EstimateGas estimates gas for msg.
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gas, err := c.raw.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("evmclient: estimate gas: %w", err)
	}
	return gas, nil
}

// PendingNonceAt returns the next nonce for address.
func (c *Client) PendingNonceAt(ctx context.Context, address common.Address) (uint64, error) {
	nonce, err := c.raw.PendingNonceAt(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("evmclient: pending nonce: %w", err)
	}
	return nonce, nil
}

// PublicAddressFromKey derives the address controlled by privateKey.
func PublicAddressFromKey(privateKey *ecdsa.PrivateKey) (common.Address, error) {
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, fmt.Errorf("evmclient: not an ECDSA public key")
	}
	return crypto.PubkeyToAddress(*publicKey), nil
}

// BlockTimestamp returns the timestamp of the block at number.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (time.Time, error) {
	header, err := c.raw.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return time.Time{}, fmt.Errorf("evmclient: header by number %d: %w", number, err)
	}
	return time.Unix(int64(header.Time), 0), nil
}
