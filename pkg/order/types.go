// Package order defines the core Order entity exchanged between the
// EventMonitor, OrderScheduler, FillStrategy and IntentGateway, along with
// its canonical commitment encoding.
package order

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenInfo is a token/amount pair escrowed on the source chain.
type TokenInfo struct {
	Token  common.Hash `json:"token"`
	Amount *big.Int    `json:"amount"`
}

// PaymentInfo is a token/amount/beneficiary triple to be delivered on the
// destination chain.
type PaymentInfo struct {
	Token       common.Hash `json:"token"`
	Amount      *big.Int    `json:"amount"`
	Beneficiary common.Hash `json:"beneficiary"`
}

// Order is a user intent placed on SourceChain to be satisfied on DestChain.
//
// ID, when present, must equal Commitment(order) — callers that construct
// an Order from on-chain data should verify this, callers that build one to
// compute a commitment should leave ID empty.
type Order struct {
	User            common.Hash   `json:"user"`
	SourceChain     string        `json:"sourceChain"`
	DestChain       string        `json:"destChain"`
	Deadline        uint64        `json:"deadline"`
	Nonce           uint64        `json:"nonce"`
	Fees            *big.Int      `json:"fees"`
	Inputs          []TokenInfo   `json:"inputs"`
	Outputs         []PaymentInfo `json:"outputs"`
	CallData        []byte        `json:"callData"`
	ID              *common.Hash  `json:"id,omitempty"`
	TransactionHash *common.Hash  `json:"transactionHash,omitempty"`
}

// NativeToken is the zero address / zero hash, denoting a chain's native
// token wherever it appears as a token reference.
var NativeToken common.Hash

// IsNative reports whether tok refers to the native token of its chain.
func IsNative(tok common.Hash) bool {
	return tok == NativeToken
}

// AddressToHash left-pads a 20-byte address into its 32-byte commitment
// form. Lossless: the upper 12 bytes are always zero.
func AddressToHash(addr common.Address) common.Hash {
	return addr.Hash()
}

// HashToAddress recovers the 20-byte address from its left-padded
// 32-byte form. Only lossless when the upper 12 bytes of h are zero; callers
// that need the round-trip invariant from spec.md §8 must check that first.
func HashToAddress(h common.Hash) common.Address {
	return common.BytesToAddress(h.Bytes()[12:])
}

// HasZeroUpperBytes reports whether h's upper 12 bytes are zero, i.e. it is
// safe to round-trip through HashToAddress/AddressToHash without loss.
func HasZeroUpperBytes(h common.Hash) bool {
	for _, b := range h[:12] {
		if b != 0 {
			return false
		}
	}
	return true
}
