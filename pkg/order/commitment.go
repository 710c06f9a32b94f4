package order

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// abiInputTuple / abiOutputTuple / abiOrderArgs build the ABI tuple
// definitions once at package init, matching the canonical encoding in
// spec.md §6: orderCommitment(order) = keccak256(abi_encode(user,
// sourceChain:bytes, destChain:bytes, deadline, nonce, fees, outputs[],
// inputs[], callData)).
var (
	abiOrderArgs abi.Arguments
)

func mustNewType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic("order: bad abi type " + t + ": " + err.Error())
	}
	return typ
}

func init() {
	inputTupleComponents := []abi.ArgumentMarshaling{
		{Name: "token", Type: "bytes32"},
		{Name: "amount", Type: "uint256"},
	}
	outputTupleComponents := []abi.ArgumentMarshaling{
		{Name: "token", Type: "bytes32"},
		{Name: "amount", Type: "uint256"},
		{Name: "beneficiary", Type: "bytes32"},
	}

	inputsType := mustNewType("tuple[]", inputTupleComponents)
	outputsType := mustNewType("tuple[]", outputTupleComponents)

	abiOrderArgs = abi.Arguments{
		{Name: "user", Type: mustNewType("bytes32", nil)},
		{Name: "sourceChain", Type: mustNewType("bytes", nil)},
		{Name: "destChain", Type: mustNewType("bytes", nil)},
		{Name: "deadline", Type: mustNewType("uint64", nil)},
		{Name: "nonce", Type: mustNewType("uint64", nil)},
		{Name: "fees", Type: mustNewType("uint256", nil)},
		{Name: "outputs", Type: outputsType},
		{Name: "inputs", Type: inputsType},
		{Name: "callData", Type: mustNewType("bytes", nil)},
	}
}

type abiInputTuple struct {
	Token  [32]byte
	Amount *big.Int
}

type abiOutputTuple struct {
	Token       [32]byte
	Amount      *big.Int
	Beneficiary [32]byte
}

// EncodeCanonical produces the canonical ABI encoding of o, in the exact
// field order spec.md §6 requires for orderCommitment.
func EncodeCanonical(o *Order) ([]byte, error) {
	outputs := make([]abiOutputTuple, len(o.Outputs))
	for i, out := range o.Outputs {
		outputs[i] = abiOutputTuple{
			Token:       out.Token,
			Amount:      zeroIfNil(out.Amount),
			Beneficiary: out.Beneficiary,
		}
	}
	inputs := make([]abiInputTuple, len(o.Inputs))
	for i, in := range o.Inputs {
		inputs[i] = abiInputTuple{Token: in.Token, Amount: zeroIfNil(in.Amount)}
	}

	return abiOrderArgs.Pack(
		[32]byte(o.User),
		[]byte(o.SourceChain),
		[]byte(o.DestChain),
		o.Deadline,
		o.Nonce,
		zeroIfNil(o.Fees),
		outputs,
		inputs,
		o.CallData,
	)
}

func zeroIfNil(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// Commitment computes the deterministic 32-byte orderCommitment: the
// keccak256 hash of the order's canonical ABI encoding. Stable across
// serialization round-trips (spec.md §8 invariant 1).
func Commitment(o *Order) (common.Hash, error) {
	enc, err := EncodeCanonical(o)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}

// VerifyID reports whether o.ID, if present, matches Commitment(o). Orders
// without an ID always verify successfully (there is nothing to check).
func VerifyID(o *Order) (bool, error) {
	if o.ID == nil {
		return true, nil
	}
	c, err := Commitment(o)
	if err != nil {
		return false, err
	}
	return c == *o.ID, nil
}
