package bridgehost

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var stateCommitmentSlot = big.NewInt(5)

func mustNewType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	getRequestArgs abi.Arguments
	postRequestArgs abi.Arguments
)

func init() {
	getRequestArgs = abi.Arguments{
		{Type: mustNewType("bytes")},   // source
		{Type: mustNewType("bytes")},   // dest
		{Type: mustNewType("uint64")},  // nonce
		{Type: mustNewType("address")}, // from
		{Type: mustNewType("uint64")},  // timeoutTimestamp
		{Type: mustNewType("bytes[]")}, // keys
		{Type: mustNewType("uint64")},  // height
		{Type: mustNewType("bytes")},   // context
	}
	postRequestArgs = abi.Arguments{
		{Type: mustNewType("bytes")},   // source
		{Type: mustNewType("bytes")},   // dest
		{Type: mustNewType("uint64")},  // nonce
		{Type: mustNewType("address")}, // from
		{Type: mustNewType("address")}, // to
		{Type: mustNewType("uint64")},  // timeoutTimestamp
		{Type: mustNewType("bytes")},   // body
	}
}

// GetRequestCommitment computes keccak256 of the canonical ABI encoding of
// a GetRequest (spec.md §6).
func GetRequestCommitment(req GetRequest) (common.Hash, error) {
	keys := make([][]byte, len(req.Keys))
	copy(keys, req.Keys)
	packed, err := getRequestArgs.Pack(
		[]byte(req.Source),
		[]byte(req.Dest),
		req.Nonce,
		req.From,
		req.TimeoutTimestamp,
		keys,
		req.Height,
		req.Context,
	)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}

// PostRequestCommitment computes keccak256 of the canonical ABI encoding of
// a PostRequest (spec.md §6).
func PostRequestCommitment(req PostRequest) (common.Hash, error) {
	packed, err := postRequestArgs.Pack(
		[]byte(req.Source),
		[]byte(req.Dest),
		req.Nonce,
		req.From,
		req.To,
		req.TimeoutTimestamp,
		req.Body,
	)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(packed), nil
}

// CommitmentSlotHash computes keccak256(commitment ∥ uint256(5)), the
// storage slot hyperbridge's host contract uses to record a request
// receipt for commitment.
func CommitmentSlotHash(commitment common.Hash) common.Hash {
	var slot [32]byte
	stateCommitmentSlot.FillBytes(slot[:])
	buf := make([]byte, 0, 64)
	buf = append(buf, commitment.Bytes()...)
	buf = append(buf, slot[:]...)
	return crypto.Keccak256Hash(buf)
}

// StateCommitmentSlots computes the three storage slots hyperbridge's
// overlay commitment scheme uses for a (paraId, height) pair: base is the
// state-commitment root slot, overlay is base+1, stateRoot is base+2
// (spec.md §6, §4.4).
func StateCommitmentSlots(paraID uint64, height uint64) (base, overlay, stateRoot common.Hash) {
	var paraIDBytes, slotBytes [32]byte
	new(big.Int).SetUint64(paraID).FillBytes(paraIDBytes[:])
	stateCommitmentSlot.FillBytes(slotBytes[:])
	innerBuf := append(append([]byte{}, paraIDBytes[:]...), slotBytes[:]...)
	inner := crypto.Keccak256(innerBuf)

	var heightBytes [32]byte
	new(big.Int).SetUint64(height).FillBytes(heightBytes[:])
	outerBuf := append(append([]byte{}, heightBytes[:]...), inner...)
	base = crypto.Keccak256Hash(outerBuf)

	baseInt := new(big.Int).SetBytes(base.Bytes())
	overlay = common.BigToHash(new(big.Int).Add(baseInt, big.NewInt(1)))
	stateRoot = common.BigToHash(new(big.Int).Add(baseInt, big.NewInt(2)))
	return base, overlay, stateRoot
}
