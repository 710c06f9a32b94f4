package bridgehost

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// InclusionProof is the on-chain shape of a PostRequest's inclusion proof
// against an overlay root: a sibling-hash path plus the (leafIndex,
// treeSize) coordinates, and the height the overlay root was pinned at.
// Mirrors pkg/merkle.InclusionProof's path, reshaped for ABI packing.
type InclusionProof struct {
	Height    uint64
	Siblings  [][32]byte
	LeafIndex *big.Int
	TreeSize  *big.Int
}

type abiPostRequest struct {
	Source           []byte
	Dest             []byte
	Nonce            uint64
	From             common.Address
	To               common.Address
	TimeoutTimestamp uint64
	Body             []byte
}

type abiInclusionProof struct {
	Height    uint64
	Siblings  [][32]byte
	LeafIndex *big.Int
	TreeSize  *big.Int
}

var (
	handlePostRequestsArgs     abi.Arguments
	handlePostRequestsSelector []byte
)

func init() {
	requestComponents := []abi.ArgumentMarshaling{
		{Name: "source", Type: "bytes"},
		{Name: "dest", Type: "bytes"},
		{Name: "nonce", Type: "uint64"},
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "timeoutTimestamp", Type: "uint64"},
		{Name: "body", Type: "bytes"},
	}
	requestType, err := abi.NewType("tuple", "", requestComponents)
	if err != nil {
		panic("bridgehost: bad abi type request tuple: " + err.Error())
	}

	proofComponents := []abi.ArgumentMarshaling{
		{Name: "height", Type: "uint64"},
		{Name: "siblings", Type: "bytes32[]"},
		{Name: "leafIndex", Type: "uint256"},
		{Name: "treeSize", Type: "uint256"},
	}
	proofType, err := abi.NewType("tuple", "", proofComponents)
	if err != nil {
		panic("bridgehost: bad abi type proof tuple: " + err.Error())
	}

	handlePostRequestsArgs = abi.Arguments{
		{Name: "request", Type: requestType},
		{Name: "proof", Type: proofType},
	}
	handlePostRequestsSelector = crypto.Keccak256([]byte(
		"handlePostRequests((bytes,bytes,uint64,address,address,uint64,bytes),(uint64,bytes32[],uint256,uint256))",
	))[:4]
}

// PackHandlePostRequests encodes the calldata estimate_gas_for_post
// simulates handlePostRequests with: req is the canonical redeem-escrow
// PostRequest, proof locates its commitment inside the overlay root a
// state override has just pinned at proof.Height (spec.md §4.3).
func PackHandlePostRequests(req PostRequest, proof InclusionProof) ([]byte, error) {
	packed, err := handlePostRequestsArgs.Pack(
		abiPostRequest{
			Source:           []byte(req.Source),
			Dest:             []byte(req.Dest),
			Nonce:            req.Nonce,
			From:             req.From,
			To:               req.To,
			TimeoutTimestamp: req.TimeoutTimestamp,
			Body:             req.Body,
		},
		abiInclusionProof{
			Height:    proof.Height,
			Siblings:  proof.Siblings,
			LeafIndex: proof.LeafIndex,
			TreeSize:  proof.TreeSize,
		},
	)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(handlePostRequestsSelector)+len(packed))
	data = append(data, handlePostRequestsSelector...)
	data = append(data, packed...)
	return data, nil
}
