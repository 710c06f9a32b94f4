// Package bridgehost defines the cross-chain message types (IProof,
// GetRequest, PostRequest, RequestStatus) and the external collaborator
// interfaces (ProofSource, Submitter, BridgeChain) the Canceller and
// IntentGateway consume. Bridge consensus and proof generation themselves
// are out of core scope (spec.md §1 Non-goals) — this package only defines
// the boundary. Grounded on pkg/anchor_proof/types.go's proof-component
// modeling and pkg/proof/liteclient_adapter.go's adapter-interface shape.
package bridgehost

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// IProof is an opaque cross-chain state/inclusion proof at a given height.
type IProof struct {
	Height           uint64
	StateMachine     string
	ConsensusStateID string
	Proof            []byte
}

// GetRequest reads remote state: it asks the destination chain to prove
// the value at Keys as of Height.
type GetRequest struct {
	Source           string
	Dest             string
	Nonce            uint64
	From             common.Address
	TimeoutTimestamp uint64
	Keys             [][]byte
	Height           uint64
	Context          []byte
}

// PostRequest carries a payload (Body) to a destination module.
type PostRequest struct {
	Source           string
	Dest             string
	Nonce            uint64
	From             common.Address
	To               common.Address
	TimeoutTimestamp uint64
	Body             []byte
}

// GetRequestMessage bundles a GetRequest with the two proofs needed to
// submit it to hyperbridge: a proof of the request's existence on the
// source chain, and a proof of the response (destination state) it reads.
type GetRequestMessage struct {
	Request  GetRequest
	Source   IProof
	Response IProof
}

// RequestStatus is a lifecycle stage of a cross-chain request. Values are
// ordered; the status stream must be strictly non-decreasing under this
// order (spec.md §3, §4.9).
type RequestStatus int

const (
	StatusSource RequestStatus = iota
	StatusSourceFinalized
	StatusHyperbridgeDelivered
	StatusHyperbridgeFinalized
	StatusDestination
	StatusTimedOut
	StatusHyperbridgeTimedOut
)

func (s RequestStatus) String() string {
	switch s {
	case StatusSource:
		return "Source"
	case StatusSourceFinalized:
		return "SourceFinalized"
	case StatusHyperbridgeDelivered:
		return "HyperbridgeDelivered"
	case StatusHyperbridgeFinalized:
		return "HyperbridgeFinalized"
	case StatusDestination:
		return "Destination"
	case StatusTimedOut:
		return "TimedOut"
	case StatusHyperbridgeTimedOut:
		return "HyperbridgeTimedOut"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s ends a request's lifecycle.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusDestination || s == StatusTimedOut || s == StatusHyperbridgeTimedOut
}

// Rank orders statuses for the monotonicity check. Every status, timeouts
// included, is compared by this rank; the two timeout statuses rank above
// all others.
func (s RequestStatus) Rank() int {
	return int(s)
}

// BlockMetadata is attached to each observed RequestStatus transition.
type BlockMetadata struct {
	BlockHash   common.Hash
	BlockNumber uint64
	TxHash      common.Hash
	CallData    []byte
}

// RequestStatusWithMetadata is a single emitted event from a
// StatusStreamProvider.
type RequestStatusWithMetadata struct {
	Status    RequestStatus
	Metadata  BlockMetadata
	Timestamp time.Time
}

// GetRequestWithStatuses is the result of a point-in-time status query for
// a commitment, as opposed to the live stream.
type GetRequestWithStatuses struct {
	Request  GetRequest
	Statuses []RequestStatusWithMetadata
}
