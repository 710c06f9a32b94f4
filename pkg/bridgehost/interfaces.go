package bridgehost

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ProofSource is the bridge's proof-generation surface (spec.md §1: "the
// core treats the bridge as an external ProofSource and Submitter").
type ProofSource interface {
	// QueryStateProof proves the state of stateMachineID as of height.
	QueryStateProof(ctx context.Context, stateMachineID string, height uint64) (IProof, error)
	// QueryProof proves that commitment is present in counterparty's
	// request map as of height.
	QueryProof(ctx context.Context, commitment common.Hash, counterparty string, at uint64) (IProof, error)
}

// Submitter submits an assembled cross-chain message to hyperbridge.
type Submitter interface {
	SubmitUnsigned(ctx context.Context, msg GetRequestMessage) error
}

// BridgeChain is the full hyperbridge external collaborator consumed by
// the Canceller (spec.md §6).
type BridgeChain interface {
	ProofSource
	Submitter

	LatestStateMachineHeight(ctx context.Context, stateID, consensusStateID string) (uint64, error)
	QueryRequestReceipt(ctx context.Context, commitment common.Hash) ([]byte, bool, error)
	ChallengePeriod(ctx context.Context, stateID string) (uint64, error)
}
