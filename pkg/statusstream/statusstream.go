// Package statusstream defines the StatusStreamProvider external
// collaborator (spec.md §4.9): a lazy, monotone sequence of
// bridgehost.RequestStatusWithMetadata events for a single commitment.
// The concrete poller lives in pkg/statuspoll; this package only defines
// the boundary, grounded on pkg/bridgehost/interfaces.go's style of
// naming the Canceller's external collaborators as small interfaces
// rather than concrete types.
package statusstream

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperfill/intent-filler/pkg/bridgehost"
)

// Provider opens a status stream for commitment. The returned channel is
// closed once a terminal status is reached or ctx is cancelled.
type Provider interface {
	Stream(ctx context.Context, commitment common.Hash) (<-chan bridgehost.RequestStatusWithMetadata, error)
}

// Source is the read side a Provider polls: the current best-known status
// of commitment, as observed by an indexer or direct chain/hyperbridge
// query. ok is false until the request is first observed on-chain.
type Source interface {
	QueryStatus(ctx context.Context, commitment common.Hash) (bridgehost.RequestStatusWithMetadata, bool, error)
}
