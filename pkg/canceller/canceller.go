// Package canceller implements the redeem-escrow cancellation state
// machine (spec.md §4.8): drives a cross-chain GetRequest cancellation to
// hyperbridge finalization, durable across process restarts via
// pkg/store.PersistentStore. Grounded on pkg/intent/discovery.go's
// IntentStatus two-phase marking (pending/in_progress/completed/failed)
// for the Run-level bookkeeping, and on pkg/bridgehost/interfaces.go's
// ProofSource/Submitter/BridgeChain collaborator boundary for every
// hyperbridge interaction.
package canceller

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperfill/intent-filler/internal/fillerlog"
	"github.com/hyperfill/intent-filler/pkg/bridgehost"
	"github.com/hyperfill/intent-filler/pkg/fillerconfig"
	"github.com/hyperfill/intent-filler/pkg/metrics"
	"github.com/hyperfill/intent-filler/pkg/order"
	"github.com/hyperfill/intent-filler/pkg/registry"
	"github.com/hyperfill/intent-filler/pkg/statusstream"
	"github.com/hyperfill/intent-filler/pkg/store"
)

// Milestone is a checkpoint in a cancellation run worth surfacing to the
// caller (metrics, operator visibility) without the caller needing to
// track internal state transitions.
type Milestone int

const (
	MilestoneDestinationFinalized Milestone = iota
	MilestoneSourceProofReceived
	MilestoneHyperbridgeDelivered
	MilestoneHyperbridgeFinalized
	MilestoneComplete
)

func (m Milestone) String() string {
	switch m {
	case MilestoneDestinationFinalized:
		return "DestinationFinalized"
	case MilestoneSourceProofReceived:
		return "SourceProofReceived"
	case MilestoneHyperbridgeDelivered:
		return "HyperbridgeDelivered"
	case MilestoneHyperbridgeFinalized:
		return "HyperbridgeFinalized"
	case MilestoneComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// SameChainCanceller cancels an order whose source and destination chain
// are identical: signing and broadcasting the cancel transaction is a
// wallet-level concern out of core scope (spec.md §1 Non-goals), so the
// Canceller only needs the resulting tx hash and a way to wait for the
// refund event.
type SameChainCanceller interface {
	BroadcastCancel(ctx context.Context, ord *order.Order) (common.Hash, error)
	AwaitEscrowRefunded(ctx context.Context, commitment common.Hash, cancelTx common.Hash) error
}

// GetRequestParser resolves the GetRequest emitted by a source-chain
// cancellation transaction. Parsing the chain-specific event log is an
// external collaborator; this package only consumes the typed result.
type GetRequestParser interface {
	ParseGetRequestEvent(ctx context.Context, sourceChain string, sourceTxHash common.Hash) (bridgehost.GetRequest, error)
}

// ErrBridgeChainRequired is returned by New when bridge is nil.
var ErrBridgeChainRequired = errors.New("canceller: bridge is required")

// Canceller drives one commitment's redeem-escrow cancellation to
// completion. Each call to Run owns its commitment's checkpoint keys
// exclusively (spec.md §5's per-commitment ownership rule), so a single
// Canceller value may be shared across concurrently-running commitments.
type Canceller struct {
	cfg       fillerconfig.CancellerConfig
	store     store.PersistentStore
	bridge    bridgehost.BridgeChain
	registry  registry.ChainRegistry
	sameChain SameChainCanceller
	parser    GetRequestParser
	statuses  statusstream.Provider
	logger    *log.Logger
	metrics   *metrics.Registry
}

// SetMetrics attaches a metrics.Registry to report cancellation counters
// into. A nil Canceller.metrics (the default) is a silent no-op.
func (c *Canceller) SetMetrics(m *metrics.Registry) {
	c.metrics = m
}

// New builds a Canceller. A zero-value cfg falls back to
// fillerconfig.DefaultCancellerConfig.
func New(cfg fillerconfig.CancellerConfig, st store.PersistentStore, bridge bridgehost.BridgeChain, reg registry.ChainRegistry, sameChain SameChainCanceller, parser GetRequestParser, statuses statusstream.Provider) (*Canceller, error) {
	if bridge == nil {
		return nil, ErrBridgeChainRequired
	}
	if cfg == (fillerconfig.CancellerConfig{}) {
		cfg = fillerconfig.DefaultCancellerConfig()
	}
	return &Canceller{
		cfg:       cfg,
		store:     st,
		bridge:    bridge,
		registry:  reg,
		sameChain: sameChain,
		parser:    parser,
		statuses:  statuses,
		logger:    fillerlog.New("Canceller"),
	}, nil
}

func destProofKey(cid common.Hash) []byte   { return append([]byte("dest-proof:"), cid.Bytes()...) }
func getRequestKey(cid common.Hash) []byte  { return append([]byte("get-request:"), cid.Bytes()...) }
func sourceProofKey(cid common.Hash) []byte { return append([]byte("source-proof:"), cid.Bytes()...) }

// Run drives ord's cancellation from whatever checkpoint is durably
// recorded through to COMPLETE. sourceTxHash is the user-supplied source
// cancellation transaction hash needed for AWAIT_GET_REQUEST; it is
// ignored on the SAME_CHAIN_CANCEL path. onMilestone, if non-nil, is
// called synchronously as each YIELD point in spec.md §4.8 is reached.
func (c *Canceller) Run(ctx context.Context, ord *order.Order, sourceTxHash common.Hash, onMilestone func(Milestone)) error {
	if onMilestone == nil {
		onMilestone = func(Milestone) {}
	}

	cid, err := order.Commitment(ord)
	if err != nil {
		return fmt.Errorf("canceller: compute commitment: %w", err)
	}

	path := "cross_chain"
	if ord.SourceChain == ord.DestChain {
		path = "same_chain"
	}
	if c.metrics != nil {
		c.metrics.CancellationsStarted.WithLabelValues(path).Inc()
	}
	reportedMilestone := onMilestone
	onMilestone = func(m Milestone) {
		if c.metrics != nil {
			c.metrics.CancellationMilestone.WithLabelValues(m.String()).Inc()
			if m == MilestoneComplete {
				c.metrics.CancellationsCompleted.WithLabelValues(path).Inc()
			}
		}
		reportedMilestone(m)
	}

	if path == "same_chain" {
		return c.runSameChain(ctx, ord, cid, onMilestone)
	}
	return c.runCrossChain(ctx, ord, cid, sourceTxHash, onMilestone)
}

func (c *Canceller) runSameChain(ctx context.Context, ord *order.Order, cid common.Hash, onMilestone func(Milestone)) error {
	if c.sameChain == nil {
		return errors.New("canceller: same-chain cancellation requested but no SameChainCanceller configured")
	}
	cancelTx, err := c.sameChain.BroadcastCancel(ctx, ord)
	if err != nil {
		return fmt.Errorf("canceller: broadcast cancel: %w", err)
	}
	if err := c.sameChain.AwaitEscrowRefunded(ctx, cid, cancelTx); err != nil {
		return fmt.Errorf("canceller: await escrow refunded: %w", err)
	}
	onMilestone(MilestoneComplete)
	return nil
}

func (c *Canceller) runCrossChain(ctx context.Context, ord *order.Order, cid common.Hash, sourceTxHash common.Hash, onMilestone func(Milestone)) error {
	destProof, err := c.loadProof(destProofKey(cid))
	if err != nil {
		return err
	}
	if destProof == nil {
		destProof, err = c.awaitDestFinalized(ctx, ord, cid)
		if err != nil {
			return err
		}
		onMilestone(MilestoneDestinationFinalized)
	}

	getReq, err := c.loadGetRequest(cid)
	if err != nil {
		return err
	}
	if getReq == nil {
		parsed, err := c.parser.ParseGetRequestEvent(ctx, ord.SourceChain, sourceTxHash)
		if err != nil {
			return fmt.Errorf("canceller: parse get request event: %w", err)
		}
		getReq = &parsed
		if err := c.store.Set(getRequestKey(cid), encodeGetRequest(*getReq)); err != nil {
			return fmt.Errorf("canceller: persist get request: %w", err)
		}
	}

	requestCommitment, err := bridgehost.GetRequestCommitment(*getReq)
	if err != nil {
		return fmt.Errorf("canceller: get request commitment: %w", err)
	}

	return c.subscribeStatus(ctx, ord, cid, requestCommitment, *getReq, *destProof, onMilestone)
}

// awaitDestFinalized implements AWAIT_DEST_FINALIZED: poll hyperbridge's
// known destination-chain height until it passes the order deadline, then
// query the state proof at that height. After a failed query it waits
// until the known height differs from the failed one before querying again.
func (c *Canceller) awaitDestFinalized(ctx context.Context, ord *order.Order, cid common.Hash) (*bridgehost.IProof, error) {
	consensusStateID, err := c.registry.ConsensusStateID(ord.DestChain)
	if err != nil {
		return nil, fmt.Errorf("canceller: resolve consensus state id: %w", err)
	}

	var failedHeight uint64
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		height, err := c.bridge.LatestStateMachineHeight(ctx, ord.DestChain, string(consensusStateID))
		if err != nil {
			c.logger.Printf("commitment %s: latest state machine height: %v", cid, err)
			if !sleep(ctx, c.cfg.PollDelay) {
				return nil, ctx.Err()
			}
			continue
		}

		if height <= ord.Deadline {
			if !sleep(ctx, c.cfg.PollDelay) {
				return nil, ctx.Err()
			}
			continue
		}
		if height == failedHeight {
			if !sleep(ctx, c.cfg.PollDelay) {
				return nil, ctx.Err()
			}
			continue
		}

		proof, err := c.bridge.QueryStateProof(ctx, ord.DestChain, height)
		if err != nil {
			failedHeight = height
			c.logger.Printf("commitment %s: query state proof at %d: %v", cid, height, err)
			if !sleep(ctx, c.cfg.PollDelay) {
				return nil, ctx.Err()
			}
			continue
		}

		if err := c.store.Set(destProofKey(cid), encodeProof(proof)); err != nil {
			return nil, fmt.Errorf("canceller: persist dest proof: %w", err)
		}
		return &proof, nil
	}
}

// subscribeStatus implements SUBSCRIBE_STATUS: react to the commitment's
// status stream, producing the source proof once SourceFinalized is
// observed and submitting the assembled GetRequestMessage once its
// challenge period has passed.
func (c *Canceller) subscribeStatus(ctx context.Context, ord *order.Order, cid, requestCommitment common.Hash, getReq bridgehost.GetRequest, destProof bridgehost.IProof, onMilestone func(Milestone)) error {
	stream, err := c.statuses.Stream(ctx, requestCommitment)
	if err != nil {
		return fmt.Errorf("canceller: open status stream: %w", err)
	}

	sourceProof, err := c.loadProof(sourceProofKey(cid))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-stream:
			if !ok {
				return nil
			}

			switch ev.Status {
			case bridgehost.StatusSourceFinalized:
				if sourceProof == nil {
					sp, err := c.awaitSourceProof(ctx, ord, cid, requestCommitment, ev.Metadata.BlockNumber)
					if err != nil {
						return err
					}
					sourceProof = sp
					onMilestone(MilestoneSourceProofReceived)
				}

				if err := c.waitForChallengePeriod(ctx, ord.SourceChain); err != nil {
					return err
				}
				if err := c.submitAndConfirmReceipt(ctx, requestCommitment, bridgehost.GetRequestMessage{
					Request:  getReq,
					Source:   *sourceProof,
					Response: destProof,
				}); err != nil {
					return err
				}
			case bridgehost.StatusHyperbridgeDelivered:
				onMilestone(MilestoneHyperbridgeDelivered)
			case bridgehost.StatusHyperbridgeFinalized:
				onMilestone(MilestoneHyperbridgeFinalized)
				if err := c.clearCheckpoints(cid); err != nil {
					return err
				}
				onMilestone(MilestoneComplete)
				return nil
			}
		}
	}
}

// awaitSourceProof implements the inner retry loop of SUBSCRIBE_STATUS's
// SourceFinalized branch: keep trying queryProof until it succeeds,
// checking whether hyperbridge already holds a receipt in between
// attempts so a concurrent submitter's success ends the wait.
func (c *Canceller) awaitSourceProof(ctx context.Context, ord *order.Order, cid, requestCommitment common.Hash, sourceHeight uint64) (*bridgehost.IProof, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		proof, err := c.bridge.QueryProof(ctx, requestCommitment, ord.SourceChain, sourceHeight)
		if err == nil {
			if setErr := c.store.Set(sourceProofKey(cid), encodeProof(proof)); setErr != nil {
				return nil, fmt.Errorf("canceller: persist source proof: %w", setErr)
			}
			return &proof, nil
		}

		if _, delivered, receiptErr := c.bridge.QueryRequestReceipt(ctx, requestCommitment); receiptErr == nil && delivered {
			return nil, errors.New("canceller: request already delivered by another submitter before a local source proof was produced")
		}

		c.logger.Printf("commitment %s: query proof at height %d: %v", cid, sourceHeight, err)
		if !sleep(ctx, c.cfg.PollDelay) {
			return nil, ctx.Err()
		}
	}
}

// waitForChallengePeriod sleeps for stateID's configured challenge
// period before a receipt submission is attempted.
func (c *Canceller) waitForChallengePeriod(ctx context.Context, stateID string) error {
	period, err := c.bridge.ChallengePeriod(ctx, stateID)
	if err != nil {
		return fmt.Errorf("canceller: challenge period: %w", err)
	}
	if !sleep(ctx, time.Duration(period)*time.Second) {
		return ctx.Err()
	}
	return nil
}

// submitAndConfirmReceipt implements spec.md §4.8's named helper: check
// for an existing receipt, submit if absent, then poll with exponential
// backoff until the receipt appears.
func (c *Canceller) submitAndConfirmReceipt(ctx context.Context, commitment common.Hash, msg bridgehost.GetRequestMessage) error {
	if _, ok, err := c.bridge.QueryRequestReceipt(ctx, commitment); err == nil && ok {
		return nil
	}

	if err := c.bridge.SubmitUnsigned(ctx, msg); err != nil {
		c.logger.Printf("commitment %s: submit unsigned (swallowed, another submitter may win): %v", commitment, err)
	}

	if !sleep(ctx, c.cfg.ReceiptWaitBefore) {
		return ctx.Err()
	}

	delay := c.cfg.ReceiptRetryBase
	for attempt := 0; attempt < c.cfg.ReceiptRetryCount; attempt++ {
		_, ok, err := c.bridge.QueryRequestReceipt(ctx, commitment)
		if err == nil && ok {
			return nil
		}
		if !sleep(ctx, delay) {
			return ctx.Err()
		}
		delay *= 2
	}
	return fmt.Errorf("canceller: commitment %s: receipt not observed after %d retries", commitment, c.cfg.ReceiptRetryCount)
}

func (c *Canceller) clearCheckpoints(cid common.Hash) error {
	for _, key := range [][]byte{destProofKey(cid), getRequestKey(cid), sourceProofKey(cid)} {
		if err := c.store.Delete(key); err != nil {
			return fmt.Errorf("canceller: clear checkpoint: %w", err)
		}
	}
	return nil
}

func (c *Canceller) loadProof(key []byte) (*bridgehost.IProof, error) {
	raw, ok, err := c.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("canceller: load checkpoint: %w", err)
	}
	if !ok {
		return nil, nil
	}
	proof := decodeProof(raw)
	return &proof, nil
}

func (c *Canceller) loadGetRequest(cid common.Hash) (*bridgehost.GetRequest, error) {
	raw, ok, err := c.store.Get(getRequestKey(cid))
	if err != nil {
		return nil, fmt.Errorf("canceller: load get request checkpoint: %w", err)
	}
	if !ok {
		return nil, nil
	}
	req := decodeGetRequest(raw)
	return &req, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// encodeProof/decodeProof/encodeGetRequest/decodeGetRequest are a minimal
// length-prefixed binary encoding for checkpointing bridgehost's message
// types; no wire/serialization library appears in the example pack for
// ad-hoc struct persistence, so this uses the stdlib encoding/binary
// directly, matching pkg/store's own raw-bytes KV contract.
func encodeProof(p bridgehost.IProof) []byte {
	buf := make([]byte, 0, 16+len(p.StateMachine)+len(p.ConsensusStateID)+len(p.Proof))
	buf = appendUint64(buf, p.Height)
	buf = appendString(buf, p.StateMachine)
	buf = appendString(buf, p.ConsensusStateID)
	buf = appendBytes(buf, p.Proof)
	return buf
}

func decodeProof(buf []byte) bridgehost.IProof {
	var p bridgehost.IProof
	p.Height, buf = readUint64(buf)
	p.StateMachine, buf = readString(buf)
	p.ConsensusStateID, buf = readString(buf)
	p.Proof, _ = readBytes(buf)
	return p
}

func encodeGetRequest(r bridgehost.GetRequest) []byte {
	buf := make([]byte, 0, 64+len(r.Source)+len(r.Dest)+len(r.Context))
	buf = appendString(buf, r.Source)
	buf = appendString(buf, r.Dest)
	buf = appendUint64(buf, r.Nonce)
	buf = append(buf, r.From.Bytes()...)
	buf = appendUint64(buf, r.TimeoutTimestamp)
	buf = appendUint64(buf, uint64(len(r.Keys)))
	for _, k := range r.Keys {
		buf = appendBytes(buf, k)
	}
	buf = appendUint64(buf, r.Height)
	buf = appendBytes(buf, r.Context)
	return buf
}

func decodeGetRequest(buf []byte) bridgehost.GetRequest {
	var r bridgehost.GetRequest
	r.Source, buf = readString(buf)
	r.Dest, buf = readString(buf)
	r.Nonce, buf = readUint64(buf)
	r.From = common.BytesToAddress(buf[:20])
	buf = buf[20:]
	r.TimeoutTimestamp, buf = readUint64(buf)
	var n uint64
	n, buf = readUint64(buf)
	r.Keys = make([][]byte, n)
	for i := range r.Keys {
		r.Keys[i], buf = readBytes(buf)
	}
	r.Height, buf = readUint64(buf)
	r.Context, _ = readBytes(buf)
	return r
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func readUint64(buf []byte) (uint64, []byte) {
	return binary.BigEndian.Uint64(buf[:8]), buf[8:]
}

func appendBytes(buf []byte, v []byte) []byte {
	buf = appendUint64(buf, uint64(len(v)))
	return append(buf, v...)
}

func readBytes(buf []byte) ([]byte, []byte) {
	n, rest := readUint64(buf)
	return rest[:n], rest[n:]
}

func appendString(buf []byte, v string) []byte {
	return appendBytes(buf, []byte(v))
}

func readString(buf []byte) (string, []byte) {
	b, rest := readBytes(buf)
	return string(b), rest
}
