package canceller

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/hyperfill/intent-filler/internal/fillerlog"
	"github.com/hyperfill/intent-filler/pkg/bridgehost"
	"github.com/hyperfill/intent-filler/pkg/fillerconfig"
	"github.com/hyperfill/intent-filler/pkg/order"
	"github.com/hyperfill/intent-filler/pkg/registry"
	"github.com/hyperfill/intent-filler/pkg/statusstream"
	"github.com/hyperfill/intent-filler/pkg/store"
)

func fastCancellerConfig() fillerconfig.CancellerConfig {
	return fillerconfig.CancellerConfig{
		PollDelay:         time.Millisecond,
		ReceiptWaitBefore: time.Millisecond,
		ReceiptRetryCount: 2,
		ReceiptRetryBase:  time.Millisecond,
	}
}

func TestEncodeDecodeProofRoundTrips(t *testing.T) {
	p := bridgehost.IProof{Height: 42, StateMachine: "EVM-97", ConsensusStateID: "ETH0", Proof: []byte{1, 2, 3}}
	got := decodeProof(encodeProof(p))
	require.Equal(t, p, got)
}

func TestEncodeDecodeGetRequestRoundTrips(t *testing.T) {
	r := bridgehost.GetRequest{
		Source:           "EVM-97",
		Dest:             "EVM-10200",
		Nonce:            7,
		From:             common.HexToAddress("0x00000000000000000000000000000000000001"),
		TimeoutTimestamp: 123,
		Keys:             [][]byte{{1, 2}, {3, 4, 5}},
		Height:           99,
		Context:          []byte("ctx"),
	}
	got := decodeGetRequest(encodeGetRequest(r))
	require.Equal(t, r, got)
}

type fakeBridge struct {
	mu                 sync.Mutex
	height             uint64
	stateProofErr      error
	queryProofErr      error
	receiptDelivered   bool
	submitCalls        int
	challengePeriodSec uint64
}

func (f *fakeBridge) QueryStateProof(ctx context.Context, stateMachineID string, height uint64) (bridgehost.IProof, error) {
	if f.stateProofErr != nil {
		return bridgehost.IProof{}, f.stateProofErr
	}
	return bridgehost.IProof{Height: height, StateMachine: stateMachineID}, nil
}

func (f *fakeBridge) QueryProof(ctx context.Context, commitment common.Hash, counterparty string, at uint64) (bridgehost.IProof, error) {
	if f.queryProofErr != nil {
		return bridgehost.IProof{}, f.queryProofErr
	}
	return bridgehost.IProof{Height: at, StateMachine: counterparty}, nil
}

func (f *fakeBridge) SubmitUnsigned(ctx context.Context, msg bridgehost.GetRequestMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	f.receiptDelivered = true
	return nil
}

func (f *fakeBridge) LatestStateMachineHeight(ctx context.Context, stateID, consensusStateID string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, nil
}

func (f *fakeBridge) QueryRequestReceipt(ctx context.Context, commitment common.Hash) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiptDelivered {
		return []byte{0xAA}, true, nil
	}
	return nil, false, nil
}

func (f *fakeBridge) ChallengePeriod(ctx context.Context, stateID string) (uint64, error) {
	return f.challengePeriodSec, nil
}

type fakeParser struct {
	req bridgehost.GetRequest
}

func (f *fakeParser) ParseGetRequestEvent(ctx context.Context, sourceChain string, sourceTxHash common.Hash) (bridgehost.GetRequest, error) {
	return f.req, nil
}

type fakeStatusProvider struct {
	events []bridgehost.RequestStatusWithMetadata
}

func (f *fakeStatusProvider) Stream(ctx context.Context, commitment common.Hash) (<-chan bridgehost.RequestStatusWithMetadata, error) {
	ch := make(chan bridgehost.RequestStatusWithMetadata, len(f.events))
	for _, ev := range f.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func testRegistry() registry.ChainRegistry {
	return registry.NewInMemory([]registry.ChainSpec{
		{StateMachineID: "EVM-97", ConsensusStateID: []byte("ETH0")},
		{StateMachineID: "EVM-10200", ConsensusStateID: []byte("ETH0")},
	})
}

func testOrder() *order.Order {
	return &order.Order{
		SourceChain: "EVM-97",
		DestChain:   "EVM-10200",
		Deadline:    10,
		Nonce:       1,
		Fees:        big.NewInt(0),
		Inputs:      []order.TokenInfo{{Token: common.HexToHash("0x1"), Amount: big.NewInt(1)}},
		Outputs:     []order.PaymentInfo{{Token: order.NativeToken, Amount: big.NewInt(1)}},
	}
}

func TestRunCrossChainDrivesToCompletion(t *testing.T) {
	ord := testOrder()
	bridge := &fakeBridge{height: 100, challengePeriodSec: 0}
	parser := &fakeParser{req: bridgehost.GetRequest{Source: ord.SourceChain, Dest: ord.DestChain, Nonce: 1}}
	statuses := &fakeStatusProvider{events: []bridgehost.RequestStatusWithMetadata{
		{Status: bridgehost.StatusSourceFinalized, Metadata: bridgehost.BlockMetadata{BlockNumber: 50}},
		{Status: bridgehost.StatusHyperbridgeDelivered},
		{Status: bridgehost.StatusHyperbridgeFinalized},
	}}
	st := store.NewInMemory()

	c, err := New(fastCancellerConfig(), st, bridge, testRegistry(), nil, parser, statuses)
	require.NoError(t, err)

	var milestones []Milestone
	err = c.Run(context.Background(), ord, common.HexToHash("0xbeef"), func(m Milestone) { milestones = append(milestones, m) })
	require.NoError(t, err)

	require.Equal(t, []Milestone{
		MilestoneDestinationFinalized,
		MilestoneSourceProofReceived,
		MilestoneHyperbridgeDelivered,
		MilestoneHyperbridgeFinalized,
		MilestoneComplete,
	}, milestones)

	cid, err := order.Commitment(ord)
	require.NoError(t, err)
	_, ok, err := st.Get(destProofKey(cid))
	require.NoError(t, err)
	require.False(t, ok, "checkpoints must be cleared on finalization")
}

func TestRunCrossChainResumesFromExistingDestProofCheckpoint(t *testing.T) {
	ord := testOrder()
	bridge := &fakeBridge{height: 100}
	parser := &fakeParser{req: bridgehost.GetRequest{Source: ord.SourceChain, Dest: ord.DestChain, Nonce: 1}}
	statuses := &fakeStatusProvider{events: []bridgehost.RequestStatusWithMetadata{
		{Status: bridgehost.StatusHyperbridgeFinalized},
	}}
	st := store.NewInMemory()

	cid, err := order.Commitment(ord)
	require.NoError(t, err)
	require.NoError(t, st.Set(destProofKey(cid), encodeProof(bridgehost.IProof{Height: 77})))

	c, err := New(fastCancellerConfig(), st, bridge, testRegistry(), nil, parser, statuses)
	require.NoError(t, err)

	var milestones []Milestone
	err = c.Run(context.Background(), ord, common.HexToHash("0xbeef"), func(m Milestone) { milestones = append(milestones, m) })
	require.NoError(t, err)

	// DestinationFinalized must not be re-yielded since its checkpoint was
	// already present on entry.
	require.NotContains(t, milestones, MilestoneDestinationFinalized)
	require.Contains(t, milestones, MilestoneComplete)
}

func TestSubmitAndConfirmReceiptShortCircuitsWhenAlreadyDelivered(t *testing.T) {
	bridge := &fakeBridge{receiptDelivered: true}
	c := &Canceller{cfg: fastCancellerConfig(), bridge: bridge, logger: fillerlog.New("test")}

	err := c.submitAndConfirmReceipt(context.Background(), common.HexToHash("0x01"), bridgehost.GetRequestMessage{})
	require.NoError(t, err)
	require.Equal(t, 0, bridge.submitCalls, "must not resubmit when a receipt already exists")
}
