package monitor

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/hyperfill/intent-filler/pkg/order"
)

type fakeIndexer struct {
	orders chan order.Order
	fills  chan FilledNotice
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{orders: make(chan order.Order, 8), fills: make(chan FilledNotice, 8)}
}

func (f *fakeIndexer) Subscribe(ctx context.Context) (<-chan order.Order, <-chan FilledNotice, error) {
	return f.orders, f.fills, nil
}

func sampleOrder(nonce uint64) order.Order {
	return order.Order{
		User:        common.Hash{},
		SourceChain: "EVM-97",
		DestChain:   "EVM-10200",
		Deadline:    1,
		Nonce:       nonce,
		Fees:        big.NewInt(0),
		Outputs:     []order.PaymentInfo{{Token: order.NativeToken, Amount: big.NewInt(1)}},
		CallData:    []byte{},
	}
}

func TestMonitorForwardsNewOrder(t *testing.T) {
	idx := newFakeIndexer()
	m := New(idx, 256, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = m.Run(ctx) }()

	ord := sampleOrder(1)
	idx.orders <- ord

	select {
	case ev := <-m.Events():
		require.True(t, ev.IsNewOrder())
		require.Equal(t, ord.Nonce, ev.Order.Nonce)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMonitorDedupesByCommitment(t *testing.T) {
	idx := newFakeIndexer()
	m := New(idx, 256, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = m.Run(ctx) }()

	ord := sampleOrder(42)
	idx.orders <- ord
	idx.orders <- ord // duplicate, must be dropped

	select {
	case <-m.Events():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first event")
	}

	select {
	case ev := <-m.Events():
		t.Fatalf("unexpected second event delivered: %+v", ev)
	case <-time.After(200 * time.Millisecond):
		// expected: no second delivery
	}
}

func TestMonitorForwardsOrderFilled(t *testing.T) {
	idx := newFakeIndexer()
	m := New(idx, 256, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = m.Run(ctx) }()

	notice := FilledNotice{Commitment: common.HexToHash("0x01"), TxHash: common.HexToHash("0x02")}
	idx.fills <- notice

	select {
	case ev := <-m.Events():
		require.False(t, ev.IsNewOrder())
		require.Equal(t, notice.Commitment, *ev.FilledCommitment)
		require.Equal(t, notice.TxHash, *ev.FilledTxHash)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMarkSeenEvictsOldestWhenWindowFull(t *testing.T) {
	m := New(newFakeIndexer(), 256, 8)
	m.window = 2

	a := common.HexToHash("0x01")
	b := common.HexToHash("0x02")
	c := common.HexToHash("0x03")

	require.False(t, m.markSeen(a))
	require.False(t, m.markSeen(b))
	require.True(t, m.markSeen(b))  // still within window, already seen
	require.False(t, m.markSeen(c)) // evicts a to make room
	require.False(t, m.markSeen(a)) // a was evicted, so it's treated as new again
}
