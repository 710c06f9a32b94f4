// Package monitor implements EventMonitor (spec.md §4.6): converges
// orders observed on an indexer into a deduplicated NewOrder/OrderFilled
// event stream. Grounded on pkg/anchor/event_watcher.go's EventWatcher:
// a buffered output channel fed by a producer loop, with Events()/Errors()
// accessors returning receive-only channels.
package monitor

import (
	"context"
	"log"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperfill/intent-filler/internal/fillerlog"
	"github.com/hyperfill/intent-filler/pkg/order"
)

// Event is the monitor's output: exactly one of Order or
// (FilledCommitment, FilledTxHash) is set.
type Event struct {
	Order            *order.Order
	FilledCommitment *common.Hash
	FilledTxHash     *common.Hash
}

// IsNewOrder reports whether e is a NewOrder event.
func (e Event) IsNewOrder() bool { return e.Order != nil }

// Indexer is the upstream source of order/fill notifications. Production
// of these notifications (websocket subscription, polling an indexer API)
// is an external collaborator; this package only consumes the channel it
// returns.
type Indexer interface {
	Subscribe(ctx context.Context) (<-chan order.Order, <-chan FilledNotice, error)
}

// FilledNotice is a raw OrderFilled notification from the indexer.
type FilledNotice struct {
	Commitment common.Hash
	TxHash     common.Hash
}

// Monitor is EventMonitor.
type Monitor struct {
	indexer Indexer
	out     chan Event
	logger  *log.Logger

	mu       sync.Mutex
	seen     map[common.Hash]struct{}
	seenList []common.Hash
	window   int
}

// New builds a Monitor. windowSize should be max(maxConcurrentOrders*4,
// 256) per spec.md §4.6.
func New(indexer Indexer, windowSize int, bufferSize int) *Monitor {
	if windowSize < 256 {
		windowSize = 256
	}
	return &Monitor{
		indexer: indexer,
		out:     make(chan Event, bufferSize),
		logger:  fillerlog.New("Monitor"),
		seen:    make(map[common.Hash]struct{}, windowSize),
		window:  windowSize,
	}
}

// Events returns the monitor's deduplicated output stream.
func (m *Monitor) Events() <-chan Event { return m.out }

// Run subscribes to the indexer and forwards deduplicated events until ctx
// is cancelled or the indexer's channels close. Run never drops an event
// silently: a full downstream queue blocks the forwarding goroutine
// (back-pressure), exactly as spec.md §4.6 requires.
func (m *Monitor) Run(ctx context.Context) error {
	orders, fills, err := m.indexer.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer close(m.out)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ord, ok := <-orders:
			if !ok {
				orders = nil
				if fills == nil {
					return nil
				}
				continue
			}
			commitment, err := order.Commitment(&ord)
			if err != nil {
				m.logger.Printf("drop order: compute commitment: %v", err)
				continue
			}
			if m.markSeen(commitment) {
				continue
			}
			o := ord
			if !m.emit(ctx, Event{Order: &o}) {
				return ctx.Err()
			}
		case notice, ok := <-fills:
			if !ok {
				fills = nil
				if orders == nil {
					return nil
				}
				continue
			}
			txHash := notice.TxHash
			commitment := notice.Commitment
			if !m.emit(ctx, Event{FilledCommitment: &commitment, FilledTxHash: &txHash}) {
				return ctx.Err()
			}
		}
	}
}

// emit blocks until ev is delivered or ctx is cancelled, reporting false
// only on cancellation.
func (m *Monitor) emit(ctx context.Context, ev Event) bool {
	select {
	case m.out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// markSeen records commitment in the sliding dedup window, evicting the
// oldest entry once the window is full, and reports whether commitment
// had already been seen.
func (m *Monitor) markSeen(commitment common.Hash) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.seen[commitment]; ok {
		return true
	}
	if len(m.seenList) >= m.window {
		oldest := m.seenList[0]
		m.seenList = m.seenList[1:]
		delete(m.seen, oldest)
	}
	m.seen[commitment] = struct{}{}
	m.seenList = append(m.seenList, commitment)
	return false
}
