// Package scheduler implements OrderScheduler (spec.md §4.7): the central
// concurrency and lifecycle coordinator that moves orders through
// Pending -> InFlight -> Done. Grounded on pkg/anchor/scheduler.go's
// AnchorSchedulerService: a mutex-protected in-memory queue plus a
// ticker-driven poll loop and a buffered admission channel, generalized
// from batch-anchoring to per-order fill scheduling.
package scheduler

import (
	"container/list"
	"context"
	"errors"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyperfill/intent-filler/internal/fillerlog"
	"github.com/hyperfill/intent-filler/pkg/evmclient"
	"github.com/hyperfill/intent-filler/pkg/fillerconfig"
	"github.com/hyperfill/intent-filler/pkg/fillerr"
	"github.com/hyperfill/intent-filler/pkg/fillstrategy"
	"github.com/hyperfill/intent-filler/pkg/metrics"
	"github.com/hyperfill/intent-filler/pkg/order"
	"github.com/hyperfill/intent-filler/pkg/registry"
)

// Status is an order's lifecycle state within the scheduler.
type Status int

const (
	StatusPending Status = iota
	StatusInFlight
	StatusDone
	StatusFailed
	StatusRejected
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInFlight:
		return "InFlight"
	case StatusDone:
		return "Done"
	case StatusFailed:
		return "Failed"
	case StatusRejected:
		return "Rejected"
	case StatusExpired:
		return "Expired"
	default:
		return "Unknown"
	}
}

// entry tracks one admitted order's scheduling state.
type entry struct {
	order       *order.Order
	commitment  common.Hash
	status      Status
	blockSeenAt uint64
	rechecks    int
	attempts    int
	readyAt     time.Time
	deadline    time.Time
	result      *fillstrategy.ExecutionResult
	lastErr     error
	pendingElem *list.Element
}

// FilledPublisher receives notification of a successful fill. Publishing
// OrderFilled onward (metrics, indexer cache invalidation) is an external
// collaborator; the scheduler only calls this hook once per Done order.
type FilledPublisher interface {
	PublishOrderFilled(ctx context.Context, commitment common.Hash, result fillstrategy.ExecutionResult)
}

// Scheduler is OrderScheduler.
type Scheduler struct {
	cfg        fillerconfig.FillerConfig
	clients    evmclient.Registry
	registry   registry.ChainRegistry
	strategies []*fillstrategy.Strategy
	publisher  FilledPublisher
	logger     *log.Logger
	metrics    *metrics.Registry

	mu       sync.Mutex
	pending  *list.List // of *entry, FIFO
	byCommit map[common.Hash]*entry
	stopped  bool

	sem chan struct{}
	wg  sync.WaitGroup
}

// New builds a Scheduler. strategies are tried in the given order for
// each InFlight order, per spec.md §4.7 step 3.
func New(cfg fillerconfig.FillerConfig, clients evmclient.Registry, reg registry.ChainRegistry, strategies []*fillstrategy.Strategy, publisher FilledPublisher) *Scheduler {
	maxConcurrent := cfg.MaxConcurrentOrders
	if maxConcurrent <= 0 {
		maxConcurrent = 16
	}
	return &Scheduler{
		cfg:        cfg,
		clients:    clients,
		registry:   reg,
		strategies: strategies,
		publisher:  publisher,
		logger:     fillerlog.New("Scheduler"),
		pending:    list.New(),
		byCommit:   make(map[common.Hash]*entry),
		sem:        make(chan struct{}, maxConcurrent),
	}
}

// Admit implements step 1 of the order lifecycle: validate shape and
// append to Pending, deduplicating by commitment.
func (s *Scheduler) Admit(ctx context.Context, ord *order.Order) error {
	if err := order.ValidateShape(ord); err != nil {
		return fillerr.New(fillerr.KindValidation, "admit", err)
	}
	commitment, err := order.Commitment(ord)
	if err != nil {
		return fillerr.New(fillerr.KindFatal, "admit", err)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fillerr.New(fillerr.KindFatal, "admit", ErrStopped)
	}
	if _, ok := s.byCommit[commitment]; ok {
		s.mu.Unlock()
		return nil // already tracked, per spec.md §4.7's dedup rule
	}
	s.mu.Unlock()

	destClient, err := s.clients.Client(ord.DestChain)
	if err != nil {
		return fillerr.New(fillerr.KindConfig, "admit", err)
	}
	blockSeenAt, err := destClient.LatestBlockNumber(ctx)
	if err != nil {
		return fillerr.New(fillerr.KindRPC, "admit", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return fillerr.New(fillerr.KindFatal, "admit", ErrStopped)
	}
	if _, ok := s.byCommit[commitment]; ok {
		return nil
	}

	e := &entry{
		order:       ord,
		commitment:  commitment,
		status:      StatusPending,
		blockSeenAt: blockSeenAt,
		readyAt:     time.Now(),
		deadline:    time.Unix(int64(ord.Deadline), 0),
		lastErr:     nil,
	}
	e.pendingElem = s.pending.PushBack(e)
	s.byCommit[commitment] = e
	if s.metrics != nil {
		s.metrics.OrdersAdmitted.WithLabelValues(ord.DestChain).Inc()
	}
	return nil
}

// ErrStopped is returned by Admit once Stop has been called.
var ErrStopped = errors.New("scheduler: stopped, refusing new admissions")

// SetMetrics attaches a metrics.Registry to report scheduler counters and
// gauges into. A nil Scheduler.metrics (the default) is a silent no-op.
func (s *Scheduler) SetMetrics(m *metrics.Registry) {
	s.metrics = m
}

// nativeOutputTotal sums an order's native-token outputs; used as the USD
// proxy ConfirmationPolicy interpolates against, matching FillStrategy's
// CalculateRequiredEthValue convention.
func nativeOutputTotal(ord *order.Order) *big.Int {
	total := big.NewInt(0)
	for _, out := range ord.Outputs {
		if order.IsNative(out.Token) {
			total = new(big.Int).Add(total, out.Amount)
		}
	}
	return total
}

// Run starts the Pending-queue poll loop. It blocks until ctx is
// cancelled or Stop is called, then returns after draining InFlight work.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PendingQueue.RecheckDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.drain()
			return ctx.Err()
		case <-ticker.C:
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				s.drain()
				return nil
			}
			s.pollOnce(ctx)
		}
	}
}

// Stop refuses further admissions and waits for InFlight tasks to finish,
// per spec.md §4.7's Cancellation clause.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.drain()
}

func (s *Scheduler) drain() {
	s.wg.Wait()
}

// pollOnce implements step 2: advance Pending orders whose confirmation
// target has been reached, expiring those that have rechecked too many
// times without advancing.
func (s *Scheduler) pollOnce(ctx context.Context) {
	s.mu.Lock()
	due := make([]*entry, 0, s.pending.Len())
	for el := s.pending.Front(); el != nil; el = el.Next() {
		due = append(due, el.Value.(*entry))
	}
	s.mu.Unlock()

	for _, e := range due {
		s.checkEntry(ctx, e)
	}

	if s.metrics != nil {
		s.metrics.PendingQueueSize.Set(float64(s.PendingLen()))
		s.metrics.InFlightOrders.Set(float64(s.InFlightCount()))
	}
}

func (s *Scheduler) checkEntry(ctx context.Context, e *entry) {
	if time.Now().Before(e.readyAt) {
		return
	}

	chainID, err := s.registry.ChainID(e.order.DestChain)
	if err != nil {
		s.logger.Printf("order %s: resolve chain id: %v", e.commitment, err)
		return
	}
	destClient, err := s.clients.Client(e.order.DestChain)
	if err != nil {
		s.logger.Printf("order %s: resolve client: %v", e.commitment, err)
		return
	}
	current, err := destClient.LatestBlockNumber(ctx)
	if err != nil {
		s.logger.Printf("order %s: latest block: %v", e.commitment, err)
		return
	}
	confirmations, err := s.cfg.ConfirmationPolicy.GetConfirmationBlocks(chainID, nativeOutputTotal(e.order))
	if err != nil {
		s.logger.Printf("order %s: confirmation policy: %v", e.commitment, err)
		return
	}

	if confirmationsSatisfied(current, e.blockSeenAt, confirmations) {
		s.advanceToInFlight(ctx, e)
		return
	}

	e.rechecks++
	if shouldExpire(e.rechecks, s.cfg.PendingQueue.MaxRechecks) {
		s.transitionTerminal(e, StatusExpired, nil)
	}
}

// confirmationsSatisfied reports whether current has advanced far enough
// past blockSeenAt to satisfy confirmations, per spec.md §4.7's Pending
// advance rule.
func confirmationsSatisfied(current, blockSeenAt uint64, confirmations uint32) bool {
	return current >= blockSeenAt+uint64(confirmations)
}

// shouldExpire reports whether an order that has rechecked rechecks times
// without advancing should be dropped as Expired.
func shouldExpire(rechecks, maxRechecks int) bool {
	return rechecks >= maxRechecks
}

func (s *Scheduler) advanceToInFlight(ctx context.Context, e *entry) {
	s.mu.Lock()
	if e.status != StatusPending {
		s.mu.Unlock()
		return
	}
	s.pending.Remove(e.pendingElem)
	e.pendingElem = nil
	e.status = StatusInFlight
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sem <- struct{}{}
		defer func() { <-s.sem }()
		s.runFill(ctx, e)
	}()
}

// runFill implements step 3-6: try strategies in order, route the outcome
// through the retry/reject/expire transition rules.
func (s *Scheduler) runFill(ctx context.Context, e *entry) {
	startedAt := time.Now()

	var chosen *fillstrategy.Strategy
	for _, strat := range s.strategies {
		ok, err := strat.CanFill(ctx, e.order)
		if err != nil {
			s.handleError(e, err)
			return
		}
		if ok {
			chosen = strat
			break
		}
	}
	if chosen == nil {
		s.transitionTerminal(e, StatusRejected, nil)
		return
	}

	result, err := chosen.Execute(ctx, e.order, startedAt)
	if err != nil {
		s.handleError(e, err)
		return
	}

	e.result = &result
	s.transitionTerminal(e, StatusDone, nil)
	if s.publisher != nil {
		s.publisher.PublishOrderFilled(ctx, e.commitment, result)
	}
}

// handleError implements steps 5-6: transient errors are re-enqueued to
// Pending (subject to maxAttempts and the order's own deadline), terminal
// errors Reject the order outright.
func (s *Scheduler) handleError(e *entry, err error) {
	kind := fillerr.KindOf(err)
	if !kind.Retriable() {
		s.transitionTerminal(e, StatusRejected, err)
		return
	}

	e.attempts++
	if e.attempts >= s.cfg.Retry.MaxAttempts || time.Now().After(e.deadline) {
		s.transitionTerminal(e, StatusFailed, err)
		return
	}

	backoff := s.cfg.Retry.InitialBackoff * time.Duration(1<<uint(e.attempts-1))
	s.mu.Lock()
	e.status = StatusPending
	e.rechecks = 0
	e.readyAt = time.Now().Add(backoff)
	e.pendingElem = s.pending.PushBack(e)
	s.mu.Unlock()
}

func (s *Scheduler) transitionTerminal(e *entry, status Status, err error) {
	s.mu.Lock()
	if e.pendingElem != nil {
		s.pending.Remove(e.pendingElem)
		e.pendingElem = nil
	}
	e.status = status
	e.lastErr = err
	s.mu.Unlock()

	if s.metrics == nil {
		return
	}
	destChain := e.order.DestChain
	s.metrics.FillLatency.WithLabelValues(destChain, status.String()).Observe(time.Since(e.readyAt).Seconds())
	switch status {
	case StatusDone:
		s.metrics.OrdersFilled.WithLabelValues(destChain).Inc()
	case StatusExpired:
		s.metrics.OrdersExpired.WithLabelValues(destChain).Inc()
	case StatusRejected:
		s.metrics.OrdersRejected.WithLabelValues(destChain, fillerr.KindOf(err).String()).Inc()
	}
}

// Status reports an admitted order's current lifecycle state.
func (s *Scheduler) Status(commitment common.Hash) (Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byCommit[commitment]
	if !ok {
		return StatusPending, false
	}
	return e.status, true
}

// PendingLen and InFlightCount expose queue depth for metrics wiring.
func (s *Scheduler) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Len()
}

// InFlightCount reports how many fill tasks currently hold a concurrency
// slot.
func (s *Scheduler) InFlightCount() int {
	return len(s.sem)
}
