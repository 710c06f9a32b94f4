// Package metrics exposes the filler's runtime state as Prometheus
// metrics, registered into a caller-supplied registry and served at
// /metrics on the HTTP mux cmd/filler builds.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric the filler's components report through.
// Components hold a reference to the fields they need rather than the
// whole Registry, keeping the dependency narrow at each call site.
type Registry struct {
	reg *prometheus.Registry

	OrdersAdmitted   *prometheus.CounterVec
	OrdersFilled     *prometheus.CounterVec
	OrdersRejected   *prometheus.CounterVec
	OrdersExpired    *prometheus.CounterVec
	FillLatency      *prometheus.HistogramVec
	PendingQueueSize prometheus.Gauge
	InFlightOrders   prometheus.Gauge

	CancellationsStarted   *prometheus.CounterVec
	CancellationsCompleted *prometheus.CounterVec
	CancellationMilestone  *prometheus.CounterVec

	StatusStreamEvents *prometheus.CounterVec
	StatusStreamErrors *prometheus.CounterVec
}

// New builds a Registry with every metric registered under the
// "hyperfill_filler" namespace.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,

		OrdersAdmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "scheduler",
			Name:      "orders_admitted_total",
			Help:      "Orders accepted into the scheduler's pending queue.",
		}, []string{"dest_chain"}),

		OrdersFilled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "scheduler",
			Name:      "orders_filled_total",
			Help:      "Orders that reached the Done state after a successful fill.",
		}, []string{"dest_chain"}),

		OrdersRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "scheduler",
			Name:      "orders_rejected_total",
			Help:      "Orders that reached the Rejected state on a non-retriable error.",
		}, []string{"dest_chain", "error_kind"}),

		OrdersExpired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "scheduler",
			Name:      "orders_expired_total",
			Help:      "Orders that exceeded their recheck budget while waiting in Pending.",
		}, []string{"dest_chain"}),

		FillLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "scheduler",
			Name:      "fill_latency_seconds",
			Help:      "Time from an order's admission, or from the end of its latest retry backoff, to its terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"dest_chain", "status"}),

		PendingQueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "scheduler",
			Name:      "pending_queue_size",
			Help:      "Current number of orders waiting in the Pending queue.",
		}),

		InFlightOrders: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "scheduler",
			Name:      "in_flight_orders",
			Help:      "Current number of orders executing a fill strategy.",
		}),

		CancellationsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "canceller",
			Name:      "runs_started_total",
			Help:      "Cancellation runs started, by path.",
		}, []string{"path"}),

		CancellationsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "canceller",
			Name:      "runs_completed_total",
			Help:      "Cancellation runs that reached MilestoneComplete.",
		}, []string{"path"}),

		CancellationMilestone: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "canceller",
			Name:      "milestones_total",
			Help:      "Cancellation milestones reached, by milestone name.",
		}, []string{"milestone"}),

		StatusStreamEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "statuspoll",
			Name:      "events_total",
			Help:      "Status events emitted by a commitment's status stream, by status.",
		}, []string{"status"}),

		StatusStreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hyperfill_filler",
			Subsystem: "statuspoll",
			Name:      "poll_errors_total",
			Help:      "Errors returned by the underlying status source during polling.",
		}, []string{}),
	}
}

// Handler returns the http.Handler to mount at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
