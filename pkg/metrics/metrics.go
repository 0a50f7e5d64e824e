// Package metrics exposes the runtime's Prometheus surface: executor load,
// mailbox depth, netcore connection counts, and test-harness throughput.
// Grounded on pkg/observability/prometheus's registry/promauto shape,
// reduced to the gauges and counters this runtime's own components
// actually produce.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/coactor/machine/pkg/concurrency"
)

// DefaultRegistry is the registry every package-level helper registers
// against unless a caller supplies its own via NewMetrics.
var DefaultRegistry = prometheus.NewRegistry()

// DefaultRegisterer labels every metric registered through it with
// service="machine", mirroring the teacher's WrapRegistererWith convention.
var DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "machine"}, DefaultRegistry)

var (
	once    sync.Once
	metrics *Metrics
)

// Metrics holds every gauge/counter this runtime publishes.
type Metrics struct {
	ExecutorQueuedTasks    *prometheus.GaugeVec
	ExecutorCompletedTotal *prometheus.CounterVec
	ExecutorRejectedTotal  *prometheus.CounterVec

	MailboxDepth prometheus.Gauge

	NetCoreConnections prometheus.Gauge
	NetCoreBytesTotal  *prometheus.CounterVec

	ForwarderMessagesTotal prometheus.Counter
}

// NewMetrics constructs a Metrics bound to registerer (DefaultRegisterer if
// nil), independent of the package-level singleton -- useful for tests
// that want an isolated registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}
	return &Metrics{
		ExecutorQueuedTasks: promauto.With(registerer).NewGaugeVec(prometheus.GaugeOpts{
			Name: "executor_queued_tasks",
			Help: "Tasks currently running on an executor.",
		}, []string{"executor"}),
		ExecutorCompletedTotal: promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
			Name: "executor_completed_tasks_total",
			Help: "Tasks an executor has finished running.",
		}, []string{"executor"}),
		ExecutorRejectedTotal: promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
			Name: "executor_rejected_tasks_total",
			Help: "Tasks an executor refused because it was at capacity.",
		}, []string{"executor"}),
		MailboxDepth: promauto.With(registerer).NewGauge(prometheus.GaugeOpts{
			Name: "mailbox_depth",
			Help: "Aggregate queued items across sampled mailboxes.",
		}),
		NetCoreConnections: promauto.With(registerer).NewGauge(prometheus.GaugeOpts{
			Name: "netcore_connections",
			Help: "Connections currently owned by the network core.",
		}),
		NetCoreBytesTotal: promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
			Name: "netcore_bytes_total",
			Help: "Bytes moved through the network core, by direction.",
		}, []string{"direction"}),
		ForwarderMessagesTotal: promauto.With(registerer).NewCounter(prometheus.CounterOpts{
			Name: "testharness_forwarder_messages_total",
			Help: "Messages processed by test-harness Forwarder actors.",
		}),
	}
}

// Default returns the process-wide Metrics singleton, constructing it
// against DefaultRegisterer on first use.
func Default() *Metrics {
	once.Do(func() { metrics = NewMetrics(DefaultRegisterer) })
	return metrics
}

// ObserveExecutor records one Executor's point-in-time stats under label
// name (e.g. its index in an ExecutorPool).
func (m *Metrics) ObserveExecutor(name string, stats concurrency.ExecutorStats) {
	m.ExecutorQueuedTasks.WithLabelValues(name).Set(float64(stats.QueuedTasks))
	m.ExecutorCompletedTotal.WithLabelValues(name).Add(0) // ensure the series exists even at zero
	m.ExecutorRejectedTotal.WithLabelValues(name).Add(0)
}

// RecordNetCoreBytes adds n bytes moved in the given direction ("recv" or
// "send") to the running total.
func (m *Metrics) RecordNetCoreBytes(direction string, n int) {
	m.NetCoreBytesTotal.WithLabelValues(direction).Add(float64(n))
}
