package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "catalogsync"
)

// Ingest results used as label values
const (
	ResultApplied    = "applied"
	ResultSuperseded = "superseded"
	ResultSkipped    = "skipped"
)

// Metrics holds all Prometheus metrics of one sync instance.
// All record methods are safe on a nil receiver
type Metrics struct {
	// Write path
	OpsWritten    prometheus.Counter
	WriteDuration prometheus.Histogram
	WriteErrors   prometheus.Counter

	// Ingest path
	OpsIngested    *prometheus.CounterVec
	BatchDuration  prometheus.Histogram
	ActorRestarts  prometheus.Counter
	ProtocolErrors prometheus.Counter
	RequestsServed *prometheus.CounterVec

	// Notification bus
	NotificationsDropped *prometheus.CounterVec

	// Cloud bridge
	CloudCycles prometheus.Counter
	CloudOps    prometheus.Counter
}

// New creates a new Metrics instance with all collectors registered in reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OpsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ops_written_total",
			Help:      "Total number of operations written locally",
		}),
		WriteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "write_duration_seconds",
			Help:      "Duration of atomic operation writes in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		WriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_errors_total",
			Help:      "Total number of failed operation writes",
		}),
		OpsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ops_ingested_total",
			Help:      "Total number of remote operations processed by result",
		}, []string{"result"}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_batch_duration_seconds",
			Help:      "Duration of ingest batch transactions in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		ActorRestarts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_actor_restarts_total",
			Help:      "Total number of ingest actor restarts after a failure",
		}),
		ProtocolErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_protocol_errors_total",
			Help:      "Total number of unexpected ingest events",
		}),
		RequestsServed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "get_ops_requests_total",
			Help:      "Total number of operation range requests served by log",
		}, []string{"log"}),
		NotificationsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Total number of notifications dropped for slow subscribers",
		}, []string{"kind"}),
		CloudCycles: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cloud_ingest_cycles_total",
			Help:      "Total number of completed cloud ingest cycles",
		}),
		CloudOps: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cloud_ops_mirrored_total",
			Help:      "Total number of operations mirrored from the cloud relay",
		}),
	}
}

// RecordWrite records one Manager write of n operations
func (m *Metrics) RecordWrite(n int, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.WriteDuration.Observe(d.Seconds())
	if err != nil {
		m.WriteErrors.Inc()
		return
	}
	m.OpsWritten.Add(float64(n))
}

// RecordBatch records one applied ingest batch
func (m *Metrics) RecordBatch(applied, superseded, skipped int, d time.Duration) {
	if m == nil {
		return
	}
	m.BatchDuration.Observe(d.Seconds())
	m.OpsIngested.WithLabelValues(ResultApplied).Add(float64(applied))
	m.OpsIngested.WithLabelValues(ResultSuperseded).Add(float64(superseded))
	m.OpsIngested.WithLabelValues(ResultSkipped).Add(float64(skipped))
}

// RecordProtocolError records an unexpected ingest event
func (m *Metrics) RecordProtocolError() {
	if m == nil {
		return
	}
	m.ProtocolErrors.Inc()
}

// RecordRestart records an ingest actor restart
func (m *Metrics) RecordRestart() {
	if m == nil {
		return
	}
	m.ActorRestarts.Inc()
}

// RecordRequest records a served GetOps / GetCloudOps request
func (m *Metrics) RecordRequest(log string) {
	if m == nil {
		return
	}
	m.RequestsServed.WithLabelValues(log).Inc()
}

// RecordDropped records notifications a subscriber did not receive
func (m *Metrics) RecordDropped(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.NotificationsDropped.WithLabelValues(kind).Add(float64(n))
}

// RecordCloudCycle records a finished cloud ingest cycle
func (m *Metrics) RecordCloudCycle() {
	if m == nil {
		return
	}
	m.CloudCycles.Inc()
}

// RecordMirrored records operations stored from the cloud relay
func (m *Metrics) RecordMirrored(n int) {
	if m == nil {
		return
	}
	m.CloudOps.Add(float64(n))
}
