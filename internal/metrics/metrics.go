// ABOUTME: Prometheus collectors for chat outcomes, pipeline stages, ingestion and HTTP traffic
// ABOUTME: Metrics implements core.Observer so core code stays free of Prometheus types
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/harper/folio/internal/models"
)

const namespace = "folio"

// Metrics holds every collector the service exports
type Metrics struct {
	chatReplies   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	ingestRuns    prometheus.Counter
	ingestChunks  *prometheus.CounterVec
	ingestDocs    prometheus.Gauge

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		chatReplies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_replies_total",
			Help:      "Chat requests by outcome (ok, not_configured, unavailable)",
		}, []string{"outcome"}),

		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rag_stage_duration_seconds",
			Help:      "Duration of each RAG pipeline stage",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}, []string{"stage", "status"}),

		ingestRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_runs_total",
			Help:      "Completed ingestion runs",
		}),

		ingestChunks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunks added or deleted, and documents skipped, across ingestion runs",
		}, []string{"action"}),

		ingestDocs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_documents",
			Help:      "Documents found by the most recent ingestion run",
		}),

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "path", "status"}),

		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// RegisterSessionGauge exports the live session count reported by count
func RegisterSessionGauge(reg prometheus.Registerer, count func() int) {
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Chat sessions currently held in memory",
	}, func() float64 { return float64(count()) })
}

// ObserveStage records one pipeline stage
func (m *Metrics) ObserveStage(stage string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// ObserveChat counts one chat request outcome
func (m *Metrics) ObserveChat(outcome string) {
	m.chatReplies.WithLabelValues(outcome).Inc()
}

// ObserveIngest records the totals of one ingestion run
func (m *Metrics) ObserveIngest(stats models.IngestStats) {
	m.ingestRuns.Inc()
	m.ingestDocs.Set(float64(stats.Documents))
	m.ingestChunks.WithLabelValues("added").Add(float64(stats.Added))
	m.ingestChunks.WithLabelValues("deleted").Add(float64(stats.Deleted))
	m.ingestChunks.WithLabelValues("skipped").Add(float64(stats.Skipped))
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
