// Package metrics exposes Prometheus collectors for retrieval, ingestion
// and the HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	MetricRetrievalsTotal     = "factrank_retrievals_total"
	MetricRetrievalDuration   = "factrank_retrieval_duration_seconds"
	MetricRetrievalCandidates = "factrank_retrieval_candidates"
	MetricSourceErrorsTotal   = "factrank_source_errors_total"
	MetricDegradedTotal       = "factrank_degraded_total"
	MetricIngestParagraphs    = "factrank_ingest_paragraphs_total"
	MetricIngestPagesTotal    = "factrank_ingest_pages_total"
	MetricHTTPRequestsTotal   = "factrank_http_requests_total"
	MetricHTTPRequestDuration = "factrank_http_request_duration_seconds"
)

// Label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	ParagraphAdded     = "added"
	ParagraphDuplicate = "duplicate"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	retrievals      *prometheus.CounterVec
	retrievalTime   prometheus.Histogram
	candidates      prometheus.Histogram
	sourceErrors    *prometheus.CounterVec
	degraded        *prometheus.CounterVec
	ingestParas     *prometheus.CounterVec
	ingestPages     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

// NewMetrics creates unregistered collectors; call Register to expose them
func NewMetrics() *Metrics {
	return &Metrics{
		retrievals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRetrievalsTotal,
				Help: "Total number of retrievals by status",
			},
			[]string{"status"},
		),
		retrievalTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRetrievalDuration,
				Help:    "Retrieval latency in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
		candidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRetrievalCandidates,
				Help:    "Merged candidate count per retrieval",
				Buckets: prometheus.ExponentialBuckets(1, 2, 9),
			},
		),
		sourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSourceErrorsTotal,
				Help: "Failed or timed out source calls by source",
			},
			[]string{"source"},
		),
		degraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricDegradedTotal,
				Help: "Retrievals where an optional subsystem failed and its fallback was used",
			},
			[]string{"subsystem"},
		),
		ingestParas: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricIngestParagraphs,
				Help: "Ingested paragraphs by outcome",
			},
			[]string{"outcome"},
		),
		ingestPages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricIngestPagesTotal,
				Help: "Ingested pages by status",
			},
			[]string{"status"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricHTTPRequestsTotal,
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricHTTPRequestDuration,
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"method", "path"},
		),
	}
}

// Register registers all collectors with reg
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns every collector
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.retrievals,
		m.retrievalTime,
		m.candidates,
		m.sourceErrors,
		m.degraded,
		m.ingestParas,
		m.ingestPages,
		m.httpRequests,
		m.httpRequestTime,
	}
}

// ObserveRetrieval records one finished retrieval
func (m *Metrics) ObserveRetrieval(status string, seconds float64, candidates int) {
	if m == nil {
		return
	}
	m.retrievals.WithLabelValues(status).Inc()
	m.retrievalTime.Observe(seconds)
	m.candidates.Observe(float64(candidates))
}

// IncSourceError counts a failed source call
func (m *Metrics) IncSourceError(source string) {
	if m == nil {
		return
	}
	m.sourceErrors.WithLabelValues(source).Inc()
}

// IncDegraded counts a fallback taken after a subsystem failure
func (m *Metrics) IncDegraded(subsystem string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(subsystem).Inc()
}

// AddIngestParagraphs counts paragraphs by outcome (ParagraphAdded, ParagraphDuplicate)
func (m *Metrics) AddIngestParagraphs(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ingestParas.WithLabelValues(outcome).Add(float64(n))
}

// IncIngestPage counts an ingested page by status
func (m *Metrics) IncIngestPage(status string) {
	if m == nil {
		return
	}
	m.ingestPages.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest records one API request
func (m *Metrics) ObserveHTTPRequest(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, status).Inc()
	m.httpRequestTime.WithLabelValues(method, path).Observe(seconds)
}
