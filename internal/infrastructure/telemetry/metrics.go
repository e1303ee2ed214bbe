package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "orgmap"

// Row outcomes reported by ImportMetrics
const (
	RowOutcomeInserted = "inserted"
	RowOutcomeSkipped  = "skipped"
	RowOutcomeError    = "error"
	RowOutcomeDropped  = "dropped"
)

// UploadObservation is the outcome of one catalog upload
type UploadObservation struct {
	Entity   string
	Status   string
	Inserted int
	Skipped  int
	Errors   int
	Dropped  int
	Elapsed  time.Duration
}

// ImportMetrics exposes upload counters and latencies. A nil *ImportMetrics
// records nothing.
type ImportMetrics struct {
	uploads     *prometheus.CounterVec
	rows        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	parseErrors *prometheus.CounterVec
	duplicates  prometheus.Counter
}

// NewImportMetrics registers the import collectors on reg
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	factory := promauto.With(reg)
	return &ImportMetrics{
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "import",
			Name:      "uploads_total",
			Help:      "Catalog uploads processed, by entity and final status.",
		}, []string{"entity", "status"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Rows seen in catalog uploads, by entity and outcome.",
		}, []string{"entity", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Time spent processing a catalog upload.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"entity"}),
		parseErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "import",
			Name:      "grade_parse_errors_total",
			Help:      "Grade notations that could not be expanded.",
		}, []string{"entity"}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "import",
			Name:      "duplicate_uploads_total",
			Help:      "Uploads rejected because their Idempotency-Key was already used.",
		}),
	}
}

// ObserveUpload records the outcome of an upload
func (m *ImportMetrics) ObserveUpload(o UploadObservation) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(o.Entity, o.Status).Inc()
	m.rows.WithLabelValues(o.Entity, RowOutcomeInserted).Add(float64(o.Inserted))
	m.rows.WithLabelValues(o.Entity, RowOutcomeSkipped).Add(float64(o.Skipped))
	m.rows.WithLabelValues(o.Entity, RowOutcomeError).Add(float64(o.Errors))
	m.rows.WithLabelValues(o.Entity, RowOutcomeDropped).Add(float64(o.Dropped))
	m.duration.WithLabelValues(o.Entity).Observe(o.Elapsed.Seconds())
}

// ObserveGradeParseErrors counts notations that failed to expand
func (m *ImportMetrics) ObserveGradeParseErrors(entity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.parseErrors.WithLabelValues(entity).Add(float64(n))
}

// ObserveDuplicateUpload counts an upload rejected by the idempotency guard
func (m *ImportMetrics) ObserveDuplicateUpload() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}

// NewRegistry returns a registry carrying the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
