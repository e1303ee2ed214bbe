package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultSlowQueryThreshold flags statements slower than this when no
// threshold is configured
const DefaultSlowQueryThreshold = 200 * time.Millisecond

// DBMetrics holds the query collectors fed by DBMetricsPlugin
type DBMetrics struct {
	queries       *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	slowQueries   *prometheus.CounterVec
	slowThreshold time.Duration
}

// NewDBMetrics registers the query collectors on reg. When sqlDB is not nil
// its connection pool statistics are exported as well.
func NewDBMetrics(reg prometheus.Registerer, sqlDB *sql.DB, slowThreshold time.Duration) *DBMetrics {
	if slowThreshold <= 0 {
		slowThreshold = DefaultSlowQueryThreshold
	}
	factory := promauto.With(reg)
	m := &DBMetrics{
		queries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "queries_total",
			Help:      "Statements executed, by operation, table and outcome.",
		}, []string{"operation", "table", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Statement latency.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation", "table"}),
		slowQueries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "slow_queries_total",
			Help:      "Statements slower than the slow query threshold.",
		}, []string{"operation", "table"}),
		slowThreshold: slowThreshold,
	}
	if sqlDB != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(sqlDB, metricsNamespace))
	}
	return m
}

// RecordQuery records one statement. A missing row is not an error.
func (m *DBMetrics) RecordQuery(operation, table string, duration time.Duration, err error) {
	if table == "" {
		table = "unknown"
	}
	status := "ok"
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		status = "error"
	}

	m.queries.WithLabelValues(operation, table, status).Inc()
	m.duration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if duration >= m.slowThreshold {
		m.slowQueries.WithLabelValues(operation, table).Inc()
	}
}

// DBMetricsPlugin is a GORM plugin that times every statement
type DBMetricsPlugin struct {
	metrics *DBMetrics
	logger  *zap.Logger
}

var _ gorm.Plugin = (*DBMetricsPlugin)(nil)

// NewDBMetricsPlugin creates a new GORM plugin for database metrics.
func NewDBMetricsPlugin(metrics *DBMetrics, logger *zap.Logger) *DBMetricsPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBMetricsPlugin{
		metrics: metrics,
		logger:  logger,
	}
}

// Name returns the plugin name.
func (p *DBMetricsPlugin) Name() string {
	return "db_metrics"
}

// Initialize registers the GORM callbacks for metrics collection.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	before := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, dbMetricsStartTimeKey, time.Now())
	}
	after := func(operation string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			op := operation
			if op == "" {
				op = detectOperationType(db.Statement.SQL.String())
			}
			p.record(db, op)
		}
	}

	cb := db.Callback()
	if err := cb.Create().Before("gorm:create").Register("db_metrics:before_create", before); err != nil {
		return err
	}
	if err := cb.Query().Before("gorm:query").Register("db_metrics:before_query", before); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("db_metrics:before_update", before); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("db_metrics:before_delete", before); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("db_metrics:before_row", before); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("db_metrics:before_raw", before); err != nil {
		return err
	}

	if err := cb.Create().After("gorm:create").Register("db_metrics:after_create", after("INSERT")); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("db_metrics:after_query", after("SELECT")); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("db_metrics:after_update", after("UPDATE")); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("db_metrics:after_delete", after("DELETE")); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("db_metrics:after_row", after("")); err != nil {
		return err
	}
	if err := cb.Raw().After("gorm:raw").Register("db_metrics:after_raw", after("")); err != nil {
		return err
	}

	p.logger.Info("Database metrics plugin initialized",
		zap.Duration("slow_query_threshold", p.metrics.slowThreshold))
	return nil
}

func (p *DBMetricsPlugin) record(db *gorm.DB, operation string) {
	var duration time.Duration
	if ctx := db.Statement.Context; ctx != nil {
		if start, ok := ctx.Value(dbMetricsStartTimeKey).(time.Time); ok {
			duration = time.Since(start)
		}
	}
	p.metrics.RecordQuery(operation, db.Statement.Table, duration, db.Error)
}

// detectOperationType attempts to detect the SQL operation type from the query.
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))

	switch {
	case strings.HasPrefix(sql, "SELECT"):
		return "SELECT"
	case strings.HasPrefix(sql, "INSERT"):
		return "INSERT"
	case strings.HasPrefix(sql, "UPDATE"):
		return "UPDATE"
	case strings.HasPrefix(sql, "DELETE"):
		return "DELETE"
	default:
		return "OTHER"
	}
}

type dbMetricsContextKey string

const dbMetricsStartTimeKey dbMetricsContextKey = "db_metrics_start_time"

// RegisterDBMetrics creates the database collectors on reg and installs the
// plugin on db.
func RegisterDBMetrics(db *gorm.DB, reg prometheus.Registerer, slowThreshold time.Duration, logger *zap.Logger) (*DBMetrics, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	metrics := NewDBMetrics(reg, sqlDB, slowThreshold)
	if err := db.Use(NewDBMetricsPlugin(metrics, logger)); err != nil {
		return nil, err
	}
	return metrics, nil
}
