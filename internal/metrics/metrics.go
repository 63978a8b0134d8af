package metrics

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"pmtrack-backend/internal/model"
)

const (
	metricPrefix = "pmtrack_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	mutationTotal *prometheus.CounterVec

	importTotal   *prometheus.CounterVec
	importRows    prometheus.Counter
	importLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers the service metrics and, when db is set, gauges backed by the
// machine_records table.
func Init(db *gorm.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		mutationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "record_mutations_total",
				Help: "Record mutations by operation and result",
			},
			[]string{"op", "result"},
		)

		importTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "imports_total",
				Help: "Spreadsheet imports by result",
			},
			[]string{"result"},
		)
		importRows = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_rows_total",
				Help: "Rows committed by successful imports",
			},
		)
		importLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "import_latency_seconds",
				Help:    "Import latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "exports_total",
				Help: "Report exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			mutationTotal,
			importTotal,
			importRows,
			importLatency,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

func registerDBMetrics(db *gorm.DB, logger *log.Logger) {
	for _, status := range []model.PMStatus{model.StatusOutstanding, model.StatusDone} {
		status := status
		prometheus.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name:        metricPrefix + "machines",
				Help:        "Machine records by PM status",
				ConstLabels: prometheus.Labels{"status": string(status)},
			},
			func() float64 {
				return countByStatus(db, logger, status)
			},
		))
	}
}

func countByStatus(db *gorm.DB, logger *log.Logger, status model.PMStatus) float64 {
	var count int64
	if err := db.Model(&model.MachineRecord{}).Where("status = ?", status).Count(&count).Error; err != nil {
		if logger != nil {
			logger.Printf("metrics count query failed: %v", err)
		}
		return 0
	}
	return float64(count)
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// IncMutation counts one create/edit/lifecycle/delete call.
func IncMutation(op string, err error) {
	if op == "" {
		op = "unknown"
	}
	if mutationTotal != nil {
		mutationTotal.WithLabelValues(op, resultOf(err)).Inc()
	}
}

// ObserveImport records an import attempt.
func ObserveImport(rows int, err error, duration time.Duration) {
	result := resultOf(err)
	if importTotal != nil {
		importTotal.WithLabelValues(result).Inc()
	}
	if importRows != nil && err == nil {
		importRows.Add(float64(rows))
	}
	if importLatency != nil {
		importLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format string, err error, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	result := resultOf(err)
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}
