package metrics

import (
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// All methods are non-blocking and fire-and-forget.
// Registration errors are logged but never propagated.
type PrometheusSink struct {
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	filesInBatch     prometheus.Gauge
	filesTotal       *prometheus.CounterVec
	fileDuration     prometheus.Histogram
	retriesTotal     *prometheus.CounterVec
	breakerTrips     prometheus.Counter
	checkpointsTotal *prometheus.CounterVec
}

// NewPrometheusSink creates a new Prometheus metrics sink.
// Metrics that fail to register become silent no-ops for that series.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchprocessor_runs_total",
			Help: "Total number of batch runs by terminal status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batchprocessor_run_duration_seconds",
			Help:    "Wall-clock duration of batch runs in seconds.",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800},
		}),
		filesInBatch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "batchprocessor_batch_files",
			Help: "Number of candidate files in the current batch.",
		}),
		filesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchprocessor_files_processed_total",
			Help: "Total number of files processed by terminal status.",
		}, []string{"status"}),
		fileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "batchprocessor_file_duration_seconds",
			Help:    "Per-file processing time in seconds, including retries.",
			Buckets: []float64{10, 30, 60, 120, 300, 600, 1200, 2400},
		}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchprocessor_retry_attempts_total",
			Help: "Total number of retry attempts (excludes first attempt).",
		}, []string{"retryable"}),
		breakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "batchprocessor_circuit_breaker_trips_total",
			Help: "Total number of circuit breaker open events.",
		}),
		checkpointsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "batchprocessor_checkpoint_writes_total",
			Help: "Total number of checkpoint writes by result.",
		}, []string{"result"}),
	}

	register(reg, s.runsTotal, "batchprocessor_runs_total")
	register(reg, s.runDuration, "batchprocessor_run_duration_seconds")
	register(reg, s.filesInBatch, "batchprocessor_batch_files")
	register(reg, s.filesTotal, "batchprocessor_files_processed_total")
	register(reg, s.fileDuration, "batchprocessor_file_duration_seconds")
	register(reg, s.retriesTotal, "batchprocessor_retry_attempts_total")
	register(reg, s.breakerTrips, "batchprocessor_circuit_breaker_trips_total")
	register(reg, s.checkpointsTotal, "batchprocessor_checkpoint_writes_total")
	return s
}

// register attempts to register a collector, logging any errors without propagating them.
func register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		log.Printf("metrics: failed to register %s: %v", name, err)
	}
}

func (s *PrometheusSink) BatchStarted(totalFiles int) {
	s.filesInBatch.Set(float64(totalFiles))
}

func (s *PrometheusSink) BatchCompleted(status string, d time.Duration) {
	s.runsTotal.WithLabelValues(status).Inc()
	s.runDuration.Observe(d.Seconds())
}

func (s *PrometheusSink) FileProcessed(status string, d time.Duration) {
	s.filesTotal.WithLabelValues(status).Inc()
	s.fileDuration.Observe(d.Seconds())
}

func (s *PrometheusSink) RetryAttempt(retryable bool) {
	label := "false"
	if retryable {
		label = "true"
	}
	s.retriesTotal.WithLabelValues(label).Inc()
}

func (s *PrometheusSink) CircuitBreakerTrip() {
	s.breakerTrips.Inc()
}

func (s *PrometheusSink) CheckpointWritten(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	s.checkpointsTotal.WithLabelValues(result).Inc()
}
