package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics of the assistant pipeline
type Metrics struct {
	// Pipeline metrics
	Runs           *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	StageFailures  *prometheus.CounterVec
	WriteFallbacks prometheus.Counter
	OutputFiles    prometheus.Counter

	// Benchmark metrics
	BenchmarkStageSeconds *prometheus.GaugeVec
	BenchmarkMemoryMB     *prometheus.GaugeVec

	// HTTP API metrics
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kidsgpt_runs_total",
			Help: "Total number of assistant runs by final status",
		}, []string{"status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kidsgpt_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		StageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kidsgpt_stage_failures_total",
			Help: "Total number of failed pipeline stages",
		}, []string{"stage"}),
		WriteFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "kidsgpt_write_fallbacks_total",
			Help: "Total number of audio writes that needed the unmodified-layout fallback",
		}),
		OutputFiles: factory.NewCounter(prometheus.CounterOpts{
			Name: "kidsgpt_output_files_total",
			Help: "Total number of audio files written",
		}),

		BenchmarkStageSeconds: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kidsgpt_benchmark_stage_seconds",
			Help: "Latency of the last benchmark run per stage",
		}, []string{"model", "stage"}),
		BenchmarkMemoryMB: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kidsgpt_benchmark_memory_mb",
			Help: "Resident memory delta of the last benchmark run",
		}, []string{"model", "phase"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kidsgpt_http_requests_total",
			Help: "Total number of HTTP API requests",
		}, []string{"route", "status"}),
	}
}
