package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce        sync.Once
	httpRequestsTotal   *prometheus.CounterVec
	httpLatencySeconds  *prometheus.HistogramVec
	jobsTotal           *prometheus.CounterVec
	jobDurationSeconds  *prometheus.HistogramVec
	jobsInFlight        prometheus.Gauge
	jobItemsTotal       *prometheus.CounterVec
	webhookDeliveries   *prometheus.CounterVec
	sinkWritesTotal     *prometheus.CounterVec
	diagnosticsRecorded *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and workers.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eval_http_requests_total",
			Help: "Total number of evaluation API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eval_http_latency_seconds",
			Help:    "Latency distribution for evaluation API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eval_jobs_total",
			Help: "Evaluation jobs by lifecycle outcome.",
		}, []string{"status"})

		jobDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eval_job_duration_seconds",
			Help:    "Wall-clock duration of evaluation jobs.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"status"})

		jobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eval_jobs_in_flight",
			Help: "Evaluation jobs currently running.",
		})

		jobItemsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eval_items_total",
			Help: "Evaluated items by verdict.",
		}, []string{"verdict"})

		webhookDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eval_webhook_deliveries_total",
			Help: "Completion webhook attempts by result.",
		}, []string{"result"})

		sinkWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eval_sink_writes_total",
			Help: "Result sink writes by sink and result.",
		}, []string{"sink", "result"})

		diagnosticsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eval_diagnostics_total",
			Help: "Non-fatal diagnostics recorded while evaluating.",
		}, []string{"kind"})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds,
			jobsTotal, jobDurationSeconds, jobsInFlight, jobItemsTotal,
			webhookDeliveries, sinkWritesTotal, diagnosticsRecorded,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// Jobs counts job lifecycle events.
func Jobs() *prometheus.CounterVec {
	RegisterMetrics()
	return jobsTotal
}

func JobDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return jobDurationSeconds
}

func JobsInFlight() prometheus.Gauge {
	RegisterMetrics()
	return jobsInFlight
}

func Items() *prometheus.CounterVec {
	RegisterMetrics()
	return jobItemsTotal
}

func WebhookDeliveries() *prometheus.CounterVec {
	RegisterMetrics()
	return webhookDeliveries
}

func SinkWrites() *prometheus.CounterVec {
	RegisterMetrics()
	return sinkWritesTotal
}

func Diagnostics() *prometheus.CounterVec {
	RegisterMetrics()
	return diagnosticsRecorded
}
