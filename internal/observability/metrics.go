package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suppbot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suppbot_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suppbot_chat_requests_total",
			Help: "Total number of chat pipeline invocations by routed intent.",
		},
		[]string{"intent"},
	)

	pipelineStageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suppbot_pipeline_stage_duration_seconds",
			Help:    "Latency of individual pipeline stages.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)

	sqlExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suppbot_sql_executions_total",
			Help: "Total number of generated-SQL executions by outcome (ok, empty, error).",
		},
		[]string{"outcome"},
	)

	formatterFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "suppbot_formatter_fallbacks_total",
			Help: "Total number of formatter outputs that failed shape validation and were wrapped as text.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		chatRequestsTotal,
		pipelineStageDurationSeconds,
		sqlExecutionsTotal,
		formatterFallbacksTotal,
	)
}

func ObserveChatRequest(intent string) {
	chatRequestsTotal.WithLabelValues(intent).Inc()
}

func ObserveStage(stage string, d time.Duration) {
	pipelineStageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func ObserveSQLExecution(outcome string) {
	sqlExecutionsTotal.WithLabelValues(outcome).Inc()
}

func ObserveFormatterFallback() {
	formatterFallbacksTotal.Inc()
}
