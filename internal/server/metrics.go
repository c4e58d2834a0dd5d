package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/docnorm/internal/ocr"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docnorm_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docnorm_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	normalizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docnorm_normalize_total",
			Help: "Documents normalized, by outcome",
		},
		[]string{"status"},
	)

	normalizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docnorm_normalize_duration_seconds",
			Help:    "Time spent decoding, detecting corners and rectifying",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	engineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docnorm_engine_runs_total",
			Help: "Recognition engine runs, by engine and outcome",
		},
		[]string{"engine", "status"},
	)

	engineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docnorm_engine_duration_seconds",
			Help:    "Recognition engine run duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 60},
		},
		[]string{"engine"},
	)

	engineFieldsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docnorm_engine_fields_total",
			Help: "Fields sent to each recognition engine",
		},
		[]string{"engine"},
	)

	engineCostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docnorm_engine_cost_total",
			Help: "Accumulated recognition cost in currency units",
		},
		[]string{"engine"},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docnorm_rate_limit_hits_total",
			Help: "Requests rejected by the per-client limiter",
		},
		[]string{"kind"},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docnorm_upload_size_bytes",
			Help:    "Size of uploaded documents in bytes",
			Buckets: []float64{10 << 10, 100 << 10, 1 << 20, 5 << 20, 10 << 20, 50 << 20},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docnorm_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docnorm_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"},
	)
)

// MetricsObserver records dispatcher engine runs into the docnorm_engine_*
// metrics.
type MetricsObserver struct{}

var _ ocr.Observer = MetricsObserver{}

func (MetricsObserver) ObserveEngine(engine string, fieldCount int, price float64, elapsed time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	engineRunsTotal.WithLabelValues(engine, status).Inc()
	engineDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
	engineFieldsTotal.WithLabelValues(engine).Add(float64(fieldCount))
	if price > 0 {
		engineCostTotal.WithLabelValues(engine).Add(price)
	}
}

func observeNormalize(start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	normalizeTotal.WithLabelValues(status).Inc()
	normalizeDuration.Observe(time.Since(start).Seconds())
}
