package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeKo-Tech/docscan/internal/pipeline"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscan_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docscan_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscan_scans_total",
			Help: "Total number of scans by output mode and outcome",
		},
		[]string{"mode", "outcome"}, // outcome: ok, fallback, error
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docscan_scan_duration_seconds",
			Help:    "Scan duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)

	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscan_fallbacks_total",
			Help: "Total number of recovered scan failures",
		},
		[]string{"kind"}, // kind: default_corners, identity
	)

	activeScans = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docscan_active_scans",
			Help: "Number of scans currently holding a processing slot",
		},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscan_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: requests_per_minute, data_per_day
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docscan_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{10 * 1024, 100 * 1024, 512 * 1024, 1024 * 1024, 5 * 1024 * 1024, 10 * 1024 * 1024, 20 * 1024 * 1024},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docscan_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docscan_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)

// metricsObserver feeds scanner outcomes into the collectors above.
type metricsObserver struct{}

func (metricsObserver) ScanFinished(mode pipeline.Mode, outcome string, elapsed time.Duration) {
	scansTotal.WithLabelValues(string(mode), outcome).Inc()
	scanDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
}

func (metricsObserver) FallbackTaken(kind string) {
	fallbacksTotal.WithLabelValues(kind).Inc()
}
