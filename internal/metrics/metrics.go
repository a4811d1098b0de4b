package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Booth metrics
	photosCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_photos_created_total",
			Help: "Total number of photos placed on the desk, by source",
		},
		[]string{"source"},
	)

	enrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_smart_crop_total",
			Help: "Smart-crop attempts by outcome",
		},
		[]string{"outcome"},
	)

	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_ai_requests_total",
			Help: "User-initiated AI requests by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booth_exports_total",
			Help: "Desk exports by outcome",
		},
		[]string{"outcome"},
	)

	exportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booth_export_duration_seconds",
			Help:    "Time spent rasterizing and storing a desk export",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	wsClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booth_ws_clients",
			Help: "Connected live-update clients",
		},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordPhotoCreated counts a new photo. source is camera or upload.
func RecordPhotoCreated(source string) {
	photosCreatedTotal.WithLabelValues(source).Inc()
}

// RecordEnrichment counts a smart-crop outcome: applied, failed or dropped.
func RecordEnrichment(outcome string) {
	enrichmentsTotal.WithLabelValues(outcome).Inc()
}

// RecordAIRequest counts a caption or remix request.
func RecordAIRequest(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	aiRequestsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordExport counts an export and its duration.
func RecordExport(err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	exportsTotal.WithLabelValues(outcome).Inc()
	exportDuration.Observe(duration.Seconds())
}

// SetWSClients sets the number of live-update clients.
func SetWSClients(n int) {
	wsClients.Set(float64(n))
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
