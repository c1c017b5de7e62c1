package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradewire_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradewire_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Signal pipeline metrics
	signalsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tradewire_signals_received_total",
			Help: "Total number of webhook alerts that passed authentication",
		},
	)

	signalsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradewire_signals_relayed_total",
			Help: "Total number of relay attempts to Telegram",
		},
		[]string{"status"}, // delivered, failed
	)

	signalsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tradewire_signals_suppressed_total",
			Help: "Total number of duplicate alerts suppressed before delivery",
		},
	)

	telegramDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradewire_telegram_api_duration_seconds",
			Help:    "Telegram sendMessage round-trip duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
	)

	// Stream metrics
	streamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradewire_stream_clients",
			Help: "Number of connected live-feed WebSocket clients",
		},
	)

	// Journal metrics
	journalErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tradewire_journal_errors_total",
			Help: "Total number of delivery journal write failures",
		},
	)

	// Redis metrics
	redisOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradewire_redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation"}, // dedup_setnx
	)

	// Heartbeat metrics
	heartbeatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradewire_heartbeats_total",
			Help: "Total number of periodic status reports",
		},
		[]string{"status"}, // delivered, failed
	)
)

// PrometheusMiddleware creates a Fiber middleware for Prometheus metrics
func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Process request
		err := c.Next()

		// Record metrics
		duration := time.Since(start).Seconds()
		method := c.Method()
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		statusCode := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// IncrementSignalReceived counts an authenticated webhook alert
func IncrementSignalReceived() {
	signalsReceived.Inc()
}

// RecordSignalRelayed counts a relay attempt by outcome
func RecordSignalRelayed(status string) {
	signalsRelayed.WithLabelValues(status).Inc()
}

// IncrementSignalSuppressed counts a duplicate alert dropped by dedup
func IncrementSignalSuppressed() {
	signalsSuppressed.Inc()
}

// ObserveTelegramDuration records one sendMessage round trip
func ObserveTelegramDuration(d time.Duration) {
	telegramDuration.Observe(d.Seconds())
}

// UpdateStreamClients updates the live-feed client gauge
func UpdateStreamClients(count int) {
	streamClients.Set(float64(count))
}

// IncrementJournalError counts a failed journal write
func IncrementJournalError() {
	journalErrors.Inc()
}

// IncrementRedisOperation increments Redis operation counter
func IncrementRedisOperation(operation string) {
	redisOperationsTotal.WithLabelValues(operation).Inc()
}

// RecordHeartbeat records a periodic status report attempt
func RecordHeartbeat(status string) {
	heartbeatsTotal.WithLabelValues(status).Inc()
}
