package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors
type Metrics struct {
	// HTTP
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Cache
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Rate limiting
	RateLimitExceededTotal *prometheus.CounterVec

	// Social graph
	SuggestionDuration    prometheus.Histogram
	SuggestionsReturned   prometheus.Histogram
	FriendshipTransitions *prometheus.CounterVec

	// Realtime
	TypingUpdatesTotal     *prometheus.CounterVec
	WebSocketConnections   prometheus.Gauge
	WebSocketMessagesTotal *prometheus.CounterVec

	// Stories
	StoriesExpiredTotal prometheus.Counter

	// Uploads
	UploadBytesTotal *prometheus.CounterVec

	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all collectors once
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method", "backend"},
			),

			SuggestionDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "friend_suggestions_duration_seconds",
					Help:    "Time to compute friend suggestions",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
				},
			),
			SuggestionsReturned: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "friend_suggestions_returned",
					Help:    "Number of suggestion candidates before pagination",
					Buckets: prometheus.ExponentialBuckets(1, 2, 10),
				},
			),
			FriendshipTransitions: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "friendship_transitions_total",
					Help: "Friendship status changes",
				},
				[]string{"status"},
			),

			TypingUpdatesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "typing_updates_total",
					Help: "Typing indicator updates by state",
				},
				[]string{"state"},
			),
			WebSocketConnections: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "websocket_connections",
					Help: "Currently connected websocket clients",
				},
			),
			WebSocketMessagesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_messages_total",
					Help: "Websocket messages by type and direction",
				},
				[]string{"type", "direction"},
			),

			StoriesExpiredTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "stories_expired_total",
					Help: "Stories removed by the cleanup service",
				},
			),

			UploadBytesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "upload_bytes_total",
					Help: "Bytes uploaded to object storage",
				},
				[]string{"media_type"},
			),

			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}
