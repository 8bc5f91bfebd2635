package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "code"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)

	// Bookings
	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of confirmed bookings.",
		},
	)
	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_cancelled_total",
			Help: "Total number of cancelled bookings.",
		},
	)
	bookingsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookings_completed_total",
			Help: "Total number of bookings completed after arrival.",
		},
	)
	bookingFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_failures_total",
			Help: "Booking attempts rejected, by error kind.",
		},
		[]string{"kind"},
	)
	compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_compensations_total",
			Help: "Compensating actions run after a failed booking step.",
		},
		[]string{"action"},
	)

	// Search
	searchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Itinerary search duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	searchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_results_count",
			Help:    "Distribution of itineraries returned per search.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
	)

	// Cache
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits.",
		},
		[]string{"cache"},
	)
	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses.",
		},
		[]string{"cache"},
	)
	redisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_errors_total",
			Help: "Total number of Redis errors.",
		},
		[]string{"operation"},
	)

	// Kafka
	kafkaMessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kafka_messages_sent_total",
			Help: "Total number of Kafka messages successfully sent.",
		},
	)
	kafkaMessagesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kafka_messages_processed_total",
			Help: "Total number of Kafka messages successfully processed.",
		},
	)
	kafkaErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_errors_total",
			Help: "Total number of Kafka-related errors.",
		},
		[]string{"component", "operation"},
	)

	// Wallet
	walletTopUps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_topups_total",
			Help: "Wallet top-up attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,

			bookingsCreated,
			bookingsCancelled,
			bookingsCompleted,
			bookingFailures,
			compensations,

			searchDuration,
			searchResults,

			cacheHits,
			cacheMisses,
			redisErrors,

			kafkaMessagesSent,
			kafkaMessagesProcessed,
			kafkaErrors,

			walletTopUps,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// --- HTTP ---
func ObserveHTTPRequest(method, route string, code int, d time.Duration) {
	c := strconv.Itoa(code)
	httpRequests.WithLabelValues(method, route, c).Inc()
	httpDuration.WithLabelValues(method, route, c).Observe(d.Seconds())
}

// --- Bookings ---
func IncBookingCreated()            { bookingsCreated.Inc() }
func IncBookingCancelled()          { bookingsCancelled.Inc() }
func AddBookingsCompleted(n int)    { bookingsCompleted.Add(float64(max0(n))) }
func IncBookingFailure(kind string) { bookingFailures.WithLabelValues(kind).Inc() }
func IncCompensation(action string) { compensations.WithLabelValues(action).Inc() }

// --- Search ---
func ObserveSearch(operation string, d time.Duration) {
	searchDuration.WithLabelValues(operation).Observe(d.Seconds())
}
func ObserveSearchResults(n int) { searchResults.Observe(float64(max0(n))) }

// --- Cache ---
func IncCacheHit(cache string)  { cacheHits.WithLabelValues(cache).Inc() }
func IncCacheMiss(cache string) { cacheMisses.WithLabelValues(cache).Inc() }
func IncRedisError(op string)   { redisErrors.WithLabelValues(op).Inc() }

// --- Kafka ---
func IncKafkaSent()      { kafkaMessagesSent.Inc() }
func IncKafkaProcessed() { kafkaMessagesProcessed.Inc() }
func IncKafkaError(component, operation string) {
	kafkaErrors.WithLabelValues(component, operation).Inc()
}

// --- Wallet ---
func IncTopUp(outcome string) { walletTopUps.WithLabelValues(outcome).Inc() }

func max0(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
