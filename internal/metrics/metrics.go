package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recommendation operations, used as the "operation" label.
const (
	OperationRecommend    = "recommend"
	OperationSimilar      = "similar"
	OperationTrending     = "trending"
	OperationPersonalized = "personalized"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofie_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ofie_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ofie_api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// Recommendation Metrics
	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ofie_recommendation_duration_seconds",
			Help:    "Time spent ranking listings per operation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"},
	)

	RecommendationResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ofie_recommendation_results",
			Help:    "Number of listings returned per operation",
			Buckets: []float64{0, 1, 5, 10, 20, 50},
		},
		[]string{"operation"},
	)

	RecommendationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofie_recommendation_errors_total",
			Help: "Total number of failed recommendation operations",
		},
		[]string{"operation"},
	)

	EmptyRecommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ofie_recommendation_empty_total",
			Help: "Total number of operations that returned no listings",
		},
		[]string{"operation"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecommendation records the outcome of one recommendation operation.
func RecordRecommendation(operation string, returned int, duration time.Duration, err error) {
	RecommendationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		RecommendationErrors.WithLabelValues(operation).Inc()
		return
	}
	RecommendationResults.WithLabelValues(operation).Observe(float64(returned))
	if returned == 0 {
		EmptyRecommendations.WithLabelValues(operation).Inc()
	}
}
