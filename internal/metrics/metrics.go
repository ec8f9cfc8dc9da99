package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "event_admission"

var (
	// ModerationOutcomes counts terminated photo submissions by outcome status.
	ModerationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "moderation_outcomes_total",
		Help:      "Terminated photo submissions by outcome.",
	}, []string{"status"})

	// ExternalCalls counts attempts against the label service and the relevance
	// classifier. result is one of ok, error, indeterminate.
	ExternalCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "external_calls_total",
		Help:      "Attempts against external moderation services.",
	}, []string{"service", "result"})

	ExternalCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "external_call_duration_seconds",
		Help:      "Latency of single external moderation calls.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"service"})

	AdmissionResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admission_results_total",
		Help:      "Register / unregister results.",
	}, []string{"operation", "result"})

	AdmissionConflictRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admission_conflict_retries_total",
		Help:      "Store conflicts retried by the admission controller.",
	})

	OutcomePublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outcome_publish_failures_total",
		Help:      "Moderation outcomes that could not be published to the outcome log.",
	})

	httpRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveExternalCall records one attempt against service.
func ObserveExternalCall(service, result string, elapsed time.Duration) {
	ExternalCalls.WithLabelValues(service, result).Inc()
	ExternalCallDuration.WithLabelValues(service).Observe(elapsed.Seconds())
}

// GinMiddleware records request latency keyed by the matched route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
