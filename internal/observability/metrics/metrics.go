package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteapi_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voteapi_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	menusCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteapi_menus_created_total",
		Help: "Menu creation attempts by result",
	}, []string{"result"})

	menuItemUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteapi_menu_item_upserts_total",
		Help: "Menu items resolved during menu creation, by outcome (created, updated, reused)",
	}, []string{"outcome"})

	votesRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteapi_votes_total",
		Help: "Vote attempts by result (liked, disliked, conflict)",
	}, []string{"result"})

	liveResultSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voteapi_live_results_subscribers",
		Help: "Open websocket connections on the live results feed",
	})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteapi_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"scope"})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voteapi_circuit_breaker_transitions_total",
		Help: "Circuit breaker state changes",
	}, []string{"name", "to"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveMenuCreated counts a finished menu creation ("success", "invalid", "error").
func ObserveMenuCreated(result string) {
	menusCreated.WithLabelValues(result).Inc()
}

// ObserveMenuItem counts how one incoming item was resolved.
func ObserveMenuItem(outcome string) {
	menuItemUpserts.WithLabelValues(outcome).Inc()
}

// ObserveVote counts a vote attempt.
func ObserveVote(result string) {
	votesRegistered.WithLabelValues(result).Inc()
}

// SubscriberJoined and SubscriberLeft track the live results gauge.
func SubscriberJoined() { liveResultSubscribers.Inc() }
func SubscriberLeft()   { liveResultSubscribers.Dec() }

// ObserveRateLimited counts a rejected request.
func ObserveRateLimited(scope string) {
	rateLimited.WithLabelValues(scope).Inc()
}

// ObserveBreakerTransition counts a breaker moving into state to.
func ObserveBreakerTransition(name, to string) {
	breakerTransitions.WithLabelValues(name, to).Inc()
}
