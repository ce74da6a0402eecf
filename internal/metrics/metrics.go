// Package metrics holds the Prometheus collectors shared by the client and
// the content server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "feedview"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	viewAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "fetch_attempts_total",
			Help:      "Total number of view fetch attempts.",
		},
		[]string{"view", "result"},
	)

	viewLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "view",
			Name:      "loads_total",
			Help:      "Total number of view loads by outcome (hit, fetched, failed).",
		},
		[]string{"outcome"},
	)

	feedLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "page_loads_total",
			Help:      "Total number of feed page loads.",
		},
		[]string{"feed", "kind", "result"},
	)

	feedDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "page_load_duration_seconds",
			Help:      "Duration of feed loader calls.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"feed"},
	)

	navigations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "transitions_total",
			Help:      "Total number of route transitions by outcome.",
		},
		[]string{"outcome"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		viewAttempts,
		viewLoads,
		feedLoads,
		feedDuration,
		navigations,
		httpInFlight,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// View load outcomes.
const (
	OutcomeHit     = "hit"
	OutcomeFetched = "fetched"
	OutcomeFailed  = "failed"
)

// RecordViewAttempt counts one fetch attempt for a view.
func RecordViewAttempt(viewID string, err error) {
	viewAttempts.WithLabelValues(viewID, resultLabel(err)).Inc()
}

// RecordViewLoad counts one Load call by outcome.
func RecordViewLoad(outcome string) {
	viewLoads.WithLabelValues(outcome).Inc()
}

// RecordFeedLoad records a loader call for a feed. kind is "initial" or "more".
func RecordFeedLoad(feed, kind string, duration time.Duration, err error) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	feedLoads.WithLabelValues(feed, kind, resultLabel(err)).Inc()
	feedDuration.WithLabelValues(feed).Observe(duration.Seconds())
}

// RecordTransition counts a finished route transition. outcome is one of
// "rendered", "failed" or "stale".
func RecordTransition(outcome string) {
	navigations.WithLabelValues(outcome).Inc()
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Use it as gorilla/mux middleware so the route template is known.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeLabel(r)
		method := strings.ToUpper(r.Method)
		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// routeLabel keeps label cardinality bounded by using the matched template.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
