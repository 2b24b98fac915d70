// Package metrics exposes the Prometheus collectors for the service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tradon",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradon",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradon",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	gatewayCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradon",
			Subsystem: "gateway",
			Name:      "upstream_calls_total",
			Help:      "Total number of upstream gateway calls.",
		},
		[]string{"gateway", "outcome"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradon",
			Subsystem: "gateway",
			Name:      "upstream_call_duration_seconds",
			Help:      "Duration of upstream gateway calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"gateway"},
	)

	rewardGrants = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradon",
			Subsystem: "reward",
			Name:      "grants_total",
			Help:      "Total number of reward grants by source.",
		},
		[]string{"source"},
	)

	snapshotFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tradon",
			Subsystem: "reward",
			Name:      "snapshot_write_failures_total",
			Help:      "Total number of failed snapshot writes.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		gatewayCalls,
		gatewayDuration,
		rewardGrants,
		snapshotFailures,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
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

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordGatewayCall records one upstream call with its outcome classification.
func RecordGatewayCall(gateway, outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	gatewayCalls.WithLabelValues(gateway, outcome).Inc()
	gatewayDuration.WithLabelValues(gateway).Observe(duration.Seconds())
}

// RecordRewardGrant counts a reward grant by source (timer, task, referral_bonus).
func RecordRewardGrant(source string) {
	rewardGrants.WithLabelValues(source).Inc()
}

// RecordSnapshotFailure counts a failed snapshot write.
func RecordSnapshotFailure() {
	snapshotFailures.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses per-task paths so the label set stays bounded.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "state" {
		return "/" + parts[0]
	}
	if len(parts) >= 3 && parts[1] == "tasks" {
		if len(parts) == 3 && parts[2] == "reset" {
			return "/state/tasks/reset"
		}
		return "/state/tasks/:key"
	}
	return "/" + strings.Join(parts, "/")
}
