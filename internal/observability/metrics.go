package observability

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skyroof/safetymonitor/internal/safety"
)

const namespace = "safetymonitor"

// Metrics owns every collector the service exports. Collectors live on a
// private registry so tests can build as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	decisionsTotal *prometheus.CounterVec
	isSafe         prometheus.Gauge
	reason         *prometheus.GaugeVec
	fetchDuration  *prometheus.HistogramVec
	fetchErrors    *prometheus.CounterVec
	solarAltitude  prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

var _ safety.Recorder = (*Metrics)(nil)

// NewMetrics builds and registers the collectors, including the Go runtime
// and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Safety decisions evaluated, by reason and verdict.",
		}, []string{"reason", "safe"}),
		isSafe: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "is_safe",
			Help:      "Most recent safety verdict (1 safe, 0 unsafe).",
		}),
		reason: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "decision_reason",
			Help:      "Reason behind the most recent decision (1 for the active reason).",
		}, []string{"reason"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "roof_fetch_duration_seconds",
			Help:      "Roof status fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"roof"}),
		fetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "roof_fetch_errors_total",
			Help:      "Roof status fetches that failed.",
		}, []string{"roof"}),
		solarAltitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solar_altitude_degrees",
			Help:      "Last computed solar altitude at the observatory.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.decisionsTotal,
		m.isSafe,
		m.reason,
		m.fetchDuration,
		m.fetchErrors,
		m.solarAltitude,
		m.httpRequests,
		m.httpDuration,
	)

	for _, r := range safety.Reasons {
		m.reason.WithLabelValues(string(r)).Set(0)
	}

	return m
}

// ObserveDecision records a verdict and flips the reason gauge.
func (m *Metrics) ObserveDecision(d safety.Decision) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(string(d.Reason), strconv.FormatBool(d.IsSafe)).Inc()
	if d.IsSafe {
		m.isSafe.Set(1)
	} else {
		m.isSafe.Set(0)
	}
	for _, r := range safety.Reasons {
		v := 0.0
		if r == d.Reason {
			v = 1
		}
		m.reason.WithLabelValues(string(r)).Set(v)
	}
}

// ObserveFetch records one roof fetch.
func (m *Metrics) ObserveFetch(roofName string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(roofName).Observe(elapsed.Seconds())
	if err != nil {
		m.fetchErrors.WithLabelValues(roofName).Inc()
	}
}

// ObserveAltitude records the latest solar altitude.
func (m *Metrics) ObserveAltitude(alt float64) {
	if m == nil {
		return
	}
	m.solarAltitude.Set(alt)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Hijack passes through to the underlying writer for WebSocket upgrades.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(s.ResponseWriter).Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Middleware counts requests by chi route pattern and status. Unmatched
// requests are labelled "unmatched" to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
