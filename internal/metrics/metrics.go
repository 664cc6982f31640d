// Package metrics exposes Prometheus collectors for the beacon service.
package metrics

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	suggestRequestsTotal       *prometheus.CounterVec
	suggestCacheTotal          *prometheus.CounterVec
	suggestFetchSeconds        *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	relayConnections           prometheus.Gauge
	relayTopics                prometheus.Gauge
	relayPublishedTotal        prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		suggestRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_suggest_requests_total",
				Help: "Total suggestion requests, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		suggestCacheTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "beacon_suggest_cache_total",
				Help: "Homepage metadata cache lookups, labeled hit or miss.",
			},
			[]string{"result"},
		)

		suggestFetchSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "beacon_suggest_fetch_seconds",
				Help:    "Outbound metadata fetch latency.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"ok"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		relayConnections = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "beacon_relay_connections",
				Help: "Currently open signaling connections.",
			},
		)

		relayTopics = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "beacon_relay_topics",
				Help: "Topics with at least one subscriber.",
			},
		)

		relayPublishedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "beacon_relay_published_total",
				Help: "Signaling frames fanned out to subscribers.",
			},
		)
	})
}

// RecordSuggest counts a suggestion request by outcome label.
func RecordSuggest(outcome string) {
	if suggestRequestsTotal != nil {
		suggestRequestsTotal.WithLabelValues(outcome).Inc()
	}
}

// RecordCacheHit counts a homepage cache hit.
func RecordCacheHit() {
	if suggestCacheTotal != nil {
		suggestCacheTotal.WithLabelValues("hit").Inc()
	}
}

// RecordCacheMiss counts a homepage cache miss.
func RecordCacheMiss() {
	if suggestCacheTotal != nil {
		suggestCacheTotal.WithLabelValues("miss").Inc()
	}
}

// ObserveFetchDuration records outbound fetch latency.
func ObserveFetchDuration(d time.Duration, ok bool) {
	if suggestFetchSeconds != nil {
		suggestFetchSeconds.WithLabelValues(strconv.FormatBool(ok)).Observe(d.Seconds())
	}
}

// ConnectionOpened bumps the relay connection gauge.
func ConnectionOpened() {
	if relayConnections != nil {
		relayConnections.Inc()
	}
}

// ConnectionClosed lowers the relay connection gauge.
func ConnectionClosed() {
	if relayConnections != nil {
		relayConnections.Dec()
	}
}

// SetTopics records the number of active topics.
func SetTopics(n int) {
	if relayTopics != nil {
		relayTopics.Set(float64(n))
	}
}

// FramesPublished counts frames delivered to subscribers.
func FramesPublished(n int) {
	if relayPublishedTotal != nil && n > 0 {
		relayPublishedTotal.Add(float64(n))
	}
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware is a chi middleware that records HTTP request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if httpRequestsTotal != nil {
			httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.status)).Inc()
		}
		if httpRequestDurationSeconds != nil {
			httpRequestDurationSeconds.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		}
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack keeps websocket upgrades working through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacker not supported")
	}
	conn, buf, err := h.Hijack()
	if err != nil {
		return nil, nil, fmt.Errorf("hijack connection: %w", err)
	}
	return conn, buf, nil
}
