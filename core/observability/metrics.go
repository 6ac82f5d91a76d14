// Package observability exposes server metrics in the Prometheus text format.
package observability

import (
	"bytes"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"

	"github.com/searchktools/tinyhttp/core/http"
)

const namespace = "tinyhttp"

// Latency buckets in seconds, from sub-millisecond to five seconds.
var latencyBuckets = []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5}

// Metrics records per-request and per-connection counters. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	connections prometheus.Gauge
	protocols   *prometheus.CounterVec
	ioErrors    prometheus.Counter
}

// NewMetrics registers the server metrics and the Go runtime collector on a
// private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled, by method and status code.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from parse to response bytes built.",
			Buckets:   latencyBuckets,
		}, []string{"method"}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Connections currently being served.",
		}),
		protocols: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sniffed_total",
			Help:      "Connections by detected protocol.",
		}, []string{"protocol"}),
		ioErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "io_errors_total",
			Help:      "Connections aborted by socket errors.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.connections,
		m.protocols,
		m.ioErrors,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry for extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one handled request
func (m *Metrics) ObserveRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// Sniffed counts a connection classified as protocol.
func (m *Metrics) Sniffed(protocol string) {
	if m == nil {
		return
	}
	m.protocols.WithLabelValues(protocol).Inc()
}

func (m *Metrics) IOError() {
	if m == nil {
		return
	}
	m.ioErrors.Inc()
}

// TextFormat is the content type of Encode's output.
var TextFormat = expfmt.NewFormat(expfmt.TypeTextPlain)

// Encode gathers every registered metric in the text exposition format.
func (m *Metrics) Encode() ([]byte, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, TextFormat)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Handler serves the metrics as a route handler.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(ctx http.Context) []byte {
		body, err := m.Encode()
		if err != nil {
			return ctx.Respond().Status(500).Text(err.Error()).Build()
		}
		return ctx.Respond().ContentType(string(TextFormat)).Body(body).Build()
	}
}
