package realtime

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Drop reasons recorded by Metrics.
const (
	DropSlowConsumer = "slow_consumer"
	DropRateLimited  = "rate_limited"
	DropMalformed    = "malformed"
	DropRejected     = "rejected"
)

// Metrics holds the Prometheus collectors of the live channel.
// Each instance owns its registry so several hubs can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	ConnectionsOpened prometheus.Counter
	ConnectionsClosed prometheus.Counter
	FramesReceived    *prometheus.CounterVec
	EventsDelivered   *prometheus.CounterVec
	EventsDropped     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them, together with gauges
// reading live counts from the given functions.
func NewMetrics(namespace string, connections, rooms func() int) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ConnectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_opened_total",
			Help:      "Total number of live connections accepted",
		}),
		ConnectionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_closed_total",
			Help:      "Total number of live connections terminated",
		}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Inbound frames by event name",
		}, []string{"event"}),
		EventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_delivered_total",
			Help:      "Outbound events enqueued on member connections",
		}, []string{"event"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dropped_total",
			Help:      "Events dropped by reason",
		}, []string{"reason"}),
	}

	registry.MustRegister(
		m.ConnectionsOpened,
		m.ConnectionsClosed,
		m.FramesReceived,
		m.EventsDelivered,
		m.EventsDropped,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Live connections currently tracked",
		}, func() float64 { return float64(connections()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms with at least one joined connection",
		}, func() float64 { return float64(rooms()) }),
	)
	return m
}

// Registry returns the Prometheus registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) delivered(event string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.EventsDelivered.WithLabelValues(event).Add(float64(n))
}

func (m *Metrics) dropped(reason string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) received(event string) {
	if m == nil {
		return
	}
	m.FramesReceived.WithLabelValues(event).Inc()
}

func (m *Metrics) opened() {
	if m == nil {
		return
	}
	m.ConnectionsOpened.Inc()
}

func (m *Metrics) closed() {
	if m == nil {
		return
	}
	m.ConnectionsClosed.Inc()
}
