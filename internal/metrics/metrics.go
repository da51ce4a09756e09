// Package metrics holds the prometheus collectors of the server.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without a registry in tests.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the server exposes.
type Metrics struct {
	busPublished        *prometheus.CounterVec
	busDropped          *prometheus.CounterVec
	busActiveFeeds      *prometheus.GaugeVec
	busFiltered         *prometheus.CounterVec
	wsActiveConnections prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	relayPublishErrors  prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		busPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wiredm_bus_published_total",
				Help: "Total number of events published on the broker.",
			},
			[]string{"topic"},
		),
		busDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wiredm_bus_dropped_total",
				Help: "Events discarded from full subscriber feeds.",
			},
			[]string{"topic"},
		),
		busActiveFeeds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wiredm_bus_active_feeds",
				Help: "Number of registered subscriber feeds.",
			},
			[]string{"topic"},
		),
		busFiltered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wiredm_bus_filtered_total",
				Help: "Subscription filter decisions.",
			},
			[]string{"topic", "result"},
		),
		wsActiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wiredm_ws_active_connections",
				Help: "Number of active websocket connections.",
			},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wiredm_http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wiredm_http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		relayPublishErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wiredm_relay_publish_errors_total",
				Help: "Total number of AMQP relay publish errors.",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.busPublished,
		m.busDropped,
		m.busActiveFeeds,
		m.busFiltered,
		m.wsActiveConnections,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.relayPublishErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Published(topic string) {
	if m == nil {
		return
	}
	m.busPublished.WithLabelValues(topic).Inc()
}

func (m *Metrics) Dropped(topic string) {
	if m == nil {
		return
	}
	m.busDropped.WithLabelValues(topic).Inc()
}

func (m *Metrics) FeedAdded(topic string) {
	if m == nil {
		return
	}
	m.busActiveFeeds.WithLabelValues(topic).Inc()
}

func (m *Metrics) FeedRemoved(topic string) {
	if m == nil {
		return
	}
	m.busActiveFeeds.WithLabelValues(topic).Dec()
}

// Filtered records one filter decision.
func (m *Metrics) Filtered(topic string, delivered bool) {
	if m == nil {
		return
	}
	result := "suppressed"
	if delivered {
		result = "delivered"
	}
	m.busFiltered.WithLabelValues(topic, result).Inc()
}

func (m *Metrics) IncWSActive() {
	if m == nil {
		return
	}
	m.wsActiveConnections.Inc()
}

func (m *Metrics) DecWSActive() {
	if m == nil {
		return
	}
	m.wsActiveConnections.Dec()
}

func (m *Metrics) IncRelayPublishError() {
	if m == nil {
		return
	}
	m.relayPublishErrors.Inc()
}

// HTTPMiddleware counts requests and observes latency per route.
func (m *Metrics) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
