package chat

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type gatewayMetrics struct {
	activeConnections prometheus.Gauge
	connectionsTotal  prometheus.Counter
	events            *prometheus.CounterVec
	rejections        *prometheus.CounterVec
	deliveryFailures  prometheus.Counter
	messagesPersisted prometheus.Counter
	eventLatency      *prometheus.HistogramVec
}

// newGatewayMetrics registers the gateway collectors on reg. A nil reg disables metrics.
func newGatewayMetrics(reg prometheus.Registerer) *gatewayMetrics {
	if reg == nil {
		return nil
	}

	m := &gatewayMetrics{
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lounge_connections_active",
			Help: "Current number of open chat connections.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lounge_connections_total",
			Help: "Total number of chat connections accepted since start.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lounge_inbound_events_total",
			Help: "Inbound chat events by type.",
		}, []string{"type"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lounge_rejections_total",
			Help: "Rejected inbound events by error kind and code.",
		}, []string{"kind", "code"}),
		deliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lounge_delivery_failures_total",
			Help: "Outbound frames dropped because a connection could not take them.",
		}),
		messagesPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lounge_messages_persisted_total",
			Help: "Chat messages stored and broadcast.",
		}),
		eventLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lounge_event_latency_seconds",
			Help:    "Time spent handling an inbound event.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.activeConnections,
		m.connectionsTotal,
		m.events,
		m.rejections,
		m.deliveryFailures,
		m.messagesPersisted,
		m.eventLatency,
	)
	return m
}

func (m *gatewayMetrics) connOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
	m.connectionsTotal.Inc()
}

func (m *gatewayMetrics) connClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *gatewayMetrics) observeEvent(eventType EventType, dur time.Duration) {
	if m == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.events.WithLabelValues(string(eventType)).Inc()
	m.eventLatency.WithLabelValues(string(eventType)).Observe(dur.Seconds())
}

func (m *gatewayMetrics) recordRejection(kind string, code int) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(kind, strconv.Itoa(code)).Inc()
}

func (m *gatewayMetrics) recordDeliveryFailure() {
	if m == nil {
		return
	}
	m.deliveryFailures.Inc()
}

func (m *gatewayMetrics) recordMessage() {
	if m == nil {
		return
	}
	m.messagesPersisted.Inc()
}
