package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tentos"

// Metrics holds the process collectors on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	eventsProcessed   *prometheus.CounterVec
	queueDepth        prometheus.Gauge
	broadcastsSent    prometheus.Counter
	subscribersPruned prometheus.Counter
	subscribers       prometheus.Gauge
	activeAlerts      *prometheus.GaugeVec
	historyRows       prometheus.Counter
	tickErrors        *prometheus.CounterVec
	actionsExecuted   *prometheus.CounterVec
	actionsSuppressed *prometheus.CounterVec
	haConnected       prometheus.Gauge
	haReconnects      prometheus.Counter
	mqttPublished     prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		eventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "events_processed_total",
			Help:      "State change events applied to a tent, by routed category",
		}, []string{"category"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "queue_depth",
			Help:      "Events waiting for the worker",
		}),
		broadcastsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "messages_sent_total",
			Help:      "Tent updates delivered to subscribers",
		}),
		subscribersPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "subscribers_pruned_total",
			Help:      "Subscribers removed after a failed send",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broadcast",
			Name:      "subscribers",
			Help:      "Currently registered live subscribers",
		}),
		activeAlerts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "active",
			Help:      "Alerts raised by the last sweep, per tent",
		}, []string{"tent"}),
		historyRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "rows_written_total",
			Help:      "Sensor history rows written",
		}),
		tickErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "tick_errors_total",
			Help:      "Errors raised by periodic loops",
		}, []string{"loop"}),
		actionsExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "actions_executed_total",
			Help:      "Actuator commands issued by automation rules",
		}, []string{"action", "result"}),
		actionsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "actions_suppressed_total",
			Help:      "Rule evaluations skipped by a guard",
		}, []string{"guard"}),
		haConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hass",
			Name:      "connected",
			Help:      "1 while the Home Assistant websocket is authenticated",
		}),
		haReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hass",
			Name:      "reconnect_attempts_total",
			Help:      "Reconnection attempts to Home Assistant",
		}),
		mqttPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "messages_published_total",
			Help:      "Tent snapshots published to the MQTT broker",
		}),
	}

	m.registry.MustRegister(
		m.eventsProcessed,
		m.queueDepth,
		m.broadcastsSent,
		m.subscribersPruned,
		m.subscribers,
		m.activeAlerts,
		m.historyRows,
		m.tickErrors,
		m.actionsExecuted,
		m.actionsSuppressed,
		m.haConnected,
		m.haReconnects,
		m.mqttPublished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) EventProcessed(category string) {
	if m == nil {
		return
	}
	m.eventsProcessed.WithLabelValues(category).Inc()
}

func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) BroadcastSent() {
	if m == nil {
		return
	}
	m.broadcastsSent.Inc()
}

func (m *Metrics) SubscriberPruned() {
	if m == nil {
		return
	}
	m.subscribersPruned.Inc()
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

func (m *Metrics) SetActiveAlerts(tentID string, n int) {
	if m == nil {
		return
	}
	m.activeAlerts.WithLabelValues(tentID).Set(float64(n))
}

func (m *Metrics) HistoryRowsWritten(n int) {
	if m == nil {
		return
	}
	m.historyRows.Add(float64(n))
}

func (m *Metrics) TickError(loop string) {
	if m == nil {
		return
	}
	m.tickErrors.WithLabelValues(loop).Inc()
}

func (m *Metrics) ActionExecuted(action string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.actionsExecuted.WithLabelValues(action, result).Inc()
}

func (m *Metrics) ActionSuppressed(guard string) {
	if m == nil {
		return
	}
	m.actionsSuppressed.WithLabelValues(guard).Inc()
}

func (m *Metrics) SetHAConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.haConnected.Set(1)
		return
	}
	m.haConnected.Set(0)
}

func (m *Metrics) HAReconnectAttempt() {
	if m == nil {
		return
	}
	m.haReconnects.Inc()
}

func (m *Metrics) MQTTPublished() {
	if m == nil {
		return
	}
	m.mqttPublished.Inc()
}
