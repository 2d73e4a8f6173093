// Package metrics exposes the bot's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "market_bot"

type Metrics struct {
	registry *prometheus.Registry

	Events              *prometheus.CounterVec
	Transitions         *prometheus.CounterVec
	Checkouts           *prometheus.CounterVec
	NotificationFailure prometheus.Counter
	SendFailures        *prometheus.CounterVec
	Sessions            prometheus.Gauge
	SessionsExpired     *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound events by kind and whether a route handled them.",
		}, []string{"kind", "matched"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "State transitions by flow and target state.",
		}, []string{"flow", "from", "to"}),
		Checkouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		NotificationFailure: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_notification_failures_total",
			Help:      "Admin order notifications that could not be delivered.",
		}),
		SendFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_failures_total",
			Help:      "Failed transport calls by operation.",
		}, []string{"op"}),
		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Sessions held in memory.",
		}),
		SessionsExpired: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Sessions reset or evicted by the sweeper.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
