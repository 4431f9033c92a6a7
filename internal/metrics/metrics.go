// Package metrics holds the prometheus collectors of the order service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "foodorder"

// Metrics is safe to use as a nil pointer, in which case nothing is recorded.
type Metrics struct {
	OrdersCreated        *prometheus.CounterVec
	Transitions          *prometheus.CounterVec
	TransitionRejections *prometheus.CounterVec
	PaymentCallbacks     *prometheus.CounterVec
	NotificationsFailed  prometheus.Counter
	UpstreamDuration     *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. Tests pass prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created, by source.",
		}, []string{"source"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Accepted order status transitions, by target status.",
		}, []string{"status"}),
		TransitionRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transition_rejections_total",
			Help:      "Rejected status updates, by error kind.",
		}, []string{"kind"}),
		PaymentCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callbacks_total",
			Help:      "Payment callbacks received, by reported status and outcome.",
		}, []string{"status", "outcome"}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notifications that could not be delivered.",
		}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_call_duration_seconds",
			Help:      "Latency of calls to collaborating services.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"collaborator"}),
		gatherer: reg,
	}
	reg.MustRegister(m.OrdersCreated, m.Transitions, m.TransitionRejections, m.PaymentCallbacks,
		m.NotificationsFailed, m.UpstreamDuration)
	return m
}

func (m *Metrics) OrderCreated(source string) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(source).Inc()
}

func (m *Metrics) TransitionAccepted(status string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) TransitionRejected(kind string) {
	if m == nil {
		return
	}
	m.TransitionRejections.WithLabelValues(kind).Inc()
}

func (m *Metrics) PaymentCallback(status, outcome string) {
	if m == nil {
		return
	}
	m.PaymentCallbacks.WithLabelValues(status, outcome).Inc()
}

func (m *Metrics) NotificationFailed() {
	if m == nil {
		return
	}
	m.NotificationsFailed.Inc()
}

// ObserveUpstream records how long a call to collaborator took since start.
func (m *Metrics) ObserveUpstream(collaborator string, start time.Time) {
	if m == nil {
		return
	}
	m.UpstreamDuration.WithLabelValues(collaborator).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
