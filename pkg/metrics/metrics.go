package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "commerce"

// ServerMetrics holds the HTTP request metrics
type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

// NewServerMetrics creates and registers the HTTP metrics on reg
func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// DomainMetrics counts cart, order and payment activity
type DomainMetrics struct {
	cartMutations     *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	paymentCallbacks  *prometheus.CounterVec
}

// NewDomainMetrics creates and registers the domain counters on reg
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	m := &DomainMetrics{
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Committed cart mutations by operation.",
		}, []string{"op"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Recorded order status transitions.",
		}, []string{"from", "to"}),
		paymentCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callbacks_total",
			Help:      "Applied payment provider callbacks by status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.cartMutations, m.statusTransitions, m.paymentCallbacks)
	return m
}

// CartMutation counts one committed cart mutation
func (m *DomainMetrics) CartMutation(op string) {
	m.cartMutations.WithLabelValues(op).Inc()
}

// StatusTransition counts one recorded order status transition
func (m *DomainMetrics) StatusTransition(from, to string) {
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// PaymentCallback counts one applied provider callback
func (m *DomainMetrics) PaymentCallback(status string) {
	m.paymentCallbacks.WithLabelValues(status).Inc()
}

// HandlerFor exposes the given registry
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
