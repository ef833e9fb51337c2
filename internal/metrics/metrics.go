package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"locker-rental-backend/internal/domain"
)

// Metrics groups the engine's collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry          *prometheus.Registry
	operations        *prometheus.CounterVec
	revenue           *prometheus.CounterVec
	overstayBlocks    prometheus.Counter
	actuationFailures prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locker",
			Name:      "operations_total",
			Help:      "Engine operations by name and result.",
		}, []string{"operation", "result"}),
		revenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locker",
			Name:      "charged_amount_total",
			Help:      "Amount charged through the PSP by kind.",
		}, []string{"kind"}),
		overstayBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "locker",
			Name:      "overstay_blocks_total",
			Help:      "Overstay blocks billed.",
		}),
		actuationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "locker",
			Name:      "actuation_failures_total",
			Help:      "Lock controller commands that were not acknowledged.",
		}),
	}
	reg.MustRegister(m.operations, m.revenue, m.overstayBlocks, m.actuationFailures,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOperation counts an operation outcome keyed by error kind.
func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, resultLabel(err)).Inc()
}

func (m *Metrics) ObserveRent(price int32) {
	if m == nil {
		return
	}
	m.revenue.WithLabelValues("rent").Add(float64(price))
}

func (m *Metrics) ObserveExtension(charge domain.ExtensionCharge) {
	if m == nil {
		return
	}
	m.revenue.WithLabelValues("extension").Add(float64(charge.ExtensionCost))
	m.revenue.WithLabelValues("overstay").Add(float64(charge.OverstayCharge))
	m.overstayBlocks.Add(float64(charge.OverstayBlocks))
}

func (m *Metrics) ObserveActuationFailure() {
	if m == nil {
		return
	}
	m.actuationFailures.Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotAvailable):
		return "not_available"
	case errors.Is(err, domain.ErrNotRented):
		return "not_rented"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrActuationFailed):
		return "actuation_failed"
	case errors.Is(err, domain.ErrCredentialExpired):
		return "credential_expired"
	case errors.Is(err, domain.ErrInvalidDuration):
		return "invalid_duration"
	case errors.Is(err, domain.ErrPaymentFailed):
		return "payment_failed"
	default:
		return "error"
	}
}
