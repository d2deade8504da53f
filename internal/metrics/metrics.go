package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service.
type Metrics struct {
	Signups          prometheus.Counter
	Logins           *prometheus.CounterVec
	OtpIssued        prometheus.Counter
	OtpVerifications *prometheus.CounterVec
	OrdersCreated    prometheus.Counter
	Payments         *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			Signups: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signups_total",
				Help:      "Total accounts created.",
			}),
			Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logins_total",
				Help:      "Total login attempts by outcome.",
			}, []string{"outcome"}),
			OtpIssued: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_issued_total",
				Help:      "Total one-time codes issued.",
			}),
			OtpVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "otp_verifications_total",
				Help:      "Total OTP verification attempts by outcome.",
			}, []string{"outcome"}),
			OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Total orders placed.",
			}),
			Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Total payment operations by kind and outcome.",
			}, []string{"kind", "outcome"}),
		}

		prometheus.MustRegister(
			metricsInstance.Signups,
			metricsInstance.Logins,
			metricsInstance.OtpIssued,
			metricsInstance.OtpVerifications,
			metricsInstance.OrdersCreated,
			metricsInstance.Payments,
		)
	})
	return metricsInstance
}
