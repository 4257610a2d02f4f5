package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics groups Prometheus collectors for the settlement flow.
type DomainMetrics struct {
	PaymentIntentTotal    *prometheus.CounterVec
	PaymentWebhookTotal   *prometheus.CounterVec
	DanglingAuthorization prometheus.Counter
	SettingsFallbackTotal *prometheus.CounterVec
}

var (
	domainOnce    sync.Once
	domainMetrics *DomainMetrics
)

// NewDomainMetrics registers and returns the domain collectors. Registration
// happens once per process; later calls return the same set.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		m := &DomainMetrics{
			PaymentIntentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_intent_total",
				Help:      "Payment intent requests by outcome.",
			}, []string{"result"}),
			PaymentWebhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_webhook_total",
				Help:      "Processor webhook deliveries by reconciliation outcome.",
			}, []string{"result"}),
			DanglingAuthorization: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dangling_authorization_total",
				Help:      "Authorized charges whose order record failed to persist.",
			}),
			SettingsFallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settings_fallback_total",
				Help:      "Pricing settings lookups that fell back to a default value.",
			}, []string{"key"}),
		}
		mustRegisterCollector(reg, m.PaymentIntentTotal)
		mustRegisterCollector(reg, m.PaymentWebhookTotal)
		mustRegisterCollector(reg, m.DanglingAuthorization)
		mustRegisterCollector(reg, m.SettingsFallbackTotal)
		domainMetrics = m
	})
	return domainMetrics
}

func mustRegisterCollector(reg prometheus.Registerer, c prometheus.Collector) {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
}
