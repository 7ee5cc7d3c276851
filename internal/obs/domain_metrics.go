package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PromoEvaluationsTotal counts promo code evaluations by outcome.
	PromoEvaluationsTotal *prometheus.CounterVec
	// OrdersPaidTotal counts orders finalized as paid.
	OrdersPaidTotal prometheus.Counter
	// DashboardRequestsTotal counts dashboard statistics requests by range and result.
	DashboardRequestsTotal *prometheus.CounterVec
	// AnalyticsEventsTotal counts recorded product analytics events by type.
	AnalyticsEventsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PromoEvaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_evaluations_total",
			Help:      "Count of promo code evaluations by outcome.",
		}, []string{"result"})
		OrdersPaidTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_paid_total",
			Help:      "Count of orders finalized as paid.",
		})
		DashboardRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_requests_total",
			Help:      "Count of dashboard statistics requests by range and result.",
		}, []string{"range", "result"})
		AnalyticsEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_events_total",
			Help:      "Count of recorded product analytics events by type.",
		}, []string{"type"})

		mustRegisterCollector(reg, PromoEvaluationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PromoEvaluationsTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersPaidTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OrdersPaidTotal = v
			}
		})
		mustRegisterCollector(reg, DashboardRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DashboardRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, AnalyticsEventsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AnalyticsEventsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
