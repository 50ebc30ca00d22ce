package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartsCompletedTotal counts carts moved to the completed state.
	CartsCompletedTotal prometheus.Counter
	// CartMutationsTotal counts cart line mutations by kind.
	CartMutationsTotal *prometheus.CounterVec
	// StockAdjustmentsTotal counts manual stock adjustments by direction.
	StockAdjustmentsTotal *prometheus.CounterVec
	// DaysClosedTotal counts successful daily account closes.
	DaysClosedTotal prometheus.Counter
	// SettlementDuration records how long a daily close takes in milliseconds.
	SettlementDuration prometheus.Histogram
	// LoginAttemptsTotal counts login attempts by result.
	LoginAttemptsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "carts_completed_total",
			Help:      "Count of carts marked completed at the till.",
		})
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Count of cart line mutations by kind.",
		}, []string{"kind"})
		StockAdjustmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_adjustments_total",
			Help:      "Count of manual stock adjustments by direction.",
		}, []string{"direction"})
		DaysClosedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_closed_total",
			Help:      "Count of daily accounts closed.",
		})
		SettlementDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_duration_ms",
			Help:      "Daily close duration in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		})
		LoginAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Count of login attempts by result.",
		}, []string{"result"})

		mustRegisterCollector(reg, CartsCompletedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				CartsCompletedTotal = v
			}
		})
		mustRegisterCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
		mustRegisterCollector(reg, StockAdjustmentsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				StockAdjustmentsTotal = v
			}
		})
		mustRegisterCollector(reg, DaysClosedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				DaysClosedTotal = v
			}
		})
		mustRegisterCollector(reg, SettlementDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				SettlementDuration = v
			}
		})
		mustRegisterCollector(reg, LoginAttemptsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				LoginAttemptsTotal = v
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
