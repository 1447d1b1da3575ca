package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// RegistrationsPricedTotal counts registration pricing outcomes.
	RegistrationsPricedTotal *prometheus.CounterVec
	// LineItemPricingFailures counts line item pricing failures by reason.
	LineItemPricingFailures *prometheus.CounterVec
	// PaymentsRecordedTotal counts recorded payments by resulting status.
	PaymentsRecordedTotal *prometheus.CounterVec
	// ReceiptEmailsTotal tracks receipt email delivery outcomes.
	ReceiptEmailsTotal *prometheus.CounterVec
	// RegistrationTotalAmount observes computed registration totals.
	RegistrationTotalAmount *prometheus.HistogramVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		RegistrationsPricedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_priced_total",
			Help:      "Count of registration pricing outcomes.",
		}, []string{"result"})
		LineItemPricingFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_item_pricing_failures_total",
			Help:      "Count of line item pricing failures by reason.",
		}, []string{"reason"})
		PaymentsRecordedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Count of recorded payments by resulting payment status.",
		}, []string{"status"})
		ReceiptEmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_emails_total",
			Help:      "Count of receipt email delivery outcomes.",
		}, []string{"result"})
		RegistrationTotalAmount = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registration_total_amount",
			Help:      "Distribution of computed registration totals in major currency units.",
			Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"currency"})

		mustRegisterCollector(reg, RegistrationsPricedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RegistrationsPricedTotal = v
			}
		})
		mustRegisterCollector(reg, LineItemPricingFailures, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				LineItemPricingFailures = v
			}
		})
		mustRegisterCollector(reg, PaymentsRecordedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PaymentsRecordedTotal = v
			}
		})
		mustRegisterCollector(reg, ReceiptEmailsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReceiptEmailsTotal = v
			}
		})
		mustRegisterCollector(reg, RegistrationTotalAmount, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				RegistrationTotalAmount = v
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
