package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payin_payments_total",
			Help: "Payment saga outcomes",
		},
		[]string{"operation", "status"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "payin_queue_depth",
			Help: "Jobs waiting in the payin queue",
		},
	)

	QueueRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payin_queue_retries_total",
			Help: "Job redeliveries after a handler failure",
		},
	)

	BillingAccountsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payin_billing_accounts_total",
			Help: "Accounts processed by the recurring billing runs",
		},
		[]string{"run", "status"},
	)
)

var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(PaymentsTotal)
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(QueueRetriesTotal)
	prometheus.MustRegister(BillingAccountsTotal)
}
