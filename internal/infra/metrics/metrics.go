package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shiftdesk_reports_submitted_total",
		Help: "Shift reports accepted for delivery.",
	}, []string{"branch", "kind"})

	DeliveryAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shiftdesk_delivery_attempts_total",
		Help: "Chat delivery attempts, including retries.",
	})

	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shiftdesk_delivery_failures_total",
		Help: "Chat delivery attempts that ended in an error.",
	})
)
