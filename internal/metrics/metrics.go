package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PlansCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "layaway",
		Name:      "plans_created_total",
		Help:      "Installment plans created.",
	})

	PaymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "layaway",
		Name:      "payments_recorded_total",
		Help:      "Installment payments recorded, by payment method.",
	}, []string{"method"})

	PlansCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "layaway",
		Name:      "plans_completed_total",
		Help:      "Plans paid off in full.",
	})

	PlansCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "layaway",
		Name:      "plans_cancelled_total",
		Help:      "Plans cancelled before completion.",
	})

	OverdueTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "layaway",
		Name:      "overdue_transitions_total",
		Help:      "Plans moved from active to overdue by the sweep.",
	})

	ConcurrencyConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "layaway",
		Name:      "concurrency_conflicts_total",
		Help:      "Optimistic write conflicts, by operation.",
	}, []string{"operation"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "layaway",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route and status code.",
	}, []string{"route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "layaway",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)
