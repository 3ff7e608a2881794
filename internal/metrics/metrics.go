package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "seatpool"

// Исходы выдачи места
const (
	OutcomeOK              = "ok"
	OutcomePoolFull        = "pool_full"
	OutcomeAlreadyAssigned = "already_assigned"
	OutcomeError           = "error"

	ModeSpecific = "specific"
	ModeNext     = "next"
)

var (
	// SeatAssignmentsTotal counts seat assignments by mode and outcome.
	SeatAssignmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "seats",
		Name:      "assignments_total",
		Help:      "Seat assignment attempts by mode and outcome.",
	}, []string{"mode", "outcome"})

	SeatReleasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "seats",
		Name:      "releases_total",
		Help:      "Seats returned to the available state.",
	})

	// PoolResizesTotal counts resize attempts by direction and outcome.
	PoolResizesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pools",
		Name:      "resizes_total",
		Help:      "Pool resize attempts by direction and outcome.",
	}, []string{"direction", "outcome"})

	IntegrityViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pools",
		Name:      "integrity_violations_total",
		Help:      "Integrity problems found by the pool consistency check.",
	}, []string{"kind"})

	// SubscriptionTransitionsTotal counts lifecycle transitions by event.
	SubscriptionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "subscriptions",
		Name:      "transitions_total",
		Help:      "Subscription lifecycle transitions by event.",
	}, []string{"event"})

	SweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "sweep_runs_total",
		Help:      "Status synchronizer sweeps executed.",
	})

	SweepPoolsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "pools_expired_total",
		Help:      "Pools flipped to expired by the synchronizer.",
	})

	// SweepSubscriptionsOverdueTotal counts subscriptions forced overdue, by reason.
	SweepSubscriptionsOverdueTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "subscriptions_overdue_total",
		Help:      "Subscriptions marked overdue by the synchronizer, by reason.",
	}, []string{"reason"})

	SweepFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "failures_total",
		Help:      "Per-item failures during synchronizer sweeps.",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "sweep_duration_seconds",
		Help:      "Synchronizer sweep duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTPRequestsTotal counts API requests by route template and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
