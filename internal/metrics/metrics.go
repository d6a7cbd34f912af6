package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcadia",
			Name:      "reservation_created_total",
			Help:      "Count of reservations created.",
		},
		[]string{"type"},
	)

	staffDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcadia",
			Name:      "staff_decision_total",
			Help:      "Count of staff decisions over reservations.",
		},
		[]string{"decision"},
	)

	checkIn = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "arcadia",
			Name:      "check_in_total",
			Help:      "Count of customer check-ins.",
		},
	)

	timeAdjustment = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcadia",
			Name:      "time_adjustment_total",
			Help:      "Count of post-check-in time adjustments by reason.",
		},
		[]string{"reason"},
	)

	ruleRejection = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "arcadia",
			Name:      "rule_rejection_total",
			Help:      "Count of reservation requests rejected by booking rules.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arcadia",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationCreated, staffDecision, checkIn,
			timeAdjustment, ruleRejection, httpRequests,
		)
	})
}

func IncReservationCreated(typeID string) {
	reservationCreated.WithLabelValues(typeID).Inc()
}

func IncStaffDecision(decision string) {
	staffDecision.WithLabelValues(decision).Inc()
}

func IncCheckIn() {
	checkIn.Inc()
}

func IncTimeAdjustment(reason string) {
	timeAdjustment.WithLabelValues(reason).Inc()
}

func IncRuleRejection() {
	ruleRejection.Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
