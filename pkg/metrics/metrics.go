package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sbc", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sbc", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	AuthEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "sbc", Name: "auth_events_total", Help: "Auth flow outcomes by event (register, login, refresh, logout, reset_request, reset)."},
		[]string{"event", "outcome"},
	)
	SessionRotations = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "sbc", Name: "session_rotations_total", Help: "Sessions replaced by a successful refresh."},
	)
	MailFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "sbc", Name: "mail_failures_total", Help: "Outbound mails that could not be delivered."},
	)
)

// Outcome labels for AuthEvents.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RecordAuth counts one auth event; a nil err is a success.
func RecordAuth(event string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	AuthEvents.WithLabelValues(event, outcome).Inc()
}

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthEvents)
	reg.MustRegister(SessionRotations)
	reg.MustRegister(MailFailures)
}
