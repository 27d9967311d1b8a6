package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		codesCreated,
		redemptionsTotal,
		verificationsTotal,
	)
}

var (
	codesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_codes_created_total",
			Help: "Activation codes created, by usage policy.",
		},
		[]string{"policy"},
	)

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activation_redemptions_total",
			Help: "Redemption attempts by outcome (ok/not_found/inactive/expired/exhausted/issue_error/error).",
		},
		[]string{"outcome"},
	)

	verificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_verifications_total",
			Help: "Credential verifications by outcome (ok/invalid/expired/wrong_type/revoked).",
		},
		[]string{"outcome"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func IncCodeCreated(policy string) {
	codesCreated.WithLabelValues(norm(policy)).Inc()
}

func IncRedemption(outcome string) {
	redemptionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncVerification(outcome string) {
	verificationsTotal.WithLabelValues(norm(outcome)).Inc()
}
