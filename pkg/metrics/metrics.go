package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebhookEvents counts processed billing webhook deliveries by type and
	// outcome (applied, duplicate, skipped, error).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexart",
		Subsystem: "billing",
		Name:      "webhook_events_total",
		Help:      "Billing webhook deliveries by event type and outcome.",
	}, []string{"type", "outcome"})

	// QuotaDecisions counts quota gate admissions and rejections.
	QuotaDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexart",
		Subsystem: "quota",
		Name:      "decisions_total",
		Help:      "Quota gate decisions by outcome (admitted, exceeded, error).",
	}, []string{"outcome"})

	// KeyVerifications counts API key verification attempts.
	KeyVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nexart",
		Subsystem: "apikeys",
		Name:      "verifications_total",
		Help:      "API key verification attempts by outcome (ok, invalid, revoked).",
	}, []string{"outcome"})
)

// Handler exposes the default prometheus registry
func Handler() http.Handler {
	return promhttp.Handler()
}
