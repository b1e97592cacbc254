package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments exposed on /metrics.
type Metrics struct {
	Verifications *prometheus.CounterVec
	Duration      prometheus.Histogram
	RateLimited   prometheus.Counter
	WebhookErrors prometheus.Counter
}

// NewMetrics registers the server's instruments on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sigtext",
			Name:      "verifications_total",
			Help:      "Verification requests by outcome and check type.",
		}, []string{"outcome", "check"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sigtext",
			Name:      "verification_duration_seconds",
			Help:      "Time spent handling a verification request.",
			Buckets:   prometheus.DefBuckets,
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sigtext",
			Name:      "rate_limited_total",
			Help:      "Verification requests rejected by the per-sender rate limit.",
		}),
		WebhookErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sigtext",
			Name:      "webhook_errors_total",
			Help:      "Webhook deliveries that failed.",
		}),
	}
	reg.MustRegister(m.Verifications, m.Duration, m.RateLimited, m.WebhookErrors)
	return m
}
