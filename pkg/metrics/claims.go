package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClaimMetrics records outcomes of claim-state transitions. Conflicts are
// counted separately so lost races are visible without log digging.
type ClaimMetrics struct {
	duration  *prometheus.HistogramVec
	success   *prometheus.CounterVec
	conflicts *prometheus.CounterVec
	failure   *prometheus.CounterVec
}

// NewClaimMetrics registers the claim metrics on the provided registerer.
func NewClaimMetrics(reg prometheus.Registerer) *ClaimMetrics {
	if reg == nil {
		return &ClaimMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "claim_transition_duration_seconds",
		Help:    "Duration of claim-state transitions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claim_transition_success",
		Help: "Successful claim-state transitions.",
	}, []string{"op"})
	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claim_transition_conflict",
		Help: "Claim attempts lost to another claimant.",
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "claim_transition_failure",
		Help: "Claim-state transitions that failed for non-conflict reasons.",
	}, []string{"op"})
	reg.MustRegister(duration, success, conflicts, failure)
	return &ClaimMetrics{
		duration:  duration,
		success:   success,
		conflicts: conflicts,
		failure:   failure,
	}
}

// ObserveDuration records the duration for the named transition.
func (c *ClaimMetrics) ObserveDuration(op string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named transition.
func (c *ClaimMetrics) IncSuccess(op string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncConflict increments the lost-race counter for the named transition.
func (c *ClaimMetrics) IncConflict(op string) {
	if c == nil || c.conflicts == nil {
		return
	}
	c.conflicts.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure increments the failure counter for the named transition.
func (c *ClaimMetrics) IncFailure(op string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
