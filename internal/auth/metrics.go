package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ThrottleMetrics counts login throttle events. A nil *ThrottleMetrics is
// valid and records nothing.
type ThrottleMetrics struct {
	failures        prometheus.Counter
	blocks          prometheus.Counter
	blockedAttempts prometheus.Counter
}

// NewThrottleMetrics creates the counters and registers them with reg.
func NewThrottleMetrics(reg prometheus.Registerer) (*ThrottleMetrics, error) {
	m := &ThrottleMetrics{
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "login_failures_total",
			Help: "Failed login attempts registered with the throttle.",
		}),
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "login_blocks_total",
			Help: "Times a login key reached the failure limit and was blocked.",
		}),
		blockedAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "login_blocked_attempts_total",
			Help: "Login attempts rejected because the key was blocked.",
		}),
	}

	for _, c := range []prometheus.Collector{m.failures, m.blocks, m.blockedAttempts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *ThrottleMetrics) failure() {
	if m != nil {
		m.failures.Inc()
	}
}

func (m *ThrottleMetrics) block() {
	if m != nil {
		m.blocks.Inc()
	}
}

func (m *ThrottleMetrics) blockedAttempt() {
	if m != nil {
		m.blockedAttempts.Inc()
	}
}
