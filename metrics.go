package goAccounts

import "sync/atomic"

// MetricID identifies one of the in-process flow counters.
type MetricID uint8

const (
	// MetricLoginSuccess counts successful logins.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricRegisterSuccess counts completed registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts rejected registrations.
	MetricRegisterFailure
	// MetricPasswordResetRequest counts forgot-password requests, known and
	// unknown emails alike.
	MetricPasswordResetRequest
	// MetricPasswordResetSuccess counts completed password resets.
	MetricPasswordResetSuccess
	// MetricEmailConfirmed counts confirmed email-intent tokens.
	MetricEmailConfirmed
	// MetricTwoFactorEnabled counts 2FA enrolments (QR or SMS).
	MetricTwoFactorEnabled
	// MetricTwoFactorValidated counts accepted 2FA validations.
	MetricTwoFactorValidated
	// MetricTwoFactorRejected counts rejected 2FA validations.
	MetricTwoFactorRejected
	// MetricRecoveryCodeConsumed counts consumed recovery codes.
	MetricRecoveryCodeConsumed

	metricIDCount
)

// Metrics holds atomic counters for flow outcomes. A nil Metrics is a
// no-op, which is how disabling works.
type Metrics struct {
	counters [metricIDCount]atomic.Uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	if cfg.Disabled {
		return nil
	}
	return &Metrics{}
}

// Inc increments the counter for id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot returns a point-in-time copy of all counters.
func (m *Metrics) Snapshot() map[MetricID]uint64 {
	out := make(map[MetricID]uint64, metricIDCount)
	if m == nil {
		return out
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		out[id] = m.counters[id].Load()
	}
	return out
}
