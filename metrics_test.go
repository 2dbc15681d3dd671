package goAccounts

import "testing"

func TestMetricsCounters(t *testing.T) {
	m := newMetrics(MetricsConfig{})

	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricTwoFactorRejected)

	snap := m.Snapshot()
	if snap[MetricLoginSuccess] != 2 {
		t.Fatalf("expected 2 login successes, got %d", snap[MetricLoginSuccess])
	}
	if snap[MetricTwoFactorRejected] != 1 {
		t.Fatalf("expected 1 rejection, got %d", snap[MetricTwoFactorRejected])
	}
	if snap[MetricRegisterSuccess] != 0 {
		t.Fatalf("expected untouched counter at 0, got %d", snap[MetricRegisterSuccess])
	}
}

func TestMetricsDisabledIsNoop(t *testing.T) {
	m := newMetrics(MetricsConfig{Disabled: true})
	if m != nil {
		t.Fatal("expected nil metrics when disabled")
	}

	// nil receivers must be safe: flows call Inc unconditionally.
	m.Inc(MetricLoginSuccess)
	if len(m.Snapshot()) != 0 {
		t.Fatal("expected empty snapshot from nil metrics")
	}
}
