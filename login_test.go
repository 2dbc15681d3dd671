package goAccounts

import (
	"context"
	"errors"
	"testing"
)

func TestLoginSuccess(t *testing.T) {
	core, _ := newTestCore(t)
	registerUser(t, core, "alice@example.com", "CorrectHorse1")

	user, err := core.Login(context.Background(), "Alice@Example.com", "CorrectHorse1")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	core, _ := newTestCore(t)
	registerUser(t, core, "alice@example.com", "CorrectHorse1")

	_, err := core.Login(context.Background(), "alice@example.com", "WrongHorse99")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmailStillChecksPassword(t *testing.T) {
	core, deps := newTestCore(t)
	registerUser(t, core, "alice@example.com", "CorrectHorse1")

	before := deps.passwords.checks.Load()
	_, err := core.Login(context.Background(), "nobody@example.com", "CorrectHorse1")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if deps.passwords.checks.Load() != before+1 {
		t.Fatal("expected a password check even for unknown emails")
	}
}

func TestLoginMetrics(t *testing.T) {
	core, _ := newTestCore(t)
	registerUser(t, core, "alice@example.com", "CorrectHorse1")

	if _, err := core.Login(context.Background(), "alice@example.com", "CorrectHorse1"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	_, _ = core.Login(context.Background(), "alice@example.com", "WrongHorse99")

	snap := core.Metrics().Snapshot()
	if snap[MetricLoginSuccess] != 1 || snap[MetricLoginFailure] != 1 {
		t.Fatalf("unexpected counters: %v", snap)
	}
}
