package goAccounts

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestForgotPasswordUnknownEmail(t *testing.T) {
	core, deps := newTestCore(t)

	if err := core.ForgotPassword(context.Background(), "nobody@example.com", UserAgent{}); err != nil {
		t.Fatalf("expected nil for unknown email, got %v", err)
	}

	core.Close()
	_, resetHelp, reset, _ := deps.email.snapshot()
	if len(resetHelp) != 1 || resetHelp[0] != "nobody@example.com" {
		t.Fatalf("expected one help email, got %v", resetHelp)
	}
	if len(reset) != 0 {
		t.Fatalf("expected no reset email, got %v", reset)
	}
}

func TestResetPasswordFlow(t *testing.T) {
	core, deps := newTestCore(t)
	user := registerUser(t, core, "alice@example.com", "CorrectHorse1")

	if err := core.ForgotPassword(context.Background(), "alice@example.com", UserAgent{}); err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	resetToken := deps.db.mustUser(t, user.ID).EmailConfirmationToken
	if resetToken == "" || resetToken == user.EmailConfirmationToken {
		t.Fatal("expected a fresh reset token stored on the user")
	}

	if err := core.ResetPassword(context.Background(), resetToken, "NewPassword2"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	stored := deps.db.mustUser(t, user.ID)
	if !stored.EmailConfirmed {
		t.Fatal("expected reset to confirm the email")
	}
	if stored.EmailConfirmationToken != "" {
		t.Fatal("expected reset token cleared")
	}

	if _, err := core.Login(context.Background(), "alice@example.com", "NewPassword2"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if _, err := core.Login(context.Background(), "alice@example.com", "CorrectHorse1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got %v", err)
	}

	if err := core.ResetPassword(context.Background(), resetToken, "ThirdPassword3"); !errors.Is(err, ErrEmailConfirmationTokenNotFound) {
		t.Fatalf("expected reused reset token rejected, got %v", err)
	}
}

func TestResetPasswordRejectsWrongIntent(t *testing.T) {
	core, _ := newTestCore(t)
	user := registerUser(t, core, "alice@example.com", "CorrectHorse1")

	// The stored token at this point carries the CONFIRM_EMAIL intent.
	err := core.ResetPassword(context.Background(), user.EmailConfirmationToken, "NewPassword2")
	if !errors.Is(err, ErrEmailConfirmationTokenNotFound) {
		t.Fatalf("expected intent mismatch rejected, got %v", err)
	}
}

func TestResetPasswordRejectsGarbageToken(t *testing.T) {
	core, _ := newTestCore(t)

	err := core.ResetPassword(context.Background(), "not.a.token", "NewPassword2")
	if !errors.Is(err, ErrEmailConfirmationTokenNotFound) {
		t.Fatalf("expected garbage token rejected, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	core, _ := newTestCore(t)
	user := registerUser(t, core, "alice@example.com", "CorrectHorse1")

	if err := core.ChangePassword(context.Background(), user.ID, "WrongHorse99", "NewPassword2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected wrong old password rejected, got %v", err)
	}
	if err := core.ChangePassword(context.Background(), "missing", "CorrectHorse1", "NewPassword2"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if err := core.ChangePassword(context.Background(), user.ID, "CorrectHorse1", "NewPassword2"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if _, err := core.Login(context.Background(), "alice@example.com", "NewPassword2"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestInternalFaultsAreNotHandled(t *testing.T) {
	core, _ := newTestCore(t)
	registerUser(t, core, "alice@example.com", "CorrectHorse1")

	if err := core.ChangePassword(context.Background(), "missing", "x", "y"); !IsHandled(err) {
		t.Fatalf("expected handled error, got %v", err)
	}
	if IsHandled(errors.New("connection refused")) {
		t.Fatal("expected plain errors to be unhandled")
	}
	if !IsHandled(formValidationFailed([]string{"a", "b"})) {
		t.Fatal("expected validation failures to be handled")
	}
	if got := formValidationFailed([]string{"a", "b"}).Details; !strings.Contains(got, "a, b") {
		t.Fatalf("expected joined details, got %q", got)
	}
}
