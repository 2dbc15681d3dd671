package goAccounts

import (
	"errors"
	"strings"
)

// Error is a handled failure that is safe to translate directly into a
// client-visible response. Code is a stable machine-readable identifier;
// Details carries optional human-readable context (validation messages).
//
// Two Error values compare equal under [errors.Is] when their codes match,
// so sentinel comparisons like errors.Is(err, ErrInvalidCredentials) work
// regardless of attached details.
type Error struct {
	Code    string
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return e.Code + ": " + e.Details
	}
	return e.Code
}

// Is matches handled errors by code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords; callers must not be able to tell the two apart.
	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS"}
	// ErrUserAlreadyExists is returned when registering an email that is taken.
	ErrUserAlreadyExists = &Error{Code: "USER_ALREADY_EXISTS"}
	// ErrPasswordRequired is returned when registration supplies neither a
	// password nor a provider identity token.
	ErrPasswordRequired = &Error{Code: "PASSWORD_REQUIRED"}
	// ErrFormValidationFailed aggregates every field message from the
	// validation collaborator into one failure.
	ErrFormValidationFailed = &Error{Code: "FORM_VALIDATION_FAILED"}
	// ErrUserNotFound is returned when an operation names a missing user id.
	ErrUserNotFound = &Error{Code: "USER_NOT_FOUND"}
	// ErrEmailConfirmationTokenNotFound is returned for expired, tampered or
	// intent-mismatched tokens, as if the token did not exist.
	ErrEmailConfirmationTokenNotFound = &Error{Code: "EMAIL_CONFIRMATION_TOKEN_NOT_FOUND"}
	// ErrInvalidToken is returned when a token verifies but is missing the
	// claims its flow requires.
	ErrInvalidToken = &Error{Code: "INVALID_TOKEN"}
	// ErrInvalidAuthenticationCode is returned for TOTP or recovery-code
	// mismatches during two-factor flows.
	ErrInvalidAuthenticationCode = &Error{Code: "INVALID_AUTHENTICATION_CODE"}
	// ErrRecoveryCodeNotFound is returned when no unused recovery code matches
	// the submitted value.
	ErrRecoveryCodeNotFound = &Error{Code: "RECOVERY_CODE_NOT_FOUND"}
)

// IsHandled reports whether err (or anything it wraps) is a classified,
// client-safe failure. Everything else is an internal fault and must be
// surfaced to callers as an opaque error.
func IsHandled(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

func formValidationFailed(details []string) *Error {
	return &Error{Code: ErrFormValidationFailed.Code, Details: strings.Join(details, ", ")}
}
