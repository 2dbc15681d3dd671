package goAccounts

import "context"

// TwoFactorMethod is the enrolment state of a user's second factor.
type TwoFactorMethod string

const (
	// TwoFactorNone means no second factor is configured.
	TwoFactorNone TwoFactorMethod = ""
	// TwoFactorQR means an authenticator-app TOTP secret is enrolled.
	TwoFactorQR TwoFactorMethod = "qr"
	// TwoFactorSMS means TOTP codes are delivered over SMS.
	TwoFactorSMS TwoFactorMethod = "sms"
)

// User is the identity record owned by the persistence collaborator.
// Email is stored lowercase; Password holds the encoded hash and is empty
// for provider-only accounts. EmailConfirmationToken holds the currently
// valid outstanding token for any pending email-intent flow; it is
// overwritten on reissue so at most one outstanding token exists per user.
// TwoFactorSecret is ciphertext; it is decrypted only transiently.
type User struct {
	ID                     string
	Email                  string
	Password               string
	EmailConfirmed         bool
	EmailConfirmationToken string
	TwoFactor              TwoFactorMethod
	TwoFactorSecret        string
	TwoFactorPhone         string
}

// UserUpdate is a partial-field patch. Nil pointers leave the field
// untouched; a pointer to the zero value clears it.
type UserUpdate struct {
	ID                     string
	Email                  *string
	Password               *string
	EmailConfirmed         *bool
	EmailConfirmationToken *string
	TwoFactor              *TwoFactorMethod
	TwoFactorSecret        *string
	TwoFactorPhone         *string
}

// Provider links an external-identity login string to a local user.
type Provider struct {
	UserID string
	Login  string
	Data   map[string]any
}

// RecoveryCode is a single-use backup credential. Code is the ciphertext
// stored at rest; Used is monotonic false→true.
type RecoveryCode struct {
	Code string
	Used bool
}

// UserAgent describes the client on whose behalf a flow runs; it is passed
// through to notification templates untouched.
type UserAgent struct {
	Agent    string
	OS       string
	Device   string
	IP       string
	Language string
}

// RegisterOptions is the input for [Core.Register]. Provider, when set,
// is a provider-issued identity token verified by the token service.
type RegisterOptions struct {
	Email    string
	Password string
	Image    string
	Provider string
}

// TwoFactorState is the read-only projection returned by
// [Core.Get2FAStatus].
type TwoFactorState struct {
	Method TwoFactorMethod
	Phone  string
}

// ConfirmEmailResult is returned by [Core.ConfirmEmail]. FirstTime is true
// for plain signup confirmations, false when the token carried a pending
// email-change payload.
type ConfirmEmailResult struct {
	FirstTime bool
}

// DatabaseAdapter is the persistence contract consumed by the core.
// Find methods return (nil, nil) when no record matches.
//
// InsertUser and UpdateUser report an email already held by another user
// with an error wrapping [ErrUserAlreadyExists], so the orchestrator can
// classify insert-time duplicates that slip past its existence check.
//
// InsertRecoveryCodes must replace any existing batch for the user as one
// atomic unit; readers never observe a mix of old and new codes.
// UseRecoveryCode must be an atomic conditional update keyed on
// (userID, code, used=false) and report whether it took effect, so that
// concurrent consumption attempts for the same code let at most one caller
// succeed.
type DatabaseAdapter interface {
	Init(ctx context.Context) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByProviderLogin(ctx context.Context, login string) (*User, error)
	InsertUser(ctx context.Context, user User) (string, error)
	UpdateUser(ctx context.Context, update UserUpdate) error
	InsertProvider(ctx context.Context, provider Provider) error
	FindRecoveryCodesByUserID(ctx context.Context, userID string) ([]RecoveryCode, error)
	InsertRecoveryCodes(ctx context.Context, userID string, codes []string) error
	UseRecoveryCode(ctx context.Context, userID, code string) (bool, error)
}

// EmailService is the outbound email collaborator. All calls are dispatched
// fire-and-forget by the core: failures are logged, never propagated.
type EmailService interface {
	SendWelcomeEmail(ctx context.Context, user User, agent UserAgent, token string) error
	SendPasswordResetHelpEmail(ctx context.Context, email string, agent UserAgent) error
	SendPasswordResetEmail(ctx context.Context, user User, agent UserAgent, token string) error
	SendChangeEmailEmail(ctx context.Context, user User, newEmail, token string, agent UserAgent) error
	SendEmail(ctx context.Context, template, recipient string, data map[string]any, language string) error
}

// SMSService delivers two-factor configuration codes.
type SMSService interface {
	Send2FAConfigurationToken(ctx context.Context, projectName string, user User, phone, code string) error
}

// MediaService is an optional hook for hosting rendered artifacts such as
// QR images; the core itself never renders images.
type MediaService interface {
	Upload(ctx context.Context, payload []byte, options map[string]string) (string, error)
}

// PasswordService hashes and verifies passwords. Check must run with
// identical shape whether hash is a real encoded hash or empty: an empty
// hash is verified against an impossible reference hash so unknown-email
// and wrong-password paths cost the same.
type PasswordService interface {
	Hash(email, password string) (string, error)
	Check(email, password, hash string) (bool, error)
}

// Validator checks form field shapes. It returns the (possibly normalized)
// fields and a list of field-level messages; a non-empty list fails the
// flow with every message aggregated into one error.
type Validator interface {
	Validate(provider, form string, fields map[string]string) (map[string]string, []string)
}
