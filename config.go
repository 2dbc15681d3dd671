package goAccounts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/upfold/goAccounts/cryptox"
	"github.com/upfold/goAccounts/token"
)

// TOTPConfig controls time-based one-time password generation and
// verification.
type TOTPConfig struct {
	// Digits is the code length. Recovery codes are longer than Digits by
	// construction; Validate2FAToken dispatches on that boundary, so
	// changing Digits without revisiting the recovery-code length would
	// silently break the dispatch.
	Digits int
	// Period is the time step in seconds.
	Period int
	// Skew is the verification tolerance in steps on each side of now.
	// Zero selects the default of 6; a negative value requests exact-step
	// matching (no tolerance).
	Skew int
	// Algorithm is SHA1, SHA256 or SHA512.
	Algorithm string
}

// MetricsConfig toggles the in-process flow counters, which are on unless
// disabled.
type MetricsConfig struct {
	Disabled bool
}

// Config names every collaborator and parameter the core needs. It is
// consumed once by [New]; there is no post-construction mutation.
type Config struct {
	// ProjectName appears in otpauth URIs and SMS messages.
	ProjectName string

	// DB is the persistence collaborator. Required.
	DB DatabaseAdapter
	// Email is the outbound email collaborator. Required.
	Email EmailService
	// SMS delivers 2FA configuration codes. Optional; defaults to a no-op.
	SMS SMSService
	// Media is an optional artifact-hosting hook.
	Media MediaService
	// Validator checks form shapes. Optional; defaults to [DefaultValidator].
	Validator Validator
	// Passwords hashes and verifies passwords. Optional; defaults to an
	// argon2id service with default parameters.
	Passwords PasswordService

	// EncryptionKey is the 32-byte key protecting 2FA secrets and recovery
	// codes at rest. Required.
	EncryptionKey []byte
	// Token configures intent-token signing. Required.
	Token token.Config

	// RecoveryCodeCount is the batch size issued on 2FA enrolment.
	RecoveryCodeCount int
	// NotifyBuffer is the capacity of the background notification queue.
	NotifyBuffer int

	TOTP    TOTPConfig
	Metrics MetricsConfig

	// Logger is the fault/observability channel. Defaults to a no-op.
	Logger *zap.Logger
}

func defaultConfig() Config {
	return Config{
		ProjectName:       "goAccounts",
		RecoveryCodeCount: 10,
		NotifyBuffer:      64,
		TOTP: TOTPConfig{
			Digits:    6,
			Period:    30,
			Skew:      6,
			Algorithm: "SHA1",
		},
	}
}

func (cfg *Config) applyDefaults() {
	def := defaultConfig()
	if cfg.ProjectName == "" {
		cfg.ProjectName = def.ProjectName
	}
	if cfg.RecoveryCodeCount <= 0 {
		cfg.RecoveryCodeCount = def.RecoveryCodeCount
	}
	if cfg.NotifyBuffer <= 0 {
		cfg.NotifyBuffer = def.NotifyBuffer
	}
	if cfg.TOTP.Digits <= 0 {
		cfg.TOTP.Digits = def.TOTP.Digits
	}
	if cfg.TOTP.Period <= 0 {
		cfg.TOTP.Period = def.TOTP.Period
	}
	if cfg.TOTP.Skew < 0 {
		cfg.TOTP.Skew = 0
	} else if cfg.TOTP.Skew == 0 {
		cfg.TOTP.Skew = def.TOTP.Skew
	}
	if cfg.TOTP.Algorithm == "" {
		cfg.TOTP.Algorithm = def.TOTP.Algorithm
	}
	if cfg.Validator == nil {
		cfg.Validator = DefaultValidator{}
	}
	if cfg.SMS == nil {
		cfg.SMS = noopSMS{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

// Validate reports the first missing requirement.
func (cfg *Config) Validate() error {
	if cfg.DB == nil {
		return errors.New("database adapter required")
	}
	if cfg.Email == nil {
		return errors.New("email service required")
	}
	if len(cfg.EncryptionKey) != cryptox.KeySize {
		return fmt.Errorf("encryption key must be %d bytes", cryptox.KeySize)
	}
	return nil
}

// noopSMS is the default SMS collaborator for hosts that never enable
// SMS-based 2FA.
type noopSMS struct{}

func (noopSMS) Send2FAConfigurationToken(context.Context, string, User, string, string) error {
	return nil
}
