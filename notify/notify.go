// Package notify provides development implementations of the outbound
// notification collaborators. They log instead of sending, which is enough
// for examples and local integration work.
package notify

import (
	"context"

	"go.uber.org/zap"

	goAccounts "github.com/upfold/goAccounts"
)

// LogEmailService writes every outbound email to a zap logger. Tokens are
// logged in full so local flows can be completed by hand.
type LogEmailService struct {
	Logger *zap.Logger
}

// NewLogEmailService wraps logger; a nil logger becomes a no-op.
func NewLogEmailService(logger *zap.Logger) *LogEmailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmailService{Logger: logger}
}

func (s *LogEmailService) SendWelcomeEmail(_ context.Context, user goAccounts.User, _ goAccounts.UserAgent, token string) error {
	s.Logger.Info("welcome email",
		zap.String("to", user.Email),
		zap.String("confirmation_token", token),
	)
	return nil
}

func (s *LogEmailService) SendPasswordResetHelpEmail(_ context.Context, email string, _ goAccounts.UserAgent) error {
	s.Logger.Info("password reset help email", zap.String("to", email))
	return nil
}

func (s *LogEmailService) SendPasswordResetEmail(_ context.Context, user goAccounts.User, _ goAccounts.UserAgent, token string) error {
	s.Logger.Info("password reset email",
		zap.String("to", user.Email),
		zap.String("reset_token", token),
	)
	return nil
}

func (s *LogEmailService) SendChangeEmailEmail(_ context.Context, user goAccounts.User, newEmail, token string, _ goAccounts.UserAgent) error {
	s.Logger.Info("change email confirmation",
		zap.String("to", newEmail),
		zap.String("previous", user.Email),
		zap.String("confirmation_token", token),
	)
	return nil
}

func (s *LogEmailService) SendEmail(_ context.Context, template, recipient string, _ map[string]any, language string) error {
	s.Logger.Info("templated email",
		zap.String("template", template),
		zap.String("to", recipient),
		zap.String("language", language),
	)
	return nil
}

// LogSMSService writes 2FA configuration codes to a zap logger.
type LogSMSService struct {
	Logger *zap.Logger
}

// NewLogSMSService wraps logger; a nil logger becomes a no-op.
func NewLogSMSService(logger *zap.Logger) *LogSMSService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSMSService{Logger: logger}
}

func (s *LogSMSService) Send2FAConfigurationToken(_ context.Context, projectName string, _ goAccounts.User, phone, code string) error {
	s.Logger.Info("2fa configuration sms",
		zap.String("project", projectName),
		zap.String("phone", phone),
		zap.String("code", code),
	)
	return nil
}
