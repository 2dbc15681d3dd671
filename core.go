package goAccounts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/upfold/goAccounts/cryptox"
	"github.com/upfold/goAccounts/password"
	"github.com/upfold/goAccounts/token"
)

// Core orchestrates the credential flows over the collaborators named in
// [Config]. Construct it with [New]; a Core is safe for concurrent use.
type Core struct {
	config    Config
	db        DatabaseAdapter
	email     EmailService
	sms       SMSService
	media     MediaService
	validator Validator
	passwords PasswordService
	cipher    *cryptox.Cipher
	tokens    *token.Manager
	totp      *totpManager
	notifier  *notifier
	metrics   *Metrics
	logger    *zap.Logger
}

// New validates cfg, fills defaults and wires the core. The returned Core
// owns a background notification worker; call [Core.Close] when done.
func New(cfg Config) (*Core, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cipher, err := cryptox.NewCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	tokens, err := token.NewManager(cfg.Token)
	if err != nil {
		return nil, err
	}

	passwords := cfg.Passwords
	if passwords == nil {
		svc, err := password.New(password.DefaultConfig())
		if err != nil {
			return nil, err
		}
		passwords = svc
	}

	return &Core{
		config:    cfg,
		db:        cfg.DB,
		email:     cfg.Email,
		sms:       cfg.SMS,
		media:     cfg.Media,
		validator: cfg.Validator,
		passwords: passwords,
		cipher:    cipher,
		tokens:    tokens,
		totp:      newTOTPManager(cfg.TOTP, cfg.ProjectName),
		notifier:  newNotifier(cfg.Logger, cfg.NotifyBuffer),
		metrics:   newMetrics(cfg.Metrics),
		logger:    cfg.Logger,
	}, nil
}

// Init prepares the persistence collaborator (connections, schemas,
// indexes). Call once before serving flows.
func (c *Core) Init(ctx context.Context) error {
	return c.db.Init(ctx)
}

// Close drains pending notifications and stops the background worker.
func (c *Core) Close() {
	c.notifier.Close()
}

// Metrics exposes the in-process flow counters; nil when disabled.
func (c *Core) Metrics() *Metrics {
	return c.metrics
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// internalErr logs an unclassified fault and returns it wrapped with the
// failing flow. Handled errors pass through untouched so sentinel
// comparisons keep working.
func (c *Core) internalErr(flow string, err error) error {
	if IsHandled(err) {
		return err
	}
	c.logger.Error("flow failed", zap.String("flow", flow), zap.Error(err))
	return fmt.Errorf("%s: %w", flow, err)
}

func (c *Core) validateForm(provider, form string, fields map[string]string) (map[string]string, error) {
	normalized, details := c.validator.Validate(provider, form, fields)
	if len(details) > 0 {
		return nil, formValidationFailed(details)
	}
	return normalized, nil
}

// requireUser resolves id to an existing user or fails with
// [ErrUserNotFound].
func (c *Core) requireUser(ctx context.Context, flow, id string) (*User, error) {
	user, err := c.db.FindUserByID(ctx, id)
	if err != nil {
		return nil, c.internalErr(flow, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
