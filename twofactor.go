package goAccounts

import (
	"context"
	"errors"
	"time"
)

// Generate2FASecret produces a fresh base32 TOTP secret. Nothing is
// persisted until the matching Configure2FA call proves the user can
// produce codes from it.
func (c *Core) Generate2FASecret() (string, error) {
	return c.totp.GenerateSecret()
}

// TwoFactorProvisionURI returns the otpauth:// URI for enrolling secret in
// an authenticator app. Rendering it as a QR image is the host's concern;
// [Core.UploadProvisionArtifact] can host a rendered image if a media
// collaborator is configured.
func (c *Core) TwoFactorProvisionURI(user User, secret string) string {
	return c.totp.ProvisionURI(secret, user.Email)
}

// UploadProvisionArtifact stores a host-rendered enrolment artifact (such
// as a QR image) with the media collaborator and returns its URL.
func (c *Core) UploadProvisionArtifact(ctx context.Context, payload []byte, options map[string]string) (string, error) {
	if c.media == nil {
		return "", errors.New("no media service configured")
	}
	url, err := c.media.Upload(ctx, payload, options)
	if err != nil {
		return "", c.internalErr("uploadProvisionArtifact", err)
	}
	return url, nil
}

// Configure2FAQR enrolls an authenticator-app secret. The submitted code
// must verify against secret within the skew window; the secret is then
// encrypted at rest and a fresh recovery-code batch is issued. The returned
// plaintext codes are shown to the user exactly once.
func (c *Core) Configure2FAQR(ctx context.Context, userID, code, secret string) ([]string, error) {
	return c.enroll2FA(ctx, userID, code, secret, TwoFactorQR, "")
}

// Configure2FASMS enrolls SMS-delivered codes for phone. The code proves
// the user received the SMS sent by [Core.Send2FASMS].
func (c *Core) Configure2FASMS(ctx context.Context, userID, code, secret, phone string) ([]string, error) {
	return c.enroll2FA(ctx, userID, code, secret, TwoFactorSMS, phone)
}

func (c *Core) enroll2FA(ctx context.Context, userID, code, secret string, method TwoFactorMethod, phone string) ([]string, error) {
	user, err := c.requireUser(ctx, "configure2FA", userID)
	if err != nil {
		return nil, err
	}

	ok, err := c.totp.Verify(secret, code, time.Now())
	if err != nil {
		return nil, c.internalErr("configure2FA", err)
	}
	if !ok {
		return nil, ErrInvalidAuthenticationCode
	}

	encrypted, err := c.cipher.Encrypt(secret)
	if err != nil {
		return nil, c.internalErr("configure2FA", err)
	}

	clearedPhone := phone
	if method == TwoFactorQR {
		clearedPhone = ""
	}
	err = c.db.UpdateUser(ctx, UserUpdate{
		ID:              user.ID,
		TwoFactor:       &method,
		TwoFactorSecret: &encrypted,
		TwoFactorPhone:  &clearedPhone,
	})
	if err != nil {
		return nil, c.internalErr("configure2FA", err)
	}

	codes, err := c.issueRecoveryCodes(ctx, user.ID)
	if err != nil {
		return nil, c.internalErr("configure2FA", err)
	}

	c.metrics.Inc(MetricTwoFactorEnabled)
	return codes, nil
}

// Send2FASMS delivers the current code for secret to phone during SMS
// enrolment. Delivery runs on the notification worker; failures are logged,
// not returned.
func (c *Core) Send2FASMS(ctx context.Context, userID, secret, phone string) error {
	user, err := c.requireUser(ctx, "send2FASMS", userID)
	if err != nil {
		return err
	}

	code, err := c.totp.Current(secret, time.Now())
	if err != nil {
		return c.internalErr("send2FASMS", err)
	}

	recipient := *user
	c.notifier.Dispatch("2fa-sms", phone, func(ctx context.Context) error {
		return c.sms.Send2FAConfigurationToken(ctx, c.config.ProjectName, recipient, phone, code)
	})
	return nil
}

// Validate2FAToken checks a second-factor value during login. Values longer
// than a TOTP code are treated as recovery codes and consumed; TOTP-length
// values are verified against the user's decrypted secret. Both mismatch
// paths fail with [ErrInvalidAuthenticationCode].
func (c *Core) Validate2FAToken(ctx context.Context, userID, value string) (*User, error) {
	user, err := c.requireUser(ctx, "validate2FAToken", userID)
	if err != nil {
		return nil, err
	}

	if len(value) > c.config.TOTP.Digits {
		if err := c.UseRecoveryCode(ctx, userID, value); err != nil {
			if errors.Is(err, ErrRecoveryCodeNotFound) {
				c.metrics.Inc(MetricTwoFactorRejected)
				return nil, ErrInvalidAuthenticationCode
			}
			return nil, err
		}
		c.metrics.Inc(MetricTwoFactorValidated)
		return user, nil
	}

	secret, err := c.cipher.Decrypt(user.TwoFactorSecret)
	if err != nil {
		return nil, c.internalErr("validate2FAToken", err)
	}
	ok, err := c.totp.Verify(secret, value, time.Now())
	if err != nil {
		return nil, c.internalErr("validate2FAToken", err)
	}
	if !ok {
		c.metrics.Inc(MetricTwoFactorRejected)
		return nil, ErrInvalidAuthenticationCode
	}

	c.metrics.Inc(MetricTwoFactorValidated)
	return user, nil
}

// Disable2FA turns the second factor off after re-verifying the password.
// The stored secret, phone and method are all cleared.
func (c *Core) Disable2FA(ctx context.Context, userID, pass string) error {
	user, err := c.requireUser(ctx, "disable2FA", userID)
	if err != nil {
		return err
	}

	ok, err := c.passwords.Check(user.Email, pass, user.Password)
	if err != nil {
		return c.internalErr("disable2FA", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	none := TwoFactorNone
	cleared := ""
	err = c.db.UpdateUser(ctx, UserUpdate{
		ID:              user.ID,
		TwoFactor:       &none,
		TwoFactorSecret: &cleared,
		TwoFactorPhone:  &cleared,
	})
	if err != nil {
		return c.internalErr("disable2FA", err)
	}
	return nil
}

// Get2FAStatus reports the user's enrolment method and phone. Secrets are
// never part of the projection.
func (c *Core) Get2FAStatus(ctx context.Context, userID string) (*TwoFactorState, error) {
	user, err := c.requireUser(ctx, "get2FAStatus", userID)
	if err != nil {
		return nil, err
	}
	return &TwoFactorState{Method: user.TwoFactor, Phone: user.TwoFactorPhone}, nil
}
