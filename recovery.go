package goAccounts

import (
	"context"
	"strings"

	"github.com/upfold/goAccounts/cryptox"
)

const recoveryCodeBytes = 4

// issueRecoveryCodes mints a fresh batch for the user, encrypts each code
// for storage and atomically replaces any previous batch. The plaintext
// codes are returned once and never persisted.
func (c *Core) issueRecoveryCodes(ctx context.Context, userID string) ([]string, error) {
	plaintexts := make([]string, 0, c.config.RecoveryCodeCount)
	encrypted := make([]string, 0, c.config.RecoveryCodeCount)

	for i := 0; i < c.config.RecoveryCodeCount; i++ {
		code, err := cryptox.RandomHex(recoveryCodeBytes)
		if err != nil {
			return nil, err
		}
		sealed, err := c.cipher.Encrypt(code)
		if err != nil {
			return nil, err
		}
		plaintexts = append(plaintexts, code)
		encrypted = append(encrypted, sealed)
	}

	if err := c.db.InsertRecoveryCodes(ctx, userID, encrypted); err != nil {
		return nil, err
	}
	return plaintexts, nil
}

// UseRecoveryCode consumes one of the user's backup codes. Matching is
// case-insensitive against the transiently decrypted batch; consumption is
// an atomic conditional update on the stored ciphertext, so two concurrent
// submissions of the same code let at most one through. No unused match, or
// losing that race, fails with [ErrRecoveryCodeNotFound].
func (c *Core) UseRecoveryCode(ctx context.Context, userID, code string) error {
	stored, err := c.db.FindRecoveryCodesByUserID(ctx, userID)
	if err != nil {
		return c.internalErr("useRecoveryCode", err)
	}

	match := ""
	for _, rc := range stored {
		if rc.Used {
			continue
		}
		plain, err := c.cipher.Decrypt(rc.Code)
		if err != nil {
			return c.internalErr("useRecoveryCode", err)
		}
		if strings.EqualFold(plain, code) {
			match = rc.Code
			break
		}
	}
	if match == "" {
		return ErrRecoveryCodeNotFound
	}

	used, err := c.db.UseRecoveryCode(ctx, userID, match)
	if err != nil {
		return c.internalErr("useRecoveryCode", err)
	}
	if !used {
		return ErrRecoveryCodeNotFound
	}

	c.metrics.Inc(MetricRecoveryCodeConsumed)
	return nil
}
