package goAccounts

import (
	"context"

	"github.com/upfold/goAccounts/token"
)

// ChangeEmail starts an email change for an authenticated user. Nothing is
// committed here: the pending address and the password re-hashed under it
// travel inside the CONFIRM_EMAIL token, and the account only changes when
// the owner of the new address presents that token to [Core.ConfirmEmail].
func (c *Core) ChangeEmail(ctx context.Context, userID, pass, newEmail string, agent UserAgent) error {
	user, err := c.requireUser(ctx, "changeEmail", userID)
	if err != nil {
		return err
	}

	// Normalization must not depend on the validator collaborator.
	newEmail = normalizeEmail(newEmail)

	normalized, err := c.validateForm("", "changeEmail", map[string]string{"email": newEmail})
	if err != nil {
		return err
	}
	newEmail = normalized["email"]

	ok, err := c.passwords.Check(user.Email, pass, user.Password)
	if err != nil {
		return c.internalErr("changeEmail", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	// The hash binds email and password together, so the pending address
	// needs its own hash prepared up front.
	hash, err := c.passwords.Hash(newEmail, pass)
	if err != nil {
		return c.internalErr("changeEmail", err)
	}

	changeToken, err := c.tokens.Sign(token.IntentConfirmEmail, user.ID, token.Payload{
		Email:        newEmail,
		PasswordHash: hash,
	})
	if err != nil {
		return c.internalErr("changeEmail", err)
	}
	if err := c.db.UpdateUser(ctx, UserUpdate{ID: user.ID, EmailConfirmationToken: &changeToken}); err != nil {
		return c.internalErr("changeEmail", err)
	}

	recipient := *user
	c.notifier.Dispatch("change-email", newEmail, func(ctx context.Context) error {
		return c.email.SendChangeEmailEmail(ctx, recipient, newEmail, changeToken, agent)
	})
	return nil
}

// ConfirmEmail finalizes either a signup confirmation or an email change,
// depending on what the token carries. A verified token without an email
// claim is structurally unusable and fails with [ErrInvalidToken].
// FirstTime is true for plain signup confirmations.
func (c *Core) ConfirmEmail(ctx context.Context, tokenStr string) (*ConfirmEmailResult, error) {
	user, claims, err := c.userForIntentToken(ctx, "confirmEmail", token.IntentConfirmEmail, tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Email == "" {
		return nil, ErrInvalidToken
	}

	confirmed := true
	cleared := ""
	update := UserUpdate{
		ID:                     user.ID,
		Email:                  &claims.Email,
		EmailConfirmed:         &confirmed,
		EmailConfirmationToken: &cleared,
	}
	if claims.PasswordHash != "" {
		update.Password = &claims.PasswordHash
	}
	if err := c.db.UpdateUser(ctx, update); err != nil {
		return nil, c.internalErr("confirmEmail", err)
	}

	c.metrics.Inc(MetricEmailConfirmed)
	return &ConfirmEmailResult{FirstTime: claims.PasswordHash == ""}, nil
}
