package goAccounts

import (
	"context"

	"github.com/upfold/goAccounts/token"
)

// ForgotPassword starts a password reset. For unknown emails it dispatches
// a help notification and still returns nil, so the caller-visible shape is
// the same whether or not the account exists. For known emails it stores a
// FORGOT_PASSWORD token on the user and dispatches the reset notification
// without waiting for it.
func (c *Core) ForgotPassword(ctx context.Context, email string, agent UserAgent) error {
	email = normalizeEmail(email)
	c.metrics.Inc(MetricPasswordResetRequest)

	user, err := c.db.FindUserByEmail(ctx, email)
	if err != nil {
		return c.internalErr("forgotPassword", err)
	}
	if user == nil {
		c.notifier.Dispatch("password-reset-help", email, func(ctx context.Context) error {
			return c.email.SendPasswordResetHelpEmail(ctx, email, agent)
		})
		return nil
	}

	resetToken, err := c.tokens.Sign(token.IntentForgotPassword, user.ID, token.Payload{})
	if err != nil {
		return c.internalErr("forgotPassword", err)
	}
	if err := c.db.UpdateUser(ctx, UserUpdate{ID: user.ID, EmailConfirmationToken: &resetToken}); err != nil {
		return c.internalErr("forgotPassword", err)
	}

	recipient := *user
	c.notifier.Dispatch("password-reset", user.Email, func(ctx context.Context) error {
		return c.email.SendPasswordResetEmail(ctx, recipient, agent, resetToken)
	})
	return nil
}

// ResetPassword completes a reset started by [Core.ForgotPassword]. The
// token must verify, carry the FORGOT_PASSWORD intent and still be the one
// stored on the user; anything else fails as if the token did not exist.
// Proving control of the reset email also confirms the address.
func (c *Core) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	user, _, err := c.userForIntentToken(ctx, "resetPassword", token.IntentForgotPassword, tokenStr)
	if err != nil {
		return err
	}

	hash, err := c.passwords.Hash(user.Email, newPassword)
	if err != nil {
		return c.internalErr("resetPassword", err)
	}

	confirmed := true
	cleared := ""
	err = c.db.UpdateUser(ctx, UserUpdate{
		ID:                     user.ID,
		Password:               &hash,
		EmailConfirmed:         &confirmed,
		EmailConfirmationToken: &cleared,
	})
	if err != nil {
		return c.internalErr("resetPassword", err)
	}

	c.metrics.Inc(MetricPasswordResetSuccess)
	return nil
}

// ChangePassword replaces the password of an authenticated user after
// re-verifying the current one.
func (c *Core) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := c.requireUser(ctx, "changePassword", userID)
	if err != nil {
		return err
	}

	ok, err := c.passwords.Check(user.Email, oldPassword, user.Password)
	if err != nil {
		return c.internalErr("changePassword", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := c.passwords.Hash(user.Email, newPassword)
	if err != nil {
		return c.internalErr("changePassword", err)
	}
	if err := c.db.UpdateUser(ctx, UserUpdate{ID: user.ID, Password: &hash}); err != nil {
		return c.internalErr("changePassword", err)
	}
	return nil
}

// userForIntentToken resolves an email-intent token to its user. The token
// must verify, match the expected intent and equal the token currently
// stored on the user record, which is what makes these tokens single-use.
// All failure modes collapse into [ErrEmailConfirmationTokenNotFound].
func (c *Core) userForIntentToken(ctx context.Context, flow string, want token.Intent, tokenStr string) (*User, *token.Claims, error) {
	claims, err := c.tokens.Verify(tokenStr)
	if err != nil {
		return nil, nil, ErrEmailConfirmationTokenNotFound
	}

	user, err := c.db.FindUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, c.internalErr(flow, err)
	}
	if user == nil || claims.Intent != want || user.EmailConfirmationToken != tokenStr {
		return nil, nil, ErrEmailConfirmationTokenNotFound
	}
	return user, claims, nil
}
