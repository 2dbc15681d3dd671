package goAccounts

import (
	"context"
	"errors"

	"github.com/upfold/goAccounts/token"
)

// Register creates a new account. Local accounts need a password; provider
// accounts supply a provider-issued identity token instead and get a
// provider linkage. Either way the account starts unconfirmed with a
// CONFIRM_EMAIL token stored, and local signups get a welcome notification
// dispatched without waiting for it.
func (c *Core) Register(ctx context.Context, opts RegisterOptions, agent UserAgent) (*User, error) {
	email := normalizeEmail(opts.Email)

	exists, err := c.db.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, c.internalErr("register", err)
	}
	if exists != nil {
		c.metrics.Inc(MetricRegisterFailure)
		return nil, ErrUserAlreadyExists
	}
	if opts.Password == "" && opts.Provider == "" {
		c.metrics.Inc(MetricRegisterFailure)
		return nil, ErrPasswordRequired
	}

	var providerClaims *token.Claims
	if opts.Provider != "" {
		providerClaims, err = c.tokens.Verify(opts.Provider)
		if err != nil || providerClaims.Login == "" {
			c.metrics.Inc(MetricRegisterFailure)
			return nil, ErrInvalidToken
		}
	}

	fields := map[string]string{"email": email}
	if opts.Password != "" {
		fields["password"] = opts.Password
	}
	if opts.Image != "" {
		fields["image"] = opts.Image
	}
	normalized, err := c.validateForm(opts.Provider, "register", fields)
	if err != nil {
		c.metrics.Inc(MetricRegisterFailure)
		return nil, err
	}
	email = normalized["email"]

	hash := ""
	if opts.Password != "" {
		hash, err = c.passwords.Hash(email, opts.Password)
		if err != nil {
			return nil, c.internalErr("register", err)
		}
	}

	// A concurrent registration can win between the existence check and
	// the insert; adapters report that by wrapping ErrUserAlreadyExists.
	id, err := c.db.InsertUser(ctx, User{Email: email, Password: hash})
	if err != nil {
		if errors.Is(err, ErrUserAlreadyExists) {
			c.metrics.Inc(MetricRegisterFailure)
			return nil, ErrUserAlreadyExists
		}
		return nil, c.internalErr("register", err)
	}

	confirmToken, err := c.tokens.Sign(token.IntentConfirmEmail, id, token.Payload{Email: email})
	if err != nil {
		return nil, c.internalErr("register", err)
	}
	if err := c.db.UpdateUser(ctx, UserUpdate{ID: id, EmailConfirmationToken: &confirmToken}); err != nil {
		return nil, c.internalErr("register", err)
	}

	if providerClaims != nil {
		link := Provider{UserID: id, Login: providerClaims.Login, Data: map[string]any{}}
		if err := c.db.InsertProvider(ctx, link); err != nil {
			return nil, c.internalErr("register", err)
		}
	}

	user, err := c.db.FindUserByID(ctx, id)
	if err != nil {
		return nil, c.internalErr("register", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if providerClaims == nil {
		welcome := *user
		c.notifier.Dispatch("welcome", user.Email, func(ctx context.Context) error {
			return c.email.SendWelcomeEmail(ctx, welcome, agent, confirmToken)
		})
	}

	c.metrics.Inc(MetricRegisterSuccess)
	return user, nil
}
