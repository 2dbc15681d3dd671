package goAccounts

import "context"

// Login verifies an email and password pair and returns the matching user.
// Unknown emails and wrong passwords are indistinguishable to the caller:
// both run a full password check (against an impossible reference hash when
// the email is unknown) and both return [ErrInvalidCredentials].
//
// When the returned user has a second factor enrolled, the host must
// complete [Core.Validate2FAToken] before treating the session as
// authenticated.
func (c *Core) Login(ctx context.Context, email, pass string) (*User, error) {
	email = normalizeEmail(email)

	user, err := c.db.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, c.internalErr("login", err)
	}

	storedHash := ""
	if user != nil {
		storedHash = user.Password
	}

	ok, err := c.passwords.Check(email, pass, storedHash)
	if err != nil {
		return nil, c.internalErr("login", err)
	}
	if user == nil || !ok {
		c.metrics.Inc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	c.metrics.Inc(MetricLoginSuccess)
	return user, nil
}
