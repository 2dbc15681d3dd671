package goAccounts

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// DefaultValidator is the built-in form validator. Hosts with richer
// schema needs substitute their own [Validator]; the core only requires
// the aggregated-message contract.
type DefaultValidator struct{}

// Validate checks the named form and returns normalized fields plus every
// field-level message (not just the first).
func (DefaultValidator) Validate(provider, form string, fields map[string]string) (map[string]string, []string) {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}

	var details []string

	switch form {
	case "register", "changeEmail":
		email := strings.ToLower(strings.TrimSpace(out["email"]))
		out["email"] = email
		if email == "" {
			details = append(details, `"email" is required`)
		} else if !emailPattern.MatchString(email) {
			details = append(details, `"email" must be a valid email address`)
		}

		// Provider registrations carry no local password.
		if pass, ok := out["password"]; ok && pass != "" && provider == "" {
			details = append(details, passwordPolicy(pass)...)
		}
	}

	return out, details
}

func passwordPolicy(pass string) []string {
	var details []string
	if len(pass) < 8 {
		details = append(details, `"password" must be at least 8 characters`)
	}

	var hasUpper, hasLower, hasNumber bool
	for _, r := range pass {
		switch {
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case 'a' <= r && r <= 'z':
			hasLower = true
		case '0' <= r && r <= '9':
			hasNumber = true
		}
	}
	if !hasUpper || !hasLower || !hasNumber {
		details = append(details, `"password" must mix upper case, lower case and digits`)
	}

	return details
}
