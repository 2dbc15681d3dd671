// Package goAccounts is an embeddable credential-issuance-and-validation core.
//
// It orchestrates user registration, login, password recovery and change,
// email-ownership confirmation, email change, two-factor enrolment (TOTP and
// SMS-OTP) and single-use recovery codes. Persistence, outbound notification
// and form validation are pluggable collaborators supplied by the host
// application through [Config]; the package ships default implementations
// under store/ and notify/ that any conforming type can replace.
//
// The security-sensitive invariants live here: login cost is identical for
// unknown emails and wrong passwords, signed tokens are bound to the flow
// that issued them, and recovery codes are encrypted at rest and consumable
// exactly once.
//
// Construct a [Core] with [New], call [Core.Init] once to provision the
// persistence backend, and [Core.Close] on shutdown to drain the background
// notification dispatcher.
package goAccounts
