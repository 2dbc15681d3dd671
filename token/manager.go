// Package token signs and verifies the intent-bearing tokens that drive
// email confirmation and password reset. Tokens expire after 24 hours,
// carry a fresh random nonce per issuance, and are bound to the flow that
// issued them through the intent claim.
package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Intent identifies which flow a token authorizes. A token presented to a
// flow with a different intent must be treated as nonexistent.
type Intent string

const (
	// IntentConfirmEmail authorizes email-ownership confirmation, for both
	// signup and email change.
	IntentConfirmEmail Intent = "CONFIRM_EMAIL"
	// IntentForgotPassword authorizes a password reset.
	IntentForgotPassword Intent = "FORGOT_PASSWORD"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

const (
	// DefaultTTL is the fixed token lifetime.
	DefaultTTL = 24 * time.Hour

	nonceBytes = 16
)

// Config holds the signing algorithm and key material, fixed at
// construction.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	TTL           time.Duration
}

// Claims is the signed token payload. Email and PasswordHash are only set
// for email-change confirmation tokens, which carry the pending state so
// nothing is committed before the owner confirms.
type Claims struct {
	UserID       string `json:"id"`
	Intent       Intent `json:"intent"`
	Nonce        string `json:"nonce"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"password,omitempty"`
	Login        string `json:"login,omitempty"`
	jwt.RegisteredClaims
}

// Payload carries the flow-specific claims attached at signing time. Login
// is only set on provider-issued identity tokens.
type Payload struct {
	Email        string
	PasswordHash string
	Login        string
}

// Manager signs and verifies intent tokens with a single algorithm and key
// pair configured at construction.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < 0 {
		return nil, errors.New("token TTL must be positive")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires a signing secret")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Manager{config: cfg}, nil
}

// Sign issues a token for the given user and intent. Each call embeds a
// fresh random nonce, so two tokens for the same user and intent are never
// equal.
func (m *Manager) Sign(intent Intent, userID string, payload Payload) (string, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		UserID:       userID,
		Intent:       intent,
		Nonce:        hex.EncodeToString(nonce),
		Email:        payload.Email,
		PasswordHash: payload.PasswordHash,
		Login:        payload.Login,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	tok := jwt.NewWithClaims(m.method(), claims)

	signKey, err := m.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(signKey)
}

// Verify parses tokenStr and returns its claims. Expired or badly-signed
// tokens fail with an error, never a sentinel value. Intent matching is
// the caller's responsibility.
func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey()
	})
	if err != nil {
		return nil, err
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) signKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(m.config.PrivateKey)
	}
}

func (m *Manager) verifyKey() (interface{}, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	default:
		return parseEdPublicKey(m.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
