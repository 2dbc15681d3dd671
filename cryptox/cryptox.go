// Package cryptox provides the symmetric encryption and secure random
// primitives used by the credential core: AES-256-GCM with a
// ciphertext.tag.iv hex wire format, and hex-encoded random tokens.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// KeySize is the required key length (AES-256).
	KeySize = 32

	separator = "."
)

var (
	// ErrMalformed is returned when an encrypted payload does not have the
	// expected three-part hex structure.
	ErrMalformed = errors.New("cryptox: malformed encrypted payload")
	// ErrAuthentication is returned when the authentication tag does not
	// verify against the ciphertext.
	ErrAuthentication = errors.New("cryptox: message authentication failed")
)

// Cipher performs authenticated encryption with a key fixed at
// construction. The AEAD instance is built once and reused; a Cipher is
// safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher builds a Cipher from a 32-byte key.
func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cryptox: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns
// "<ciphertext>.<tag>.<iv>" with each component hex-encoded.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	split := len(sealed) - c.aead.Overhead()
	ciphertext, tag := sealed[:split], sealed[split:]

	return hex.EncodeToString(ciphertext) + separator +
		hex.EncodeToString(tag) + separator +
		hex.EncodeToString(iv), nil
}

// Decrypt reverses Encrypt. It fails closed: any structural defect returns
// ErrMalformed and a tag mismatch returns ErrAuthentication.
func (c *Cipher) Decrypt(encrypted string) (string, error) {
	parts := strings.Split(encrypted, separator)
	if len(parts) != 3 {
		return "", ErrMalformed
	}

	ciphertext, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", ErrMalformed
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformed
	}
	iv, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrMalformed
	}
	if len(tag) != c.aead.Overhead() || len(iv) != c.aead.NonceSize() {
		return "", ErrMalformed
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrAuthentication
	}
	return string(plaintext), nil
}

// RandomHex returns n cryptographically secure random bytes hex-encoded
// (2n characters).
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
