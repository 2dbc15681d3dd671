package goAccounts

import (
	"testing"

	"github.com/upfold/goAccounts/token"
)

func TestConfigValidate(t *testing.T) {
	base := func() Config {
		return Config{
			DB:            newFakeDB(),
			Email:         &fakeEmail{},
			EncryptionKey: testKey,
			Token: token.Config{
				SigningMethod: token.MethodHS256,
				PrivateKey:    []byte("secret"),
			},
		}
	}

	cfg := base()
	cfg.DB = nil
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error without database adapter")
	}

	cfg = base()
	cfg.Email = nil
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error without email service")
	}

	cfg = base()
	cfg.EncryptionKey = []byte("too-short")
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for wrong key size")
	}

	cfg = base()
	cfg.Token.PrivateKey = nil
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error without signing key")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{
		DB:            newFakeDB(),
		Email:         &fakeEmail{},
		EncryptionKey: testKey,
		Token: token.Config{
			SigningMethod: token.MethodHS256,
			PrivateKey:    []byte("secret"),
		},
	}

	core, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer core.Close()

	if core.config.RecoveryCodeCount != 10 {
		t.Fatalf("expected 10 recovery codes by default, got %d", core.config.RecoveryCodeCount)
	}
	if core.config.TOTP.Digits != 6 || core.config.TOTP.Period != 30 || core.config.TOTP.Skew != 6 {
		t.Fatalf("unexpected TOTP defaults: %+v", core.config.TOTP)
	}
	if core.config.TOTP.Algorithm != "SHA1" {
		t.Fatalf("expected SHA1 default, got %q", core.config.TOTP.Algorithm)
	}
	if _, ok := core.validator.(DefaultValidator); !ok {
		t.Fatalf("expected DefaultValidator, got %T", core.validator)
	}
	if core.passwords == nil {
		t.Fatal("expected a default password service")
	}
	if core.Metrics() == nil {
		t.Fatal("expected metrics enabled by default")
	}
}

func TestConfigSkewSentinels(t *testing.T) {
	base := Config{
		DB:            newFakeDB(),
		Email:         &fakeEmail{},
		EncryptionKey: testKey,
		Token: token.Config{
			SigningMethod: token.MethodHS256,
			PrivateKey:    []byte("secret"),
		},
	}

	strict := base
	strict.TOTP.Skew = -1
	core, err := New(strict)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer core.Close()
	if core.config.TOTP.Skew != 0 {
		t.Fatalf("expected negative skew to mean no tolerance, got %d", core.config.TOTP.Skew)
	}

	wide := base
	wide.TOTP.Skew = 2
	core2, err := New(wide)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer core2.Close()
	if core2.config.TOTP.Skew != 2 {
		t.Fatalf("expected explicit skew kept, got %d", core2.config.TOTP.Skew)
	}
}
