package goAccounts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/upfold/goAccounts/token"
)

// fakeDB is an in-memory DatabaseAdapter for flow tests. It honors the
// adapter contract: nil on miss, pointer-patch updates, atomic batch
// replacement and conditional code consumption.
type fakeDB struct {
	mu        sync.Mutex
	seq       int
	users     map[string]User
	idByEmail map[string]string
	idByLogin map[string]string
	codes     map[string][]RecoveryCode
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:     make(map[string]User),
		idByEmail: make(map[string]string),
		idByLogin: make(map[string]string),
		codes:     make(map[string][]RecoveryCode),
	}
}

func (db *fakeDB) Init(context.Context) error { return nil }

func (db *fakeDB) FindUserByEmail(_ context.Context, email string) (*User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, ok := db.idByEmail[email]
	if !ok {
		return nil, nil
	}
	user := db.users[id]
	return &user, nil
}

func (db *fakeDB) FindUserByID(_ context.Context, id string) (*User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	user, ok := db.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (db *fakeDB) FindUserByProviderLogin(_ context.Context, login string) (*User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	id, ok := db.idByLogin[login]
	if !ok {
		return nil, nil
	}
	user := db.users[id]
	return &user, nil
}

func (db *fakeDB) InsertUser(_ context.Context, user User) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, taken := db.idByEmail[user.Email]; taken {
		return "", fmt.Errorf("fakeDB: %w", ErrUserAlreadyExists)
	}
	db.seq++
	user.ID = fmt.Sprintf("u%d", db.seq)
	db.users[user.ID] = user
	db.idByEmail[user.Email] = user.ID
	return user.ID, nil
}

func (db *fakeDB) UpdateUser(_ context.Context, update UserUpdate) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	user, ok := db.users[update.ID]
	if !ok {
		return errors.New("fakeDB: user not found")
	}
	if update.Email != nil && *update.Email != user.Email {
		delete(db.idByEmail, user.Email)
		user.Email = *update.Email
		db.idByEmail[user.Email] = user.ID
	}
	if update.Password != nil {
		user.Password = *update.Password
	}
	if update.EmailConfirmed != nil {
		user.EmailConfirmed = *update.EmailConfirmed
	}
	if update.EmailConfirmationToken != nil {
		user.EmailConfirmationToken = *update.EmailConfirmationToken
	}
	if update.TwoFactor != nil {
		user.TwoFactor = *update.TwoFactor
	}
	if update.TwoFactorSecret != nil {
		user.TwoFactorSecret = *update.TwoFactorSecret
	}
	if update.TwoFactorPhone != nil {
		user.TwoFactorPhone = *update.TwoFactorPhone
	}
	db.users[update.ID] = user
	return nil
}

func (db *fakeDB) InsertProvider(_ context.Context, provider Provider) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.idByLogin[provider.Login] = provider.UserID
	return nil
}

func (db *fakeDB) FindRecoveryCodesByUserID(_ context.Context, userID string) ([]RecoveryCode, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	stored := db.codes[userID]
	out := make([]RecoveryCode, len(stored))
	copy(out, stored)
	return out, nil
}

func (db *fakeDB) InsertRecoveryCodes(_ context.Context, userID string, codes []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	batch := make([]RecoveryCode, len(codes))
	for i, code := range codes {
		batch[i] = RecoveryCode{Code: code}
	}
	db.codes[userID] = batch
	return nil
}

func (db *fakeDB) UseRecoveryCode(_ context.Context, userID, code string) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	batch := db.codes[userID]
	for i := range batch {
		if batch[i].Code == code && !batch[i].Used {
			batch[i].Used = true
			return true, nil
		}
	}
	return false, nil
}

func (db *fakeDB) mustUser(t *testing.T, id string) User {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()
	user, ok := db.users[id]
	if !ok {
		t.Fatalf("user %s not found", id)
	}
	return user
}

// fakeEmail records every outbound email. A non-nil fail makes every send
// report that error.
type fakeEmail struct {
	mu        sync.Mutex
	fail      error
	welcome   []string
	resetHelp []string
	reset     []string
	change    []string
}

func (e *fakeEmail) SendWelcomeEmail(_ context.Context, user User, _ UserAgent, token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.welcome = append(e.welcome, user.Email+"|"+token)
	return e.fail
}

func (e *fakeEmail) SendPasswordResetHelpEmail(_ context.Context, email string, _ UserAgent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetHelp = append(e.resetHelp, email)
	return e.fail
}

func (e *fakeEmail) SendPasswordResetEmail(_ context.Context, user User, _ UserAgent, token string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset = append(e.reset, user.Email+"|"+token)
	return e.fail
}

func (e *fakeEmail) SendChangeEmailEmail(_ context.Context, user User, newEmail, token string, _ UserAgent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.change = append(e.change, newEmail+"|"+token)
	return e.fail
}

func (e *fakeEmail) SendEmail(_ context.Context, _, _ string, _ map[string]any, _ string) error {
	return e.fail
}

func (e *fakeEmail) snapshot() (welcome, resetHelp, reset, change []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.welcome...),
		append([]string(nil), e.resetHelp...),
		append([]string(nil), e.reset...),
		append([]string(nil), e.change...)
}

// fakePasswords is a deterministic PasswordService. The hash binds email
// and password; an empty stored hash never matches, mirroring the
// impossible reference hash of the argon2 service. checks counts every
// Check call so tests can assert the unknown-email path still verifies.
type fakePasswords struct {
	checks atomic.Int32
}

func (*fakePasswords) Hash(email, pass string) (string, error) {
	return "h!" + email + "#" + pass, nil
}

func (p *fakePasswords) Check(email, pass, hash string) (bool, error) {
	p.checks.Add(1)
	if hash == "" {
		return false, nil
	}
	return hash == "h!"+email+"#"+pass, nil
}

// fakeSMS records 2FA configuration codes.
type fakeSMS struct {
	mu    sync.Mutex
	codes []string
}

func (s *fakeSMS) Send2FAConfigurationToken(_ context.Context, _ string, _ User, phone, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, phone+"|"+code)
	return nil
}

func (s *fakeSMS) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.codes...)
}

var testKey = []byte("0123456789abcdef0123456789abcdef")

type testDeps struct {
	db        *fakeDB
	email     *fakeEmail
	sms       *fakeSMS
	passwords *fakePasswords
}

func newTestCore(t *testing.T, mutate ...func(*Config)) (*Core, *testDeps) {
	t.Helper()

	deps := &testDeps{
		db:        newFakeDB(),
		email:     &fakeEmail{},
		sms:       &fakeSMS{},
		passwords: &fakePasswords{},
	}

	cfg := Config{
		ProjectName:   "testproject",
		DB:            deps.db,
		Email:         deps.email,
		SMS:           deps.sms,
		Passwords:     deps.passwords,
		EncryptionKey: testKey,
		Token: token.Config{
			SigningMethod: token.MethodHS256,
			PrivateKey:    []byte("test-signing-secret"),
			Issuer:        "testproject",
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}

	core, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(core.Close)
	return core, deps
}

func registerUser(t *testing.T, core *Core, email, pass string) *User {
	t.Helper()
	user, err := core.Register(context.Background(), RegisterOptions{Email: email, Password: pass}, UserAgent{})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return user
}
