// Package memstore is an in-memory DatabaseAdapter for tests and examples.
// It keeps the same contract as the production adapters (nil on miss,
// atomic recovery-code batch replacement, conditional single-winner code
// consumption) behind one mutex.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	goAccounts "github.com/upfold/goAccounts"
)

// Store implements goAccounts.DatabaseAdapter in process memory.
type Store struct {
	mu        sync.Mutex
	users     map[string]goAccounts.User
	idByEmail map[string]string
	idByLogin map[string]string
	codes     map[string][]goAccounts.RecoveryCode
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     make(map[string]goAccounts.User),
		idByEmail: make(map[string]string),
		idByLogin: make(map[string]string),
		codes:     make(map[string][]goAccounts.RecoveryCode),
	}
}

func (s *Store) Init(context.Context) error { return nil }

func (s *Store) FindUserByEmail(_ context.Context, email string) (*goAccounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.idByEmail[email]
	if !ok {
		return nil, nil
	}
	user := s.users[id]
	return &user, nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*goAccounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *Store) FindUserByProviderLogin(_ context.Context, login string) (*goAccounts.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.idByLogin[login]
	if !ok {
		return nil, nil
	}
	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *Store) InsertUser(_ context.Context, user goAccounts.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.idByEmail[user.Email]; taken {
		return "", fmt.Errorf("memstore: %w", goAccounts.ErrUserAlreadyExists)
	}

	user.ID = uuid.NewString()
	s.users[user.ID] = user
	s.idByEmail[user.Email] = user.ID
	return user.ID, nil
}

func (s *Store) UpdateUser(_ context.Context, update goAccounts.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[update.ID]
	if !ok {
		return errors.New("memstore: user not found")
	}

	if update.Email != nil && *update.Email != user.Email {
		if _, taken := s.idByEmail[*update.Email]; taken {
			return fmt.Errorf("memstore: %w", goAccounts.ErrUserAlreadyExists)
		}
		delete(s.idByEmail, user.Email)
		user.Email = *update.Email
		s.idByEmail[user.Email] = user.ID
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

	s.users[update.ID] = user
	return nil
}

func (s *Store) InsertProvider(_ context.Context, provider goAccounts.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[provider.UserID]; !ok {
		return errors.New("memstore: user not found")
	}
	s.idByLogin[provider.Login] = provider.UserID
	return nil
}

func (s *Store) FindRecoveryCodesByUserID(_ context.Context, userID string) ([]goAccounts.RecoveryCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.codes[userID]
	out := make([]goAccounts.RecoveryCode, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *Store) InsertRecoveryCodes(_ context.Context, userID string, codes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make([]goAccounts.RecoveryCode, len(codes))
	for i, code := range codes {
		batch[i] = goAccounts.RecoveryCode{Code: code}
	}
	s.codes[userID] = batch
	return nil
}

func (s *Store) UseRecoveryCode(_ context.Context, userID, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.codes[userID]
	for i := range batch {
		if batch[i].Code == code && !batch[i].Used {
			batch[i].Used = true
			return true, nil
		}
	}
	return false, nil
}
