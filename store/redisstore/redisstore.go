// Package redisstore implements the credential core's DatabaseAdapter on
// Redis. Users live in hashes with secondary index keys for email and
// provider login; recovery-code batches live in one hash per user so
// replacement and conditional consumption stay atomic.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	goAccounts "github.com/upfold/goAccounts"
)

const (
	defaultPrefix = "accounts"

	fieldEmail          = "email"
	fieldPassword       = "password"
	fieldEmailConfirmed = "email_confirmed"
	fieldConfirmToken   = "email_confirmation_token"
	fieldTwoFactor      = "twofactor"
	fieldTwoFactorKey   = "twofactor_secret"
	fieldTwoFactorPhone = "twofactor_phone"

	codeUnused = "0"
	codeUsed   = "1"

	maxRetries = 4
)

var errEmailTaken = fmt.Errorf("redisstore: %w", goAccounts.ErrUserAlreadyExists)

// Store implements goAccounts.DatabaseAdapter on a go-redis client.
type Store struct {
	redis  *redis.Client
	prefix string
}

// New wraps client with the default key prefix.
func New(client *redis.Client) *Store {
	return &Store{redis: client, prefix: defaultPrefix}
}

// NewWithPrefix wraps client with a custom key prefix so several
// deployments can share one Redis.
func NewWithPrefix(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) userKey(id string) string     { return s.prefix + ":user:" + id }
func (s *Store) emailKey(email string) string { return s.prefix + ":email:" + email }
func (s *Store) loginKey(login string) string { return s.prefix + ":provider:" + login }
func (s *Store) codesKey(userID string) string {
	return s.prefix + ":codes:" + userID
}

// Init verifies connectivity. Redis needs no schema provisioning.
func (s *Store) Init(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*goAccounts.User, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.FindUserByID(ctx, id)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*goAccounts.User, error) {
	fields, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return userFromFields(id, fields), nil
}

func (s *Store) FindUserByProviderLogin(ctx context.Context, login string) (*goAccounts.User, error) {
	id, err := s.redis.Get(ctx, s.loginKey(login)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.FindUserByID(ctx, id)
}

// InsertUser claims the email index with SETNX before writing the record,
// so two concurrent registrations of the same email cannot both succeed.
func (s *Store) InsertUser(ctx context.Context, user goAccounts.User) (string, error) {
	id := uuid.NewString()

	claimed, err := s.redis.SetNX(ctx, s.emailKey(user.Email), id, 0).Result()
	if err != nil {
		return "", err
	}
	if !claimed {
		return "", errEmailTaken
	}

	if err := s.redis.HSet(ctx, s.userKey(id), fieldsFromUser(user)).Err(); err != nil {
		return "", err
	}
	return id, nil
}

// UpdateUser applies a partial patch under WATCH so an email move swaps
// both index keys and the record in one transaction.
func (s *Store) UpdateUser(ctx context.Context, update goAccounts.UserUpdate) error {
	key := s.userKey(update.ID)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.HGetAll(ctx, key).Result()
			if err != nil {
				return err
			}
			if len(current) == 0 {
				return fmt.Errorf("redisstore: user %s not found", update.ID)
			}
			oldEmail := current[fieldEmail]

			patch := make(map[string]interface{})
			if update.Email != nil {
				patch[fieldEmail] = *update.Email
			}
			if update.Password != nil {
				patch[fieldPassword] = *update.Password
			}
			if update.EmailConfirmed != nil {
				patch[fieldEmailConfirmed] = boolField(*update.EmailConfirmed)
			}
			if update.EmailConfirmationToken != nil {
				patch[fieldConfirmToken] = *update.EmailConfirmationToken
			}
			if update.TwoFactor != nil {
				patch[fieldTwoFactor] = string(*update.TwoFactor)
			}
			if update.TwoFactorSecret != nil {
				patch[fieldTwoFactorKey] = *update.TwoFactorSecret
			}
			if update.TwoFactorPhone != nil {
				patch[fieldTwoFactorPhone] = *update.TwoFactorPhone
			}

			movingEmail := update.Email != nil && *update.Email != oldEmail
			if movingEmail {
				taken, err := tx.Exists(ctx, s.emailKey(*update.Email)).Result()
				if err != nil {
					return err
				}
				if taken > 0 {
					return errEmailTaken
				}
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if len(patch) > 0 {
					pipe.HSet(ctx, key, patch)
				}
				if movingEmail {
					pipe.Del(ctx, s.emailKey(oldEmail))
					pipe.Set(ctx, s.emailKey(*update.Email), update.ID, 0)
				}
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func (s *Store) InsertProvider(ctx context.Context, provider goAccounts.Provider) error {
	return s.redis.Set(ctx, s.loginKey(provider.Login), provider.UserID, 0).Err()
}

func (s *Store) FindRecoveryCodesByUserID(ctx context.Context, userID string) ([]goAccounts.RecoveryCode, error) {
	fields, err := s.redis.HGetAll(ctx, s.codesKey(userID)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]goAccounts.RecoveryCode, 0, len(fields))
	for code, state := range fields {
		out = append(out, goAccounts.RecoveryCode{Code: code, Used: state == codeUsed})
	}
	return out, nil
}

// InsertRecoveryCodes replaces the whole batch in one transaction; readers
// never observe a mix of old and new codes.
func (s *Store) InsertRecoveryCodes(ctx context.Context, userID string, codes []string) error {
	key := s.codesKey(userID)

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		for _, code := range codes {
			pipe.HSet(ctx, key, code, codeUnused)
		}
		return nil
	})
	return err
}

// UseRecoveryCode flips a single unused code to used under WATCH. Exactly
// one of any set of concurrent callers observes true.
func (s *Store) UseRecoveryCode(ctx context.Context, userID, code string) (bool, error) {
	key := s.codesKey(userID)

	for i := 0; i < maxRetries; i++ {
		used := false

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			state, err := tx.HGet(ctx, key, code).Result()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}
			if state != codeUnused {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, key, code, codeUsed)
				return nil
			})
			if err != nil {
				return err
			}
			used = true
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, err
		}
		return used, nil
	}
	return false, nil
}

func fieldsFromUser(user goAccounts.User) map[string]interface{} {
	return map[string]interface{}{
		fieldEmail:          user.Email,
		fieldPassword:       user.Password,
		fieldEmailConfirmed: boolField(user.EmailConfirmed),
		fieldConfirmToken:   user.EmailConfirmationToken,
		fieldTwoFactor:      string(user.TwoFactor),
		fieldTwoFactorKey:   user.TwoFactorSecret,
		fieldTwoFactorPhone: user.TwoFactorPhone,
	}
}

func userFromFields(id string, fields map[string]string) *goAccounts.User {
	return &goAccounts.User{
		ID:                     id,
		Email:                  fields[fieldEmail],
		Password:               fields[fieldPassword],
		EmailConfirmed:         fields[fieldEmailConfirmed] == "1",
		EmailConfirmationToken: fields[fieldConfirmToken],
		TwoFactor:              goAccounts.TwoFactorMethod(fields[fieldTwoFactor]),
		TwoFactorSecret:        fields[fieldTwoFactorKey],
		TwoFactorPhone:         fields[fieldTwoFactorPhone],
	}
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
