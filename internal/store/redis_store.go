package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/loginbridge/loginbridge/internal/constants"
	"github.com/loginbridge/loginbridge/internal/logging"
)

const stateMarker = "1"

// RedisStore implements Store on a Redis client. One-time entries are
// consumed with GETDEL so that check and delete cannot interleave across
// concurrent callbacks.
type RedisStore struct {
	client     redis.Cmdable
	sessionTTL time.Duration

	nowFunc func() time.Time
}

func NewRedisClient(conf RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
}

// RedisOptions mirrors the redis section of the config file.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(client redis.Cmdable, sessionTTL time.Duration) *RedisStore {
	return &RedisStore{
		client:     client,
		sessionTTL: sessionTTL,
		nowFunc:    time.Now,
	}
}

func stateKey(state string) string { return constants.StateKeyPrefix + state }
func pkceKey(state string) string  { return constants.PKCEVerifierKeyPrefix + state }
func sessionKey(id string) string  { return constants.SessionKeyPrefix + id }

func (s *RedisStore) StoreState(ctx context.Context, state string) error {
	if err := s.client.Set(ctx, stateKey(state), stateMarker, constants.TransactionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store state: %w", err)
	}
	return nil
}

func (s *RedisStore) ValidateState(ctx context.Context, state string) (bool, error) {
	_, err := s.client.GetDel(ctx, stateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to consume state: %w", err)
	}
	return true, nil
}

func (s *RedisStore) StorePKCEVerifier(ctx context.Context, state, verifier string) error {
	if err := s.client.Set(ctx, pkceKey(state), verifier, constants.TransactionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store PKCE verifier: %w", err)
	}
	return nil
}

func (s *RedisStore) RetrievePKCEVerifier(ctx context.Context, state string) (string, error) {
	verifier, err := s.client.GetDel(ctx, pkceKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume PKCE verifier: %w", err)
	}
	return verifier, nil
}

func (s *RedisStore) Create(ctx context.Context, sessionID string, data *SessionData) error {
	_, b, err := marshalRecord(sessionID, data, s.nowFunc(), s.sessionTTL)
	if err != nil {
		return err
	}
	key := sessionKey(sessionID)
	if err := s.client.Set(ctx, key, b, s.sessionTTL).Err(); err != nil {
		// Best-effort cleanup of a partially created key. The original
		// failure is what the caller needs to see.
		if delErr := s.client.Del(ctx, key).Err(); delErr != nil {
			logging.FromContext(ctx).WithError(delErr).
				WithField("session", logrus.Fields{"id": sessionID}).
				Warn("failed to clean up partially created session")
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	b, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptRecord, err)
	}
	// The record carries its own expiry as a guard against clock skew and
	// stale TTLs. An expired record is removed on sight.
	if !rec.ExpiresAt.After(s.nowFunc()) {
		if _, err := s.Delete(ctx, sessionID); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("failed to delete expired session")
		}
		return nil, nil
	}
	return &rec, nil
}

func (s *RedisStore) Update(ctx context.Context, sessionID string, data *SessionData) error {
	ok, err := s.Exists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	_, b, err := marshalRecord(sessionID, data, s.nowFunc(), s.sessionTTL)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey(sessionID), b, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) (int64, error) {
	n, err := s.client.Del(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete session: %w", err)
	}
	return n, nil
}

func (s *RedisStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) TTL(ctx context.Context, sessionID string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read session TTL: %w", err)
	}
	return d, nil
}

func (s *RedisStore) RefreshTTL(ctx context.Context, sessionID string) error {
	ok, err := s.client.Expire(ctx, sessionKey(sessionID), s.sessionTTL).Result()
	if err != nil {
		return fmt.Errorf("failed to refresh session TTL: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}
