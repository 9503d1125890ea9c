// Package store persists the two kinds of ephemeral state this service owns:
// one-time OAuth transaction entries (CSRF state and PKCE verifier) and
// session records. Both live in a shared key-value namespace with TTLs.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Update when the session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrCorruptRecord is returned by Get when a stored record cannot be
	// decoded.
	ErrCorruptRecord = errors.New("corrupt session record")

	// ErrPayloadTooLarge is returned when a serialized record exceeds
	// maxRecordSize.
	ErrPayloadTooLarge = errors.New("session payload too large")
)

// TransactionStore holds the one-time entries of an in-flight authorization
// round trip. Every successful read consumes the entry: a second read of the
// same key must fail, that is the correctness guarantee against replay.
type TransactionStore interface {
	StoreState(ctx context.Context, state string) error
	ValidateState(ctx context.Context, state string) (bool, error)
	StorePKCEVerifier(ctx context.Context, state, verifier string) error
	RetrievePKCEVerifier(ctx context.Context, state string) (string, error)
}

// SessionStore manages session records over their TTL-bound lifecycle.
type SessionStore interface {
	Create(ctx context.Context, sessionID string, data *SessionData) error
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)
	Update(ctx context.Context, sessionID string, data *SessionData) error
	Delete(ctx context.Context, sessionID string) (int64, error)
	Exists(ctx context.Context, sessionID string) (bool, error)
	TTL(ctx context.Context, sessionID string) (time.Duration, error)
	RefreshTTL(ctx context.Context, sessionID string) error
}

// Store is the full surface backed by a single key-value namespace.
type Store interface {
	TransactionStore
	SessionStore
}
