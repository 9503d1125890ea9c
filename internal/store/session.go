package store

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// maxRecordSize caps the serialized record written to the store.
	maxRecordSize = 50000 // in bytes
)

// SessionData is the payload supplied by the caller when creating or
// updating a session. All fields are required.
type SessionData struct {
	UserID       string    `json:"user_id"`
	SessionToken string    `json:"session_token"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenExpiry  time.Time `json:"token_expiry"`
}

// SessionRecord is what the store persists and returns. The expiry embedded
// in SessionToken agrees with ExpiresAt, and ExpiresAt is always CreatedAt
// plus the configured session TTL.
type SessionRecord struct {
	SessionID    string    `json:"session_id"`
	SessionToken string    `json:"session_token"`
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenExpiry  time.Time `json:"token_expiry"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (d *SessionData) validate() error {
	if d == nil {
		return fmt.Errorf("session data must not be nil")
	}
	required := []struct {
		name  string
		empty bool
	}{
		{"user_id", d.UserID == ""},
		{"session_token", d.SessionToken == ""},
		{"access_token", d.AccessToken == ""},
		{"refresh_token", d.RefreshToken == ""},
		{"token_expiry", d.TokenExpiry.IsZero()},
	}
	for _, f := range required {
		if f.empty {
			return fmt.Errorf("session data field '%s' is missing or empty", f.name)
		}
	}
	return nil
}

// marshalRecord validates the payload, assembles the full record and
// enforces the serialized size cap. Nothing is written when it fails.
func marshalRecord(sessionID string, data *SessionData, now time.Time, ttl time.Duration) (*SessionRecord, []byte, error) {
	if err := data.validate(); err != nil {
		return nil, nil, err
	}
	rec := &SessionRecord{
		SessionID:    sessionID,
		SessionToken: data.SessionToken,
		UserID:       data.UserID,
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		TokenExpiry:  data.TokenExpiry,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal session record: %w", err)
	}
	if len(b) > maxRecordSize {
		return nil, nil, fmt.Errorf("%w: %d bytes exceeds maximum of %d", ErrPayloadTooLarge, len(b), maxRecordSize)
	}
	return rec, b, nil
}
