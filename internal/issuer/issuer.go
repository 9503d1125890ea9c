// Package issuer mints and verifies the signed session token embedded in
// every session record. The token is self-contained: subject is the session
// id, and its expiry always agrees with the record's expires_at.
package issuer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/loginbridge/loginbridge/internal/constants"
)

func Algorithm() jwa.SignatureAlgorithm { return jwa.HS256() }

type Issuer interface {
	Issue(sessionID string, now time.Time) (string, time.Time, error)
	Verify(token string, now time.Time) (string, bool)
}

type sessionTokenIssuer struct {
	key      jwk.Key
	tokenTTL time.Duration
}

// New creates an Issuer signing with the configured key. Tokens expire
// after tokenTTL, the session TTL.
func New(signingKey []byte, tokenTTL time.Duration) (Issuer, error) {
	key, err := jwk.Import(signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to import signing key: %w", err)
	}
	return &sessionTokenIssuer{key: key, tokenTTL: tokenTTL}, nil
}

func (s *sessionTokenIssuer) Issue(sessionID string, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.tokenTTL)
	iat := now
	jti := uuid.NewString()

	tok, err := jwt.NewBuilder().
		Issuer(constants.LoginBridge).
		Subject(sessionID).
		Expiration(exp).
		IssuedAt(iat).
		JwtID(jti).
		Build()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to build session token: %w", err)
	}

	b, err := jwt.Sign(tok, jwt.WithKey(Algorithm(), s.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return string(b), exp, nil
}

func (s *sessionTokenIssuer) Verify(token string, now time.Time) (string, bool) {
	tok, err := jwt.ParseString(token,
		jwt.WithKey(Algorithm(), s.key),
		jwt.WithIssuer(constants.LoginBridge),
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })))
	if err != nil {
		return "", false
	}

	if exp, ok := tok.Expiration(); !ok || now.After(exp) {
		return "", false
	}

	sub, ok := tok.Subject()
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}
