package auth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/loginbridge/loginbridge/internal/issuer"
	"github.com/loginbridge/loginbridge/internal/pkce"
	"github.com/loginbridge/loginbridge/internal/provider"
	"github.com/loginbridge/loginbridge/internal/store"
)

// Identity is a verified user plus the tokens that back the session record.
type Identity struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenExpiry  time.Time
}

// Credentials carries the inputs of either strategy. The OAuth strategy
// reads Code and Verifier; the shared-secret strategy reads UserID and
// Secret.
type Credentials struct {
	Code     string
	Verifier string

	UserID string
	Secret string
}

// Strategy verifies credentials and produces the identity a session is
// issued for. Both strategies feed the same session-issuing path.
type Strategy interface {
	Authenticate(ctx context.Context, c Credentials) (*Identity, error)
}

// OAuthStrategy exchanges an authorization code for the provider's tokens.
type OAuthStrategy struct {
	Provider *provider.Provider
}

func (s *OAuthStrategy) Authenticate(ctx context.Context, c Credentials) (*Identity, error) {
	tok, err := s.Provider.Exchange(ctx, c.Code, c.Verifier)
	if err != nil {
		return nil, err
	}
	userID, err := provider.SubjectFromToken(tok)
	if err != nil {
		return nil, err
	}
	return &Identity{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  tok.Expiry,
	}, nil
}

// PasswordStrategy checks a shared secret against a bcrypt hash and mints
// local tokens instead of upstream ones, so the session record keeps its
// shape regardless of which strategy issued it.
type PasswordStrategy struct {
	SecretHash []byte
	Issuer     issuer.Issuer
	NowFunc    func() time.Time
}

func (s *PasswordStrategy) Authenticate(ctx context.Context, c Credentials) (*Identity, error) {
	if len(s.SecretHash) == 0 {
		return nil, ErrStrategyDisabled
	}
	if c.UserID == "" {
		return nil, fmt.Errorf("user id must not be empty")
	}
	if err := bcrypt.CompareHashAndPassword(s.SecretHash, []byte(c.Secret)); err != nil {
		return nil, ErrSecretMismatch
	}

	now := s.NowFunc()
	accessToken, exp, err := s.Issuer.Issue(c.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mint local access token: %w", err)
	}
	refreshToken, err := pkce.State()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &Identity{
		UserID:       c.UserID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenExpiry:  exp,
	}, nil
}

// issueSession is the single code path that turns a verified identity into
// a stored session record.
func issueSession(ctx context.Context, sessions store.SessionStore, tokens issuer.Issuer,
	now time.Time, id *Identity) (string, *store.SessionRecord, error) {

	sessionID, err := pkce.State()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	sessionToken, exp, err := tokens.Issue(sessionID, now)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	data := &store.SessionData{
		UserID:       id.UserID,
		SessionToken: sessionToken,
		AccessToken:  id.AccessToken,
		RefreshToken: id.RefreshToken,
		TokenExpiry:  id.TokenExpiry,
	}
	if err := sessions.Create(ctx, sessionID, data); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionID, &store.SessionRecord{
		SessionID:    sessionID,
		SessionToken: sessionToken,
		UserID:       id.UserID,
		AccessToken:  id.AccessToken,
		RefreshToken: id.RefreshToken,
		TokenExpiry:  id.TokenExpiry,
		CreatedAt:    now,
		ExpiresAt:    exp,
	}, nil
}
