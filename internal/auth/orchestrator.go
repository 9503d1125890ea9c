package auth

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loginbridge/loginbridge/internal/issuer"
	"github.com/loginbridge/loginbridge/internal/logging"
	"github.com/loginbridge/loginbridge/internal/pkce"
	"github.com/loginbridge/loginbridge/internal/provider"
	"github.com/loginbridge/loginbridge/internal/store"
)

// Orchestrator drives the authentication state machine. It is the only
// writer of session records.
type Orchestrator struct {
	store    store.Store
	provider *provider.Provider
	oauth    Strategy
	password Strategy
	tokens   issuer.Issuer
	nowFunc  func() time.Time
}

func NewOrchestrator(st store.Store, p *provider.Provider, tokens issuer.Issuer,
	secretHash []byte, nowFunc func() time.Time) *Orchestrator {

	return &Orchestrator{
		store:    st,
		provider: p,
		oauth:    &OAuthStrategy{Provider: p},
		password: &PasswordStrategy{SecretHash: secretHash, Issuer: tokens, NowFunc: nowFunc},
		tokens:   tokens,
		nowFunc:  nowFunc,
	}
}

// Initiation is the result of starting a login flow.
type Initiation struct {
	// AlreadyAuthenticated is set when the caller's session is still valid
	// and no provider round trip is needed.
	AlreadyAuthenticated bool

	// AuthorizationURL is where to redirect the browser otherwise.
	AuthorizationURL string
}

// Completion is the result of finishing a flow, via callback or shared
// secret.
type Completion struct {
	Outcome   Outcome
	SessionID string
	Record    *store.SessionRecord
}

// Initiate starts the login flow. A caller with a valid session short
// circuits without touching the transaction store.
func (o *Orchestrator) Initiate(ctx context.Context, sessionID string) (*Initiation, error) {
	if sessionID != "" {
		rec, _, err := o.Validate(ctx, sessionID)
		if err != nil {
			logging.FromContext(ctx).WithError(err).Warn("session validation failed during login initiation")
		}
		if rec != nil {
			return &Initiation{AlreadyAuthenticated: true}, nil
		}
	}

	state, err := pkce.State()
	if err != nil {
		return nil, err
	}
	verifier, err := pkce.Verifier()
	if err != nil {
		return nil, err
	}
	challenge := pkce.ChallengeS256(verifier)

	if err := o.store.StoreState(ctx, state); err != nil {
		return nil, err
	}
	if err := o.store.StorePKCEVerifier(ctx, state, verifier); err != nil {
		return nil, err
	}

	authURL, err := o.provider.AuthorizationURL(state, challenge)
	if err != nil {
		return nil, err
	}
	return &Initiation{AuthorizationURL: authURL}, nil
}

// Complete finishes the callback leg of the flow. Failures map to outcomes;
// the root cause is logged here and never surfaced to the browser.
func (o *Orchestrator) Complete(ctx context.Context, code, state, errParam string) *Completion {
	l := logging.FromContext(ctx)

	if errParam != "" {
		l.WithField("idpError", errParam).Info("identity provider returned an error")
		return &Completion{Outcome: OutcomeIdPError}
	}
	if code == "" || state == "" {
		l.Info("callback missing code or state")
		return &Completion{Outcome: OutcomeMalformedCallback}
	}
	if !pkce.ValidStateFormat(state) {
		l.Info("callback state failed format check")
		return &Completion{Outcome: OutcomeMalformedCallback}
	}

	ok, err := o.store.ValidateState(ctx, state)
	if err != nil {
		l.WithError(err).Error("failed to consume state")
		return &Completion{Outcome: OutcomeAuthFailed}
	}
	if !ok {
		l.Info("state unknown or already consumed")
		return &Completion{Outcome: OutcomeExpiredRequest}
	}

	verifier, err := o.store.RetrievePKCEVerifier(ctx, state)
	if err != nil {
		l.WithError(err).Error("failed to consume PKCE verifier")
		return &Completion{Outcome: OutcomeAuthFailed}
	}
	if verifier == "" {
		l.Info("PKCE verifier missing for state")
		return &Completion{Outcome: OutcomeExpiredRequest}
	}

	return o.completeWithStrategy(ctx, o.oauth, Credentials{Code: code, Verifier: verifier})
}

// CompleteSharedSecret finishes the shared-secret leg. It issues the same
// kind of session as the provider flow.
func (o *Orchestrator) CompleteSharedSecret(ctx context.Context, userID, secret string) *Completion {
	return o.completeWithStrategy(ctx, o.password, Credentials{UserID: userID, Secret: secret})
}

func (o *Orchestrator) completeWithStrategy(ctx context.Context, s Strategy, c Credentials) *Completion {
	l := logging.FromContext(ctx)

	identity, err := s.Authenticate(ctx, c)
	if err != nil {
		var confErr *provider.ConfigError
		if errors.As(err, &confErr) {
			l.WithError(err).Error("identity provider configuration incomplete")
			return &Completion{Outcome: OutcomeServiceUnavailable}
		}
		var exchErr *provider.ExchangeError
		if errors.As(err, &exchErr) {
			l.WithError(err).WithField("status", exchErr.Status).Error("token exchange rejected")
		} else {
			l.WithError(err).Error("authentication failed")
		}
		return &Completion{Outcome: OutcomeAuthFailed}
	}

	sessionID, rec, err := issueSession(ctx, o.store, o.tokens, o.nowFunc(), identity)
	if err != nil {
		l.WithError(err).Error("failed to issue session")
		return &Completion{Outcome: OutcomeAuthFailed}
	}

	l.WithField("session", logrus.Fields{"user": identity.UserID}).Info("session created")
	return &Completion{Outcome: OutcomeAuthenticated, SessionID: sessionID, Record: rec}
}

// Validate resolves a session id to its record. It returns nil for absent,
// expired or tampered sessions; the cookie is not cleared here. The second
// return value reports whether the session was renewed and the cookie
// should be re-set.
func (o *Orchestrator) Validate(ctx context.Context, sessionID string) (*store.SessionRecord, bool, error) {
	if sessionID == "" {
		return nil, false, nil
	}

	rec, err := o.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrCorruptRecord) {
			logging.FromContext(ctx).WithError(err).Error("corrupt session record")
			return nil, false, nil
		}
		return nil, false, err
	}
	if rec == nil {
		return nil, false, nil
	}

	// The embedded token must verify and name this very session.
	now := o.nowFunc()
	if sub, ok := o.tokens.Verify(rec.SessionToken, now); !ok || sub != sessionID {
		logging.FromContext(ctx).Warn("session token failed verification, discarding session")
		if _, err := o.store.Delete(ctx, sessionID); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("failed to delete invalid session")
		}
		return nil, false, nil
	}

	// Sliding renewal inside the last tenth of the window: re-issue the
	// session token so its expiry keeps agreeing with the record, and
	// rewrite the record with a refreshed TTL.
	window := rec.ExpiresAt.Sub(rec.CreatedAt)
	if window > 0 && rec.ExpiresAt.Sub(now) < window/10 {
		if renewed, err := o.renew(ctx, rec); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("failed to renew session")
		} else {
			return renewed, true, nil
		}
	}

	return rec, false, nil
}

func (o *Orchestrator) renew(ctx context.Context, rec *store.SessionRecord) (*store.SessionRecord, error) {
	now := o.nowFunc()
	sessionToken, exp, err := o.tokens.Issue(rec.SessionID, now)
	if err != nil {
		return nil, err
	}
	data := &store.SessionData{
		UserID:       rec.UserID,
		SessionToken: sessionToken,
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		TokenExpiry:  rec.TokenExpiry,
	}
	if err := o.store.Update(ctx, rec.SessionID, data); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).WithField("session", logrus.Fields{"user": rec.UserID}).Info("session renewed")

	renewed := *rec
	renewed.SessionToken = sessionToken
	renewed.CreatedAt = now
	renewed.ExpiresAt = exp
	return &renewed, nil
}

// Logout deletes the session. Deleting an unknown session is not an error.
func (o *Orchestrator) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}
	n, err := o.store.Delete(ctx, sessionID)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("failed to delete session on logout")
		return
	}
	logging.FromContext(ctx).WithField("deleted", n).Info("session deleted")
}
