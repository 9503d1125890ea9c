// Package auth sequences the authentication flows: login initiation,
// callback completion and per-request session validation. It owns session
// records end to end; nothing else writes them.
package auth

import "errors"

// Outcome classifies the result of an authentication operation. Handlers
// render a distinct user-facing message per failure outcome, never the
// underlying error.
type Outcome int

const (
	OutcomeAnonymous Outcome = iota
	OutcomeAuthenticated

	// OutcomeIdPError means the identity provider returned an error
	// parameter on the callback.
	OutcomeIdPError

	// OutcomeMalformedCallback means the callback is missing code or state.
	OutcomeMalformedCallback

	// OutcomeExpiredRequest means the state was unknown, already consumed,
	// or its PKCE verifier was gone. The user has to restart the flow.
	OutcomeExpiredRequest

	// OutcomeAuthFailed covers token exchange and session creation failures.
	OutcomeAuthFailed

	// OutcomeServiceUnavailable means required configuration is absent.
	OutcomeServiceUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnonymous:
		return "anonymous"
	case OutcomeAuthenticated:
		return "authenticated"
	case OutcomeIdPError:
		return "idp_error"
	case OutcomeMalformedCallback:
		return "malformed_callback"
	case OutcomeExpiredRequest:
		return "expired_request"
	case OutcomeAuthFailed:
		return "auth_failed"
	case OutcomeServiceUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

var (
	// ErrSecretMismatch is returned by the shared-secret strategy when the
	// supplied secret does not match the configured hash.
	ErrSecretMismatch = errors.New("shared secret mismatch")

	// ErrStrategyDisabled is returned when the shared-secret strategy has no
	// configured hash.
	ErrStrategyDisabled = errors.New("shared secret authentication is not enabled")
)
