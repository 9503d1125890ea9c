package constants

import "time"

const (
	LoginBridge = "loginbridge"

	QueryParamAuthorizationCode   = "code"
	QueryParamClientID            = "client_id"
	QueryParamCodeChallenge       = "code_challenge"
	QueryParamCodeChallengeMethod = "code_challenge_method"
	QueryParamCodeVerifier        = "code_verifier"
	QueryParamError               = "error"
	QueryParamErrorDescription    = "error_description"
	QueryParamRedirectURI         = "redirect_uri"
	QueryParamResponseMode        = "response_mode"
	QueryParamResponseType        = "response_type"
	QueryParamScopes              = "scope"
	QueryParamState               = "state"

	CodeChallengeMethod = "S256"
	GrantType           = "authorization_code"
	ResponseMode        = "query"
	ResponseType        = "code"

	SessionCookieName = "session"

	SessionKeyPrefix      = "session:"
	StateKeyPrefix        = "auth:state:"
	PKCEVerifierKeyPrefix = "auth:pkce:"

	// TransactionTTL bounds the round trip to the identity provider and back.
	TransactionTTL = 300 * time.Second

	// DefaultSessionTTL applies when the config does not set one.
	DefaultSessionTTL = 8 * time.Hour
)
