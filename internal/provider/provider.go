// Package provider talks to the external identity provider: it assembles
// the authorization redirect URL and exchanges authorization codes for
// tokens. Nothing here is persisted.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/loginbridge/loginbridge/internal/config"
	"github.com/loginbridge/loginbridge/internal/constants"
)

const (
	// exchangeTimeout bounds the token endpoint call. Authorization codes
	// are single-use, so the call is never retried.
	exchangeTimeout = 10 * time.Second
)

// ConfigError reports identity provider settings that are required for an
// operation but absent from the configuration.
type ConfigError struct {
	Fields []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("identity provider configuration missing required fields: %s", strings.Join(e.Fields, ", "))
}

// ExchangeError reports a non-2xx response from the token endpoint. The
// body never contains our client secret, only the provider's error payload.
type ExchangeError struct {
	Status int
	Body   string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("token endpoint returned status %d", e.Status)
}

type Provider struct {
	conf *config.ProviderConfig
}

func New(conf *config.ProviderConfig) *Provider {
	return &Provider{conf: conf}
}

func (p *Provider) validate(forTokenExchange bool) error {
	var missing []string
	check := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}
	check("provider.baseURL", p.conf.BaseURL)
	check("provider.tenant", p.conf.Tenant)
	check("provider.clientID", p.conf.ClientID)
	check("provider.redirectURL", p.conf.RedirectURL)
	check("provider.authorizePath", p.conf.AuthorizePath)
	if forTokenExchange {
		check("provider.clientSecret", p.conf.ClientSecret)
		check("provider.tokenPath", p.conf.TokenPath)
	}
	if len(missing) > 0 {
		return &ConfigError{Fields: missing}
	}
	return nil
}

func (p *Provider) endpointURL(path string) string {
	return fmt.Sprintf("%s/%s%s", strings.TrimRight(p.conf.BaseURL, "/"), p.conf.Tenant, path)
}

// AuthorizationURL assembles the redirect URL for the authorize endpoint.
// Parameter order is fixed and all values are percent-encoded.
func (p *Provider) AuthorizationURL(state, codeChallenge string) (string, error) {
	if err := p.validate(false); err != nil {
		return "", err
	}

	params := []struct{ name, value string }{
		{constants.QueryParamClientID, p.conf.ClientID},
		{constants.QueryParamResponseType, constants.ResponseType},
		{constants.QueryParamRedirectURI, p.conf.RedirectURL},
		{constants.QueryParamResponseMode, constants.ResponseMode},
		{constants.QueryParamScopes, strings.Join(p.conf.Scopes, " ")},
		{constants.QueryParamState, state},
		{constants.QueryParamCodeChallenge, codeChallenge},
		{constants.QueryParamCodeChallengeMethod, constants.CodeChallengeMethod},
	}

	var sb strings.Builder
	sb.WriteString(p.endpointURL(p.conf.AuthorizePath))
	for i, param := range params {
		if i == 0 {
			sb.WriteByte('?')
		} else {
			sb.WriteByte('&')
		}
		sb.WriteString(param.name)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(param.value))
	}
	return sb.String(), nil
}

// Exchange posts the authorization code and PKCE verifier to the token
// endpoint and returns the raw token bundle.
func (p *Provider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if err := p.validate(true); err != nil {
		return nil, err
	}

	conf := &oauth2.Config{
		ClientID:     p.conf.ClientID,
		ClientSecret: p.conf.ClientSecret,
		RedirectURL:  p.conf.RedirectURL,
		Endpoint: oauth2.Endpoint{
			TokenURL:  p.endpointURL(p.conf.TokenPath),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, exchangeTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: exchangeTimeout})

	tok, err := conf.Exchange(ctx, code,
		oauth2.SetAuthURLParam(constants.QueryParamCodeVerifier, verifier))
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			return nil, &ExchangeError{Status: rErr.Response.StatusCode, Body: string(rErr.Body)}
		}
		return nil, fmt.Errorf("token exchange transport failure: %w", err)
	}
	return tok, nil
}
