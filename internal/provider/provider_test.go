package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/loginbridge/loginbridge/internal/config"
)

func testProviderConfig() *config.ProviderConfig {
	return &config.ProviderConfig{
		BaseURL:       "https://idp.example.com",
		Tenant:        "tenant1",
		ClientID:      "client-1",
		ClientSecret:  "secret-1",
		AuthorizePath: "/oauth2/v2.0/authorize",
		TokenPath:     "/oauth2/v2.0/token",
		RedirectURL:   "https://app.example.com/auth/callback",
		Scopes:        []string{"openid", "profile", "email"},
	}
}

func TestAuthorizationURL(t *testing.T) {
	g := NewWithT(t)

	p := New(testProviderConfig())
	u, err := p.AuthorizationURL("S", "C")

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(u).To(Equal("https://idp.example.com/tenant1/oauth2/v2.0/authorize" +
		"?client_id=client-1" +
		"&response_type=code" +
		"&redirect_uri=https%3A%2F%2Fapp.example.com%2Fauth%2Fcallback" +
		"&response_mode=query" +
		"&scope=openid+profile+email" +
		"&state=S" +
		"&code_challenge=C" +
		"&code_challenge_method=S256"))
}

func TestAuthorizationURL_MissingConfig(t *testing.T) {
	tests := []struct {
		name           string
		mutate         func(*config.ProviderConfig)
		expectedFields []string
	}{
		{
			name:           "missing base URL",
			mutate:         func(c *config.ProviderConfig) { c.BaseURL = "" },
			expectedFields: []string{"provider.baseURL"},
		},
		{
			name:           "missing tenant",
			mutate:         func(c *config.ProviderConfig) { c.Tenant = "" },
			expectedFields: []string{"provider.tenant"},
		},
		{
			name: "multiple missing fields",
			mutate: func(c *config.ProviderConfig) {
				c.ClientID = ""
				c.RedirectURL = ""
			},
			expectedFields: []string{"provider.clientID", "provider.redirectURL"},
		},
		{
			name: "client secret not required for authorize",
			mutate: func(c *config.ProviderConfig) {
				c.ClientSecret = ""
				c.TokenPath = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)

			conf := testProviderConfig()
			tt.mutate(conf)
			_, err := New(conf).AuthorizationURL("S", "C")

			if len(tt.expectedFields) == 0 {
				g.Expect(err).ToNot(HaveOccurred())
				return
			}
			var confErr *ConfigError
			g.Expect(err).To(HaveOccurred())
			g.Expect(errors.As(err, &confErr)).To(BeTrue())
			g.Expect(confErr.Fields).To(Equal(tt.expectedFields))
		})
	}
}

func TestExchange(t *testing.T) {
	g := NewWithT(t)

	idToken := signedIDToken(g, map[string]any{"email": "u1@example.com"})

	var gotForm map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.Expect(r.URL.Path).To(Equal("/tenant1/oauth2/v2.0/token"))
		g.Expect(r.ParseForm()).To(Succeed())
		gotForm = map[string]string{
			"grant_type":    r.PostFormValue("grant_type"),
			"code":          r.PostFormValue("code"),
			"code_verifier": r.PostFormValue("code_verifier"),
			"redirect_uri":  r.PostFormValue("redirect_uri"),
			"client_id":     r.PostFormValue("client_id"),
			"client_secret": r.PostFormValue("client_secret"),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "upstream-access",
			"refresh_token": "upstream-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"id_token":      idToken,
		})
	}))
	defer ts.Close()

	conf := testProviderConfig()
	conf.BaseURL = ts.URL
	p := New(conf)

	tok, err := p.Exchange(context.Background(), "code-1", "verifier-1")

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(tok.AccessToken).To(Equal("upstream-access"))
	g.Expect(tok.RefreshToken).To(Equal("upstream-refresh"))
	g.Expect(gotForm).To(Equal(map[string]string{
		"grant_type":    "authorization_code",
		"code":          "code-1",
		"code_verifier": "verifier-1",
		"redirect_uri":  "https://app.example.com/auth/callback",
		"client_id":     "client-1",
		"client_secret": "secret-1",
	}))

	userID, err := SubjectFromToken(tok)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(userID).To(Equal("u1@example.com"))
}

func TestExchange_NonSuccessStatus(t *testing.T) {
	g := NewWithT(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer ts.Close()

	conf := testProviderConfig()
	conf.BaseURL = ts.URL
	p := New(conf)

	_, err := p.Exchange(context.Background(), "code-1", "verifier-1")

	var exchErr *ExchangeError
	g.Expect(err).To(HaveOccurred())
	g.Expect(errors.As(err, &exchErr)).To(BeTrue())
	g.Expect(exchErr.Status).To(Equal(http.StatusBadRequest))
	g.Expect(exchErr.Body).To(ContainSubstring("invalid_grant"))
	g.Expect(exchErr.Error()).ToNot(ContainSubstring("secret-1"))
}

func TestExchange_TransportFailure(t *testing.T) {
	g := NewWithT(t)

	conf := testProviderConfig()
	conf.BaseURL = "http://127.0.0.1:1"
	p := New(conf)

	_, err := p.Exchange(context.Background(), "code-1", "verifier-1")

	g.Expect(err).To(HaveOccurred())
	g.Expect(err.Error()).To(ContainSubstring("token exchange transport failure"))
	var exchErr *ExchangeError
	g.Expect(errors.As(err, &exchErr)).To(BeFalse())
}

func TestExchange_MissingConfig(t *testing.T) {
	g := NewWithT(t)

	conf := testProviderConfig()
	conf.ClientSecret = ""
	conf.TokenPath = ""
	p := New(conf)

	_, err := p.Exchange(context.Background(), "code-1", "verifier-1")

	var confErr *ConfigError
	g.Expect(err).To(HaveOccurred())
	g.Expect(errors.As(err, &confErr)).To(BeTrue())
	g.Expect(confErr.Fields).To(Equal([]string{"provider.clientSecret", "provider.tokenPath"}))
}
