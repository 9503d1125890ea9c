package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loginbridge/loginbridge/internal/constants"
)

const (
	defaultServerAddr    = ":8080"
	defaultAuthorizePath = "/oauth2/v2.0/authorize"
	defaultTokenPath     = "/oauth2/v2.0/token"

	minSigningKeyLen = 32
)

var defaultScopes = []string{"openid", "profile", "email"}

type Config struct {
	Provider ProviderConfig `yaml:"provider" json:"provider"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	Cookie   CookieConfig   `yaml:"cookie" json:"cookie"`
	Session  SessionConfig  `yaml:"session" json:"session"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	Server   ServerConfig   `yaml:"server" json:"server"`
}

// ProviderConfig describes the external identity provider. Its required
// fields are validated by the provider package at the point of use, so that
// a partially configured provider surfaces as a configuration error naming
// the missing fields rather than a broken redirect.
type ProviderConfig struct {
	BaseURL       string   `yaml:"baseURL" json:"baseURL"`
	Tenant        string   `yaml:"tenant" json:"tenant"`
	ClientID      string   `yaml:"clientID" json:"clientID"`
	ClientSecret  string   `yaml:"clientSecret" json:"clientSecret"`
	AuthorizePath string   `yaml:"authorizePath" json:"authorizePath"`
	TokenPath     string   `yaml:"tokenPath" json:"tokenPath"`
	RedirectURL   string   `yaml:"redirectURL" json:"redirectURL"`
	Scopes        []string `yaml:"scopes" json:"scopes"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"-"`
	DB       int    `yaml:"db" json:"db"`
}

type CookieConfig struct {
	// SigningKey protects both the session token signature and the sealed
	// session cookie. At least 32 bytes.
	SigningKey string `yaml:"signingKey" json:"-"`
	Secure     *bool  `yaml:"secure" json:"secure"`
}

type SessionConfig struct {
	TTLSeconds int `yaml:"ttlSeconds" json:"ttlSeconds"`
}

// AuthConfig holds settings for the shared-secret strategy. When
// SharedSecretHash is empty the strategy is disabled and only the identity
// provider flow can issue sessions.
type AuthConfig struct {
	SharedSecretHash string `yaml:"sharedSecretHash" json:"-"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

func Load() (*Config, error) {
	fileName := "/etc/loginbridge/config/config.yaml"
	if fn := os.Getenv("LOGINBRIDGE_CONFIG"); fn != "" {
		fileName = fn
	}
	var cfg Config
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.ValidateAndInitialize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) ValidateAndInitialize() error {
	// Apply defaults.
	if c.Provider.AuthorizePath == "" {
		c.Provider.AuthorizePath = defaultAuthorizePath
	}
	if c.Provider.TokenPath == "" {
		c.Provider.TokenPath = defaultTokenPath
	}
	if c.Provider.Scopes == nil {
		c.Provider.Scopes = defaultScopes
	}
	if c.Session.TTLSeconds == 0 {
		c.Session.TTLSeconds = int(constants.DefaultSessionTTL.Seconds())
	}
	if c.Cookie.Secure == nil {
		secure := true
		c.Cookie.Secure = &secure
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultServerAddr
	}

	// Validate required fields.
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr must be set")
	}
	if c.Cookie.SigningKey == "" {
		return fmt.Errorf("cookie.signingKey must be set")
	}
	if len(c.Cookie.SigningKey) < minSigningKeyLen {
		return fmt.Errorf("cookie.signingKey must be at least %d bytes", minSigningKeyLen)
	}
	if c.Session.TTLSeconds < 0 {
		return fmt.Errorf("session.ttlSeconds must not be negative")
	}
	if h := c.Auth.SharedSecretHash; h != "" && !strings.HasPrefix(h, "$2") {
		return fmt.Errorf("auth.sharedSecretHash must be a bcrypt hash")
	}

	return nil
}

// SessionTTL returns the configured session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLSeconds) * time.Second
}
