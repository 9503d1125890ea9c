package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loginbridge/loginbridge/internal/auth"
	"github.com/loginbridge/loginbridge/internal/config"
	"github.com/loginbridge/loginbridge/internal/issuer"
	"github.com/loginbridge/loginbridge/internal/provider"
	"github.com/loginbridge/loginbridge/internal/store"
)

// New wires the components into an HTTP server.
func New(conf *config.Config, st store.Store) (*http.Server, error) {
	iss, err := issuer.New([]byte(conf.Cookie.SigningKey), conf.SessionTTL())
	if err != nil {
		return nil, fmt.Errorf("failed to build session token issuer: %w", err)
	}

	p := provider.New(&conf.Provider)
	orch := auth.NewOrchestrator(st, p, iss, []byte(conf.Auth.SharedSecretHash), time.Now)
	cookies := NewCookieManager([]byte(conf.Cookie.SigningKey), *conf.Cookie.Secure, conf.SessionTTL())

	api := newAPI(orch, cookies)
	return newServer(conf, api, prometheus.DefaultRegisterer, prometheus.DefaultGatherer), nil
}
