package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loginbridge/loginbridge/internal/config"
)

func newTestServer(notFoundStatus int) *http.Server {
	reg := prometheus.NewRegistry()
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(notFoundStatus)
	})
	conf := &config.Config{Server: config.ServerConfig{Addr: ":0"}}
	return newServer(conf, api, reg, reg)
}

func TestServerEndpoints(t *testing.T) {
	g := NewWithT(t)

	srv := newTestServer(http.StatusTeapot)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		g.Expect(rec.Code).To(Equal(http.StatusOK), path)
	}

	// Anything else goes to the API handler.
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	g.Expect(rec.Code).To(Equal(http.StatusTeapot))
}

func TestServerMetrics(t *testing.T) {
	g := NewWithT(t)

	srv := newTestServer(http.StatusOK)

	// Generate one observation, then scrape.
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	g.Expect(rec.Code).To(Equal(http.StatusOK))

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	g.Expect(rec.Code).To(Equal(http.StatusOK))

	body, err := io.ReadAll(rec.Result().Body)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(body)).To(ContainSubstring("http_request_duration_seconds"))
	g.Expect(string(body)).To(ContainSubstring(`path="/login"`))
}
