package server

import (
	"net/http"

	"github.com/loginbridge/loginbridge/internal/auth"
	"github.com/loginbridge/loginbridge/internal/constants"
	"github.com/loginbridge/loginbridge/internal/logging"
	"github.com/loginbridge/loginbridge/internal/web"
)

const (
	pathHome        = "/"
	pathLogin       = "/login"
	pathLoginSecret = "/login/secret"
	pathCallback    = "/auth/callback"
	pathLogout      = "/logout"
)

func newAPI(orch *auth.Orchestrator, cookies *CookieManager) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+pathLogin, func(w http.ResponseWriter, r *http.Request) {
		l := logging.FromRequest(r)

		init, err := orch.Initiate(r.Context(), cookies.Read(r))
		if err != nil {
			l.WithError(err).Error("failed to initiate login")
			renderInitiateError(w, r, err)
			return
		}
		if init.AlreadyAuthenticated {
			http.Redirect(w, r, pathHome, http.StatusFound)
			return
		}
		http.Redirect(w, r, init.AuthorizationURL, http.StatusFound)
	})

	mux.HandleFunc("GET "+pathCallback, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		code := q.Get(constants.QueryParamAuthorizationCode)
		state := q.Get(constants.QueryParamState)
		errParam := q.Get(constants.QueryParamError)

		comp := orch.Complete(r.Context(), code, state, errParam)
		if comp.Outcome != auth.OutcomeAuthenticated {
			renderOutcome(w, r, comp.Outcome)
			return
		}

		if err := cookies.Set(w, comp.SessionID); err != nil {
			logging.FromRequest(r).WithError(err).Error("failed to set session cookie")
			renderOutcome(w, r, auth.OutcomeAuthFailed)
			return
		}
		http.Redirect(w, r, pathHome, http.StatusFound)
	})

	mux.HandleFunc("POST "+pathLoginSecret, func(w http.ResponseWriter, r *http.Request) {
		l := logging.FromRequest(r)

		if err := r.ParseForm(); err != nil {
			l.WithError(err).Info("failed to parse shared-secret form")
			renderOutcome(w, r, auth.OutcomeMalformedCallback)
			return
		}

		userID := r.FormValue("user_id")
		secret := r.FormValue("secret")
		comp := orch.CompleteSharedSecret(r.Context(), userID, secret)
		if comp.Outcome != auth.OutcomeAuthenticated {
			renderOutcome(w, r, comp.Outcome)
			return
		}

		if err := cookies.Set(w, comp.SessionID); err != nil {
			l.WithError(err).Error("failed to set session cookie")
			renderOutcome(w, r, auth.OutcomeAuthFailed)
			return
		}
		http.Redirect(w, r, pathHome, http.StatusFound)
	})

	mux.HandleFunc("GET "+pathLogout, func(w http.ResponseWriter, r *http.Request) {
		orch.Logout(r.Context(), cookies.Read(r))
		cookies.Clear(w)
		http.Redirect(w, r, pathLogin, http.StatusFound)
	})

	mux.HandleFunc("GET "+pathHome, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathHome {
			http.NotFound(w, r)
			return
		}

		rec, renewed, err := orch.Validate(r.Context(), cookies.Read(r))
		if err != nil {
			logging.FromRequest(r).WithError(err).Error("failed to validate session")
			renderOutcome(w, r, auth.OutcomeAuthFailed)
			return
		}
		if rec == nil {
			http.Redirect(w, r, pathLogin, http.StatusFound)
			return
		}
		if renewed {
			if err := cookies.Set(w, rec.SessionID); err != nil {
				logging.FromRequest(r).WithError(err).Warn("failed to re-set session cookie")
			}
		}
		web.RenderHome(w, r, rec.UserID)
	})

	return mux
}
