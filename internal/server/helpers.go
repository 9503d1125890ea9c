package server

import (
	"errors"
	"net/http"

	"github.com/loginbridge/loginbridge/internal/auth"
	"github.com/loginbridge/loginbridge/internal/provider"
	"github.com/loginbridge/loginbridge/internal/web"
)

// renderOutcome maps a failure outcome to its page. Messages are fixed per
// category and never carry internal detail.
func renderOutcome(w http.ResponseWriter, r *http.Request, outcome auth.Outcome) {
	switch outcome {
	case auth.OutcomeIdPError:
		web.RenderError(w, r, http.StatusBadRequest,
			"Sign-in not completed",
			"The identity provider reported a problem with your sign-in. Please try again.")
	case auth.OutcomeMalformedCallback:
		web.RenderError(w, r, http.StatusBadRequest,
			"Sign-in not completed",
			"Your sign-in request was incomplete. Please try again.")
	case auth.OutcomeExpiredRequest:
		web.RenderError(w, r, http.StatusBadRequest,
			"Sign-in request expired",
			"Your sign-in request expired. This happens when too much time passes during sign-in. Please try again.")
	case auth.OutcomeServiceUnavailable:
		web.RenderError(w, r, http.StatusServiceUnavailable,
			"Service unavailable",
			"Sign-in is temporarily unavailable. Please try again later.")
	default:
		web.RenderError(w, r, http.StatusUnauthorized,
			"Authentication failed",
			"We could not sign you in. Please try again.")
	}
}

func renderInitiateError(w http.ResponseWriter, r *http.Request, err error) {
	var confErr *provider.ConfigError
	if errors.As(err, &confErr) {
		renderOutcome(w, r, auth.OutcomeServiceUnavailable)
		return
	}
	renderOutcome(w, r, auth.OutcomeAuthFailed)
}
