// Package web renders the small HTML surface: the landing page and the
// per-category error pages.
package web

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/loginbridge/loginbridge/internal/logging"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// PageData is the contract with the templates. ErrorMessage is always a
// fixed user-facing string, never an internal error.
type PageData struct {
	PageTitle    string
	ErrorMessage string
	HasError     bool
	UserID       string
}

func render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		logging.FromRequest(r).WithError(err).Error("failed to render page")
	}
}

// RenderError renders the error page with the given status and message.
func RenderError(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	render(w, r, status, "error.html", PageData{
		PageTitle:    title,
		ErrorMessage: message,
		HasError:     true,
	})
}

// RenderHome renders the protected landing page.
func RenderHome(w http.ResponseWriter, r *http.Request, userID string) {
	render(w, r, http.StatusOK, "home.html", PageData{
		PageTitle: "Home",
		UserID:    userID,
	})
}
