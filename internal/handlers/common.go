// Package handlers provides HTTP handlers for the trading dashboard.
package handlers

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/middleware"
)

// MsgSessionExpired is flashed when the trading API rejects the stored token.
const MsgSessionExpired = "Your session has expired. Please log in again."

// Flasher stores one-shot messages per browser session.
type Flasher interface {
	SetFlash(sessionID, message string) error
	PopFlash(sessionID string) (string, error)
}

// pages renders templates and carries the helpers every page handler needs.
type pages struct {
	templates map[string]*template.Template
	flash     Flasher
	logger    *logger.Logger
}

func newPages(templates map[string]*template.Template, flash Flasher, log *logger.Logger, component string) pages {
	if log == nil {
		log = logger.NewSilent()
	}
	return pages{templates: templates, flash: flash, logger: log.Component(component)}
}

// render renders a page inside the base layout. The page is fully rendered
// before anything is written, so a template error still yields a clean 500.
func (p *pages) render(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	if data == nil {
		data = make(map[string]any)
	}
	data["Authenticated"] = middleware.IsAuthenticated(r)
	data["User"] = middleware.GetUser(r)
	if _, ok := data["Flash"]; !ok {
		data["Flash"] = p.popFlash(r)
	}

	tmpl, ok := p.templates[name]
	if !ok {
		http.Error(w, "Template not found: "+name, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		p.logger.Error().Err(err).Str("template", name).Msg("rendering template")
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// renderError renders the error page for err.
func (p *pages) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		p.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	p.render(w, r, status, "error.html", map[string]any{
		"Heading": http.StatusText(status),
		"Message": apperrors.UserMessage(err),
	})
}

// expired reports whether err means the trading API rejected the token.
// If so the session is logged out and the client sent to the login page.
func (p *pages) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !apperrors.IsAPI(err) || !apperrors.IsUnauthorized(err) {
		return false
	}
	if state := middleware.GetSession(r); state != nil {
		if lerr := state.Logout(r.Context()); lerr != nil {
			p.logger.Error().Err(lerr).Msg("logging out rejected session")
		}
	}
	p.setFlash(r, MsgSessionExpired)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
	return true
}

func (p *pages) setFlash(r *http.Request, message string) {
	id := middleware.GetSessionID(r)
	if id == "" || p.flash == nil {
		return
	}
	if err := p.flash.SetFlash(id, message); err != nil {
		p.logger.Warn().Err(err).Msg("storing flash message")
	}
}

func (p *pages) popFlash(r *http.Request) string {
	id := middleware.GetSessionID(r)
	if id == "" || p.flash == nil {
		return ""
	}
	msg, err := p.flash.PopFlash(id)
	if err != nil {
		p.logger.Warn().Err(err).Msg("reading flash message")
		return ""
	}
	return msg
}

// portfolioID parses the {id} URL parameter.
func portfolioID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NotFound("Portfolio not found.")
	}
	return id, nil
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeJSONError writes {"error": message} with the status of err.
func writeJSONError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.HTTPStatus(err), map[string]string{
		"error": apperrors.UserMessage(err),
	})
}
