package handlers

import (
	"html/template"
	"net/http"

	apperrors "trading_dashboard/internal/errors"
	"trading_dashboard/internal/logger"
	"trading_dashboard/internal/middleware"
	"trading_dashboard/internal/services"
)

// MsgRegistered is flashed on the login page after a registration.
const MsgRegistered = "Registration successful. Please log in."

// AuthHandler handles login, registration and logout.
type AuthHandler struct {
	pages
	accounts *services.AccountService
	auth     *middleware.AuthMiddleware
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	templates map[string]*template.Template,
	accounts *services.AccountService,
	authMiddleware *middleware.AuthMiddleware,
	flash Flasher,
	log *logger.Logger,
) *AuthHandler {
	return &AuthHandler{
		pages:    newPages(templates, flash, log, "auth"),
		accounts: accounts,
		auth:     authMiddleware,
	}
}

// LoginPage renders the login page.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login.html", map[string]any{
		"Username": "",
	})
}

// Login exchanges the submitted credentials for a token and installs it
// in the browser session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, r, apperrors.Validation("Invalid form data"), "")
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	token, err := h.accounts.Authenticate(r.Context(), username, password)
	if err != nil {
		h.renderLoginError(w, r, err, username)
		return
	}

	// A fresh browser session for every login.
	state, r, err := h.auth.Renew(w, r)
	if err != nil {
		h.logger.Error().Err(err).Msg("creating browser session")
		h.renderLoginError(w, r, apperrors.Unexpected(err), username)
		return
	}

	// Without a resolvable user the session stays logged out.
	if err := state.Login(r.Context(), token, nil); err != nil {
		h.logger.Warn().Err(err).Msg("user lookup after login failed")
		h.renderLoginError(w, r, err, username)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// RegisterPage renders the registration page.
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register.html", map[string]any{
		"Username": "",
		"Email":    "",
	})
}

// Register creates an account and sends the user to the login page.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderRegisterError(w, r, apperrors.Validation("Invalid form data"), "", "")
		return
	}

	username := r.FormValue("username")
	email := r.FormValue("email")

	if _, err := h.accounts.Register(r.Context(), username, email, r.FormValue("password")); err != nil {
		h.renderRegisterError(w, r, err, username, email)
		return
	}

	// A browser session carries the flash message to the login page.
	if _, sr, err := h.auth.Start(w, r); err == nil {
		h.setFlash(sr, MsgRegistered)
	} else {
		h.logger.Warn().Err(err).Msg("creating browser session")
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Logout clears the token and ends the browser session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.End(w, r); err != nil {
		h.logger.Error().Err(err).Msg("ending session")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// renderLoginError renders the login page with an error message.
func (h *AuthHandler) renderLoginError(w http.ResponseWriter, r *http.Request, err error, username string) {
	h.render(w, r, apperrors.HTTPStatus(err), "login.html", map[string]any{
		"Error":    apperrors.UserMessage(err),
		"Username": username,
	})
}

// renderRegisterError renders the register page with an error message.
func (h *AuthHandler) renderRegisterError(w http.ResponseWriter, r *http.Request, err error, username, email string) {
	h.render(w, r, apperrors.HTTPStatus(err), "register.html", map[string]any{
		"Error":    apperrors.UserMessage(err),
		"Username": username,
		"Email":    email,
	})
}
