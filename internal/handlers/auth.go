package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/webserv/sessionauth/internal/services"
	"github.com/webserv/sessionauth/internal/store"
	"github.com/webserv/sessionauth/internal/views"
)

const (
	loginPath   = "/login"
	profilePath = "/profile"
)

// AuthHandler serves the register, login and profile pages.
type AuthHandler struct {
	credentials  *services.CredentialStore
	sessions     *services.SessionManager
	views        *views.Renderer
	logger       *slog.Logger
	cookieSecure bool
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(
	credentials *services.CredentialStore,
	sessions *services.SessionManager,
	renderer *views.Renderer,
	logger *slog.Logger,
	cookieSecure bool,
) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		credentials:  credentials,
		sessions:     sessions,
		views:        renderer,
		logger:       logger,
		cookieSecure: cookieSecure,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, h *AuthHandler) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		redirect(w, r, profilePath)
	})
	r.Get("/register", h.Register)
	r.Post("/register", h.Register)
	r.Get(loginPath, h.Login)
	r.Post(loginPath, h.Login)
	r.Get(profilePath, h.Profile)
}

// Register creates an account and sends the client to the login page.
// Registering does not start a session.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !isSubmission(r) {
		h.views.Render(w, http.StatusOK, views.PageRegister, views.Data{})
		return
	}

	username, password, ok := credentials(r)
	if !ok {
		h.renderError(w, views.PageRegister, msgFieldsRequired)
		return
	}

	if _, err := h.credentials.CreateUser(r.Context(), username, password); err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			h.renderError(w, views.PageRegister, msgFieldsRequired)
		case errors.Is(err, store.ErrDuplicateUsername):
			h.renderError(w, views.PageRegister, msgUsernameTaken)
		case errors.Is(err, services.ErrPasswordTooLong):
			h.renderError(w, views.PageRegister, msgPasswordTooLong)
		default:
			h.serverError(w, r, "register failed", err)
		}
		return
	}

	redirect(w, r, loginPath)
}

// Login verifies credentials, sets the session cookie and sends the client
// to the profile page. Any cookie already present is ignored.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !isSubmission(r) {
		h.views.Render(w, http.StatusOK, views.PageLogin, views.Data{})
		return
	}

	username, password, ok := credentials(r)
	if !ok {
		h.renderError(w, views.PageLogin, msgFieldsRequired)
		return
	}

	token, err := h.sessions.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.renderError(w, views.PageLogin, msgInvalidCredentials)
			return
		}
		h.serverError(w, r, "login failed", err)
		return
	}

	setSessionCookie(w, token, h.cookieSecure)
	redirect(w, r, profilePath)
}

// Profile greets the authenticated user. With action=logout it revokes the
// session instead and never renders profile content.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	token := cookieValue(r, SessionCookieName)

	if r.URL.Query().Get("action") == "logout" {
		if err := h.sessions.Logout(r.Context(), token); err != nil {
			h.serverError(w, r, "logout failed", err)
			return
		}
		clearSessionCookie(w, h.cookieSecure)
		redirect(w, r, loginPath)
		return
	}

	identity, ok, err := h.sessions.Authenticate(r.Context(), token)
	if err != nil {
		h.serverError(w, r, "authenticate failed", err)
		return
	}
	if !ok {
		h.views.Render(w, http.StatusOK, views.PagePleaseLogin, views.Data{})
		return
	}
	h.views.Render(w, http.StatusOK, views.PageProfile, views.Data{Username: identity.Username})
}

func (h *AuthHandler) renderError(w http.ResponseWriter, page, message string) {
	h.views.Render(w, http.StatusOK, page, views.Data{Error: message})
}

func (h *AuthHandler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg, "error", err)
	writeServerError(w)
}
