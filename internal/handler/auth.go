package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/auth"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/service"
)

const stateCookie = "oauth_state"

// noUser encodes as JSON null.
var noUser *model.User

// AuthHandler serves password login, sign-up, logout and, when configured,
// the GitHub OAuth flow. Sessions are a JWT in an HttpOnly cookie.
type AuthHandler struct {
	auth   *service.AuthService
	tokens *auth.TokenService
	github *auth.GitHubProvider // nil when GitHub login is off
	secure bool
	logger *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	tokens *auth.TokenService,
	github *auth.GitHubProvider,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		tokens: tokens,
		github: github,
		secure: secureCookies,
		logger: logger,
	}
}

// Routes mounts the /auth endpoints on r. OptionalAuth must wrap r.
func (h *AuthHandler) Routes(r chi.Router) {
	r.Get("/auth/me", h.HandleMe)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/signup", h.HandleSignup)
	r.Post("/auth/logout", h.HandleLogout)
	if h.github != nil {
		r.Get("/auth/github/login", h.HandleGitHubLogin)
		r.Get("/auth/github/callback", h.HandleGitHubCallback)
	}
}

// HandleSignup: POST /api/auth/signup → 201 with the user and a session
// cookie.
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var c service.Credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.auth.Signup(r.Context(), c)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	auth.SetSessionCookie(w, res.Token, h.tokens, h.secure)
	writeJSON(w, http.StatusCreated, res.User)
}

// HandleLogin: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var c service.Credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, h.logger, err)
		return
	}
	res, err := h.auth.Login(r.Context(), c)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	auth.SetSessionCookie(w, res.Token, h.tokens, h.secure)
	writeJSON(w, http.StatusOK, res.User)
}

// HandleLogout: POST /api/auth/logout → 204. The JWT stays valid until it
// expires; without the cookie the browser cannot send it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secure)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe: GET /api/auth/me returns the user, or null for anonymous
// callers. A token for a user that no longer exists is treated as no
// session and its cookie is cleared.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, noUser)
		return
	}
	user, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			auth.ClearSessionCookie(w, h.secure)
			writeJSON(w, http.StatusOK, noUser)
			return
		}
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGitHubLogin: GET /api/auth/github/login redirects to GitHub. The
// state value goes into a short-lived cookie and is checked on callback.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback: GET /api/auth/github/callback?code&state
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || q.Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, h.logger, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if denied := q.Get("error"); denied != "" {
		h.logger.Info("auth callback: authorization denied", slog.String("error", denied))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, h.logger, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	gh, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, h.logger, apperror.Unauthorized("authentication failed"))
		return
	}
	res, err := h.auth.LoginOrRegisterGitHub(r.Context(), gh)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	auth.SetSessionCookie(w, res.Token, h.tokens, h.secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
