package handler

import (
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/sakif/comment-board/internal/auth"
	"github.com/sakif/comment-board/internal/service"
)

// OAuthHandler runs the GitHub login flow.
//
//	GET /auth/github/login    → redirect the browser to GitHub
//	GET /auth/github/callback → exchange the code, upsert the user, return a JWT
//
// The callback answers with the same {message, token, user} body as a
// password login, so clients treat both flows identically.
type OAuthHandler struct {
	github *auth.GitHubProvider
	auth   *service.AuthService
	logger *slog.Logger
}

// NewOAuthHandler creates an OAuthHandler.
func NewOAuthHandler(github *auth.GitHubProvider, authSvc *service.AuthService, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{github: github, auth: authSvc, logger: logger}
}

// HandleLogin redirects the user to GitHub's authorization page.
//
// A random state value goes into a short-lived HttpOnly cookie; the
// callback verifies it to rule out CSRF-initiated flows.
//
// HTTP: GET /auth/github/login
func (h *OAuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *OAuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("oauth callback: missing state cookie")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid OAuth state",
		})
		return
	}

	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "invalid OAuth state",
		})
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("oauth callback: user denied authorization",
			slog.String("error", errParam))
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized", Message: "GitHub authorization was denied",
		})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "validation_error", Message: "missing OAuth code",
		})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: GitHub exchange failed",
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal_error", Message: "authentication failed",
		})
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "User logged in successfully",
		Token:   result.Token,
		User:    result.User,
	})
}
