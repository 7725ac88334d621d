package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/comment-board/internal/model"
	"github.com/sakif/comment-board/internal/service"
)

// UserHandler serves registration, login, and the protected user listing.
//
//	POST /users/register → create a password account
//	POST /users/login    → verify credentials, issue a JWT
//	GET  /users/users    → list all users (bearer token required)
type UserHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(auth *service.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{auth: auth, logger: logger}
}

// registerRequest is the POST /users/register body. The display name is
// optional; earlier revisions of the API omitted it entirely.
type registerRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// registerResponse mirrors the original API: a message plus the created
// user. The password hash is excluded by the model's json tags.
type registerResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    *model.User `json:"user"`
}

// HandleRegister creates a new account.
//
// HTTP: POST /users/register
// Success: 201 {message, user}. Taken username: 409. Bad input: 400.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Name, req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "User registered successfully",
		User:    user,
	})
}

// HandleLogin verifies credentials and returns a bearer token.
//
// HTTP: POST /users/login
// Success: 200 {message, token, user}. Unknown username: 404. Wrong
// password: 401. No token is issued on any failure path.
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Username, req.Password)
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

// HandleListUsers returns every registered user.
//
// HTTP: GET /users/users
// Auth: required — the RequireAuth middleware rejects the request before it
// gets here if the bearer token is missing or invalid.
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}
