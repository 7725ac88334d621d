// Package service contains the business logic layer.
//
// Handlers parse HTTP and write responses; services validate input, enforce
// rules, and orchestrate repositories; repositories talk to the database.
// Services depend on repository interfaces, never on the sqlite package, so
// tests can substitute in-memory mocks.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/comment-board/internal/apperror"
	"github.com/sakif/comment-board/internal/auth"
	"github.com/sakif/comment-board/internal/model"
	"github.com/sakif/comment-board/internal/repository"
)

const (
	MaxNameLength     = 100
	MaxUsernameLength = 50
)

// AuthService handles registration, login, and user listing.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// build the login response in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a new password account.
//
// The display name is optional; username and password are required. The
// password is bcrypt-hashed before it goes anywhere near the repository —
// the plaintext is never stored or logged. A taken username surfaces as
// apperror.ErrConflict.
func (s *AuthService) Register(ctx context.Context, name, username, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	username = strings.TrimSpace(username)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if strings.ContainsAny(username, " \t\n") {
		return nil, apperror.ValidationFailed("username", "username must not contain whitespace")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	user := &model.User{
		Name:         name,
		Username:     username,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if apperrorIsClient(err) {
			return nil, err
		}
		s.logger.Error("failed to create user",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Store("could not register user", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login verifies credentials and issues a JWT.
//
// An unknown username returns ErrNotFound and a wrong password returns
// ErrUnauthorized — the two cases map to distinct status codes at the HTTP
// layer. No token is ever issued on a failed login.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		// An unknown username passes through as NotFound; anything else is
		// a persistence failure and gets the same log-and-wrap treatment as
		// every other store path.
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to look up user for login",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Store("could not log in", err)
	}

	// OAuth-only accounts have no hash; they must log in through GitHub.
	if user.PasswordHash == "" {
		return nil, apperror.Unauthorized("invalid login credentials")
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid login credentials")
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		s.logger.Error("failed to generate token",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGitHub completes the GitHub OAuth callback: upsert the user
// keyed by GitHub ID, then issue the same JWT a password login would get.
// First-time OAuth users get an account with an empty password hash.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		Name:     ghUser.Name,
		Username: ghUser.Login,
		GitHubID: ghUser.ID,
	}

	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		s.logger.Error("failed to upsert GitHub user",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Store("could not sign in with GitHub", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)

	return &AuthResult{User: user, Token: token}, nil
}

// ListUsers returns every registered user. Protected at the HTTP layer;
// password hashes never serialize.
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, apperror.Store("could not list users", err)
	}
	return users, nil
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetByID(ctx, id)
}

// apperrorIsClient reports whether err is already a client-facing
// application error that should pass through unwrapped.
func apperrorIsClient(err error) bool {
	for _, target := range []error{
		apperror.ErrValidation,
		apperror.ErrNotFound,
		apperror.ErrConflict,
		apperror.ErrUnauthorized,
		apperror.ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
