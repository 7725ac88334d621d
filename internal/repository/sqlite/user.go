package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/comment-board/internal/apperror"
	"github.com/sakif/comment-board/internal/model"
	"github.com/sakif/comment-board/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore implements repository.UserRepository on the users table.
type UserStore struct {
	conn *sql.DB
}

const userColumns = `id, name, username, password_hash, github_id, created_at, updated_at`

// Create inserts a new user with a generated xid.
//
// Username uniqueness is enforced by the UNIQUE constraint; a violation is
// translated to apperror.Conflict so the handler can answer 409. The cheap
// string match on the driver error is ugly but the modernc driver exposes
// no structured constraint info through database/sql.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, username, password_hash, github_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Username,
		user.PasswordHash,
		nullableGitHubID(user.GitHubID),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("username", user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	return nil
}

// GetByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no such user exists.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return user, nil
}

// GetByUsername retrieves a user by their unique username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username %q: %w", username, err)
	}

	return user, nil
}

// UpsertGitHub inserts or refreshes a user keyed by GitHubID.
//
// First OAuth login inserts a row with an empty password hash; later logins
// keep the existing internal ID and only refresh the display name. The
// GitHub login may collide with a registered username, in which case a
// suffixed username is tried.
func (s *UserStore) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == 0 {
		return fmt.Errorf("sqlite: upserting user: github id is zero")
	}

	var existingID string
	err := s.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID)

	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existingID != "" {
		user.ID = existingID
		user.UpdatedAt = time.Now()
		_, err = s.conn.ExecContext(ctx,
			`UPDATE users SET name = ?, updated_at = ? WHERE id = ?`,
			user.Name, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		// Read back the stored username — it may differ from the GitHub
		// login if it was suffixed on first insert.
		stored, err := s.GetByID(ctx, user.ID)
		if err != nil {
			return err
		}
		*user = *stored
		return nil
	}

	base := user.Username
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			user.Username = fmt.Sprintf("%s-%d", base, attempt)
		}
		err = s.Create(ctx, user)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperror.ErrConflict) || attempt >= 5 {
			return err
		}
	}
}

// List returns all users. Order is unspecified.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}

	return users, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	err := s.Scan(
		&u.ID,
		&u.Name,
		&u.Username,
		&u.PasswordHash,
		&githubID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	return &u, nil
}

func nullableGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
