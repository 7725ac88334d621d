package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/comment-board/internal/apperror"
	"github.com/sakif/comment-board/internal/model"
	"github.com/sakif/comment-board/internal/repository"
)

// compile-time check that *CommentStore implements repository.CommentRepository
var _ repository.CommentRepository = (*CommentStore)(nil)

// CommentStore implements repository.CommentRepository on the comments table.
type CommentStore struct {
	conn *sql.DB
}

// commentSelect joins every comment with its author and, when present, its
// parent comment. The document-store original resolved these references with
// driver-side population; here it is one explicit query. Resolution is one
// level deep — the parent row comes back with bare IDs only.
const commentSelect = `
	SELECT c.id, c.text, c.likes, c.user_id, c.parent_id, c.created_at, c.updated_at,
	       u.id, u.name, u.username, u.github_id, u.created_at, u.updated_at,
	       p.id, p.text, p.likes, p.user_id, p.parent_id, p.created_at, p.updated_at
	FROM comments c
	JOIN users u ON u.id = c.user_id
	LEFT JOIN comments p ON p.id = c.parent_id`

// Create inserts a new comment with a generated xid.
// Referential checks (author exists, parent exists) live in the service
// layer; the FK constraints are the backstop against races.
func (s *CommentStore) Create(ctx context.Context, comment *model.Comment) error {
	now := time.Now()
	comment.ID = xid.New().String()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO comments (id, text, likes, user_id, parent_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		comment.ID,
		comment.Text,
		comment.Likes,
		comment.UserID,
		comment.ParentID,
		comment.CreatedAt,
		comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting comment: %w", err)
	}

	return nil
}

// GetByID retrieves a single comment with author and parent resolved.
func (s *CommentStore) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	row := s.conn.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id)

	comment, err := scanComment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("comment", id)
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}

	return comment, nil
}

// ListTopLevel returns comments with no parent, newest first.
func (s *CommentStore) ListTopLevel(ctx context.Context) ([]model.Comment, error) {
	return s.listWhere(ctx,
		` WHERE c.parent_id IS NULL ORDER BY c.created_at DESC, c.id DESC`)
}

// ListByParent returns direct replies to parentID, newest first.
func (s *CommentStore) ListByParent(ctx context.Context, parentID string) ([]model.Comment, error) {
	return s.listWhere(ctx,
		` WHERE c.parent_id = ? ORDER BY c.created_at DESC, c.id DESC`, parentID)
}

func (s *CommentStore) listWhere(ctx context.Context, clause string, args ...any) ([]model.Comment, error) {
	rows, err := s.conn.QueryContext(ctx, commentSelect+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	comments := make([]model.Comment, 0, 16)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, *comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}

// Update rewrites the text of an existing comment.
// RowsAffected distinguishes "updated" from "no such comment".
func (s *CommentStore) Update(ctx context.Context, comment *model.Comment) error {
	comment.UpdatedAt = time.Now()

	result, err := s.conn.ExecContext(ctx,
		`UPDATE comments SET text = ?, updated_at = ? WHERE id = ?`,
		comment.Text,
		comment.UpdatedAt,
		comment.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", comment.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("comment", comment.ID)
	}

	return nil
}

// Delete removes a comment. The ON DELETE CASCADE on parent_id takes the
// whole reply subtree with it.
func (s *CommentStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("comment", id)
	}

	return nil
}

// Like increments the like counter in a single statement so concurrent
// likes never lose an increment, and returns the new count.
func (s *CommentStore) Like(ctx context.Context, id string) (int64, error) {
	var likes int64
	err := s.conn.QueryRowContext(ctx,
		`UPDATE comments SET likes = likes + 1, updated_at = ? WHERE id = ? RETURNING likes`,
		time.Now(), id,
	).Scan(&likes)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apperror.NotFound("comment", id)
		}
		return 0, fmt.Errorf("sqlite: liking comment %s: %w", id, err)
	}

	return likes, nil
}

// scanComment reads one joined row into a Comment with Author and Parent
// attached. All parent columns are nullable because of the LEFT JOIN.
func scanComment(s scanner) (*model.Comment, error) {
	var (
		c            model.Comment
		author       model.User
		authorGitHub sql.NullInt64

		pID        sql.NullString
		pText      sql.NullString
		pLikes     sql.NullInt64
		pUserID    sql.NullString
		pParentID  sql.NullString
		pCreatedAt sql.NullTime
		pUpdatedAt sql.NullTime
	)

	err := s.Scan(
		&c.ID, &c.Text, &c.Likes, &c.UserID, &c.ParentID, &c.CreatedAt, &c.UpdatedAt,
		&author.ID, &author.Name, &author.Username,
		&authorGitHub, &author.CreatedAt, &author.UpdatedAt,
		&pID, &pText, &pLikes, &pUserID, &pParentID, &pCreatedAt, &pUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// password_hash is deliberately not selected — the resolved author can
	// never leak it into a response.
	author.GitHubID = authorGitHub.Int64
	c.Author = &author

	if pID.Valid {
		parent := model.Comment{
			ID:        pID.String,
			Text:      pText.String,
			Likes:     pLikes.Int64,
			UserID:    pUserID.String,
			CreatedAt: pCreatedAt.Time,
			UpdatedAt: pUpdatedAt.Time,
		}
		if pParentID.Valid {
			v := pParentID.String
			parent.ParentID = &v
		}
		c.Parent = &parent
	}

	return &c, nil
}
