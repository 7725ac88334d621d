// Package repository declares the storage interfaces the service layer
// depends on. The sqlite subpackage provides the real implementation;
// tests substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/comment-board/internal/model"
)

type UserRepository interface {
	// Create inserts a new user. Fails with apperror.ErrConflict if the
	// username is taken.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// UpsertGitHub inserts a user on first OAuth login and refreshes the
	// profile on subsequent logins, keyed by GitHubID.
	UpsertGitHub(ctx context.Context, user *model.User) error
	List(ctx context.Context) ([]model.User, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	// GetByID returns the comment with author and parent resolved.
	GetByID(ctx context.Context, id string) (*model.Comment, error)
	// ListTopLevel returns comments with no parent, newest first, resolved.
	ListTopLevel(ctx context.Context) ([]model.Comment, error)
	// ListByParent returns direct replies to parentID, newest first, resolved.
	ListByParent(ctx context.Context, parentID string) ([]model.Comment, error)
	Update(ctx context.Context, comment *model.Comment) error
	// Delete removes a comment and, via FK cascade, its replies.
	Delete(ctx context.Context, id string) error
	// Like atomically increments the like counter and returns the new value.
	Like(ctx context.Context, id string) (int64, error)
}
