package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/comment-board/internal/apperror"
	"github.com/sakif/comment-board/internal/model"
	"github.com/sakif/comment-board/internal/repository"
)

// MaxCommentLength caps comment bodies at roughly a long forum post.
const MaxCommentLength = 10000

// CommentService implements the threaded-comment operations.
//
// Comments form a self-referential tree of unbounded depth: a nil parent
// marks a top-level comment, anything else must point at an existing
// comment. Reads come back with the author and (one level of) parent
// resolved to full records.
type CommentService struct {
	comments repository.CommentRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

// NewCommentService creates a CommentService.
// The user repository is needed to verify authors exist at write time.
func NewCommentService(
	comments repository.CommentRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		users:    users,
		logger:   logger,
	}
}

// Create validates and persists a new comment.
//
// Both references are checked before the insert: userID must resolve to an
// existing user and a non-empty parentID to an existing comment. Either
// check failing is a validation error, not a not-found — the caller sent a
// bad reference, the URL was fine.
func (s *CommentService) Create(ctx context.Context, text, parentID, userID string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	parentID = strings.TrimSpace(parentID)
	userID = strings.TrimSpace(userID)

	if text == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}
	if len(text) > MaxCommentLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("comment text must be %d characters or less", MaxCommentLength))
	}
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "userId is required")
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("userId",
				fmt.Sprintf("no user with id %s", userID))
		}
		return nil, s.storeError("checking comment author", err)
	}

	comment := &model.Comment{
		Text:   text,
		UserID: userID,
	}

	if parentID != "" {
		if _, err := s.comments.GetByID(ctx, parentID); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.ValidationFailed("parentId",
					fmt.Sprintf("no comment with id %s", parentID))
			}
			return nil, s.storeError("checking parent comment", err)
		}
		comment.ParentID = &parentID
	}

	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, s.storeError("creating comment", err)
	}

	s.logger.Info("comment created",
		slog.String("id", comment.ID),
		slog.String("userID", userID),
		slog.Bool("topLevel", comment.IsTopLevel()),
	)

	// Read back through the resolving query so the response carries the
	// full author and parent records.
	created, err := s.comments.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, s.storeError("reading back comment", err)
	}

	return created, nil
}

// ListTopLevel returns all comments without a parent, newest first.
func (s *CommentService) ListTopLevel(ctx context.Context) ([]model.Comment, error) {
	comments, err := s.comments.ListTopLevel(ctx)
	if err != nil {
		return nil, s.storeError("listing top-level comments", err)
	}
	return comments, nil
}

// ListByParent returns the direct replies to parentID, newest first.
// A blank parentID is a validation error; an unknown one simply returns an
// empty list, matching the original behavior.
func (s *CommentService) ListByParent(ctx context.Context, parentID string) ([]model.Comment, error) {
	parentID = strings.TrimSpace(parentID)
	if parentID == "" {
		return nil, apperror.ValidationFailed("parentId", "parentId must not be blank")
	}

	comments, err := s.comments.ListByParent(ctx, parentID)
	if err != nil {
		return nil, s.storeError("listing comments by parent", err)
	}
	return comments, nil
}

// GetByID returns a single comment, resolved.
func (s *CommentService) GetByID(ctx context.Context, id string) (*model.Comment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "comment ID is required")
	}

	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, s.storeError("getting comment", err)
	}
	return comment, nil
}

// Update rewrites a comment's text. Only the author may edit.
func (s *CommentService) Update(ctx context.Context, id, actorID, text string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}
	if len(text) > MaxCommentLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("comment text must be %d characters or less", MaxCommentLength))
	}

	comment, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != actorID {
		return nil, apperror.Forbidden("only the author can edit a comment")
	}

	comment.Text = text
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, s.storeError("updating comment", err)
	}

	s.logger.Info("comment updated", slog.String("id", comment.ID))

	return s.GetByID(ctx, comment.ID)
}

// Delete removes a comment and its reply subtree. Only the author may
// delete.
func (s *CommentService) Delete(ctx context.Context, id, actorID string) error {
	comment, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if comment.UserID != actorID {
		return apperror.Forbidden("only the author can delete a comment")
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		return s.storeError("deleting comment", err)
	}

	s.logger.Info("comment deleted", slog.String("id", id))
	return nil
}

// Like increments a comment's like counter and returns the updated comment.
func (s *CommentService) Like(ctx context.Context, id string) (*model.Comment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "comment ID is required")
	}

	if _, err := s.comments.Like(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, s.storeError("liking comment", err)
	}

	return s.GetByID(ctx, id)
}

// storeError logs the wrapped cause and returns a generic persistence error
// to the caller. The original driver error stays in the chain for logs but
// its text never reaches a response body.
func (s *CommentService) storeError(op string, err error) error {
	s.logger.Error("comment store failure",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.Store("comment store unavailable", err)
}
