package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/rs/xid"
	"github.com/sakif/comment-board/internal/apperror"
	"github.com/sakif/comment-board/internal/model"
	"github.com/sakif/comment-board/internal/repository"
)

// discardLogger silences service logging in tests.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memUserRepo is an in-memory UserRepository with the same error contract
// as the sqlite implementation.
type memUserRepo struct {
	users map[string]*model.User // by ID

	// failWith, when set, makes every method return it. Simulates a dead
	// database.
	failWith error
}

var _ repository.UserRepository = (*memUserRepo)(nil)

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (m *memUserRepo) Create(_ context.Context, user *model.User) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, u := range m.users {
		if u.Username == user.Username {
			return apperror.Conflict("username", user.Username)
		}
	}
	user.ID = xid.New().String()
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *memUserRepo) UpsertGitHub(_ context.Context, user *model.User) error {
	if m.failWith != nil {
		return m.failWith
	}
	for _, u := range m.users {
		if u.GitHubID != 0 && u.GitHubID == user.GitHubID {
			u.Name = user.Name
			*user = *u
			return nil
		}
	}
	user.ID = xid.New().String()
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memUserRepo) List(_ context.Context) ([]model.User, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

// memCommentRepo is an in-memory CommentRepository. Reads resolve the
// author from the paired user repo the way the joined sqlite query does.
type memCommentRepo struct {
	comments map[string]*model.Comment
	order    []string // insertion order of IDs
	users    *memUserRepo

	failWith error
}

var _ repository.CommentRepository = (*memCommentRepo)(nil)

func newMemCommentRepo(users *memUserRepo) *memCommentRepo {
	return &memCommentRepo{
		comments: make(map[string]*model.Comment),
		users:    users,
	}
}

func (m *memCommentRepo) Create(_ context.Context, comment *model.Comment) error {
	if m.failWith != nil {
		return m.failWith
	}
	comment.ID = xid.New().String()
	copied := *comment
	m.comments[comment.ID] = &copied
	m.order = append(m.order, comment.ID)
	return nil
}

func (m *memCommentRepo) GetByID(_ context.Context, id string) (*model.Comment, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	c, ok := m.comments[id]
	if !ok {
		return nil, apperror.NotFound("comment", id)
	}
	return m.resolve(c), nil
}

func (m *memCommentRepo) ListTopLevel(_ context.Context) ([]model.Comment, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.listMatching(func(c *model.Comment) bool { return c.ParentID == nil }), nil
}

func (m *memCommentRepo) ListByParent(_ context.Context, parentID string) ([]model.Comment, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.listMatching(func(c *model.Comment) bool {
		return c.ParentID != nil && *c.ParentID == parentID
	}), nil
}

func (m *memCommentRepo) Update(_ context.Context, comment *model.Comment) error {
	if m.failWith != nil {
		return m.failWith
	}
	stored, ok := m.comments[comment.ID]
	if !ok {
		return apperror.NotFound("comment", comment.ID)
	}
	stored.Text = comment.Text
	return nil
}

func (m *memCommentRepo) Delete(_ context.Context, id string) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.comments[id]; !ok {
		return apperror.NotFound("comment", id)
	}
	delete(m.comments, id)
	// Cascade to replies, depth-first.
	for cid, c := range m.comments {
		if c.ParentID != nil && *c.ParentID == id {
			m.Delete(context.Background(), cid)
		}
	}
	return nil
}

func (m *memCommentRepo) Like(_ context.Context, id string) (int64, error) {
	if m.failWith != nil {
		return 0, m.failWith
	}
	c, ok := m.comments[id]
	if !ok {
		return 0, apperror.NotFound("comment", id)
	}
	c.Likes++
	return c.Likes, nil
}

// listMatching returns matching comments newest first, resolved.
func (m *memCommentRepo) listMatching(keep func(*model.Comment) bool) []model.Comment {
	idx := make(map[string]int, len(m.order))
	for i, id := range m.order {
		idx[id] = i
	}

	var out []model.Comment
	for _, c := range m.comments {
		if keep(c) {
			out = append(out, *m.resolve(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return idx[out[i].ID] > idx[out[j].ID] })
	return out
}

// resolve attaches the author (hash stripped) and one level of parent.
func (m *memCommentRepo) resolve(c *model.Comment) *model.Comment {
	copied := *c
	if author, ok := m.users.users[c.UserID]; ok {
		a := *author
		a.PasswordHash = ""
		copied.Author = &a
	}
	if c.ParentID != nil {
		if parent, ok := m.comments[*c.ParentID]; ok {
			p := *parent
			p.Author = nil
			p.Parent = nil
			copied.Parent = &p
		}
	}
	return &copied
}

// errStoreDown stands in for an arbitrary driver failure.
var errStoreDown = fmt.Errorf("mock store: connection refused")
