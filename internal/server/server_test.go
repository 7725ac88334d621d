package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer wires the full stack against an in-memory database.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(Config{
		Port:      0,
		DBPath:    ":memory:",
		JWTSecret: "integration-test-secret-0123456789",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.db.Close() })
	return srv
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into),
		"body was: %s", rec.Body.String())
}

func TestNew_RejectsMissingSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(Config{DBPath: ":memory:"}, logger)
	require.Error(t, err)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserFlow(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	// Register.
	rec := doJSON(t, h, http.MethodPost, "/users/register", "", map[string]string{
		"name":     "Alice Example",
		"username": "alice",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var registered struct {
		Message string `json:"message"`
		User    struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	decodeBody(t, rec, &registered)
	assert.NotEmpty(t, registered.User.ID)
	assert.Equal(t, "alice", registered.User.Username)
	assert.NotContains(t, rec.Body.String(), "hunter22")
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	// Duplicate username is a conflict.
	rec = doJSON(t, h, http.MethodPost, "/users/register", "", map[string]string{
		"username": "alice",
		"password": "other",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Login returns a token.
	rec = doJSON(t, h, http.MethodPost, "/users/login", "", map[string]string{
		"username": "alice",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var login struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeBody(t, rec, &login)
	require.NotEmpty(t, login.Token)
	assert.Equal(t, registered.User.ID, login.User.ID)

	// Wrong password: 401, no token in the body.
	rec = doJSON(t, h, http.MethodPost, "/users/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "token")

	// Unknown username: 404.
	rec = doJSON(t, h, http.MethodPost, "/users/login", "", map[string]string{
		"username": "ghost",
		"password": "whatever",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The user listing requires a bearer token.
	rec = doJSON(t, h, http.MethodGet, "/users/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/users/users", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []map[string]any
	decodeBody(t, rec, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0]["username"])
	assert.NotContains(t, users[0], "passwordHash")
	assert.NotContains(t, users[0], "password_hash")
}

func TestCommentFlow(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	// Seed a user and a token.
	rec := doJSON(t, h, http.MethodPost, "/users/register", "", map[string]string{
		"username": "alice",
		"password": "pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var registered struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeBody(t, rec, &registered)

	rec = doJSON(t, h, http.MethodPost, "/users/login", "", map[string]string{
		"username": "alice",
		"password": "pw",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &login)

	// Anonymous create with an explicit userId.
	rec = doJSON(t, h, http.MethodPost, "/comments", "", map[string]string{
		"text":   "first!",
		"userId": registered.User.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var root struct {
		ID     string `json:"id"`
		Text   string `json:"text"`
		Author struct {
			Username string `json:"username"`
		} `json:"author"`
	}
	decodeBody(t, rec, &root)
	assert.Equal(t, "first!", root.Text)
	assert.Equal(t, "alice", root.Author.Username)

	// Authenticated create: the token supplies the author, no userId needed.
	rec = doJSON(t, h, http.MethodPost, "/comments", login.Token, map[string]string{
		"text":     "a reply",
		"parentId": root.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

	var reply struct {
		ID     string `json:"id"`
		Parent struct {
			ID string `json:"id"`
		} `json:"parent"`
	}
	decodeBody(t, rec, &reply)
	assert.Equal(t, root.ID, reply.Parent.ID)

	// Bad references are validation errors.
	rec = doJSON(t, h, http.MethodPost, "/comments", "", map[string]string{
		"text":   "orphan",
		"userId": "no-such-user",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/comments", "", map[string]string{
		"text":     "dangling",
		"userId":   registered.User.ID,
		"parentId": "no-such-comment",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Top-level listing excludes the reply.
	rec = doJSON(t, h, http.MethodGet, "/comments", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var topLevel []struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &topLevel)
	require.Len(t, topLevel, 1)
	assert.Equal(t, root.ID, topLevel[0].ID)

	// Replies listing.
	rec = doJSON(t, h, http.MethodGet, "/comments?parentId="+root.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var replies []struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &replies)
	require.Len(t, replies, 1)
	assert.Equal(t, reply.ID, replies[0].ID)

	// Single fetch.
	rec = doJSON(t, h, http.MethodGet, "/comments/"+root.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, h, http.MethodGet, "/comments/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Edits require a token and authorship.
	rec = doJSON(t, h, http.MethodPatch, "/comments/"+root.ID, "", map[string]string{
		"text": "edited anonymously",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/comments/"+root.ID, login.Token, map[string]string{
		"text": "first! (edited)",
	})
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Contains(t, rec.Body.String(), "first! (edited)")

	// A different user may not edit someone else's comment.
	rec = doJSON(t, h, http.MethodPost, "/users/register", "", map[string]string{
		"username": "mallory",
		"password": "pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, h, http.MethodPost, "/users/login", "", map[string]string{
		"username": "mallory",
		"password": "pw",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var malloryLogin struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &malloryLogin)

	rec = doJSON(t, h, http.MethodPatch, "/comments/"+root.ID, malloryLogin.Token, map[string]string{
		"text": "hijacked",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Likes.
	rec = doJSON(t, h, http.MethodPost, "/comments/"+root.ID+"/like", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var liked struct {
		Likes int64 `json:"likes"`
	}
	decodeBody(t, rec, &liked)
	assert.Equal(t, int64(1), liked.Likes)

	// Deleting the root takes the reply with it.
	rec = doJSON(t, h, http.MethodDelete, "/comments/"+root.ID, login.Token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/comments/"+reply.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOAuthRoutesDisabledWithoutConfig(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/auth/github/login", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
