package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/comment-board/internal/auth"
	"github.com/sakif/comment-board/internal/model"
	"github.com/sakif/comment-board/internal/service"
)

// CommentHandler serves the threaded-comment API.
//
//	POST   /comments           → create (top-level or reply)
//	GET    /comments           → list top-level comments
//	GET    /comments?parentId= → list direct replies to a comment
//	GET    /comments/{id}      → fetch one comment
//	PATCH  /comments/{id}      → edit (author only, bearer token)
//	DELETE /comments/{id}      → delete subtree (author only, bearer token)
//	POST   /comments/{id}/like → increment the like counter (bearer token)
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

// NewCommentHandler creates a CommentHandler.
func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

type createCommentRequest struct {
	Text     string `json:"text"`
	ParentID string `json:"parentId"`
	UserID   string `json:"userId"`
}

type updateCommentRequest struct {
	Text string `json:"text"`
}

// HandleCreate persists a new comment.
//
// HTTP: POST /comments
// Body: {"text": "...", "parentId": "optional", "userId": "..."}
//
// The response is the created comment with author and parent resolved to
// full records, matching what a subsequent GET would return. When a valid
// bearer token accompanies the request, it overrides the body's userId —
// a logged-in caller cannot post as someone else.
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		req.UserID = userID
	}

	comment, err := h.comments.Create(r.Context(), req.Text, req.ParentID, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, comment)
}

// HandleList returns either top-level comments or, when the parentId query
// parameter is present, the direct replies to that comment. Newest first in
// both cases.
//
// HTTP: GET /comments[?parentId=X]
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		comments []model.Comment
		err      error
	)

	if r.URL.Query().Has("parentId") {
		comments, err = h.comments.ListByParent(r.Context(), r.URL.Query().Get("parentId"))
	} else {
		comments, err = h.comments.ListTopLevel(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleGetByID returns a single comment, resolved.
//
// HTTP: GET /comments/{id}
func (h *CommentHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	comment, err := h.comments.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, comment)
}

// HandleUpdate rewrites a comment's text. Author only.
//
// HTTP: PATCH /comments/{id} (bearer token required)
func (h *CommentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, kept as a guard.
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized", Message: "valid bearer token required",
		})
		return
	}

	var req updateCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	comment, err := h.comments.Update(r.Context(), r.PathValue("id"), actorID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, comment)
}

// HandleDelete removes a comment and its replies. Author only.
//
// HTTP: DELETE /comments/{id} (bearer token required)
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "unauthorized", Message: "valid bearer token required",
		})
		return
	}

	if err := h.comments.Delete(r.Context(), r.PathValue("id"), actorID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleLike increments a comment's like counter.
//
// HTTP: POST /comments/{id}/like (bearer token required)
func (h *CommentHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	comment, err := h.comments.Like(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, comment)
}
