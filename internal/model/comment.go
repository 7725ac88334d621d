package model

import "time"

// Comment represents a single comment in a thread.
//
// UserID and ParentID are the stored foreign keys. Author and Parent are the
// resolved records filled in by the service layer before a comment leaves the
// API — responses carry the full author and parent objects, not bare IDs.
//
// ParentID is a *string because top-level comments have no parent: nil maps
// to SQL NULL and is omitted from JSON. Resolution is one level deep only —
// a resolved Parent has its own Author and Parent left nil.
type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Likes     int64     `json:"likes"`
	UserID    string    `json:"userId"`
	ParentID  *string   `json:"parentId,omitempty"`
	Author    *User     `json:"author,omitempty"`
	Parent    *Comment  `json:"parent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsTopLevel reports whether the comment starts a thread rather than
// replying to another comment.
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}
