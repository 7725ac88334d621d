// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts come from two places: classic registration (username + password)
// and GitHub OAuth login. OAuth accounts have GitHubID set and an empty
// PasswordHash — they can never log in with a password.
//
// PasswordHash carries the full bcrypt output (salt and cost embedded).
// The `json:"-"` tag guarantees it is never serialized into an API response,
// no matter which handler returns the struct.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`     // optional display name, may be empty
	Username     string    `json:"username"` // unique login name
	PasswordHash string    `json:"-"`
	GitHubID     int64     `json:"githubId,omitempty"` // 0 for password accounts
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
