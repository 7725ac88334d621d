// Package sqlite implements the repository interfaces on SQLite.
//
// SQLite is embedded — a single file, no database server to run. That fits
// this service: one process, one connection pool, and ":memory:" databases
// for tests. The modernc.org/sqlite driver is a pure-Go translation of the
// SQLite sources, so builds need no cgo and cross-compile cleanly.
package sqlite

import (
	"database/sql"
	"fmt"

	// Side-effect import: the driver registers itself with database/sql
	// under the name "sqlite".
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and hands out the per-entity stores
// that implement the repository interfaces.
type DB struct {
	conn *sql.DB
}

// Users returns the user store backed by this connection pool.
func (db *DB) Users() *UserStore {
	return &UserStore{conn: db.conn}
}

// Comments returns the comment store backed by this connection pool.
func (db *DB) Comments() *CommentStore {
	return &CommentStore{conn: db.conn}
}

// New opens (or creates) the database at dbPath and runs migrations.
// Use ":memory:" for a throwaway in-memory database in tests.
func New(dbPath string) (*DB, error) {
	// PRAGMAs are per-connection state, and database/sql is a pool: an Exec
	// after Open would configure only whichever connection the pool happens
	// to hand out. The _pragma DSN parameters make the driver apply them to
	// every connection it opens.
	//
	// WAL lets reads proceed during a write once concurrent HTTP requests
	// share the pool. SQLite ships with foreign keys off, and the comments
	// table relies on them: comments.user_id → users.id and
	// comments.parent_id → comments.id with ON DELETE CASCADE.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" is its own empty database, so the pool
	// must be pinned to a single connection there.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	// Force an immediate connection so a bad path fails here, not on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Callers should defer this right after New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps it idempotent,
// which is enough at this scale; a real migration tool can replace this when
// the schema starts changing in place.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(github_id) WHERE github_id IS NOT NULL;
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// parent_id NULL marks a top-level comment. Deleting a comment cascades
	// to its replies so no reply is ever left pointing at a missing parent.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id         TEXT PRIMARY KEY,
			text       TEXT NOT NULL,
			likes      INTEGER NOT NULL DEFAULT 0,
			user_id    TEXT NOT NULL REFERENCES users(id),
			parent_id  TEXT REFERENCES comments(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_comments_parent_id ON comments(parent_id);
		CREATE INDEX IF NOT EXISTS idx_comments_created_at ON comments(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	return nil
}
