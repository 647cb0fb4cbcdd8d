package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DB wraps the database connection
type DB struct {
	conn *sql.DB
	path string
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL mode for better concurrency
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)

	return &DB{
		conn: conn,
		path: dbPath,
	}, nil
}

// NewInMemory opens an in-memory database, used by tests
func NewInMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	return &DB{conn: conn, path: ":memory:"}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Migrate creates the schema if it does not exist. The patch pool is an
// append-only ledger: rows are inserted once and only the status column
// may change afterwards.
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS patch_proposals (
		id          TEXT PRIMARY KEY,
		trade_date  TEXT NOT NULL,
		type        TEXT NOT NULL CHECK (type IN ('rule', 'prompt')),
		title       TEXT NOT NULL,
		suggestion  TEXT NOT NULL,
		evidence    TEXT NOT NULL DEFAULT '{}',
		confidence  REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1),
		status      TEXT NOT NULL DEFAULT 'proposed'
		            CHECK (status IN ('proposed', 'accepted', 'rejected')),
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_patch_proposals_status ON patch_proposals(status);
	CREATE INDEX IF NOT EXISTS idx_patch_proposals_trade_date ON patch_proposals(trade_date);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Begin starts a new transaction
func (db *DB) Begin() (*sql.Tx, error) {
	return db.conn.Begin()
}
