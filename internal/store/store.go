package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultMaxConns bounds the pool: one connection per worker plus headroom
// for ad-hoc reads.
const DefaultMaxConns = 4

// Store is the durable chat log.
type Store struct {
	db *sql.DB
}

type options struct {
	maxConns int
}

// Option configures Open.
type Option func(*options)

// WithMaxConns sets the maximum number of pooled connections.
// Values below 2 are raised to 2 so both workers can hold a connection.
func WithMaxConns(n int) Option {
	return func(o *options) {
		if n < 2 {
			n = 2
		}
		o.maxConns = n
	}
}

// Open creates or opens a SQLite database at the given path.
//
// Pending migrations are applied before WAL journaling is enabled. Any
// failure closes the handle and is returned; the caller never receives a
// partially initialized store.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{maxConns: DefaultMaxConns}
	for _, opt := range opts {
		opt(&o)
	}

	// Per-connection pragmas go in the DSN so every pooled connection gets them.
	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(o.maxConns)
	db.SetMaxIdleConns(o.maxConns)

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes every pooled connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying pool.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Acquire takes a dedicated connection out of the pool. The connection is
// held until Conn.Close is called.
func (s *Store) Acquire(ctx context.Context) (*Conn, error) {
	c, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return newConn(c), nil
}

// applyPragmas enables write-ahead journaling. journal_mode=WAL is
// persistent in the database file, so setting it once covers the pool.
func applyPragmas(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode = WAL").Scan(&mode); err != nil {
		return fmt.Errorf("failed to set journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("journal mode is %q, expected \"wal\"", mode)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
