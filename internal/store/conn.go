package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Conn is a dedicated pooled connection with a prepared-statement cache.
//
// A Conn is owned by a single goroutine; it is not safe for concurrent use.
type Conn struct {
	conn  *sql.Conn
	stmts map[string]*sql.Stmt
}

func newConn(c *sql.Conn) *Conn {
	return &Conn{conn: c, stmts: make(map[string]*sql.Stmt)}
}

// prepare returns a cached statement for query, preparing it on first use.
func (c *Conn) prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := c.stmts[query]; ok {
		return stmt, nil
	}
	stmt, err := c.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	c.stmts[query] = stmt
	return stmt, nil
}

// Close releases cached statements and returns the connection to the pool.
func (c *Conn) Close() error {
	var errs []error
	for q, stmt := range c.stmts {
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(c.stmts, q)
	}
	if err := c.conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
