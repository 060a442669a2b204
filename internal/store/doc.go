// Package store provides the SQLite-backed durable storage for the chat log.
//
// The store holds two tables:
//   - messages: append-only log of chat lines, tagged with the session start
//   - notes: one annotation per account, upserted in place
//
// # Schema evolution
//
// Migrations are embedded SQL files applied in a fixed order. Each one runs
// in its own transaction and is recorded by name in schema_migrations, so
// reopening an up-to-date store applies nothing. PRAGMA user_version mirrors
// the number of applied migrations.
//
// # Connections
//
// The underlying *sql.DB is a bounded pool. Background workers call Acquire
// to take a dedicated connection for their lifetime; statements prepared on
// a Conn are cached for reuse.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
package store
