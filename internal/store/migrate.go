package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationNames lists migrations in application order. Names are stable:
// they are recorded in schema_migrations and must never be renamed.
var migrationNames = []string{
	"2022-08-07-create-messages",
	"2022-08-07-messages-timestamp-index",
	"2023-01-05-create-notes",
	"2023-06-18-notes-color",
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int       `json:"version"`
	Name      string    `json:"name"`
	AppliedAt time.Time `json:"applied_at"`
}

// migrate applies every migration not yet recorded in schema_migrations.
func migrate(ctx context.Context, db *sql.DB) error {
	legacy, err := legacyVersion(ctx, db)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			name        TEXT NOT NULL UNIQUE,
			applied_at  INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	if legacy > 0 {
		if err := adoptLegacy(ctx, db, legacy); err != nil {
			return err
		}
	}

	applied := make(map[string]bool)
	rows, err := db.QueryContext(ctx, "SELECT name FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("read applied migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan applied migration: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate applied migrations: %w", err)
	}
	rows.Close()

	for i, name := range migrationNames {
		if applied[name] {
			continue
		}
		if err := applyMigration(ctx, db, i+1, name); err != nil {
			return err
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", len(migrationNames))); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// legacyVersion returns the user_version of a store whose migrations were
// tracked only by that pragma, or 0 if schema_migrations already exists.
func legacyVersion(ctx context.Context, db *sql.DB) (int, error) {
	var tables int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'",
	).Scan(&tables); err != nil {
		return 0, fmt.Errorf("check migrations table: %w", err)
	}
	if tables > 0 {
		return 0, nil
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	if version > len(migrationNames) {
		return 0, fmt.Errorf("store schema version %d is newer than supported version %d", version, len(migrationNames))
	}
	return version, nil
}

// adoptLegacy records the first n migrations as applied without running
// them. Such stores applied them in the same order under the same names.
func adoptLegacy(ctx context.Context, db *sql.DB, n int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin legacy adoption: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	now := time.Now().Unix()
	for i, name := range migrationNames[:n] {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			i+1, name, now,
		); err != nil {
			return fmt.Errorf("record legacy migration %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit legacy adoption: %w", err)
	}
	return nil
}

// applyMigration runs one migration and records it in the same transaction.
func applyMigration(ctx context.Context, db *sql.DB, version int, name string) error {
	body, err := migrationFS.ReadFile("migrations/" + name + ".sql")
	if err != nil {
		return fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("apply migration %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		version, name, time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("record migration %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", name, err)
	}
	return nil
}

// Migrations returns the applied migrations in version order.
func (s *Store) Migrations(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT version, name, applied_at FROM schema_migrations ORDER BY version ASC")
	if err != nil {
		return nil, fmt.Errorf("query migrations: %w", err)
	}
	defer rows.Close()

	migrations := []AppliedMigration{}
	for rows.Next() {
		var m AppliedMigration
		var appliedAt int64
		if err := rows.Scan(&m.Version, &m.Name, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		m.AppliedAt = time.Unix(appliedAt, 0).UTC()
		migrations = append(migrations, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate migrations: %w", err)
	}
	return migrations, nil
}
