package hashcache

import (
	"context"
	"fmt"
)

type migration struct {
	version string
	sql     string
}

// migrations are applied in order; each runs at most once per database.
var migrations = []migration{
	{
		version: "0001_digests",
		sql: `CREATE TABLE digests (
            path       TEXT    NOT NULL,
            algorithm  TEXT    NOT NULL,
            size       INTEGER NOT NULL,
            mtime_ns   INTEGER NOT NULL,
            digest     TEXT    NOT NULL,
            updated_at TEXT    NOT NULL,
            PRIMARY KEY (path, algorithm)
        )`,
	},
	{
		version: "0002_runs",
		sql: `CREATE TABLE runs (
            id          TEXT PRIMARY KEY,
            algorithm   TEXT NOT NULL,
            root        TEXT NOT NULL,
            started_at  TEXT NOT NULL,
            finished_at TEXT,
            scanned     INTEGER,
            hashed      INTEGER,
            cache_hits  INTEGER,
            skipped     INTEGER
        )`,
	},
}

func (s *Store) applyMigrations(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", m.version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %s: %w", m.version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}
