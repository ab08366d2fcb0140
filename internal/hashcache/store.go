package hashcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"picdup/internal/imghash"
)

// ErrLocked reports that another picdup process holds the cache lock.
var ErrLocked = errors.New("hash cache is in use by another picdup process")

// Store manages digest persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
	path string
}

// Open initializes or connects to the cache database under dir and
// acquires the writer lock. Callers must Close the store to release it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, "cache.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire cache lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock file %s)", ErrLocked, lock.Path())
	}

	dbPath := filepath.Join(dir, "cache.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, lock: lock, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}
	return store, nil
}

// Close closes the database and releases the writer lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
	}
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = unlockErr
		}
		s.lock = nil
	}
	return err
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Lookup returns the cached digest for path under alg when the stored
// size and mtime still match the file on disk.
func (s *Store) Lookup(ctx context.Context, path string, size, mtimeNS int64, alg imghash.Algorithm) (imghash.Digest, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT digest FROM digests WHERE path = ? AND algorithm = ? AND size = ? AND mtime_ns = ?`,
		path, string(alg), size, mtimeNS,
	)
	var encoded string
	if err := row.Scan(&encoded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return imghash.Digest{}, false, nil
		}
		return imghash.Digest{}, false, fmt.Errorf("lookup digest: %w", err)
	}
	digest, err := imghash.ParseDigest(encoded)
	if err != nil {
		return imghash.Digest{}, false, fmt.Errorf("decode cached digest for %s: %w", path, err)
	}
	return digest, true, nil
}

// Store upserts the digest for path, replacing any stale entry for the
// same path and algorithm.
func (s *Store) Store(ctx context.Context, path string, size, mtimeNS int64, digest imghash.Digest) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO digests (path, algorithm, size, mtime_ns, digest, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(path, algorithm) DO UPDATE SET
             size = excluded.size,
             mtime_ns = excluded.mtime_ns,
             digest = excluded.digest,
             updated_at = excluded.updated_at`,
		path, string(digest.Kind()), size, mtimeNS, digest.String(), now,
	)
	if err != nil {
		return fmt.Errorf("store digest for %s: %w", path, err)
	}
	return nil
}

// Prune removes entries whose file no longer exists on disk and
// returns how many were dropped.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT path FROM digests`)
	if err != nil {
		return 0, fmt.Errorf("list cached paths: %w", err)
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan cached path: %w", err)
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate cached paths: %w", err)
	}
	rows.Close()

	var dropped int64
	for _, path := range stale {
		res, err := s.db.ExecContext(ctx, `DELETE FROM digests WHERE path = ?`, path)
		if err != nil {
			return dropped, fmt.Errorf("prune %s: %w", path, err)
		}
		n, _ := res.RowsAffected()
		dropped += n
	}
	return dropped, nil
}

// Clear removes every cached digest and returns the count dropped.
// Run history is kept.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM digests`)
	if err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// BeginRun records the start of a scan and returns the run id.
func (s *Store) BeginRun(ctx context.Context, alg imghash.Algorithm, root string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, algorithm, root, started_at) VALUES (?, ?, ?, ?)`,
		id, string(alg), root, now,
	)
	if err != nil {
		return "", fmt.Errorf("record run start: %w", err)
	}
	return id, nil
}

// FinishRun records the end-of-scan counters for a run started with BeginRun.
func (s *Store) FinishRun(ctx context.Context, id string, scanned, hashed, cacheHits, skipped int) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET finished_at = ?, scanned = ?, hashed = ?, cache_hits = ?, skipped = ? WHERE id = ?`,
		now, scanned, hashed, cacheHits, skipped, id,
	)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// RunSummary describes one recorded scan.
type RunSummary struct {
	ID         string
	Algorithm  string
	Root       string
	StartedAt  string
	FinishedAt string
	Scanned    int
	Hashed     int
	CacheHits  int
	Skipped    int
}

// Stats summarizes cache contents for reporting.
type Stats struct {
	Entries      int64
	PerAlgorithm map[string]int64
	Runs         int64
	LastRun      *RunSummary
}

// CollectStats gathers entry counts and the most recent run.
func (s *Store) CollectStats(ctx context.Context) (Stats, error) {
	stats := Stats{PerAlgorithm: make(map[string]int64)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM digests`).Scan(&stats.Entries); err != nil {
		return Stats{}, fmt.Errorf("count digests: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT algorithm, COUNT(*) FROM digests GROUP BY algorithm`)
	if err != nil {
		return Stats{}, fmt.Errorf("count digests per algorithm: %w", err)
	}
	for rows.Next() {
		var alg string
		var count int64
		if err := rows.Scan(&alg, &count); err != nil {
			rows.Close()
			return Stats{}, fmt.Errorf("scan algorithm count: %w", err)
		}
		stats.PerAlgorithm[alg] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Stats{}, fmt.Errorf("iterate algorithm counts: %w", err)
	}
	rows.Close()

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&stats.Runs); err != nil {
		return Stats{}, fmt.Errorf("count runs: %w", err)
	}

	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, algorithm, root, started_at,
                COALESCE(finished_at, ''), COALESCE(scanned, 0),
                COALESCE(hashed, 0), COALESCE(cache_hits, 0), COALESCE(skipped, 0)
         FROM runs ORDER BY started_at DESC LIMIT 1`,
	)
	var last RunSummary
	err = row.Scan(
		&last.ID, &last.Algorithm, &last.Root, &last.StartedAt,
		&last.FinishedAt, &last.Scanned, &last.Hashed, &last.CacheHits, &last.Skipped,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return Stats{}, fmt.Errorf("load last run: %w", err)
	default:
		stats.LastRun = &last
	}
	return stats, nil
}
