package scanner

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/text/unicode/norm"

	"picdup/internal/cluster"
	"picdup/internal/imghash"
)

// DigestCache looks up and stores computed digests. *hashcache.Store
// satisfies it; a nil cache disables caching.
type DigestCache interface {
	Lookup(ctx context.Context, path string, size, mtimeNS int64, alg imghash.Algorithm) (imghash.Digest, bool, error)
	Store(ctx context.Context, path string, size, mtimeNS int64, digest imghash.Digest) error
}

// Options configures one scan.
type Options struct {
	// Root is the directory to scan. A root that does not exist or is
	// not a directory yields an empty record set, not an error.
	Root string
	// Recursive descends into subdirectories.
	Recursive bool
	// Algorithm selects the hash function. One per scan; every record
	// the scan emits carries a digest from this algorithm.
	Algorithm imghash.Algorithm
	// Workers bounds concurrent hash computations. Zero or negative
	// means runtime.NumCPU().
	Workers int
	// Cache, when non-nil, is consulted before decoding and updated
	// after hashing. Cache failures degrade to hashing.
	Cache DigestCache
	// Logger receives per-file skip warnings. Nil uses slog.Default.
	Logger *slog.Logger
}

// Stats counts what one scan did.
type Stats struct {
	Candidates int // image files considered
	Hashed     int // digests computed fresh
	CacheHits  int // digests served from the cache
	Skipped    int // unreadable or undecodable files
}

// Scan walks opts.Root and returns one record per hashable image.
func Scan(ctx context.Context, opts Options) ([]cluster.Record, Stats, error) {
	if _, err := imghash.ParseAlgorithm(string(opts.Algorithm)); err != nil {
		return nil, Stats{}, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(opts.Root)
	if err != nil || !info.IsDir() {
		// Nothing to scan. Matches the hash source contract: a
		// non-directory source is an empty sequence, not a failure.
		return nil, Stats{}, nil
	}

	candidates, skippedDirs, err := collectCandidates(ctx, opts.Root, opts.Recursive, logger)
	if err != nil {
		return nil, Stats{}, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(candidates) && len(candidates) > 0 {
		workers = len(candidates)
	}

	var (
		mu      sync.Mutex
		records []cluster.Record
		stats   = Stats{Candidates: len(candidates), Skipped: skippedDirs}
		jobs    = make(chan string)
		wg      sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				rec, outcome := hashOne(ctx, opts, logger, path)
				mu.Lock()
				switch outcome {
				case outcomeHashed:
					stats.Hashed++
					records = append(records, rec)
				case outcomeCacheHit:
					stats.CacheHits++
					records = append(records, rec)
				case outcomeSkipped:
					stats.Skipped++
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, path := range candidates {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- path:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}
	return records, stats, nil
}

type hashOutcome int

const (
	outcomeHashed hashOutcome = iota
	outcomeCacheHit
	outcomeSkipped
	outcomeCanceled
)

func hashOne(ctx context.Context, opts Options, logger *slog.Logger, path string) (cluster.Record, hashOutcome) {
	if ctx.Err() != nil {
		return cluster.Record{}, outcomeCanceled
	}

	id, err := identifier(opts.Root, path)
	if err != nil {
		logger.Warn("skipping file outside scan root", "path", path, "error", err)
		return cluster.Record{}, outcomeSkipped
	}

	fi, err := os.Stat(path)
	if err != nil {
		logger.Warn("skipping unreadable file", "path", path, "error", err)
		return cluster.Record{}, outcomeSkipped
	}
	size := fi.Size()
	mtimeNS := fi.ModTime().UnixNano()

	if opts.Cache != nil {
		cached, ok, err := opts.Cache.Lookup(ctx, path, size, mtimeNS, opts.Algorithm)
		if err != nil {
			logger.Warn("hash cache lookup failed", "path", path, "error", err)
		} else if ok {
			return cluster.Record{Digest: cached, ID: id}, outcomeCacheHit
		}
	}

	digest, err := decodeAndHash(opts.Algorithm, path)
	if err != nil {
		logger.Warn("skipping undecodable image", "path", path, "error", err)
		return cluster.Record{}, outcomeSkipped
	}

	if opts.Cache != nil {
		if err := opts.Cache.Store(ctx, path, size, mtimeNS, digest); err != nil {
			logger.Warn("hash cache store failed", "path", path, "error", err)
		}
	}
	return cluster.Record{Digest: digest, ID: id}, outcomeHashed
}

func decodeAndHash(alg imghash.Algorithm, path string) (imghash.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return imghash.Digest{}, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return imghash.Digest{}, fmt.Errorf("decode: %w", err)
	}
	return imghash.Compute(alg, img)
}

func collectCandidates(ctx context.Context, root string, recursive bool, logger *slog.Logger) ([]string, int, error) {
	var candidates []string
	skipped := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			logger.Warn("skipping unreadable entry", "path", path, "error", walkErr)
			skipped++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if IsImagePath(path) {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return candidates, skipped, nil
}

// identifier returns the root-relative slash path in NFC form. macOS
// traversal yields NFD names; normalizing keeps the same file name
// comparable across platforms.
func identifier(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	return norm.NFC.String(filepath.ToSlash(rel)), nil
}
