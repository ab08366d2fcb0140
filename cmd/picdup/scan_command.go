package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"picdup/internal/cluster"
	"picdup/internal/config"
	"picdup/internal/hashcache"
	"picdup/internal/imghash"
	"picdup/internal/logging"
	"picdup/internal/preflight"
	"picdup/internal/scanner"
)

type scanReport struct {
	Groups    []cluster.Group `json:"groups"`
	Scanned   int             `json:"scanned"`
	Hashed    int             `json:"hashed"`
	CacheHits int             `json:"cache_hits"`
	Skipped   int             `json:"skipped"`
	ElapsedMS int64           `json:"elapsed_ms"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		src       string
		recursive bool
		hashName  string
		distance  int
		workers   int
		jsonOut   bool
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a directory and report visually duplicate images",
		Long: `Scan walks a directory, computes one perceptual hash per image, and
prints groups of files whose hashes cluster within the Hamming distance
threshold. Each group prints one file per line followed by a blank line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Unset flags fall back to the config file.
			if !cmd.Flags().Changed("hash") {
				hashName = cfg.Scan.Hash
			}
			if !cmd.Flags().Changed("hamming-distance") {
				distance = cfg.Scan.HammingDistance
			}
			if !cmd.Flags().Changed("recursive") {
				recursive = cfg.Scan.Recursive
			}
			if !cmd.Flags().Changed("workers") {
				workers = cfg.Scan.Workers
			}

			alg, err := imghash.ParseAlgorithm(hashName)
			if err != nil {
				return err
			}
			if distance < 0 {
				return fmt.Errorf("hamming distance must be non-negative, got %d", distance)
			}

			root, err := config.ExpandPath(src)
			if err != nil {
				return fmt.Errorf("resolve scan root: %w", err)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}

			cacheDir := ""
			if cfg.Cache.Enabled && !noCache {
				cacheDir = cfg.Cache.Dir
			}

			checks := preflight.Run(preflight.Checks{Root: root, CacheDir: cacheDir})
			if failed := preflight.Failed(checks); len(failed) > 0 {
				for _, f := range failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", f.Name, f.Detail)
				}
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}

			var cache *hashcache.Store
			if cacheDir != "" {
				cache, err = hashcache.Open(cacheDir)
				if err != nil {
					if errors.Is(err, hashcache.ErrLocked) {
						return err
					}
					logger.Warn("hash cache unavailable, continuing without it", "error", err)
					cache = nil
				} else {
					defer cache.Close()
				}
			}

			runID := ""
			if cache != nil {
				if id, err := cache.BeginRun(cmd.Context(), alg, root); err != nil {
					logger.Warn("could not record scan run", "error", err)
				} else {
					runID = id
				}
			}

			start := time.Now()
			opts := scanner.Options{
				Root:      root,
				Recursive: recursive,
				Algorithm: alg,
				Workers:   workers,
				Logger:    logger,
			}
			if cache != nil {
				opts.Cache = cache
			}
			records, stats, err := scanner.Scan(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("scan %s: %w", root, err)
			}

			groups, err := cluster.FindDuplicateGroups(records, distance)
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			if cache != nil && runID != "" {
				if err := cache.FinishRun(cmd.Context(), runID, stats.Candidates, stats.Hashed, stats.CacheHits, stats.Skipped); err != nil {
					logger.Warn("could not finish scan run record", "error", err)
				}
			}

			if jsonOut {
				report := scanReport{
					Groups:    groups,
					Scanned:   stats.Candidates,
					Hashed:    stats.Hashed,
					CacheHits: stats.CacheHits,
					Skipped:   stats.Skipped,
					ElapsedMS: elapsed.Milliseconds(),
				}
				if report.Groups == nil {
					report.Groups = []cluster.Group{}
				}
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			for _, group := range groups {
				for _, id := range group {
					fmt.Fprintln(out, id)
				}
				fmt.Fprintln(out)
			}

			if stdoutIsTerminal() {
				rows := [][]string{
					{"Duplicate groups", fmt.Sprintf("%d", len(groups))},
					{"Images scanned", fmt.Sprintf("%d", stats.Candidates)},
					{"Hashed", fmt.Sprintf("%d", stats.Hashed)},
					{"Cache hits", fmt.Sprintf("%d", stats.CacheHits)},
					{"Skipped", fmt.Sprintf("%d", stats.Skipped)},
					{"Elapsed", elapsed.Round(time.Millisecond).String()},
				}
				fmt.Fprintln(out, renderTable([]string{"Scan", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&src, "src", ".", "Directory to scan")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().StringVarP(&hashName, "hash", "H", "phash", "Hash algorithm: phash, ahash, dhash, or whash")
	cmd.Flags().IntVarP(&distance, "hamming-distance", "d", 0, "Maximum Hamming distance for two images to group")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent hash workers (0 = one per CPU)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the result as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the hash cache for this run")

	return cmd
}
