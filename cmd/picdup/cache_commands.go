package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"picdup/internal/hashcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the hash cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func (c *commandContext) withCache(fn func(*hashcache.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	if !cfg.Cache.Enabled {
		return fmt.Errorf("the hash cache is disabled in the configuration")
	}
	store, err := hashcache.Open(cfg.Cache.Dir)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show hash cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(store *hashcache.Store) error {
				stats, err := store.CollectStats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, stats)
				}

				rows := [][]string{
					{"Database", store.Path()},
					{"Cached digests", fmt.Sprintf("%d", stats.Entries)},
					{"Recorded runs", fmt.Sprintf("%d", stats.Runs)},
				}
				algorithms := make([]string, 0, len(stats.PerAlgorithm))
				for alg := range stats.PerAlgorithm {
					algorithms = append(algorithms, alg)
				}
				sort.Strings(algorithms)
				for _, alg := range algorithms {
					rows = append(rows, []string{"  " + alg, fmt.Sprintf("%d", stats.PerAlgorithm[alg])})
				}
				if last := stats.LastRun; last != nil {
					rows = append(rows,
						[]string{"Last run", last.StartedAt},
						[]string{"  root", last.Root},
						[]string{"  algorithm", last.Algorithm},
						[]string{"  scanned/hashed/hits/skipped", fmt.Sprintf("%d/%d/%d/%d", last.Scanned, last.Hashed, last.CacheHits, last.Skipped)},
					)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Cache", "Value"}, rows, []columnAlignment{alignLeft, alignLeft}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit statistics as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(store *hashcache.Store) error {
				dropped, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached digest(s)\n", dropped)
				return nil
			})
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove cached digests for files that no longer exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCache(func(store *hashcache.Store) error {
				dropped, err := store.Prune(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d stale digest(s)\n", dropped)
				return nil
			})
		},
	}
}
