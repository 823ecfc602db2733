// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meshintell/lexsearch/internal/search"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the research cache",
}

// --- stats subcommand ---

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache hit/miss counters and provider spend",
	RunE:  runCacheStats,
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	snap := a.engine.CacheStatistics()

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Printf("Requests:       %d\n", snap.Requests)
	fmt.Printf("Hits:           %d\n", snap.Hits)
	fmt.Printf("Misses:         %d\n", snap.Misses)
	fmt.Printf("Hit ratio:      %.2f%%\n", snap.HitRatio*100)
	fmt.Printf("Evictions:      %d\n", snap.Evictions)
	fmt.Printf("Expired reaps:  %d\n", snap.ExpiredReaps)
	fmt.Printf("Memory entries: %d (%d bytes)\n", snap.MemoryEntries, snap.MemoryBytes)
	for name, ps := range snap.Providers {
		fmt.Printf("%s: %d calls, %d failures, avg %s, $%.2f\n",
			name, ps.Calls, ps.Failures, ps.AvgLatency, ps.EstimatedCost)
	}
	return nil
}

// --- invalidate subcommand ---

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Remove cached entries by pattern or category",
	Long: `Invalidate removes matching entries from both cache tiers. Provide a glob
pattern (e.g. "search:westlaw:*"), a category (search, document, citation),
or both. With neither, everything is removed.`,
	RunE: runCacheInvalidate,
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	pattern, _ := cmd.Flags().GetString("pattern")
	category, _ := cmd.Flags().GetString("category")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.engine.InvalidateCache(context.Background(), pattern, category)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d entries.\n", n)
	return nil
}

// --- warm subcommand ---

var cacheWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Replay saved query files to seed the cache",
	RunE:  runCacheWarm,
}

func runCacheWarm(cmd *cobra.Command, args []string) error {
	files, _ := cmd.Flags().GetStringSlice("query-file")
	if len(files) == 0 {
		return fmt.Errorf("at least one --query-file is required")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	for _, path := range files {
		qf, err := search.ReadQueryFile(path)
		if err != nil {
			return err
		}
		q, err := qf.Query.ToQuery()
		if err != nil {
			return err
		}
		set, err := a.engine.Search(context.Background(), q)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: warming from %s failed: %v\n", path, err)
			continue
		}
		state := "fetched"
		if set.FromCache {
			state = "already cached"
		}
		fmt.Printf("%s: %d results (%s)\n", path, len(set.Results), state)
	}
	return nil
}

func init() {
	cacheStatsCmd.Flags().Bool("json", false, "output statistics as JSON")
	cacheInvalidateCmd.Flags().String("pattern", "", "glob pattern of keys to remove")
	cacheInvalidateCmd.Flags().String("category", "", "category to remove: search, document, or citation")
	cacheWarmCmd.Flags().StringSlice("query-file", nil, "saved query file to replay (repeatable)")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
	cacheCmd.AddCommand(cacheWarmCmd)
	rootCmd.AddCommand(cacheCmd)
}
