package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/cache"
	"github.com/grahambrooks/refactor-dsl-sub001/internal/output"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the extraction cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show the number, size and age of cache entries",
				Action: runCacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cache entry",
				Action: runCacheClear,
			},
		},
	}
}

// openCache opens the configured cache directory whether or not caching is
// switched on, so entries left by earlier runs can still be managed.
func openCache(c *cli.Context) (*env, *cache.Cache, error) {
	e, err := newEnv(c)
	if err != nil {
		return nil, nil, err
	}
	cc, err := cache.New(e.cfg.Cache.Dir, time.Duration(e.cfg.Cache.TTL)*time.Hour, true)
	if err != nil {
		return nil, nil, err
	}
	return e, cc, nil
}

func runCacheStats(c *cli.Context) error {
	e, cc, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := cc.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}

	formatter, err := e.formatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(output.CacheStats(output.CacheStatsView{Dir: e.cfg.Cache.Dir, Stats: *stats}))
}

func runCacheClear(c *cli.Context) error {
	e, cc, err := openCache(c)
	if err != nil {
		return err
	}
	stats, err := cc.GetStats()
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}
	if err := cc.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	status(c).Success("Removed %d cache entries from %s", stats.Entries, e.cfg.Cache.Dir)
	return nil
}
