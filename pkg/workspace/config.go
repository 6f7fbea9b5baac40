package workspace

import (
	"os"
	"path/filepath"
	"time"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/cache"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/analyzer/usage"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/config"
)

// FromConfig translates configuration into load options. When the oracle is
// enabled it type-checks from root; a file root uses its directory. The
// cache directory is created if caching is on.
func FromConfig(cfg *config.Config, root string) ([]Option, error) {
	kinds, err := cfg.DeadCodeKinds()
	if err != nil {
		return nil, err
	}
	excludes, err := usage.CompilePatterns(cfg.DeadCode.ExcludePatterns)
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithWorkers(cfg.Analysis.Workers),
		WithAnalyzerOptions(usage.WithKinds(kinds...), usage.WithExcludes(excludes...)),
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache.Dir, time.Duration(cfg.Cache.TTL)*time.Hour, true)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithCache(c))
	}

	if cfg.Analysis.Oracle && root != "" {
		if info, err := os.Stat(root); err == nil && !info.IsDir() {
			root = filepath.Dir(root)
		}
		opts = append(opts, WithOracle(root, cfg.Analysis.IncludeTests))
	}
	return opts, nil
}
