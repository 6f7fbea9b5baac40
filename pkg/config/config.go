package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

// Config holds all configuration options for refscope.
type Config struct {
	// Extraction and resolution settings
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis"`

	// Dead code reporting
	DeadCode DeadCodeConfig `koanf:"dead_code" toml:"dead_code"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Facts cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	Log LogConfig `koanf:"log" toml:"log"`
}

// AnalysisConfig controls how files are loaded into a workspace.
type AnalysisConfig struct {
	IncludeTests bool `koanf:"include_tests" toml:"include_tests"`
	// Oracle enables go/types resolution for Go files.
	Oracle  bool `koanf:"oracle" toml:"oracle"`
	Workers int  `koanf:"workers" toml:"workers"` // 0 = 2x NumCPU
}

// DeadCodeConfig narrows dead code reports.
type DeadCodeConfig struct {
	Kinds           []string `koanf:"kinds" toml:"kinds"`
	ExcludePatterns []string `koanf:"exclude_patterns" toml:"exclude_patterns"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns" toml:"patterns"`
	Extensions []string `koanf:"extensions" toml:"extensions"`
	Dirs       []string `koanf:"dirs" toml:"dirs"`
	Gitignore  bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours, 0 = until content changes
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon
	Color  bool   `koanf:"color" toml:"color"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `koanf:"level" toml:"level"` // debug, info, warn, error
}

// testPatterns match test files of the supported languages.
var testPatterns = []string{
	"*_test.go",
	"test_*.py",
	"*_test.py",
	"*.test.ts",
	"*.spec.ts",
	"*.test.js",
	"*.spec.js",
	"*_spec.rb",
	"*Test.java",
	"*Tests.cs",
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			IncludeTests: true,
			Oracle:       false,
		},
		DeadCode: DeadCodeConfig{},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.d.ts",
			},
			Extensions: []string{
				".lock",
				".sum",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				".refscope",
				"dist",
				"build",
				"target",
				"__pycache__",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".refscope/cache",
			TTL:     0,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from a file over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".toml":
		parser = toml.Parser()
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// configNames are searched in order in each search directory.
var configNames = []string{
	"refscope.toml",
	"refscope.yaml",
	"refscope.yml",
	"refscope.json",
	".refscope.toml",
	".refscope.yaml",
	".refscope.yml",
	".refscope.json",
}

// Find returns the first config file in the standard locations, or "".
func Find() string {
	for _, dir := range []string{".", ".refscope"} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	if path := Find(); path != "" {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return DefaultConfig()
}

// Validate checks values that cannot be caught by unmarshalling.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.DeadCodeKinds(); err != nil {
		errs = append(errs, err)
	}
	switch c.Output.Format {
	case "", "text", "json", "markdown", "toon":
	default:
		errs = append(errs, fmt.Errorf("unknown output format %q", c.Output.Format))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Analysis.Workers < 0 {
		errs = append(errs, fmt.Errorf("analysis.workers must not be negative"))
	}
	return errors.Join(errs...)
}

// DeadCodeKinds parses dead_code.kinds. An empty list means every kind.
func (c *Config) DeadCodeKinds() ([]scope.BindingKind, error) {
	kinds := make([]scope.BindingKind, 0, len(c.DeadCode.Kinds))
	for _, name := range c.DeadCode.Kinds {
		k, ok := scope.ParseBindingKind(name)
		if !ok {
			return nil, fmt.Errorf("unknown binding kind %q in dead_code.kinds", name)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// LogLevel returns the configured slog level, defaulting to warn.
func (c *Config) LogLevel() slog.Level {
	l, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelWarn
	}
	return l
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	// Check directory exclusions
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) ||
			strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}

	// Check extension exclusions
	ext := filepath.Ext(path)
	for _, excludeExt := range c.Exclude.Extensions {
		if ext == excludeExt {
			return true
		}
	}

	base := filepath.Base(path)
	patterns := c.Exclude.Patterns
	if !c.Analysis.IncludeTests {
		patterns = append(patterns[:len(patterns):len(patterns)], testPatterns...)
	}
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}

// TOML renders the effective configuration.
func (c *Config) TOML() ([]byte, error) {
	out, err := gotoml.Marshal(*c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return out, nil
}
