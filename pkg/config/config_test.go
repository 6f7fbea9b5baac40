package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if !cfg.Analysis.IncludeTests {
		t.Error("Analysis.IncludeTests should be true by default")
	}
	if cfg.Analysis.Oracle {
		t.Error("Analysis.Oracle should be false by default")
	}
	if !cfg.Exclude.Gitignore {
		t.Error("Exclude.Gitignore should be true by default")
	}
	if len(cfg.Exclude.Dirs) == 0 {
		t.Error("Exclude.Dirs should have default values")
	}
	if !cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be true by default")
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %s, want text", cfg.Output.Format)
	}
	if cfg.LogLevel() != slog.LevelWarn {
		t.Errorf("LogLevel() = %v, want warn", cfg.LogLevel())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "refscope.toml")

	content := `
[analysis]
include_tests = false
oracle = true
workers = 4

[dead_code]
kinds = ["function", "type_alias"]
exclude_patterns = ["**/generated/**"]

[exclude]
dirs = ["vendor", "custom_exclude"]
patterns = ["*_generated.go"]

[cache]
enabled = false

[output]
format = "json"

[log]
level = "debug"
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Analysis.IncludeTests {
		t.Error("Analysis.IncludeTests should be false")
	}
	if !cfg.Analysis.Oracle || cfg.Analysis.Workers != 4 {
		t.Errorf("unexpected analysis section %+v", cfg.Analysis)
	}
	kinds, err := cfg.DeadCodeKinds()
	if err != nil {
		t.Fatalf("DeadCodeKinds() error: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != scope.KindFunction || kinds[1] != scope.KindTypeAlias {
		t.Errorf("DeadCodeKinds() = %v", kinds)
	}
	if len(cfg.DeadCode.ExcludePatterns) != 1 {
		t.Errorf("DeadCode.ExcludePatterns = %v", cfg.DeadCode.ExcludePatterns)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be false")
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %s, want json", cfg.Output.Format)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want debug", cfg.LogLevel())
	}
	// Unset keys keep their defaults.
	if !cfg.Exclude.Gitignore {
		t.Error("Exclude.Gitignore should keep its default")
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "refscope.yaml")

	content := `
analysis:
  workers: 2
dead_code:
  kinds: [method]
output:
  format: markdown
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Analysis.Workers != 2 {
		t.Errorf("Analysis.Workers = %d, want 2", cfg.Analysis.Workers)
	}
	if cfg.Output.Format != "markdown" {
		t.Errorf("Output.Format = %s, want markdown", cfg.Output.Format)
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "refscope.json")

	content := `{
  "cache": {"enabled": true, "dir": "/tmp/refscope", "ttl": 12},
  "output": {"format": "toon", "color": false}
}`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Cache.Dir != "/tmp/refscope" || cfg.Cache.TTL != 12 {
		t.Errorf("unexpected cache section %+v", cfg.Cache)
	}
	if cfg.Output.Format != "toon" || cfg.Output.Color {
		t.Errorf("unexpected output section %+v", cfg.Output)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad kind", "[dead_code]\nkinds = [\"gizmo\"]\n", "gizmo"},
		{"bad format", "[output]\nformat = \"xml\"\n", "xml"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "loud"},
		{"negative workers", "[analysis]\nworkers = -1\n", "workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "refscope.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/refscope.toml")
	if err == nil {
		t.Error("Load() should return error for non-existent file")
	}
}

func TestLoadOrDefault(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	if Find() != "" {
		t.Fatal("Find() should report nothing in an empty dir")
	}
	if cfg := LoadOrDefault(); cfg.Output.Format != "text" {
		t.Errorf("LoadOrDefault() without a file should return defaults")
	}

	if err := os.WriteFile(".refscope.toml", []byte("[output]\nformat = \"json\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	if Find() != ".refscope.toml" {
		t.Errorf("Find() = %q", Find())
	}
	if cfg := LoadOrDefault(); cfg.Output.Format != "json" {
		t.Errorf("LoadOrDefault() should load .refscope.toml, got format %s", cfg.Output.Format)
	}
}

func TestShouldExclude(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		path string
		want bool
	}{
		{"vendor/lib/a.go", true},
		{"src/node_modules/x.js", true},
		{"app.min.js", true},
		{"go.sum", true},
		{"pkg/scope/tracker.go", false},
		{"pkg/scope/tracker_test.go", false},
	}
	for _, tt := range tests {
		if got := cfg.ShouldExclude(tt.path); got != tt.want {
			t.Errorf("ShouldExclude(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	cfg.Analysis.IncludeTests = false
	if !cfg.ShouldExclude("pkg/scope/tracker_test.go") {
		t.Error("test files should be excluded when include_tests is false")
	}
	if !cfg.ShouldExclude("tests/test_api.py") {
		t.Error("python test files should be excluded when include_tests is false")
	}
	if len(cfg.Exclude.Patterns) != len(DefaultConfig().Exclude.Patterns) {
		t.Error("ShouldExclude must not grow the configured pattern list")
	}
}

func TestTOML(t *testing.T) {
	out, err := DefaultConfig().TOML()
	if err != nil {
		t.Fatalf("TOML() error: %v", err)
	}
	for _, want := range []string{"[analysis]", "include_tests = true", "[cache]", "[log]"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("TOML output missing %q:\n%s", want, out)
		}
	}
}
