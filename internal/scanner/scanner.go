// Package scanner discovers the source files a workspace should load.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/config"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/extract"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/parser"
)

// Scanner finds source files in a directory.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher
}

// NewScanner creates a new file scanner.
func NewScanner(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns loads exclusion patterns from both config and .gitignore files.
// Config patterns are parsed as gitignore patterns and combined with .gitignore files.
func (s *Scanner) loadExcludePatterns(root string) {
	s.matchers = nil
	var patterns []gitignore.Pattern

	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	// ReadPatterns reads every .gitignore below the repository root.
	if s.config.Exclude.Gitignore {
		base := findGitRoot(root)
		if base == "" {
			base = root
		}
		if gitPatterns, err := gitignore.ReadPatterns(osfs.New(base), nil); err == nil {
			patterns = append(patterns, rebase(gitPatterns, base, root)...)
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

// rebase keeps gitignore patterns read at base usable for paths relative to
// root by wrapping them in a matcher that prefixes root's offset.
func rebase(patterns []gitignore.Pattern, base, root string) []gitignore.Pattern {
	rel, err := filepath.Rel(base, root)
	if err != nil || rel == "." {
		return patterns
	}
	prefix := strings.Split(rel, string(filepath.Separator))
	out := make([]gitignore.Pattern, len(patterns))
	for i, p := range patterns {
		out[i] = prefixed{Pattern: p, prefix: prefix}
	}
	return out
}

type prefixed struct {
	gitignore.Pattern
	prefix []string
}

func (p prefixed) Match(path []string, isDir bool) gitignore.MatchResult {
	full := make([]string, 0, len(p.prefix)+len(path))
	full = append(full, p.prefix...)
	return p.Pattern.Match(append(full, path...), isDir)
}

// isExcluded checks if a path matches any exclusion pattern.
func (s *Scanner) isExcluded(path string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}

	pathParts := strings.Split(path, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(pathParts, isDir) {
			return true
		}
	}
	return false
}

func (s *Scanner) excludedDir(rel string) bool {
	base := filepath.Base(rel)
	for _, dir := range s.config.Exclude.Dirs {
		if base == dir {
			return true
		}
	}
	return s.isExcluded(rel, true)
}

// ScanDir recursively scans a directory for files with extraction support.
// Validates that all paths stay within the root directory to prevent traversal attacks.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		// Security: validate path stays within root (prevent symlink traversal)
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		if d.IsDir() {
			if relPath != "." && s.excludedDir(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(relPath, false) || s.config.ShouldExclude(relPath) {
			return nil
		}
		if extract.Supported(path) {
			files = append(files, path)
		}
		return nil
	})

	return files, walkErr
}

// ScanPaths expands a mix of files and directories into a sorted,
// de-duplicated file list. Explicit files bypass exclusion but must still
// be in a supported language.
func (s *Scanner) ScanPaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	seen := make(map[string]bool)
	var files []string
	add := func(f string) {
		f = filepath.Clean(f)
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if extract.Supported(p) {
				add(p)
			}
			continue
		}
		found, err := s.ScanDir(p)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}

	sort.Strings(files)
	return files, nil
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// FilterByLanguage keeps the files written in any of langs, in order. With
// no langs every file is kept.
func FilterByLanguage(files []string, langs ...parser.Language) []string {
	if len(langs) == 0 {
		return files
	}
	var filtered []string
	for _, f := range files {
		if slices.Contains(langs, parser.DetectLanguage(f)) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}
