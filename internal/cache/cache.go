// Package cache persists per-file extraction results on disk. Entries are
// keyed by path and only served while the BLAKE3 hash of the file content
// still matches.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/extract"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/facts"
)

// Cache provides file-based caching of extracted facts.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry represents one cached file.
type Entry struct {
	Hash      string     `json:"hash"`
	Version   int        `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
	File      facts.File `json:"file"`
}

// New creates a new cache instance. A ttl of zero keeps entries until the
// content changes.
func New(dir string, ttl time.Duration, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	return &Cache{
		dir:     dir,
		ttl:     ttl,
		enabled: true,
	}, nil
}

// Enabled reports whether the cache stores anything.
func (c *Cache) Enabled() bool { return c != nil && c.enabled }

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Load returns the cached facts for path if they were extracted from
// content identical to the given bytes.
func (c *Cache) Load(path string, content []byte) (*extract.FileFacts, bool) {
	if !c.Enabled() {
		return nil, false
	}

	file := c.keyPath(path)
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	if entry.Version != facts.Version || entry.Hash != HashBytes(content) || entry.File.Path != path {
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.Timestamp) > c.ttl {
		_ = os.Remove(file)
		return nil, false
	}

	return entry.File.FileFacts(), true
}

// Store records facts extracted from content.
func (c *Cache) Store(content []byte, ff *extract.FileFacts) error {
	if !c.Enabled() {
		return nil
	}

	entry := Entry{
		Hash:      HashBytes(content),
		Version:   facts.Version,
		Timestamp: time.Now(),
		File:      facts.FromFileFacts(ff),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return os.WriteFile(c.keyPath(ff.Path), data, 0o600)
}

// Invalidate removes the entry for path.
func (c *Cache) Invalidate(path string) error {
	if !c.Enabled() {
		return nil
	}
	if err := os.Remove(c.keyPath(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if !c.Enabled() {
		return nil
	}
	return os.RemoveAll(c.dir)
}

// keyPath converts a key to a filesystem path.
func (c *Cache) keyPath(key string) string {
	// Use BLAKE3 hash of key for filename to avoid path issues
	hash := blake3.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}

// Stats returns cache statistics.
type Stats struct {
	Entries   int           `json:"entries" toon:"entries"`
	TotalSize int64         `json:"total_size" toon:"total_size"`
	OldestAge time.Duration `json:"oldest_age" toon:"oldest_age"`
	NewestAge time.Duration `json:"newest_age" toon:"newest_age"`
}

// GetStats returns statistics about the cache.
func (c *Cache) GetStats() (*Stats, error) {
	if !c.Enabled() {
		return &Stats{}, nil
	}

	stats := &Stats{}
	var oldest, newest time.Time

	err := filepath.Walk(c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		stats.Entries++
		stats.TotalSize += info.Size()

		modTime := info.ModTime()
		if oldest.IsZero() || modTime.Before(oldest) {
			oldest = modTime
		}
		if newest.IsZero() || modTime.After(newest) {
			newest = modTime
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !oldest.IsZero() {
		stats.OldestAge = time.Since(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = time.Since(newest)
	}
	return stats, nil
}
