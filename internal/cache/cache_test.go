package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/extract"
)

const src = "package lib\n\nfunc Helper() int {\n\tn := 1\n\treturn n\n}\n"

func extractGo(t *testing.T, path, content string) *extract.FileFacts {
	t.Helper()
	ff, err := extract.File(context.Background(), path, []byte(content))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return ff
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	c, err := New(filepath.Join(tmpDir, "nested", "cache"), time.Hour, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if !c.Enabled() {
		t.Error("cache should be enabled")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "nested", "cache")); err != nil {
		t.Error("New() should create cache directory")
	}

	c, err = New("", 0, false)
	if err != nil {
		t.Fatalf("New() error for disabled cache: %v", err)
	}
	if c.Enabled() {
		t.Error("cache should be disabled")
	}
}

func TestStoreAndLoad(t *testing.T) {
	c, err := New(t.TempDir(), 0, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ff := extractGo(t, "lib.go", src)
	if err := c.Store([]byte(src), ff); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	got, ok := c.Load("lib.go", []byte(src))
	if !ok {
		t.Fatal("Load() should hit for unchanged content")
	}
	if got.Path != "lib.go" || got.Language != ff.Language {
		t.Errorf("unexpected header %s/%s", got.Path, got.Language)
	}
	if got.Tracker.Len() != ff.Tracker.Len() || got.Tracker.ScopeCount() != ff.Tracker.ScopeCount() {
		t.Errorf("tracker mismatch: %d/%d bindings, %d/%d scopes",
			got.Tracker.Len(), ff.Tracker.Len(), got.Tracker.ScopeCount(), ff.Tracker.ScopeCount())
	}
	if len(got.References) != len(ff.References) {
		t.Errorf("references = %d, want %d", len(got.References), len(ff.References))
	}

	if _, ok := c.Load("lib.go", []byte(src+"\n// changed\n")); ok {
		t.Error("Load() should miss when content changed")
	}
	if _, ok := c.Load("other.go", []byte(src)); ok {
		t.Error("Load() should miss for another path")
	}
}

func TestLoadExpired(t *testing.T) {
	c, err := New(t.TempDir(), time.Nanosecond, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := c.Store([]byte(src), extractGo(t, "lib.go", src)); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	time.Sleep(time.Millisecond)

	if _, ok := c.Load("lib.go", []byte(src)); ok {
		t.Error("Load() should miss for expired entry")
	}
}

func TestDisabledCache(t *testing.T) {
	c, _ := New("", 0, false)
	if err := c.Store([]byte(src), extractGo(t, "lib.go", src)); err != nil {
		t.Errorf("Store() on disabled cache: %v", err)
	}
	if _, ok := c.Load("lib.go", []byte(src)); ok {
		t.Error("disabled cache should never hit")
	}
	if err := c.Invalidate("lib.go"); err != nil {
		t.Errorf("Invalidate() on disabled cache: %v", err)
	}
	stats, err := c.GetStats()
	if err != nil || stats.Entries != 0 {
		t.Errorf("GetStats() = %+v, %v", stats, err)
	}
}

func TestInvalidateAndStats(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 0, true)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	for _, name := range []string{"a.go", "b.go"} {
		if err := c.Store([]byte(src), extractGo(t, name, src)); err != nil {
			t.Fatalf("Store() error: %v", err)
		}
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error: %v", err)
	}
	if stats.Entries != 2 || stats.TotalSize == 0 {
		t.Errorf("unexpected stats %+v", stats)
	}

	if err := c.Invalidate("a.go"); err != nil {
		t.Fatalf("Invalidate() error: %v", err)
	}
	if err := c.Invalidate("a.go"); err != nil {
		t.Errorf("second Invalidate() should be a no-op, got %v", err)
	}
	if _, ok := c.Load("a.go", []byte(src)); ok {
		t.Error("invalidated entry should miss")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("Clear() should remove the cache dir")
	}
}

func TestHashBytes(t *testing.T) {
	a := HashBytes([]byte("hello"))
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if a != HashBytes([]byte("hello")) {
		t.Error("hash should be deterministic")
	}
	if a == HashBytes([]byte("world")) {
		t.Error("different inputs should hash differently")
	}
}
