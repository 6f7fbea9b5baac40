// Package testutil writes source fixtures for tests that load workspaces.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// LibGo declares an exported function used by AppGo and a private one
// nothing uses.
const LibGo = `package demo

// Helper is called from app.go.
func Helper() int { return 1 }

func unused() {}
`

// AppGo calls Helper at zero-based line 3, character 8.
const AppGo = `package demo

func Run() int {
	return Helper()
}
`

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// WriteTree writes files, keyed by slash-separated relative path, into a
// fresh temporary directory and returns it.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(name)), content)
	}
	return root
}

// Demo writes lib.go and app.go and returns the directory and both paths.
func Demo(t *testing.T) (dir, lib, app string) {
	t.Helper()
	dir = WriteTree(t, map[string]string{"lib.go": LibGo, "app.go": AppGo})
	return dir, filepath.Join(dir, "lib.go"), filepath.Join(dir, "app.go")
}
