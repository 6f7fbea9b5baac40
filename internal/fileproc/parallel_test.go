package fileproc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
)

func TestForEachFile(t *testing.T) {
	tmpDir := t.TempDir()

	files := []string{
		createTestFile(t, tmpDir, "file1.go", "package main\nfunc main() {}"),
		createTestFile(t, tmpDir, "file2.go", "package main\nfunc test() {}"),
		createTestFile(t, tmpDir, "file3.go", "package main\nfunc validate() {}"),
	}

	results, errs := ForEachFile(context.Background(), files, 0, func(path string) (string, error) {
		return filepath.Base(path), nil
	}, nil)

	if errs != nil {
		t.Errorf("Unexpected errors: %v", errs)
	}
	if len(results) != len(files) {
		t.Fatalf("Expected %d results, got %d", len(files), len(results))
	}
	for i, r := range results {
		if !r.OK {
			t.Errorf("result %d not ok", i)
		}
		if r.Path != files[i] {
			t.Errorf("result %d path = %s, want %s", i, r.Path, files[i])
		}
		if want := fmt.Sprintf("file%d.go", i+1); r.Value != want {
			t.Errorf("result %d value = %s, want %s", i, r.Value, want)
		}
	}
}

func TestForEachFile_EmptyFileList(t *testing.T) {
	results, errs := ForEachFile(context.Background(), []string{}, 0, func(path string) (string, error) {
		return path, nil
	}, nil)

	if results != nil {
		t.Errorf("Expected nil for empty file list, got %v", results)
	}
	if errs != nil {
		t.Errorf("Expected nil errors, got %v", errs)
	}
}

func TestForEachFile_WithErrors(t *testing.T) {
	files := []string{"good1", "bad", "good2"}
	boom := errors.New("boom")

	var progress atomic.Int32
	results, errs := ForEachFile(context.Background(), files, 2, func(path string) (int, error) {
		if path == "bad" {
			return 0, boom
		}
		return len(path), nil
	}, func() { progress.Add(1) })

	if !errs.HasErrors() || errs.Len() != 1 {
		t.Fatalf("Expected one error, got %v", errs)
	}
	if errs.Errors[0].Path != "bad" || !errors.Is(errs.Errors[0], boom) {
		t.Errorf("Unexpected error entry %+v", errs.Errors[0])
	}
	if results[1].OK {
		t.Error("failed file should not be ok")
	}
	if !results[0].OK || !results[2].OK {
		t.Error("successful files should be ok")
	}
	if progress.Load() != 3 {
		t.Errorf("Expected progress 3 times, got %d", progress.Load())
	}
}

func TestForEachFile_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := make([]string, 20)
	for i := range files {
		files[i] = fmt.Sprintf("f%d", i)
	}
	results, errs := ForEachFile(ctx, files, 4, func(path string) (string, error) {
		return path, nil
	}, nil)

	if len(results) != len(files) {
		t.Fatalf("Expected %d slots, got %d", len(files), len(results))
	}
	if !errs.HasErrors() {
		t.Fatal("Expected cancellation errors")
	}
	for _, e := range errs.Errors {
		if !errors.Is(e, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", e.Err)
		}
	}
}

type counter struct {
	id     int
	closed bool
}

func TestMapWithResource_ReusesAndCloses(t *testing.T) {
	var mu sync.Mutex
	var created []*counter

	files := make([]string, 100)
	for i := range files {
		files[i] = fmt.Sprintf("file%d.go", i)
	}

	results, errs := MapWithResource(context.Background(), files, 4,
		func() *counter {
			mu.Lock()
			defer mu.Unlock()
			c := &counter{id: len(created)}
			created = append(created, c)
			return c
		},
		func(c *counter) { c.closed = true },
		func(_ context.Context, c *counter, path string) (int, error) {
			if c.closed {
				return 0, fmt.Errorf("resource %d used after close", c.id)
			}
			return c.id, nil
		},
		nil,
	)

	if errs != nil {
		t.Fatalf("Unexpected errors: %v", errs)
	}
	if len(results) != len(files) {
		t.Fatalf("Expected %d results, got %d", len(files), len(results))
	}
	if len(created) > 4*2 {
		t.Errorf("Expected resources to be reused, created %d", len(created))
	}
	for _, c := range created {
		if !c.closed {
			t.Errorf("resource %d was not closed", c.id)
		}
	}
}

func TestProcessingError(t *testing.T) {
	err := ProcessingError{Path: "/test/file.go", Err: fmt.Errorf("parse error")}
	if err.Error() != "/test/file.go: parse error" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}
}

func TestProcessingErrors(t *testing.T) {
	var nilErrs *ProcessingErrors
	if nilErrs.HasErrors() || nilErrs.Len() != 0 {
		t.Error("nil collection should be empty")
	}

	errs := &ProcessingErrors{}
	if errs.Error() != "no errors" {
		t.Errorf("Unexpected empty message: %s", errs.Error())
	}

	errs.Add("a.go", fmt.Errorf("one"))
	if errs.Error() != "a.go: one" {
		t.Errorf("Unexpected single message: %s", errs.Error())
	}

	errs.Add("b.go", fmt.Errorf("two"))
	if errs.Error() != "2 files failed to process (first: a.go: one)" {
		t.Errorf("Unexpected multi message: %s", errs.Error())
	}
}

func TestProcessingErrors_ThreadSafe(t *testing.T) {
	errs := &ProcessingErrors{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs.Add(fmt.Sprintf("file%d.go", n), fmt.Errorf("error %d", n))
		}(i)
	}
	wg.Wait()

	if errs.Len() != 100 {
		t.Errorf("Expected 100 errors, got %d", errs.Len())
	}
}

func BenchmarkForEachFile(b *testing.B) {
	tmpDir := b.TempDir()
	files := make([]string, 100)
	for i := range files {
		files[i] = createTestFile(b, tmpDir, fmt.Sprintf("file%d.go", i), "package main")
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ForEachFile(context.Background(), files, 0, func(path string) (int, error) {
			data, err := os.ReadFile(path)
			return len(data), err
		}, nil)
	}
}

func createTestFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}
