// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error { return e.Err }

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Len returns the number of collected errors.
func (e *ProcessingErrors) Len() int {
	if e == nil {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors)
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// DefaultWorkers returns the worker count used when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// Result is the outcome for one input file. OK is false when the file failed
// or was skipped by cancellation.
type Result[T any] struct {
	Path  string
	Value T
	OK    bool
}

// ForEachFile processes files in parallel and returns results in input order.
// If maxWorkers is <= 0, defaults to 2x NumCPU.
func ForEachFile[T any](ctx context.Context, files []string, maxWorkers int, fn func(string) (T, error), onProgress ProgressFunc) ([]Result[T], *ProcessingErrors) {
	return MapWithResource(ctx, files, maxWorkers,
		func() struct{} { return struct{}{} },
		nil,
		func(_ context.Context, _ struct{}, path string) (T, error) { return fn(path) },
		onProgress,
	)
}

// MapWithResource processes files in parallel, handing fn a resource that
// belongs to the calling goroutine for the duration of one file. Resources
// are created on demand by newResource, reused across files and released
// with closeResource once all files are done. Results are returned in input
// order; failures are collected rather than stopping the pool.
func MapWithResource[T any, R any](
	ctx context.Context,
	files []string,
	maxWorkers int,
	newResource func() R,
	closeResource func(R),
	fn func(context.Context, R, string) (T, error),
	onProgress ProgressFunc,
) ([]Result[T], *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}
	if maxWorkers <= 0 {
		maxWorkers = DefaultWorkers()
	}

	results := make([]Result[T], len(files))
	errs := &ProcessingErrors{}
	resources := make(chan R, maxWorkers)

	get := func() R {
		select {
		case r := <-resources:
			return r
		default:
			return newResource()
		}
	}
	put := func(r R) {
		select {
		case resources <- r:
		default:
			if closeResource != nil {
				closeResource(r)
			}
		}
	}

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for i, path := range files {
		results[i].Path = path
		p.Go(func(ctx context.Context) error {
			if onProgress != nil {
				defer onProgress()
			}

			select {
			case <-ctx.Done():
				errs.Add(path, ctx.Err())
				return nil
			default:
			}

			r := get()
			defer put(r)

			value, err := fn(ctx, r, path)
			if err != nil {
				errs.Add(path, err)
				return nil // Don't stop pool on individual file errors
			}
			results[i].Value = value
			results[i].OK = true
			return nil
		})
	}
	_ = p.Wait() // Context errors are already captured in errs

	close(resources)
	for r := range resources {
		if closeResource != nil {
			closeResource(r)
		}
	}

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
