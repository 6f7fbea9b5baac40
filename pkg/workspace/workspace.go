// Package workspace loads a set of source files into one usage analyzer.
//
// Files are extracted in parallel, each worker owning its own tree-sitter
// extractor. Results then flow through a single writer, in the caller's file
// order, into a fresh analyzer, so the index is fully populated and its
// bucket order deterministic before the first query runs.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/grahambrooks/refactor-dsl-sub001/internal/cache"
	"github.com/grahambrooks/refactor-dsl-sub001/internal/fileproc"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/analyzer/usage"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/extract"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/facts"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/oracle"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/refindex"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

type options struct {
	logger       *slog.Logger
	cache        *cache.Cache
	workers      int
	progress     fileproc.ProgressFunc
	analyzerOpts []usage.Option
	oracleDir    string
	oracleTests  bool
	facts        []*facts.Document
}

// Option configures a Workspace.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCache serves unchanged files from an extraction cache.
func WithCache(c *cache.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithWorkers bounds parallel extraction. Zero or less uses the default.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithProgress is called once per file after extraction.
func WithProgress(fn func()) Option {
	return func(o *options) { o.progress = fn }
}

// WithAnalyzerOptions passes options to every analyzer the workspace builds.
func WithAnalyzerOptions(opts ...usage.Option) Option {
	return func(o *options) { o.analyzerOpts = append(o.analyzerOpts, opts...) }
}

// WithOracle type-checks the Go packages under dir after extraction and
// records the type checker's resolutions as Certain overrides.
func WithOracle(dir string, includeTests bool) Option {
	return func(o *options) {
		o.oracleDir = dir
		o.oracleTests = includeTests
	}
}

// WithFacts adds facts produced outside this module. They are applied after
// extracted files, in the order given.
func WithFacts(docs ...*facts.Document) Option {
	return func(o *options) { o.facts = append(o.facts, docs...) }
}

// Workspace is a loaded set of files and the analyzer built from them.
//
// Reload swaps in a new analyzer; an Analyzer obtained earlier keeps
// answering from the old snapshot. Analyzer queries update caches, so
// goroutines sharing one analyzer must serialize their calls.
type Workspace struct {
	// ID changes on every successful load or reload.
	ID string

	opts options

	mu        sync.RWMutex
	files     []string
	analyzer  *usage.Analyzer
	trackers  map[string]*scope.Tracker
	extracted []*extract.FileFacts
	errs      *fileproc.ProcessingErrors
	oracle    int
}

// Load extracts files and builds the analyzer. Files that fail to extract
// are reported by Errors and contribute nothing; Load itself fails only
// when ctx is cancelled.
func Load(ctx context.Context, files []string, opts ...Option) (*Workspace, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	w := &Workspace{opts: o}
	if err := w.ReloadFiles(ctx, files); err != nil {
		return nil, err
	}
	return w, nil
}

// Reload re-extracts the current file list.
func (w *Workspace) Reload(ctx context.Context) error {
	return w.ReloadFiles(ctx, w.Files())
}

// ReloadFiles replaces the file list and rebuilds the analyzer. Cache
// entries of files no longer listed are dropped. On error the previous
// state is kept.
func (w *Workspace) ReloadFiles(ctx context.Context, files []string) error {
	files = dedupe(files)
	log := w.opts.logger

	results, errs := fileproc.MapWithResource(ctx, files, w.opts.workers,
		extract.New,
		(*extract.Extractor).Close,
		w.extractFile,
		w.opts.progress,
	)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("workspace load cancelled: %w", err)
	}

	a := usage.New(w.opts.analyzerOpts...)
	trackers := make(map[string]*scope.Tracker, len(files))
	extracted := make([]*extract.FileFacts, 0, len(results))
	for _, r := range results {
		if !r.OK {
			continue
		}
		r.Value.Apply(a)
		trackers[r.Path] = r.Value.Tracker
		extracted = append(extracted, r.Value)
	}
	for _, doc := range w.opts.facts {
		doc.Apply(a)
		for i := range doc.Files {
			f := &doc.Files[i]
			path := filepath.Clean(f.Path)
			if _, ok := trackers[path]; !ok {
				trackers[path] = f.Tracker()
			}
		}
	}

	overrides := 0
	if w.opts.oracleDir != "" {
		overrides = w.applyOracle(ctx, a.Index())
	}

	if errs.HasErrors() {
		for _, e := range errs.Errors {
			log.Warn("extraction failed", "file", e.Path, "error", e.Err)
		}
	}
	stats := a.Index().Stats()
	log.Debug("workspace loaded",
		"files", len(files), "failed", errs.Len(), "bindings", stats.Bindings,
		"references", stats.References, "overrides", overrides)

	w.mu.Lock()
	dropped := removed(w.files, files)
	w.ID = uuid.NewString()
	w.files = files
	w.analyzer = a
	w.trackers = trackers
	w.extracted = extracted
	w.errs = errs
	w.oracle = overrides
	w.mu.Unlock()

	for _, f := range dropped {
		if err := w.opts.cache.Invalidate(f); err != nil {
			log.Debug("cache invalidate failed", "file", f, "error", err)
		}
	}
	return nil
}

// removed returns the files of old missing from current.
func removed(old, current []string) []string {
	keep := make(map[string]bool, len(current))
	for _, f := range current {
		keep[f] = true
	}
	var out []string
	for _, f := range old {
		if !keep[f] {
			out = append(out, f)
		}
	}
	return out
}

// extractFile runs on a pool worker with the worker's own extractor.
func (w *Workspace) extractFile(ctx context.Context, e *extract.Extractor, path string) (*extract.FileFacts, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if ff, ok := w.opts.cache.Load(path, content); ok {
		return ff, nil
	}
	ff, err := e.File(ctx, path, content)
	if err != nil {
		return nil, err
	}
	if err := w.opts.cache.Store(content, ff); err != nil {
		w.opts.logger.Debug("cache store failed", "file", path, "error", err)
	}
	return ff, nil
}

func (w *Workspace) applyOracle(ctx context.Context, idx *refindex.Index) int {
	res, err := oracle.LoadGo(ctx, w.opts.oracleDir, nil,
		oracle.WithLogger(w.opts.logger), oracle.WithTests(w.opts.oracleTests))
	if err != nil {
		w.opts.logger.Warn("oracle unavailable, using heuristic resolution", "dir", w.opts.oracleDir, "error", err)
		return 0
	}
	for _, e := range res.Errors {
		w.opts.logger.Debug("oracle package error", "error", e)
	}
	return res.Apply(idx)
}

func dedupe(files []string) []string {
	seen := make(map[string]bool, len(files))
	out := make([]string, 0, len(files))
	for _, f := range files {
		f = filepath.Clean(f)
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// Analyzer returns the current analyzer.
func (w *Workspace) Analyzer() *usage.Analyzer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.analyzer
}

// Files returns the loaded file list in load order.
func (w *Workspace) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.files...)
}

// Errors returns the per-file extraction failures of the last load, or nil.
func (w *Workspace) Errors() *fileproc.ProcessingErrors {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.errs
}

// Facts returns the extracted facts of the last load, in load order.
// Documents passed with WithFacts are not included.
func (w *Workspace) Facts() *facts.Document {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return facts.FromExtract(w.extracted)
}

// Overrides returns how many oracle resolutions the last load recorded.
func (w *Workspace) Overrides() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.oracle
}

// Tracker returns the scope tree of one file.
func (w *Workspace) Tracker(file string) (*scope.Tracker, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.trackers[filepath.Clean(file)]
	return t, ok
}

// FindBinding returns the first binding named name, in load order.
func (w *Workspace) FindBinding(name string) (scope.Binding, bool) {
	all := w.FindAllBindings(name)
	if len(all) == 0 {
		return scope.Binding{}, false
	}
	return all[0], true
}

// FindAllBindings returns every binding named name, in load order.
func (w *Workspace) FindAllBindings(name string) []scope.Binding {
	return w.Analyzer().Index().FindBindings(name)
}

// Lookup returns the bindings named name, restricted to file when file is
// not empty.
func (w *Workspace) Lookup(name, file string) []scope.Binding {
	all := w.FindAllBindings(name)
	if file == "" {
		return all
	}
	file = filepath.Clean(file)
	var out []scope.Binding
	for _, b := range all {
		if b.File == file {
			out = append(out, b)
		}
	}
	return out
}

// ReferenceAt returns the reference starting at a zero-based position,
// falling back to one that spans it.
func (w *Workspace) ReferenceAt(file string, line, character uint32) (refindex.Reference, bool) {
	idx := w.Analyzer().Index()
	file = filepath.Clean(file)
	if r, ok := idx.ReferenceAt(file, line, character); ok {
		return r, true
	}
	for _, r := range idx.ReferencesInFile(file) {
		if r.Range.Start.Line == line && r.Range.Start.Character <= character && character < r.Range.End.Character {
			return r, true
		}
	}
	return refindex.Reference{}, false
}
