package usage

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/gobwas/glob"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/refindex"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

type cachedUsage struct {
	generation uint64
	info       UsageInfo
}

// Analyzer derives usage, dead-code, safe-delete and dependency answers
// from a reference index. Cached usage results are stamped with the index
// generation and recomputed after any mutation.
type Analyzer struct {
	index    *refindex.Index
	cache    map[scope.BindingKey]cachedUsage
	kinds    map[scope.BindingKind]bool
	excludes []glob.Glob
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithIndex makes the analyzer own an existing index.
func WithIndex(idx *refindex.Index) Option {
	return func(a *Analyzer) {
		if idx != nil {
			a.index = idx
		}
	}
}

// WithKinds limits FindDeadCode to bindings of the given kinds.
func WithKinds(kinds ...scope.BindingKind) Option {
	return func(a *Analyzer) {
		if len(kinds) == 0 {
			a.kinds = nil
			return
		}
		a.kinds = make(map[scope.BindingKind]bool, len(kinds))
		for _, k := range kinds {
			a.kinds[k] = true
		}
	}
}

// WithExcludes skips bindings defined in files matching any of the globs
// when reporting dead code.
func WithExcludes(globs ...glob.Glob) Option {
	return func(a *Analyzer) {
		a.excludes = append(a.excludes, globs...)
	}
}

// CompilePatterns compiles slash-separated glob patterns for WithExcludes.
func CompilePatterns(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// New creates an analyzer with a fresh index unless WithIndex is given.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		index: refindex.New(),
		cache: make(map[scope.BindingKey]cachedUsage),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Index returns the underlying reference index.
func (a *Analyzer) Index() *refindex.Index { return a.index }

// AddBinding inserts a binding into the index.
func (a *Analyzer) AddBinding(b scope.Binding) { a.index.AddBinding(b) }

// AddReference inserts a reference into the index.
func (a *Analyzer) AddReference(r refindex.Reference) { a.index.AddReference(r) }

// AnalyzeBinding counts the non-definition references sharing b's name.
func (a *Analyzer) AnalyzeBinding(b scope.Binding) UsageInfo {
	key := b.Key()
	gen := a.index.Generation()
	if c, ok := a.cache[key]; ok && c.generation == gen {
		return c.info.clone()
	}

	info := newUsageInfo(b)
	for _, r := range a.index.FindReferencesTo(b) {
		if !r.IsDefinition {
			info.add(r)
		}
	}
	a.cache[key] = cachedUsage{generation: gen, info: info}
	return info.clone()
}

// FindDeadCode reports every indexed binding with no usages, visiting files
// in the order the index first saw them.
func (a *Analyzer) FindDeadCode() DeadCodeInfo {
	result := DeadCodeInfo{
		UnusedBindings: make([]UnusedBinding, 0),
		ByKind:         make(map[string]int),
	}

	for _, file := range a.index.Files() {
		if a.excluded(file) {
			continue
		}
		for _, b := range a.index.BindingsInFile(file) {
			if a.kinds != nil && !a.kinds[b.Kind] {
				continue
			}
			result.TotalBindings++
			if !a.AnalyzeBinding(b).IsUnused {
				continue
			}
			kind := b.Kind.String()
			result.ByKind[kind]++
			result.UnusedBindings = append(result.UnusedBindings, UnusedBinding{
				Name:       b.Name,
				Kind:       kind,
				File:       b.File,
				Line:       b.Range.Start.Line,
				Character:  b.Range.Start.Character,
				IsExported: b.Exported,
				Confidence: DeadConfidenceFor(b),
			})
		}
	}
	result.TotalUnused = len(result.UnusedBindings)
	return result
}

func (a *Analyzer) excluded(file string) bool {
	if len(a.excludes) == 0 {
		return false
	}
	slashed := filepath.ToSlash(file)
	base := path.Base(slashed)
	for _, g := range a.excludes {
		if g.Match(slashed) || g.Match(base) {
			return true
		}
	}
	return false
}

// CanSafelyDelete reports whether b has no usages. When it does, the
// result lists every blocking reference.
func (a *Analyzer) CanSafelyDelete(b scope.Binding) SafeDeleteResult {
	info := a.AnalyzeBinding(b)
	if info.IsUnused {
		return SafeDeleteResult{CanDelete: true, Blockers: make([]DeleteBlocker, 0)}
	}

	var blockers []DeleteBlocker
	for _, r := range a.index.FindReferencesTo(b) {
		if r.IsDefinition {
			continue
		}
		blockers = append(blockers, DeleteBlocker{
			File: r.File,
			Line: r.Range.Start.Line,
			Kind: r.Kind.String(),
		})
	}
	return SafeDeleteResult{
		CanDelete: false,
		Reason:    fmt.Sprintf("Binding '%s' has %d usage(s) in %d file(s)", b.Name, info.UsageCount, info.FileCount),
		Blockers:  blockers,
	}
}

// FindAllUsages returns every reference sharing b's name, definitions included.
func (a *Analyzer) FindAllUsages(b scope.Binding) []refindex.Reference {
	return a.index.FindReferencesTo(b)
}

// FilesDependingOn returns the files, other than file, that reference a
// binding defined in file. The result is sorted.
func (a *Analyzer) FilesDependingOn(file string) []string {
	deps := roaring.New()
	for _, b := range a.index.BindingsInFile(file) {
		for _, r := range a.index.FindReferencesTo(b) {
			if r.File == file {
				continue
			}
			if fid, ok := a.index.FileID(r.File); ok {
				deps.Add(uint32(fid))
			}
		}
	}
	return a.paths(deps)
}

// FileDependencies returns the files defining bindings that references in
// file resolve to with at least medium confidence. The result is sorted.
func (a *Analyzer) FileDependencies(file string) []string {
	return a.paths(a.dependencyIDs(file))
}

func (a *Analyzer) dependencyIDs(file string) *roaring.Bitmap {
	deps := roaring.New()
	for _, res := range a.index.ResolveFile(file) {
		if res.Binding == nil || res.Binding.File == file {
			continue
		}
		if !res.Confidence.AtLeast(refindex.ConfidenceMedium) {
			continue
		}
		if fid, ok := a.index.FileID(res.Binding.File); ok {
			deps.Add(uint32(fid))
		}
	}
	return deps
}

func (a *Analyzer) paths(ids *roaring.Bitmap) []string {
	out := make([]string, 0, ids.GetCardinality())
	it := ids.Iterator()
	for it.HasNext() {
		out = append(out, a.index.FilePath(refindex.FileID(it.Next())))
	}
	sort.Strings(out)
	return out
}

// ClearCache drops cached usage results and cached resolutions.
func (a *Analyzer) ClearCache() {
	a.cache = make(map[scope.BindingKey]cachedUsage)
	a.index.ClearCache()
}
