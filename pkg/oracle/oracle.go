// Package oracle derives exact reference resolutions for Go code from the
// type checker and records them as Certain overrides in an index.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/tools/go/packages"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/refindex"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

// ErrNoPackages is returned when the patterns match no Go packages.
var ErrNoPackages = errors.New("no Go packages matched")

// Pair links a use site to the declaration the type checker chose for it.
// Positions are zero-based, columns in bytes.
type Pair struct {
	Ref refindex.ReferenceKey
	Def scope.BindingKey
}

// Result is the set of resolutions found in the loaded packages.
type Result struct {
	Dir      string
	Pairs    []Pair
	Packages int
	// Errors holds package load and type errors. Resolutions from
	// partially typed packages are still reported.
	Errors []error
}

type options struct {
	logger *slog.Logger
	tests  bool
}

// Option configures LoadGo.
type Option func(*options)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTests includes test files and test packages.
func WithTests(include bool) Option {
	return func(o *options) { o.tests = include }
}

// LoadGo type-checks the packages matching patterns under dir. With no
// patterns, "./..." is used.
func LoadGo(ctx context.Context, dir string, patterns []string, opts ...Option) (*Result, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	cfg := &packages.Config{
		Context: ctx,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
			packages.NeedSyntax | packages.NeedTypes | packages.NeedTypesInfo,
		Dir:   abs,
		Tests: o.tests,
		Env:   os.Environ(),
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("%s: %w", abs, ErrNoPackages)
	}

	res := &Result{Dir: abs}
	seen := make(map[refindex.ReferenceKey]bool)
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		// Visit walks imports too; only the requested roots matter.
		if !requested(pkgs, p) {
			return
		}
		res.Packages++
		for _, e := range p.Errors {
			res.Errors = append(res.Errors, e)
		}
		if p.TypesInfo == nil {
			return
		}
		res.collect(p.Fset, p.TypesInfo.Defs, seen)
		res.collect(p.Fset, p.TypesInfo.Uses, seen)
	})

	o.logger.Debug("oracle loaded packages",
		"dir", abs, "packages", res.Packages, "pairs", len(res.Pairs), "errors", len(res.Errors))
	return res, nil
}

func requested(roots []*packages.Package, p *packages.Package) bool {
	for _, r := range roots {
		if r == p {
			return true
		}
	}
	return false
}

func (r *Result) collect(fset *token.FileSet, objs map[*ast.Ident]types.Object, seen map[refindex.ReferenceKey]bool) {
	for ident, obj := range objs {
		if obj == nil || obj.Pkg() == nil || !obj.Pos().IsValid() {
			continue
		}
		use := fset.Position(ident.Pos())
		def := fset.Position(obj.Pos())
		if use.Filename == "" || def.Filename == "" {
			continue
		}

		ref := refindex.ReferenceKey{File: use.Filename, Line: zero(use.Line), Character: zero(use.Column)}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		r.Pairs = append(r.Pairs, Pair{
			Ref: ref,
			Def: scope.BindingKey{File: def.Filename, Line: zero(def.Line), Character: zero(def.Column), Name: obj.Name()},
		})
	}
}

func zero(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32(n - 1)
}

// Apply records every pair whose reference and binding are both in the
// index as a Certain override, and returns how many were recorded. File
// paths are matched as absolute, relative to the load directory, or
// relative to the working directory, whichever the index knows.
func (r *Result) Apply(idx *refindex.Index) int {
	paths := make(map[string]string)
	lookup := func(abs string) (string, bool) {
		if p, ok := paths[abs]; ok {
			return p, p != ""
		}
		for _, cand := range r.candidates(abs) {
			if _, ok := idx.FileID(cand); ok {
				paths[abs] = cand
				return cand, true
			}
		}
		paths[abs] = ""
		return "", false
	}

	applied := 0
	for _, p := range r.Pairs {
		refFile, ok := lookup(p.Ref.File)
		if !ok {
			continue
		}
		defFile, ok := lookup(p.Def.File)
		if !ok {
			continue
		}
		ref, ok := idx.ReferenceAt(refFile, p.Ref.Line, p.Ref.Character)
		if !ok || ref.Name != p.Def.Name {
			continue
		}
		b, ok := idx.BindingAt(defFile, p.Def.Line, p.Def.Character, p.Def.Name)
		if !ok {
			continue
		}
		idx.Override(ref, &b)
		applied++
	}
	return applied
}

func (r *Result) candidates(abs string) []string {
	out := []string{abs}
	if rel, err := filepath.Rel(r.Dir, abs); err == nil {
		out = append(out, rel, filepath.ToSlash(rel))
	}
	if wd, err := os.Getwd(); err == nil {
		if rel, err := filepath.Rel(wd, abs); err == nil {
			out = append(out, rel, filepath.ToSlash(rel))
		}
	}
	return out
}
