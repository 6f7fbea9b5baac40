// Package extract turns source files into scopes, bindings and references.
//
// Each supported language has a small rule set: which nodes open scopes,
// which nodes declare names, and how an identifier's surroundings map to a
// reference kind. A single pre-order walk applies the rules, so a
// declaration is always registered before the identifiers beneath it are
// visited.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/analyzer/usage"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/parser"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/refindex"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

// ErrUnsupportedLanguage is returned for files no rule set covers.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// FileFacts holds everything extracted from one file.
type FileFacts struct {
	Path       string
	Language   parser.Language
	Tracker    *scope.Tracker
	References []refindex.Reference
}

// Bindings returns the declared bindings in source order.
func (f *FileFacts) Bindings() []scope.Binding {
	return f.Tracker.Bindings()
}

// Apply adds the file's bindings and references to an analyzer.
func (f *FileFacts) Apply(a *usage.Analyzer) {
	for _, b := range f.Tracker.Bindings() {
		a.AddBinding(b)
	}
	for _, r := range f.References {
		a.AddReference(r)
	}
}

// Extractor parses files and extracts facts. It owns a tree-sitter parser
// and is not safe for concurrent use.
type Extractor struct {
	parser *parser.Parser
}

// New creates an extractor.
func New() *Extractor {
	return &Extractor{parser: parser.New()}
}

// Close releases parser resources.
func (e *Extractor) Close() {
	e.parser.Close()
}

// ReadFile reads path from disk and extracts it.
func (e *Extractor) ReadFile(ctx context.Context, path string) (*FileFacts, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedLanguage)
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return e.File(ctx, path, source)
}

// File extracts facts from source, reported under path.
func (e *Extractor) File(ctx context.Context, path string, source []byte) (*FileFacts, error) {
	lang := parser.DetectLanguage(path)
	r, ok := rulesFor(lang)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedLanguage)
	}

	result, err := e.parser.Parse(ctx, source, lang, path)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	w := newWalker(path, source, r)
	w.visit(result.Root())

	return &FileFacts{
		Path:       path,
		Language:   lang,
		Tracker:    w.tracker,
		References: w.refs,
	}, nil
}

// File is a convenience wrapper that extracts with a throwaway Extractor.
func File(ctx context.Context, path string, source []byte) (*FileFacts, error) {
	e := New()
	defer e.Close()
	return e.File(ctx, path, source)
}

// Supported reports whether path is in a language with extraction rules.
func Supported(path string) bool {
	_, ok := rulesFor(parser.DetectLanguage(path))
	return ok
}

// rules describes one language.
type rules struct {
	// declare registers the bindings introduced by node n.
	declare func(w *walker, n *sitter.Node, typ string)
	// scopeFor reports whether n opens a scope, and of what kind.
	scopeFor func(n *sitter.Node, typ string) (scope.ScopeKind, bool)

	identifiers map[string]bool
	typeIdents  map[string]bool
	comments    map[string]bool
	imports     map[string]bool

	// node types whose subtrees name nothing a binding can be used by
	skip map[string]bool

	// node type -> field holding the callee
	calls map[string]string
	// node type -> field holding the accessed member
	members map[string]string
	// node type -> field holding the assignment target
	assigns map[string]string
	// node type -> field holding the heritage list ("" for the whole node)
	heritage map[string]string
	// node types whose descendants are type positions
	typeContexts map[string]bool
}

func rulesFor(lang parser.Language) (*rules, bool) {
	switch lang {
	case parser.LangGo:
		return goRules, true
	case parser.LangRust:
		return rustRules, true
	case parser.LangPython:
		return pythonRules, true
	case parser.LangTypeScript, parser.LangTSX, parser.LangJavaScript:
		return tsRules, true
	case parser.LangJava:
		return javaRules, true
	case parser.LangCSharp:
		return csharpRules, true
	case parser.LangRuby:
		return rubyRules, true
	}
	return nil, false
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// bodyScope opens a Block scope for block-like nodes unless the block is the
// body of a node that already opened a Function scope.
func bodyScope(n *sitter.Node, functions map[string]bool) (scope.ScopeKind, bool) {
	if p := n.Parent(); p != nil && functions[p.Type()] {
		return 0, false
	}
	return scope.ScopeBlock, true
}

// underscorePublic applies the Python and Ruby convention: a leading
// underscore marks a name private.
func underscorePublic(name string) bool {
	return name != "" && !strings.HasPrefix(name, "_")
}
