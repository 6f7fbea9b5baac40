// Package facts reads and writes extraction results as JSON documents.
//
// A facts document lets a collaborator outside this module hand over the
// scopes, bindings and references it found. Documents are validated against
// an embedded JSON Schema before they reach the index.
package facts

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/analyzer/usage"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/extract"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/parser"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/refindex"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

// Version is the document format version this package reads and writes.
const Version = 1

// ErrInvalidFacts is returned when a document does not match the schema.
var ErrInvalidFacts = errors.New("invalid facts document")

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://refscope.dev/schemas/facts.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			schemaErr = fmt.Errorf("failed to parse facts schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			schemaErr = fmt.Errorf("failed to add facts schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// Document is a set of per-file facts.
type Document struct {
	Version int    `json:"version"`
	Files   []File `json:"files"`
}

// File holds the facts for one source file. Scope ids are local to the file
// and binding scopes refer to them.
type File struct {
	Path       string               `json:"path"`
	Language   string               `json:"language,omitempty"`
	Scopes     []scope.Scope        `json:"scopes,omitempty"`
	Bindings   []scope.Binding      `json:"bindings,omitempty"`
	References []refindex.Reference `json:"references,omitempty"`
}

// FromExtract converts extraction results into a document, in order.
func FromExtract(files []*extract.FileFacts) *Document {
	doc := &Document{Version: Version, Files: make([]File, 0, len(files))}
	for _, f := range files {
		doc.Files = append(doc.Files, FromFileFacts(f))
	}
	return doc
}

// FromFileFacts converts one file's extraction results.
func FromFileFacts(f *extract.FileFacts) File {
	scopes := f.Tracker.Scopes()
	for i := range scopes {
		scopes[i].Bindings = nil
	}
	return File{
		Path:       f.Path,
		Language:   string(f.Language),
		Scopes:     scopes,
		Bindings:   f.Bindings(),
		References: f.References,
	}
}

// FileFacts rebuilds extraction results from the file entry.
func (f *File) FileFacts() *extract.FileFacts {
	return &extract.FileFacts{
		Path:       f.Path,
		Language:   parser.Language(f.Language),
		Tracker:    f.Tracker(),
		References: f.References,
	}
}

// Decode reads and validates a document.
func Decode(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read facts: %w", err)
	}

	sch, err := compiled()
	if err != nil {
		return nil, err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFacts, err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFacts, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFacts, err)
	}
	doc.normalize()
	return &doc, nil
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode facts: %w", err)
	}
	return nil
}

// normalize cleans file paths and fills in those left implicit by the
// enclosing file entry.
func (d *Document) normalize() {
	for i := range d.Files {
		f := &d.Files[i]
		f.Path = cleanPath(f.Path)
		for j := range f.Bindings {
			b := &f.Bindings[j]
			if b.File == "" {
				b.File = f.Path
			}
			b.File = cleanPath(b.File)
		}
		for j := range f.References {
			r := &f.References[j]
			if r.File == "" {
				r.File = f.Path
			}
			r.File = cleanPath(r.File)
		}
	}
}

func cleanPath(p string) string {
	if p == "" {
		return p
	}
	return filepath.Clean(p)
}

// Apply adds every binding and reference in the document to the analyzer.
func (d *Document) Apply(a *usage.Analyzer) {
	for _, f := range d.Files {
		for _, b := range f.Bindings {
			a.AddBinding(b)
		}
		for _, r := range f.References {
			a.AddReference(r)
		}
	}
}

// Tracker rebuilds the file's scope tree and bindings. Scopes are created in
// listed order; a binding whose scope is unknown lands in the root.
func (f *File) Tracker() *scope.Tracker {
	t := scope.NewTracker()
	ids := map[scope.ScopeID]scope.ScopeID{scope.RootScope: scope.RootScope}
	for _, s := range f.Scopes {
		if s.ID == scope.RootScope {
			continue
		}
		parent, ok := ids[s.Parent]
		if !ok {
			parent = scope.RootScope
		}
		ids[s.ID] = t.CreateScope(s.Kind, s.Range, parent)
	}
	for _, b := range f.Bindings {
		if id, ok := ids[b.Scope]; ok {
			b.Scope = id
		} else {
			b.Scope = scope.RootScope
		}
		t.AddBinding(b)
	}
	return t
}
