package scope

import (
	"fmt"
	"math"
	"strings"
)

// Position is a zero-based line/character location, matching LSP and tree-sitter rows.
type Position struct {
	Line      uint32 `json:"line"`
	Character uint32 `json:"character"`
}

// Range is a source span. End is inclusive for containment checks.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NewRange builds a range from raw coordinates.
func NewRange(startLine, startChar, endLine, endChar uint32) Range {
	return Range{
		Start: Position{Line: startLine, Character: startChar},
		End:   Position{Line: endLine, Character: endChar},
	}
}

// FullRange spans every representable position. The root scope uses it.
func FullRange() Range {
	return NewRange(0, 0, math.MaxUint32, math.MaxUint32)
}

// Contains reports whether the position lies within the range.
func (r Range) Contains(line, character uint32) bool {
	if line < r.Start.Line || line > r.End.Line {
		return false
	}
	if line == r.Start.Line && character < r.Start.Character {
		return false
	}
	if line == r.End.Line && character > r.End.Character {
		return false
	}
	return true
}

// BindingKind classifies a declaration.
type BindingKind uint8

// Binding kinds.
const (
	KindVariable BindingKind = iota
	KindParameter
	KindFunction
	KindMethod
	KindClass
	KindStruct
	KindInterface
	KindEnum
	KindModule
	KindConstant
	KindTypeAlias
	KindImport
	KindField
)

var bindingKindNames = [...]string{
	KindVariable:  "variable",
	KindParameter: "parameter",
	KindFunction:  "function",
	KindMethod:    "method",
	KindClass:     "class",
	KindStruct:    "struct",
	KindInterface: "interface",
	KindEnum:      "enum",
	KindModule:    "module",
	KindConstant:  "constant",
	KindTypeAlias: "type alias",
	KindImport:    "import",
	KindField:     "field",
}

// AllBindingKinds lists every kind in declaration order.
func AllBindingKinds() []BindingKind {
	kinds := make([]BindingKind, len(bindingKindNames))
	for i := range bindingKindNames {
		kinds[i] = BindingKind(i)
	}
	return kinds
}

func (k BindingKind) String() string {
	if int(k) < len(bindingKindNames) {
		return bindingKindNames[k]
	}
	return fmt.Sprintf("BindingKind(%d)", k)
}

// IsType reports whether the kind declares a type.
func (k BindingKind) IsType() bool {
	switch k {
	case KindClass, KindStruct, KindInterface, KindEnum, KindTypeAlias:
		return true
	}
	return false
}

// IsCallable reports whether the kind declares something that can be called.
func (k BindingKind) IsCallable() bool {
	return k == KindFunction || k == KindMethod
}

// MarshalText encodes the kind by name.
func (k BindingKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name produced by MarshalText.
func (k *BindingKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseBindingKind(string(text))
	if !ok {
		return fmt.Errorf("unknown binding kind %q", text)
	}
	*k = parsed
	return nil
}

// ParseBindingKind looks up a kind by name. Underscores and case are ignored,
// so "type_alias", "TypeAlias" and "type alias" all parse.
func ParseBindingKind(name string) (BindingKind, bool) {
	norm := strings.ToLower(strings.NewReplacer("_", "", " ", "", "-", "").Replace(name))
	for i, n := range bindingKindNames {
		if strings.ReplaceAll(n, " ", "") == norm {
			return BindingKind(i), true
		}
	}
	return 0, false
}

// ScopeID identifies a scope within a Tracker. RootScope is always present.
type ScopeID uint32

// RootScope is the id of the global scope.
const RootScope ScopeID = 0

// ScopeKind classifies a lexical region.
type ScopeKind uint8

// Scope kinds.
const (
	ScopeGlobal ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeClass
	ScopeModule
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeFunction:
		return "function"
	case ScopeBlock:
		return "block"
	case ScopeClass:
		return "class"
	case ScopeModule:
		return "module"
	default:
		return fmt.Sprintf("ScopeKind(%d)", k)
	}
}

// MarshalText encodes the scope kind by name.
func (k ScopeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a scope kind name.
func (k *ScopeKind) UnmarshalText(text []byte) error {
	for c := ScopeGlobal; c <= ScopeModule; c++ {
		if strings.EqualFold(c.String(), string(text)) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("unknown scope kind %q", text)
}

// BindingKey is the stable identity of a binding: file, start position and name.
type BindingKey struct {
	File      string
	Line      uint32
	Character uint32
	Name      string
}

func (k BindingKey) String() string {
	return fmt.Sprintf("%s:%d:%d:%s", k.File, k.Line, k.Character, k.Name)
}

// Binding is a named declaration site.
type Binding struct {
	Name           string      `json:"name"`
	Kind           BindingKind `json:"kind"`
	File           string      `json:"file"`
	Range          Range       `json:"range"`
	Scope          ScopeID     `json:"scope"`
	Exported       bool        `json:"exported"`
	TypeAnnotation string      `json:"type_annotation,omitempty"`
	Documentation  string      `json:"documentation,omitempty"`
}

// BindingOption customizes a Binding built by NewBinding.
type BindingOption func(*Binding)

// InScope sets the owning scope.
func InScope(id ScopeID) BindingOption {
	return func(b *Binding) { b.Scope = id }
}

// Exported marks the binding as visible outside its file.
func Exported(exported bool) BindingOption {
	return func(b *Binding) { b.Exported = exported }
}

// WithType attaches type-annotation text.
func WithType(annotation string) BindingOption {
	return func(b *Binding) { b.TypeAnnotation = annotation }
}

// WithDocs attaches documentation text.
func WithDocs(docs string) BindingOption {
	return func(b *Binding) { b.Documentation = docs }
}

// NewBinding creates a binding owned by the root scope unless InScope says otherwise.
func NewBinding(name string, kind BindingKind, file string, rng Range, opts ...BindingOption) Binding {
	b := Binding{
		Name:  name,
		Kind:  kind,
		File:  file,
		Range: rng,
		Scope: RootScope,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Key returns the binding's identity.
func (b Binding) Key() BindingKey {
	return BindingKey{
		File:      b.File,
		Line:      b.Range.Start.Line,
		Character: b.Range.Start.Character,
		Name:      b.Name,
	}
}

// IsType reports whether the binding declares a type.
func (b Binding) IsType() bool { return b.Kind.IsType() }

// IsCallable reports whether the binding declares a function or method.
func (b Binding) IsCallable() bool { return b.Kind.IsCallable() }

func (b Binding) String() string {
	return b.Key().String()
}
