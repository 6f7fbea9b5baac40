package refindex

import (
	"fmt"
	"strings"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

// ReferenceKind describes how a name is used at a reference site.
type ReferenceKind uint8

// Reference kinds.
const (
	RefRead ReferenceKind = iota
	RefWrite
	RefCall
	RefType
	RefImport
	RefInheritance
	RefDocumentation
)

var referenceKindNames = [...]string{
	RefRead:          "read",
	RefWrite:         "write",
	RefCall:          "call",
	RefType:          "type",
	RefImport:        "import",
	RefInheritance:   "inheritance",
	RefDocumentation: "documentation",
}

func (k ReferenceKind) String() string {
	if int(k) < len(referenceKindNames) {
		return referenceKindNames[k]
	}
	return fmt.Sprintf("ReferenceKind(%d)", k)
}

// IsMutating reports whether the use writes to the referenced binding.
func (k ReferenceKind) IsMutating() bool { return k == RefWrite }

// MarshalText encodes the kind by name.
func (k ReferenceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *ReferenceKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseReferenceKind(string(text))
	if !ok {
		return fmt.Errorf("unknown reference kind %q", text)
	}
	*k = parsed
	return nil
}

// ParseReferenceKind looks up a reference kind by case-insensitive name.
func ParseReferenceKind(name string) (ReferenceKind, bool) {
	for i, n := range referenceKindNames {
		if strings.EqualFold(n, name) {
			return ReferenceKind(i), true
		}
	}
	return 0, false
}

// ReferenceKey identifies a reference by its start location.
type ReferenceKey struct {
	File      string
	Line      uint32
	Character uint32
}

func (k ReferenceKey) String() string {
	return fmt.Sprintf("%s:%d:%d", k.File, k.Line, k.Character)
}

// Reference is a single use of a name.
type Reference struct {
	File         string        `json:"file"`
	Range        scope.Range   `json:"range"`
	Name         string        `json:"name"`
	Kind         ReferenceKind `json:"kind"`
	IsDefinition bool          `json:"is_definition,omitempty"`
}

// ReferenceOption customizes a Reference built by NewReference.
type ReferenceOption func(*Reference)

// WithKind sets the reference kind. The default is RefRead.
func WithKind(kind ReferenceKind) ReferenceOption {
	return func(r *Reference) { r.Kind = kind }
}

// AsDefinition marks the reference as the declaration occurrence itself.
func AsDefinition() ReferenceOption {
	return func(r *Reference) { r.IsDefinition = true }
}

// NewReference creates a read reference unless options say otherwise.
func NewReference(file string, rng scope.Range, name string, opts ...ReferenceOption) Reference {
	r := Reference{File: file, Range: rng, Name: name, Kind: RefRead}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// Key returns the reference identity.
func (r Reference) Key() ReferenceKey {
	return ReferenceKey{File: r.File, Line: r.Range.Start.Line, Character: r.Range.Start.Character}
}

// Confidence is an ordered estimate of how likely a resolution is correct.
type Confidence uint8

// Confidence levels, lowest first.
const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceCertain
)

func (c Confidence) String() string {
	switch c {
	case ConfidenceNone:
		return "none"
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	case ConfidenceCertain:
		return "certain"
	default:
		return fmt.Sprintf("Confidence(%d)", c)
	}
}

// MarshalText encodes the level by name.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a level name.
func (c *Confidence) UnmarshalText(text []byte) error {
	parsed, ok := ParseConfidence(string(text))
	if !ok {
		return fmt.Errorf("unknown confidence %q", text)
	}
	*c = parsed
	return nil
}

// ParseConfidence looks up a level by case-insensitive name.
func ParseConfidence(name string) (Confidence, bool) {
	for c := ConfidenceNone; c <= ConfidenceCertain; c++ {
		if strings.EqualFold(c.String(), name) {
			return c, true
		}
	}
	return ConfidenceNone, false
}

// AtLeast reports whether c is greater than or equal to min.
func (c Confidence) AtLeast(min Confidence) bool { return c >= min }

// ResolvedReference is the outcome of resolving a Reference.
// Binding is nil when nothing matched.
type ResolvedReference struct {
	Reference  Reference      `json:"reference"`
	Binding    *scope.Binding `json:"binding,omitempty"`
	Confidence Confidence     `json:"confidence"`
}

// Resolved reports whether a binding was found.
func (r ResolvedReference) Resolved() bool { return r.Binding != nil }
