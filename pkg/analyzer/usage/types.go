package usage

import (
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/refindex"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

// UsageInfo aggregates the non-definition references to one binding.
type UsageInfo struct {
	Name           string         `json:"name" toon:"name"`
	DefinitionFile string         `json:"definition_file" toon:"definition_file"`
	UsageCount     int            `json:"usage_count" toon:"usage_count"`
	FileCount      int            `json:"file_count" toon:"file_count"`
	ByKind         map[string]int `json:"by_kind" toon:"by_kind"`
	UsedInFiles    []string       `json:"used_in_files" toon:"used_in_files"`
	IsUnused       bool           `json:"is_unused" toon:"is_unused"`
	IsInternalOnly bool           `json:"is_internal_only" toon:"is_internal_only"`
}

// newUsageInfo starts unused and internal-only; each usage may flip either flag.
func newUsageInfo(b scope.Binding) UsageInfo {
	return UsageInfo{
		Name:           b.Name,
		DefinitionFile: b.File,
		ByKind:         make(map[string]int),
		IsUnused:       true,
		IsInternalOnly: true,
	}
}

func (u *UsageInfo) add(r refindex.Reference) {
	u.UsageCount++
	u.IsUnused = false
	u.ByKind[r.Kind.String()]++

	for _, f := range u.UsedInFiles {
		if f == r.File {
			return
		}
	}
	u.UsedInFiles = append(u.UsedInFiles, r.File)
	u.FileCount++
	if r.File != u.DefinitionFile {
		u.IsInternalOnly = false
	}
}

func (u UsageInfo) clone() UsageInfo {
	byKind := make(map[string]int, len(u.ByKind))
	for k, v := range u.ByKind {
		byKind[k] = v
	}
	u.ByKind = byKind
	u.UsedInFiles = append([]string(nil), u.UsedInFiles...)
	return u
}

// DeadConfidence is how sure the analyzer is that an unused binding is really dead.
type DeadConfidence string

const (
	// DeadHigh is used for private, non-parameter bindings.
	DeadHigh DeadConfidence = "high"
	// DeadMedium is used for parameters, which an interface contract may require.
	DeadMedium DeadConfidence = "medium"
	// DeadLow is used for exported bindings, which may have callers outside the indexed set.
	DeadLow DeadConfidence = "low"
)

// DeadConfidenceFor labels a binding that has no usages.
func DeadConfidenceFor(b scope.Binding) DeadConfidence {
	switch {
	case b.Exported:
		return DeadLow
	case b.Kind == scope.KindParameter:
		return DeadMedium
	default:
		return DeadHigh
	}
}

// UnusedBinding is a binding with zero non-definition references.
type UnusedBinding struct {
	Name       string         `json:"name" toon:"name"`
	Kind       string         `json:"kind" toon:"kind"`
	File       string         `json:"file" toon:"file"`
	Line       uint32         `json:"line" toon:"line"`
	Character  uint32         `json:"character" toon:"character"`
	IsExported bool           `json:"is_exported" toon:"is_exported"`
	Confidence DeadConfidence `json:"confidence" toon:"confidence"`
}

// DeadCodeInfo is the result of FindDeadCode.
type DeadCodeInfo struct {
	UnusedBindings []UnusedBinding `json:"unused_bindings" toon:"unused_bindings"`
	TotalUnused    int             `json:"total_unused" toon:"total_unused"`
	TotalBindings  int             `json:"total_bindings" toon:"total_bindings"`
	ByKind         map[string]int  `json:"by_kind" toon:"by_kind"`
}

// DeleteBlocker is a reference that prevents a binding from being deleted.
type DeleteBlocker struct {
	File string `json:"file" toon:"file"`
	Line uint32 `json:"line" toon:"line"`
	Kind string `json:"kind" toon:"kind"`
}

// SafeDeleteResult is the verdict of CanSafelyDelete.
type SafeDeleteResult struct {
	CanDelete bool            `json:"can_delete" toon:"can_delete"`
	Reason    string          `json:"reason,omitempty" toon:"reason,omitempty"`
	Blockers  []DeleteBlocker `json:"blockers" toon:"blockers"`
}
