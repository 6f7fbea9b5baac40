package refindex

import "github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"

// KindCompatible reports whether a reference of kind ref can plausibly name
// a binding of kind b.
func KindCompatible(ref ReferenceKind, b scope.BindingKind) bool {
	switch ref {
	case RefCall:
		return b.IsCallable()
	case RefType:
		return b.IsType()
	case RefRead, RefWrite:
		return b == scope.KindVariable || b == scope.KindParameter || b == scope.KindField
	case RefImport:
		return b == scope.KindImport
	case RefInheritance:
		return b == scope.KindClass || b == scope.KindInterface
	}
	return false
}

// Score rates a single candidate binding for a reference. The table is fixed:
//
//	same file, kind match          -> High
//	same file, no kind match       -> Medium
//	other file, kind match, export -> Medium
//	other file, anything else      -> Low
//
// Score never returns Certain; that level comes only from overrides.
func Score(ref Reference, b scope.Binding) Confidence {
	sameFile := ref.File == b.File
	kindMatch := KindCompatible(ref.Kind, b.Kind)
	exportMatch := b.Exported && !sameFile

	switch {
	case sameFile && kindMatch:
		return ConfidenceHigh
	case sameFile:
		return ConfidenceMedium
	case kindMatch && exportMatch:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
