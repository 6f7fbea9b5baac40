package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and what comes back.

func describeFindDeadCode() string {
	return `Lists bindings (functions, methods, types, variables, constants, imports, parameters) that no indexed file refers to.

USE WHEN:
- Cleaning up code before or after a refactor
- Finding leftovers after removing a feature
- Narrowing a review to symbols nothing calls

INTERPRETING RESULTS:
- confidence high: private and not a parameter, very likely dead
- confidence medium: a parameter, which an interface or callback signature may require
- confidence low: exported, may have callers outside the analyzed paths
- Resolution is name-based and heuristic; confirm with can_safely_delete before deleting
- Analyze the whole project, not a single directory, or exported symbols look unused

METRICS RETURNED:
- unused_bindings: name, kind, file, zero-based line and character, is_exported, confidence
- total_unused, total_bindings, by_kind counts`
}

func describeCanSafelyDelete() string {
	return `Checks whether one named binding can be deleted without breaking references to it.

USE WHEN:
- Before deleting a function, type, variable or import
- Confirming a find_dead_code candidate
- Locating every place that must change before a removal

INTERPRETING RESULTS:
- can_delete true: nothing in the analyzed files uses the binding
- can_delete false: blockers lists each reference that would break, with zero-based line and kind
- Matching is by name, so a same-named symbol elsewhere can show up as a blocker
- Pass file when several bindings share the name; otherwise every match is checked

METRICS RETURNED:
- binding: the binding that was checked
- result: can_delete, reason, blockers (file, line, kind)`
}

func describeAnalyzeUsage() string {
	return `Summarizes how a named binding is used across the analyzed files.

USE WHEN:
- Estimating the blast radius of renaming or changing a symbol
- Checking whether an exported symbol is used outside its own file
- Listing every read, write, call and type use of a symbol

INTERPRETING RESULTS:
- usage_count counts non-definition references; file_count counts distinct files
- is_internal_only: every use is in the defining file, so the symbol could be unexported
- by_kind splits uses into read, write, call, type, import, inheritance
- references includes the definition itself, marked is_definition

METRICS RETURNED:
- binding, info (usage_count, file_count, by_kind, used_in_files, is_unused, is_internal_only), references`
}

func describeResolveReference() string {
	return `Resolves the identifier at a file position to the binding it most likely refers to.

USE WHEN:
- Jumping from a use site to its definition
- Checking how sure the resolver is about a cross-file link

INTERPRETING RESULTS:
- line and column are one-based, as shown by editors
- confidence certain: confirmed by the Go type checker (oracle enabled)
- confidence high: same file and the use fits the binding kind
- confidence medium: same file, or another file with a fitting exported binding
- confidence low: only the name matched
- confidence none: no binding with that name

METRICS RETURNED:
- reference, binding (absent when unresolved), confidence`
}

func describeFileDependencies() string {
	return `Lists the files a file depends on and the files that depend on it.

USE WHEN:
- Deciding what to retest after changing a file
- Finding which files a move or split will touch

INTERPRETING RESULTS:
- An edge exists when a reference in one file resolves to a binding in another with confidence medium or better
- Low-confidence, name-only matches are ignored

METRICS RETURNED:
- file, dependencies (files it uses), dependents (files using it)`
}

func describeDependencyGraph() string {
	return `Builds the file-level dependency graph over the analyzed files.

USE WHEN:
- Looking for dependency cycles between files
- Finding hub files with high fan-in before a refactor
- Ordering work so files come after what they depend on

INTERPRETING RESULTS:
- fan_in: files that depend on this one; high fan_in means changes ripple widely
- fan_out: files this one depends on
- cycles: groups of files that depend on each other; order is empty when cycles exist
- order: files listed after everything they depend on

METRICS RETURNED:
- nodes (file, fan_in, fan_out), edges (from, to), cycles, order`
}
