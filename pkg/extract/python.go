package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

var pythonRules = &rules{
	declare:     declarePython,
	scopeFor:    pythonScope,
	identifiers: set("identifier"),
	typeIdents:  set(),
	comments:    set("comment"),
	imports:     set("import_statement", "import_from_statement", "future_import_statement"),
	calls:       map[string]string{"call": "function"},
	members:     map[string]string{"attribute": "attribute"},
	assigns: map[string]string{
		"assignment":           "left",
		"augmented_assignment": "left",
	},
	heritage:     map[string]string{"class_definition": "superclasses"},
	typeContexts: set("type"),
}

// Python scopes are per function and class; blocks do not nest.
func pythonScope(_ *sitter.Node, typ string) (scope.ScopeKind, bool) {
	switch typ {
	case "function_definition", "lambda":
		return scope.ScopeFunction, true
	case "class_definition":
		return scope.ScopeClass, true
	}
	return 0, false
}

func declarePython(w *walker, n *sitter.Node, typ string) {
	switch typ {
	case "function_definition":
		name := n.ChildByFieldName("name")
		kind := scope.KindFunction
		if w.scopeKind() == scope.ScopeClass {
			kind = scope.KindMethod
		}
		exported := w.scopeKind() != scope.ScopeFunction && underscorePublic(w.text(name))
		w.bind(declSitePython(n), name, kind, exported, typeOf(w, n, "return_type"))
	case "class_definition":
		name := n.ChildByFieldName("name")
		w.bind(declSitePython(n), name, scope.KindClass, underscorePublic(w.text(name)))
	case "parameters", "lambda_parameters":
		for i := range int(n.NamedChildCount()) {
			c := n.NamedChild(i)
			if id := pythonParamName(c); id != nil {
				w.bind(nil, id, scope.KindParameter, false, typeOf(w, c, "type"))
			}
		}
	case "assignment":
		kind := scope.KindVariable
		if w.scopeKind() == scope.ScopeClass {
			kind = scope.KindField
		}
		local := w.scopeKind() == scope.ScopeFunction
		for _, id := range pythonTargets(n.ChildByFieldName("left")) {
			w.bindOnce(n, id, kind, !local && underscorePublic(w.text(id)), typeOf(w, n, "type"))
		}
	case "for_statement", "for_in_clause":
		for _, id := range pythonTargets(n.ChildByFieldName("left")) {
			w.bindOnce(nil, id, scope.KindVariable, false)
		}
	case "with_item":
		if v := n.ChildByFieldName("value"); v != nil && v.Type() == "as_pattern" {
			for _, id := range pythonTargets(v.ChildByFieldName("alias")) {
				w.bindOnce(nil, id, scope.KindVariable, false)
			}
		}
	case "import_statement":
		for i := range int(n.NamedChildCount()) {
			if id := pythonImportName(n.NamedChild(i), true); id != nil {
				w.bind(n, id, scope.KindImport, false)
			}
		}
	case "import_from_statement":
		module := n.ChildByFieldName("module_name")
		for i := range int(n.NamedChildCount()) {
			c := n.NamedChild(i)
			if sameNode(c, module) {
				continue
			}
			if id := pythonImportName(c, false); id != nil {
				w.bind(n, id, scope.KindImport, false)
			}
		}
	}
}

// declSitePython moves documentation lookup above decorators.
func declSitePython(n *sitter.Node) *sitter.Node {
	if p := n.Parent(); p != nil && p.Type() == "decorated_definition" {
		return p
	}
	return n
}

func pythonParamName(c *sitter.Node) *sitter.Node {
	switch c.Type() {
	case "identifier":
		return c
	case "default_parameter", "typed_default_parameter":
		return c.ChildByFieldName("name")
	case "typed_parameter", "list_splat_pattern", "dictionary_splat_pattern":
		if id := firstOfType(c, "identifier"); id != nil {
			return id
		}
		for i := range int(c.NamedChildCount()) {
			if id := pythonParamName(c.NamedChild(i)); id != nil {
				return id
			}
		}
	}
	return nil
}

// pythonTargets returns the plain names an assignment target binds.
// Attribute and subscript targets bind nothing.
func pythonTargets(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier":
		return []*sitter.Node{n}
	case "pattern_list", "tuple_pattern", "list_pattern", "expression_list", "as_pattern_target":
		var out []*sitter.Node
		for i := range int(n.NamedChildCount()) {
			out = append(out, pythonTargets(n.NamedChild(i))...)
		}
		return out
	}
	return nil
}

// pythonImportName returns the node naming what an import clause binds:
// the alias when present, otherwise the first segment for `import a.b` and
// the last segment for `from m import a`.
func pythonImportName(c *sitter.Node, first bool) *sitter.Node {
	switch c.Type() {
	case "aliased_import":
		return c.ChildByFieldName("alias")
	case "dotted_name":
		ids := namedOfType(c, "identifier")
		if len(ids) == 0 {
			return nil
		}
		if first {
			return ids[0]
		}
		return ids[len(ids)-1]
	}
	return nil
}
