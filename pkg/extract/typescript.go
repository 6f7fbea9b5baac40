package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

var tsFunctions = set(
	"function_declaration", "generator_function_declaration", "function_expression",
	"function", "generator_function", "arrow_function", "method_definition",
)

// tsRules covers TypeScript, TSX and JavaScript. The grammars share node
// names; JavaScript simply never produces the type-only nodes.
var tsRules = &rules{
	declare:  declareTS,
	scopeFor: tsScope,
	identifiers: set(
		"identifier", "type_identifier", "property_identifier",
		"shorthand_property_identifier", "shorthand_property_identifier_pattern",
	),
	typeIdents: set("type_identifier"),
	comments:   set("comment"),
	imports:    set("import_statement"),
	calls: map[string]string{
		"call_expression": "function",
		"new_expression":  "constructor",
	},
	members: map[string]string{"member_expression": "property"},
	assigns: map[string]string{
		"assignment_expression":           "left",
		"augmented_assignment_expression": "left",
	},
	heritage: map[string]string{
		"class_heritage":      "",
		"extends_type_clause": "",
	},
	typeContexts: set("type_annotation", "type_arguments"),
}

func tsScope(n *sitter.Node, typ string) (scope.ScopeKind, bool) {
	switch {
	case tsFunctions[typ]:
		return scope.ScopeFunction, true
	case typ == "class_declaration" || typ == "abstract_class_declaration" || typ == "class":
		return scope.ScopeClass, true
	case typ == "internal_module" || typ == "module":
		return scope.ScopeModule, true
	case typ == "statement_block":
		return bodyScope(n, tsFunctions)
	}
	return 0, false
}

// tsExported reports whether a declaration sits directly under an export
// statement. Variable declarators are checked through their declaration.
func tsExported(n *sitter.Node) bool {
	p := n.Parent()
	if p != nil && (p.Type() == "lexical_declaration" || p.Type() == "variable_declaration") {
		p = p.Parent()
	}
	return p != nil && p.Type() == "export_statement"
}

func tsPrivate(w *walker, n *sitter.Node) bool {
	if m := firstOfType(n, "accessibility_modifier"); m != nil {
		t := w.text(m)
		return t == "private" || t == "protected"
	}
	name := n.ChildByFieldName("name")
	return name != nil && name.Type() == "private_property_identifier"
}

func declareTS(w *walker, n *sitter.Node, typ string) {
	switch typ {
	case "function_declaration", "generator_function_declaration", "function_signature":
		w.bind(n, n.ChildByFieldName("name"), scope.KindFunction, tsExported(n), typeOf(w, n, "return_type"))
	case "method_definition", "method_signature", "abstract_method_signature":
		exported := !tsPrivate(w, n)
		if cls := enclosingClass(n); cls != nil {
			exported = exported && tsExported(cls)
		}
		w.bind(n, n.ChildByFieldName("name"), scope.KindMethod, exported, typeOf(w, n, "return_type"))
	case "class_declaration", "abstract_class_declaration", "class":
		w.bind(n, n.ChildByFieldName("name"), scope.KindClass, tsExported(n))
	case "interface_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindInterface, tsExported(n))
	case "type_alias_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindTypeAlias, tsExported(n), typeOf(w, n, "value"))
	case "enum_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindEnum, tsExported(n))
	case "internal_module", "module":
		w.bind(n, n.ChildByFieldName("name"), scope.KindModule, tsExported(n))
	case "variable_declarator":
		declareTSVariable(w, n)
	case "required_parameter", "optional_parameter":
		for _, id := range tsPatternIdents(n.ChildByFieldName("pattern")) {
			w.bind(nil, id, scope.KindParameter, false, typeOf(w, n, "type"))
		}
	case "formal_parameters":
		for i := range int(n.NamedChildCount()) {
			c := n.NamedChild(i)
			switch c.Type() {
			case "identifier", "object_pattern", "array_pattern", "rest_pattern", "assignment_pattern":
				for _, id := range tsPatternIdents(c) {
					w.bind(nil, id, scope.KindParameter, false)
				}
			}
		}
	case "arrow_function":
		if p := n.ChildByFieldName("parameter"); p != nil {
			w.bind(nil, p, scope.KindParameter, false)
		}
	case "public_field_definition", "field_definition", "property_signature":
		name := n.ChildByFieldName("name")
		if name == nil {
			name = n.ChildByFieldName("property")
		}
		w.bind(n, name, scope.KindField, !tsPrivate(w, n), typeOf(w, n, "type"))
	case "catch_clause":
		for _, id := range tsPatternIdents(n.ChildByFieldName("parameter")) {
			w.bind(nil, id, scope.KindVariable, false)
		}
	case "import_specifier":
		name := n.ChildByFieldName("alias")
		if name == nil {
			name = n.ChildByFieldName("name")
		}
		w.bind(n, name, scope.KindImport, false)
	case "import_clause":
		for _, id := range namedOfType(n, "identifier") {
			w.bind(n, id, scope.KindImport, false)
		}
	case "namespace_import":
		w.bind(n, firstOfType(n, "identifier"), scope.KindImport, false)
	}
}

func declareTSVariable(w *walker, n *sitter.Node) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	exported := tsExported(n)
	if name.Type() != "identifier" {
		for _, id := range tsPatternIdents(name) {
			w.bind(n.Parent(), id, scope.KindVariable, exported)
		}
		return
	}

	kind := scope.KindVariable
	if p := n.Parent(); p != nil && p.Type() == "lexical_declaration" && p.ChildCount() > 0 && p.Child(0).Type() == "const" {
		kind = scope.KindConstant
	}
	if v := n.ChildByFieldName("value"); v != nil {
		switch v.Type() {
		case "arrow_function", "function_expression", "function", "generator_function":
			kind = scope.KindFunction
		case "class":
			kind = scope.KindClass
		}
	}
	w.bind(n.Parent(), name, kind, exported, typeOf(w, n, "type"))
}

// tsPatternIdents returns the identifiers a destructuring pattern binds.
func tsPatternIdents(p *sitter.Node) []*sitter.Node {
	if p == nil {
		return nil
	}
	switch p.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []*sitter.Node{p}
	case "assignment_pattern", "object_assignment_pattern":
		return tsPatternIdents(p.ChildByFieldName("left"))
	case "pair_pattern":
		return tsPatternIdents(p.ChildByFieldName("value"))
	case "object_pattern", "array_pattern", "rest_pattern":
		var out []*sitter.Node
		for i := range int(p.NamedChildCount()) {
			out = append(out, tsPatternIdents(p.NamedChild(i))...)
		}
		return out
	}
	return nil
}

func enclosingClass(n *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "class_declaration", "abstract_class_declaration", "class":
			return p
		}
	}
	return nil
}
