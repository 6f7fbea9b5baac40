package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

var rustFunctions = set("function_item", "closure_expression")

var rustRules = &rules{
	declare:     declareRust,
	scopeFor:    rustScope,
	identifiers: set("identifier", "type_identifier", "field_identifier"),
	typeIdents:  set("type_identifier"),
	comments:    set("line_comment", "block_comment"),
	imports:     set("use_declaration", "extern_crate_declaration"),
	calls: map[string]string{
		"call_expression":  "function",
		"macro_invocation": "macro",
	},
	members: map[string]string{
		"field_expression":  "field",
		"scoped_identifier": "name",
	},
	assigns: map[string]string{
		"assignment_expression":    "left",
		"compound_assignment_expr": "left",
	},
	heritage: map[string]string{
		"impl_item":    "trait",
		"trait_bounds": "",
	},
	typeContexts: set("type_arguments"),
}

func rustScope(n *sitter.Node, typ string) (scope.ScopeKind, bool) {
	switch typ {
	case "function_item", "closure_expression":
		return scope.ScopeFunction, true
	case "impl_item", "trait_item":
		return scope.ScopeClass, true
	case "mod_item":
		if n.ChildByFieldName("body") != nil {
			return scope.ScopeModule, true
		}
	case "block":
		return bodyScope(n, rustFunctions)
	}
	return 0, false
}

func rustPub(n *sitter.Node, w *walker) bool {
	v := firstOfType(n, "visibility_modifier")
	return v != nil && strings.HasPrefix(w.text(v), "pub")
}

func declareRust(w *walker, n *sitter.Node, typ string) {
	switch typ {
	case "function_item":
		kind := scope.KindFunction
		if w.scopeKind() == scope.ScopeClass {
			kind = scope.KindMethod
		}
		w.bind(n, n.ChildByFieldName("name"), kind, rustPub(n, w), typeOf(w, n, "return_type"))
	case "function_signature_item":
		w.bind(n, n.ChildByFieldName("name"), scope.KindMethod, rustPub(n, w), typeOf(w, n, "return_type"))
	case "struct_item", "union_item":
		w.bind(n, n.ChildByFieldName("name"), scope.KindStruct, rustPub(n, w))
	case "enum_item":
		w.bind(n, n.ChildByFieldName("name"), scope.KindEnum, rustPub(n, w))
	case "trait_item":
		w.bind(n, n.ChildByFieldName("name"), scope.KindInterface, rustPub(n, w))
	case "type_item":
		w.bind(n, n.ChildByFieldName("name"), scope.KindTypeAlias, rustPub(n, w), typeOf(w, n, "type"))
	case "mod_item":
		w.bind(n, n.ChildByFieldName("name"), scope.KindModule, rustPub(n, w))
	case "const_item", "static_item":
		w.bind(n, n.ChildByFieldName("name"), scope.KindConstant, rustPub(n, w), typeOf(w, n, "type"))
	case "macro_definition":
		w.bind(n, n.ChildByFieldName("name"), scope.KindFunction, false)
	case "enum_variant":
		exported := false
		if e := enclosing(n, "enum_item"); e != nil {
			exported = rustPub(e, w)
		}
		w.bind(n, n.ChildByFieldName("name"), scope.KindConstant, exported)
	case "field_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindField, rustPub(n, w), typeOf(w, n, "type"))
	case "let_declaration":
		for _, id := range patternIdents(n.ChildByFieldName("pattern")) {
			w.bind(nil, id, scope.KindVariable, false, typeOf(w, n, "type"))
		}
	case "for_expression":
		for _, id := range patternIdents(n.ChildByFieldName("pattern")) {
			w.bind(nil, id, scope.KindVariable, false)
		}
	case "parameter":
		for _, id := range patternIdents(n.ChildByFieldName("pattern")) {
			w.bind(nil, id, scope.KindParameter, false, typeOf(w, n, "type"))
		}
	case "closure_parameters":
		for _, id := range namedOfType(n, "identifier") {
			w.bind(nil, id, scope.KindParameter, false)
		}
	case "use_declaration":
		for _, id := range rustUseNames(n.ChildByFieldName("argument")) {
			w.bind(n, id, scope.KindImport, rustPub(n, w))
		}
	}
}

// patternIdents collects the identifiers a pattern binds.
func patternIdents(p *sitter.Node) []*sitter.Node {
	if p == nil {
		return nil
	}
	switch p.Type() {
	case "identifier":
		return []*sitter.Node{p}
	case "tuple_pattern", "slice_pattern", "reference_pattern", "mut_pattern", "captured_pattern", "or_pattern":
		var out []*sitter.Node
		for i := range int(p.NamedChildCount()) {
			out = append(out, patternIdents(p.NamedChild(i))...)
		}
		return out
	case "tuple_struct_pattern":
		var out []*sitter.Node
		typ := p.ChildByFieldName("type")
		for i := range int(p.NamedChildCount()) {
			if c := p.NamedChild(i); !sameNode(c, typ) {
				out = append(out, patternIdents(c)...)
			}
		}
		return out
	}
	return nil
}

// rustUseNames returns the name nodes a use tree brings into scope.
func rustUseNames(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier":
		return []*sitter.Node{n}
	case "scoped_identifier":
		if name := n.ChildByFieldName("name"); name != nil {
			return []*sitter.Node{name}
		}
	case "use_as_clause":
		if alias := n.ChildByFieldName("alias"); alias != nil {
			return []*sitter.Node{alias}
		}
	case "scoped_use_list":
		return rustUseNames(n.ChildByFieldName("list"))
	case "use_list":
		var out []*sitter.Node
		for i := range int(n.NamedChildCount()) {
			out = append(out, rustUseNames(n.NamedChild(i))...)
		}
		return out
	}
	return nil
}

func enclosing(n *sitter.Node, typ string) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == typ {
			return p
		}
	}
	return nil
}
