package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

var csharpFunctions = set(
	"method_declaration", "constructor_declaration", "local_function_statement",
	"lambda_expression", "anonymous_method_expression", "accessor_declaration",
)

var csharpClasses = set(
	"class_declaration", "struct_declaration", "interface_declaration",
	"record_declaration", "record_struct_declaration", "enum_declaration",
)

var csharpRules = &rules{
	declare:     declareCSharp,
	scopeFor:    csharpScope,
	identifiers: set("identifier"),
	typeIdents:  set(),
	comments:    set("comment"),
	imports:     set("using_directive"),
	calls: map[string]string{
		"invocation_expression":      "function",
		"object_creation_expression": "type",
	},
	members:      map[string]string{"member_access_expression": "name"},
	assigns:      map[string]string{"assignment_expression": "left"},
	heritage:     map[string]string{"base_list": ""},
	typeContexts: set("type_argument_list", "type_parameter_constraint"),
}

func csharpScope(n *sitter.Node, typ string) (scope.ScopeKind, bool) {
	switch {
	case csharpFunctions[typ]:
		return scope.ScopeFunction, true
	case csharpClasses[typ]:
		return scope.ScopeClass, true
	case typ == "namespace_declaration":
		return scope.ScopeModule, true
	case typ == "block":
		return bodyScope(n, csharpFunctions)
	}
	return 0, false
}

// csharpPublic reports whether n carries a public modifier. Interface
// members default to public.
func csharpPublic(w *walker, n *sitter.Node) bool {
	for _, m := range namedOfType(n, "modifier") {
		switch w.text(m) {
		case "public":
			return true
		case "private", "protected", "internal":
			return false
		}
	}
	if body := n.Parent(); body != nil && body.Type() == "declaration_list" {
		if owner := body.Parent(); owner != nil && owner.Type() == "interface_declaration" {
			return true
		}
	}
	return false
}

func csharpHasModifier(w *walker, n *sitter.Node, want string) bool {
	for _, m := range namedOfType(n, "modifier") {
		if w.text(m) == want {
			return true
		}
	}
	return false
}

func declareCSharp(w *walker, n *sitter.Node, typ string) {
	switch typ {
	case "namespace_declaration", "file_scoped_namespace_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindModule, true)
	case "class_declaration", "record_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindClass, csharpPublic(w, n))
	case "struct_declaration", "record_struct_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindStruct, csharpPublic(w, n))
	case "interface_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindInterface, csharpPublic(w, n))
	case "enum_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindEnum, csharpPublic(w, n))
	case "delegate_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindTypeAlias, csharpPublic(w, n))
	case "method_declaration":
		ret := n.ChildByFieldName("returns")
		opt := typeOf(w, n, "type")
		if ret != nil {
			opt = typeOf(w, n, "returns")
		}
		w.bind(n, n.ChildByFieldName("name"), scope.KindMethod, csharpPublic(w, n), opt)
	case "constructor_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindMethod, csharpPublic(w, n))
	case "local_function_statement":
		w.bind(n, n.ChildByFieldName("name"), scope.KindFunction, false, typeOf(w, n, "type"))
	case "property_declaration", "event_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindField, csharpPublic(w, n), typeOf(w, n, "type"))
	case "field_declaration", "event_field_declaration":
		kind := scope.KindField
		if csharpHasModifier(w, n, "const") {
			kind = scope.KindConstant
		}
		decl := firstOfType(n, "variable_declaration")
		for _, d := range namedOfType(decl, "variable_declarator") {
			w.bind(n, csharpDeclaratorName(d), kind, csharpPublic(w, n), typeOf(w, decl, "type"))
		}
	case "local_declaration_statement", "using_statement":
		decl := firstOfType(n, "variable_declaration")
		kind := scope.KindVariable
		if csharpHasModifier(w, n, "const") {
			kind = scope.KindConstant
		}
		for _, d := range namedOfType(decl, "variable_declarator") {
			w.bind(nil, csharpDeclaratorName(d), kind, false, typeOf(w, decl, "type"))
		}
	case "parameter":
		w.bind(nil, n.ChildByFieldName("name"), scope.KindParameter, false, typeOf(w, n, "type"))
	case "lambda_expression":
		if p := n.ChildByFieldName("parameters"); p != nil && p.Type() == "identifier" {
			w.bind(nil, p, scope.KindParameter, false)
		}
	case "foreach_statement":
		left := n.ChildByFieldName("left")
		if left != nil && left.Type() == "identifier" {
			w.bind(nil, left, scope.KindVariable, false, typeOf(w, n, "type"))
		}
	case "catch_declaration":
		w.bind(nil, n.ChildByFieldName("name"), scope.KindVariable, false, typeOf(w, n, "type"))
	case "enum_member_declaration":
		exported := false
		if e := enclosing(n, "enum_declaration"); e != nil {
			exported = csharpPublic(w, e)
		}
		w.bind(n, n.ChildByFieldName("name"), scope.KindConstant, exported)
	case "using_directive":
		if alias := n.ChildByFieldName("name"); alias != nil {
			w.bind(n, alias, scope.KindImport, false)
			return
		}
		w.bind(n, csharpLastSegment(n), scope.KindImport, false)
	}
}

func csharpDeclaratorName(d *sitter.Node) *sitter.Node {
	if name := d.ChildByFieldName("name"); name != nil {
		return name
	}
	return firstOfType(d, "identifier")
}

func csharpLastSegment(n *sitter.Node) *sitter.Node {
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		c := n.NamedChild(i)
		switch c.Type() {
		case "identifier":
			return c
		case "qualified_name":
			if name := c.ChildByFieldName("name"); name != nil {
				return name
			}
			return csharpLastSegment(c)
		}
	}
	return nil
}
