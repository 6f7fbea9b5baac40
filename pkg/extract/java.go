package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

var javaFunctions = set("method_declaration", "constructor_declaration", "lambda_expression", "compact_constructor_declaration")

var javaClasses = set(
	"class_declaration", "interface_declaration", "enum_declaration",
	"record_declaration", "annotation_type_declaration",
)

var javaRules = &rules{
	declare:     declareJava,
	scopeFor:    javaScope,
	identifiers: set("identifier", "type_identifier"),
	typeIdents:  set("type_identifier"),
	comments:    set("line_comment", "block_comment"),
	imports:     set("import_declaration"),
	skip:        set("package_declaration"),
	calls: map[string]string{
		"method_invocation":          "name",
		"object_creation_expression": "type",
	},
	members: map[string]string{"field_access": "field"},
	assigns: map[string]string{"assignment_expression": "left"},
	heritage: map[string]string{
		"superclass":         "",
		"super_interfaces":   "",
		"extends_interfaces": "",
	},
	typeContexts: set("type_arguments", "type_bound"),
}

func javaScope(n *sitter.Node, typ string) (scope.ScopeKind, bool) {
	switch {
	case javaFunctions[typ]:
		return scope.ScopeFunction, true
	case javaClasses[typ]:
		return scope.ScopeClass, true
	case typ == "block":
		return bodyScope(n, javaFunctions)
	}
	return 0, false
}

// javaPublic reports whether n carries a public modifier. Members of an
// interface are public unless marked otherwise.
func javaPublic(w *walker, n *sitter.Node) bool {
	if m := firstOfType(n, "modifiers"); m != nil {
		t := w.text(m)
		if strings.Contains(t, "public") {
			return true
		}
		if strings.Contains(t, "private") || strings.Contains(t, "protected") {
			return false
		}
	}
	if body := n.Parent(); body != nil && body.Type() == "interface_body" {
		return true
	}
	return false
}

func declareJava(w *walker, n *sitter.Node, typ string) {
	switch typ {
	case "class_declaration", "record_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindClass, javaPublic(w, n))
	case "interface_declaration", "annotation_type_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindInterface, javaPublic(w, n))
	case "enum_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindEnum, javaPublic(w, n))
	case "method_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindMethod, javaPublic(w, n), typeOf(w, n, "type"))
	case "constructor_declaration", "compact_constructor_declaration":
		w.bind(n, n.ChildByFieldName("name"), scope.KindMethod, javaPublic(w, n))
	case "field_declaration", "constant_declaration":
		kind := scope.KindField
		if m := firstOfType(n, "modifiers"); m != nil {
			t := w.text(m)
			if strings.Contains(t, "static") && strings.Contains(t, "final") {
				kind = scope.KindConstant
			}
		}
		for _, d := range namedOfType(n, "variable_declarator") {
			w.bind(n, d.ChildByFieldName("name"), kind, javaPublic(w, n), typeOf(w, n, "type"))
		}
	case "local_variable_declaration":
		for _, d := range namedOfType(n, "variable_declarator") {
			w.bind(nil, d.ChildByFieldName("name"), scope.KindVariable, false, typeOf(w, n, "type"))
		}
	case "formal_parameter", "catch_formal_parameter":
		w.bind(nil, n.ChildByFieldName("name"), scope.KindParameter, false, typeOf(w, n, "type"))
	case "spread_parameter":
		if d := firstOfType(n, "variable_declarator"); d != nil {
			w.bind(nil, d.ChildByFieldName("name"), scope.KindParameter, false)
		}
	case "inferred_parameters":
		for _, id := range namedOfType(n, "identifier") {
			w.bind(nil, id, scope.KindParameter, false)
		}
	case "lambda_expression":
		if p := n.ChildByFieldName("parameters"); p != nil && p.Type() == "identifier" {
			w.bind(nil, p, scope.KindParameter, false)
		}
	case "enhanced_for_statement":
		w.bind(nil, n.ChildByFieldName("name"), scope.KindVariable, false, typeOf(w, n, "type"))
	case "enum_constant":
		exported := false
		if e := enclosing(n, "enum_declaration"); e != nil {
			exported = javaPublic(w, e)
		}
		w.bind(n, n.ChildByFieldName("name"), scope.KindConstant, exported)
	case "import_declaration":
		if hasChildType(n, "asterisk") {
			return
		}
		w.bind(n, javaLastSegment(n), scope.KindImport, false)
	}
}

// javaLastSegment returns the final identifier of an import path.
func javaLastSegment(n *sitter.Node) *sitter.Node {
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		c := n.NamedChild(i)
		switch c.Type() {
		case "identifier":
			return c
		case "scoped_identifier":
			return c.ChildByFieldName("name")
		}
	}
	return nil
}
