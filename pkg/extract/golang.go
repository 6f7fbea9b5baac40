package extract

import (
	"path"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

var goFunctions = set("function_declaration", "method_declaration", "func_literal")

var goRules = &rules{
	declare:      declareGo,
	scopeFor:     goScope,
	identifiers:  set("identifier", "type_identifier", "field_identifier", "package_identifier"),
	typeIdents:   set("type_identifier"),
	comments:     set("comment"),
	imports:      set("import_declaration"),
	skip:         set("package_clause"),
	calls:        map[string]string{"call_expression": "function"},
	members:      map[string]string{"selector_expression": "field"},
	assigns:      map[string]string{"assignment_statement": "left"},
	heritage:     map[string]string{},
	typeContexts: set("type_arguments"),
}

func goScope(n *sitter.Node, typ string) (scope.ScopeKind, bool) {
	switch typ {
	case "function_declaration", "method_declaration", "func_literal":
		return scope.ScopeFunction, true
	case "block":
		return bodyScope(n, goFunctions)
	}
	return 0, false
}

func goExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

func declareGo(w *walker, n *sitter.Node, typ string) {
	switch typ {
	case "function_declaration":
		name := n.ChildByFieldName("name")
		w.bind(n, name, scope.KindFunction, goExported(w.text(name)), typeOf(w, n, "result"))
	case "method_declaration":
		name := n.ChildByFieldName("name")
		w.bind(n, name, scope.KindMethod, goExported(w.text(name)), typeOf(w, n, "result"))
	case "type_spec":
		name := n.ChildByFieldName("name")
		kind := scope.KindTypeAlias
		if t := n.ChildByFieldName("type"); t != nil {
			switch t.Type() {
			case "struct_type":
				kind = scope.KindStruct
			case "interface_type":
				kind = scope.KindInterface
			}
		}
		w.bind(declSite(n), name, kind, goExported(w.text(name)))
	case "type_alias":
		name := n.ChildByFieldName("name")
		w.bind(declSite(n), name, scope.KindTypeAlias, goExported(w.text(name)), typeOf(w, n, "type"))
	case "const_spec":
		for _, id := range leading(n, "identifier") {
			w.bind(declSite(n), id, scope.KindConstant, goExported(w.text(id)), typeOf(w, n, "type"))
		}
	case "var_spec":
		for _, id := range leading(n, "identifier") {
			w.bind(declSite(n), id, scope.KindVariable, goExported(w.text(id)), typeOf(w, n, "type"))
		}
	case "short_var_declaration":
		for _, id := range namedOfType(n.ChildByFieldName("left"), "identifier") {
			w.bindOnce(nil, id, scope.KindVariable, false)
		}
	case "range_clause":
		if hasChildType(n, ":=") {
			for _, id := range namedOfType(n.ChildByFieldName("left"), "identifier") {
				w.bindOnce(nil, id, scope.KindVariable, false)
			}
		}
	case "parameter_declaration", "variadic_parameter_declaration":
		for _, id := range leading(n, "identifier") {
			w.bind(nil, id, scope.KindParameter, false, typeOf(w, n, "type"))
		}
	case "type_parameter_declaration":
		for _, id := range leading(n, "identifier") {
			w.bind(nil, id, scope.KindTypeAlias, false, typeOf(w, n, "type"))
		}
	case "field_declaration":
		for _, id := range leading(n, "field_identifier") {
			w.bind(n, id, scope.KindField, goExported(w.text(id)), typeOf(w, n, "type"))
		}
	case "method_spec", "method_elem":
		name := n.ChildByFieldName("name")
		w.bind(n, name, scope.KindMethod, goExported(w.text(name)))
	case "import_spec":
		if alias := n.ChildByFieldName("name"); alias != nil && alias.Type() == "package_identifier" {
			w.bind(n, alias, scope.KindImport, false)
			return
		}
		if p := n.ChildByFieldName("path"); p != nil {
			w.bindText(n, p, path.Base(strings.Trim(w.text(p), "\"`")), scope.KindImport, false)
		}
	}
}

// declSite returns the node whose leading comments document a spec. A lone
// spec such as `type T struct{}` is documented above its declaration.
func declSite(spec *sitter.Node) *sitter.Node {
	if p := spec.Parent(); p != nil && p.NamedChildCount() == 1 {
		switch p.Type() {
		case "type_declaration", "const_declaration", "var_declaration":
			return p
		}
	}
	return spec
}
