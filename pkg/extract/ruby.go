package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

var rubyRules = &rules{
	declare:     declareRuby,
	scopeFor:    rubyScope,
	identifiers: set("identifier", "constant", "instance_variable", "class_variable", "global_variable"),
	typeIdents:  set(),
	comments:    set("comment"),
	imports:     set(),
	calls:       map[string]string{"call": "method"},
	members:     map[string]string{"scope_resolution": "name"},
	assigns: map[string]string{
		"assignment":          "left",
		"operator_assignment": "left",
	},
	heritage:     map[string]string{"superclass": ""},
	typeContexts: set(),
}

func rubyScope(_ *sitter.Node, typ string) (scope.ScopeKind, bool) {
	switch typ {
	case "method", "singleton_method":
		return scope.ScopeFunction, true
	case "class", "singleton_class":
		return scope.ScopeClass, true
	case "module":
		return scope.ScopeModule, true
	case "do_block", "block", "lambda":
		return scope.ScopeBlock, true
	}
	return 0, false
}

func declareRuby(w *walker, n *sitter.Node, typ string) {
	switch typ {
	case "method", "singleton_method":
		name := n.ChildByFieldName("name")
		kind := scope.KindFunction
		if enclosingRubyType(n) != nil {
			kind = scope.KindMethod
		}
		w.bind(n, name, kind, underscorePublic(w.text(name)))
	case "class":
		w.bind(n, rubyConstName(n.ChildByFieldName("name")), scope.KindClass, true)
	case "module":
		w.bind(n, rubyConstName(n.ChildByFieldName("name")), scope.KindModule, true)
	case "method_parameters", "lambda_parameters", "block_parameters":
		for i := range int(n.NamedChildCount()) {
			c := n.NamedChild(i)
			if c.Type() == "identifier" {
				w.bind(nil, c, scope.KindParameter, false)
				continue
			}
			w.bind(nil, c.ChildByFieldName("name"), scope.KindParameter, false)
		}
	case "assignment":
		for _, id := range rubyTargets(n.ChildByFieldName("left")) {
			switch id.Type() {
			case "constant":
				w.bindOnce(n, id, scope.KindConstant, true)
			case "instance_variable", "class_variable":
				w.bindOnce(n, id, scope.KindField, false)
			case "identifier":
				w.bindOnce(n, id, scope.KindVariable, false)
			}
		}
	case "for":
		for _, id := range rubyTargets(n.ChildByFieldName("pattern")) {
			w.bindOnce(nil, id, scope.KindVariable, false)
		}
	case "call":
		rubyAttrs(w, n)
	}
}

// rubyAttrs declares the accessors generated by attr_reader and friends.
func rubyAttrs(w *walker, n *sitter.Node) {
	if n.ChildByFieldName("receiver") != nil {
		return
	}
	m := n.ChildByFieldName("method")
	if m == nil || !strings.HasPrefix(w.text(m), "attr_") {
		return
	}
	for _, sym := range namedOfType(n.ChildByFieldName("arguments"), "simple_symbol") {
		w.bindText(n, sym, strings.TrimPrefix(w.text(sym), ":"), scope.KindField, true)
	}
}

func rubyConstName(n *sitter.Node) *sitter.Node {
	if n != nil && n.Type() == "scope_resolution" {
		return n.ChildByFieldName("name")
	}
	return n
}

func rubyTargets(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "constant", "instance_variable", "class_variable":
		return []*sitter.Node{n}
	case "left_assignment_list", "destructured_left_assignment":
		var out []*sitter.Node
		for i := range int(n.NamedChildCount()) {
			out = append(out, rubyTargets(n.NamedChild(i))...)
		}
		return out
	}
	return nil
}

func enclosingRubyType(n *sitter.Node) *sitter.Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "class", "module", "singleton_class":
			return p
		case "method", "singleton_method":
			return nil
		}
	}
	return nil
}
