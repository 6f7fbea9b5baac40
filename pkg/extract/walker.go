package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/grahambrooks/refactor-dsl-sub001/pkg/parser"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/refindex"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

type walker struct {
	path    string
	src     []byte
	r       *rules
	tracker *scope.Tracker
	refs    []refindex.Reference
	cur     scope.ScopeID

	// start byte of each declaring name node
	defs     map[uint32]scope.BindingKind
	declared map[scope.ScopeID]map[string]bool
}

func newWalker(path string, src []byte, r *rules) *walker {
	return &walker{
		path:     path,
		src:      src,
		r:        r,
		tracker:  scope.NewTracker(),
		cur:      scope.RootScope,
		defs:     make(map[uint32]scope.BindingKind),
		declared: make(map[scope.ScopeID]map[string]bool),
	}
}

func (w *walker) visit(n *sitter.Node) {
	if n == nil {
		return
	}
	typ := n.Type()
	if w.r.comments[typ] || w.r.skip[typ] {
		return
	}
	if w.r.identifiers[typ] {
		w.reference(n, typ)
		return
	}

	w.r.declare(w, n, typ)

	if kind, ok := w.r.scopeFor(n, typ); ok {
		outer := w.cur
		w.cur = w.tracker.CreateScope(kind, parser.NodeRange(n), outer)
		w.children(n)
		w.cur = outer
		return
	}
	w.children(n)
}

func (w *walker) children(n *sitter.Node) {
	for i := range int(n.ChildCount()) {
		w.visit(n.Child(i))
	}
}

func (w *walker) text(n *sitter.Node) string {
	return parser.GetNodeText(n, w.src)
}

func (w *walker) scopeKind() scope.ScopeKind {
	s, _ := w.tracker.Scope(w.cur)
	return s.Kind
}

// bind declares name in the current scope. decl is the declaring node and
// supplies documentation; the binding's range is the name's range.
func (w *walker) bind(decl, name *sitter.Node, kind scope.BindingKind, exported bool, opts ...scope.BindingOption) {
	w.bindText(decl, name, w.text(name), kind, exported, opts...)
}

// bindText is bind with an explicit name, for declarations whose name is
// derived rather than spelled by a single identifier.
func (w *walker) bindText(decl, name *sitter.Node, text string, kind scope.BindingKind, exported bool, opts ...scope.BindingOption) {
	if name == nil || text == "" || text == "_" {
		return
	}
	opts = append([]scope.BindingOption{scope.InScope(w.cur), scope.Exported(exported)}, opts...)
	if docs := w.docs(decl); docs != "" {
		opts = append(opts, scope.WithDocs(docs))
	}
	w.tracker.AddBinding(scope.NewBinding(text, kind, w.path, parser.NodeRange(name), opts...))
	w.defs[name.StartByte()] = kind

	names := w.declared[w.cur]
	if names == nil {
		names = make(map[string]bool)
		w.declared[w.cur] = names
	}
	names[text] = true
}

// bindOnce declares name only if the current scope has no binding of that
// name yet. Languages that declare by assignment use it so later
// assignments become writes.
func (w *walker) bindOnce(decl, name *sitter.Node, kind scope.BindingKind, exported bool, opts ...scope.BindingOption) {
	if name == nil || w.declared[w.cur][w.text(name)] {
		return
	}
	w.bind(decl, name, kind, exported, opts...)
}

// docs collects comment siblings immediately above decl.
func (w *walker) docs(decl *sitter.Node) string {
	if decl == nil {
		return ""
	}
	var lines []string
	next := decl.StartPoint().Row
	for c := decl.PrevNamedSibling(); c != nil && w.r.comments[c.Type()]; c = c.PrevNamedSibling() {
		if c.EndPoint().Row+1 < next {
			break
		}
		lines = append([]string{strings.TrimSpace(w.text(c))}, lines...)
		next = c.StartPoint().Row
	}
	return strings.Join(lines, "\n")
}

func typeOf(w *walker, n *sitter.Node, field string) scope.BindingOption {
	t := n.ChildByFieldName(field)
	if t == nil {
		return func(*scope.Binding) {}
	}
	return scope.WithType(strings.TrimSpace(strings.TrimPrefix(w.text(t), ":")))
}

func (w *walker) reference(n *sitter.Node, typ string) {
	name := w.text(n)
	if name == "" || name == "_" {
		return
	}
	if bk, ok := w.defs[n.StartByte()]; ok {
		w.refs = append(w.refs, refindex.NewReference(w.path, parser.NodeRange(n), name,
			refindex.WithKind(definitionKind(bk)), refindex.AsDefinition()))
		return
	}
	w.refs = append(w.refs, refindex.NewReference(w.path, parser.NodeRange(n), name,
		refindex.WithKind(w.classify(n, typ))))
}

func definitionKind(k scope.BindingKind) refindex.ReferenceKind {
	switch {
	case k.IsCallable():
		return refindex.RefCall
	case k.IsType():
		return refindex.RefType
	case k == scope.KindImport || k == scope.KindModule:
		return refindex.RefImport
	default:
		return refindex.RefWrite
	}
}

// classify picks the reference kind for a non-declaring identifier.
// Import and heritage context win over the local shape of the expression.
func (w *walker) classify(n *sitter.Node, typ string) refindex.ReferenceKind {
	inType := w.r.typeIdents[typ]
	child := n
	for anc := n.Parent(); anc != nil; child, anc = anc, anc.Parent() {
		at := anc.Type()
		if w.r.imports[at] {
			return refindex.RefImport
		}
		if field, ok := w.r.heritage[at]; ok {
			if field == "" || sameNode(anc.ChildByFieldName(field), child) {
				return refindex.RefInheritance
			}
		}
		if w.r.typeContexts[at] {
			inType = true
		}
	}

	switch {
	case w.isCallee(n):
		return refindex.RefCall
	case w.isWriteTarget(n):
		return refindex.RefWrite
	case inType || isTypeField(n):
		return refindex.RefType
	}
	return refindex.RefRead
}

func (w *walker) isCallee(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	if field, ok := w.r.calls[p.Type()]; ok && sameNode(p.ChildByFieldName(field), n) {
		return true
	}
	if field, ok := w.r.members[p.Type()]; ok && sameNode(p.ChildByFieldName(field), n) {
		gp := p.Parent()
		if gp == nil {
			return false
		}
		if cf, ok := w.r.calls[gp.Type()]; ok {
			return sameNode(gp.ChildByFieldName(cf), p)
		}
	}
	return false
}

var targetLists = set("expression_list", "pattern_list", "tuple_pattern", "left_assignment_list", "array_pattern")

// isWriteTarget reports whether n, or the member access it names, is the
// target of an assignment, directly or inside a target list.
func (w *walker) isWriteTarget(n *sitter.Node) bool {
	target := n
	if p := n.Parent(); p != nil {
		if field, ok := w.r.members[p.Type()]; ok && sameNode(p.ChildByFieldName(field), n) {
			target = p
		}
	}
	p := target.Parent()
	if p == nil {
		return false
	}
	if w.assignsTo(p, target) {
		return true
	}
	return targetLists[p.Type()] && w.assignsTo(p.Parent(), p)
}

func (w *walker) assignsTo(assign, target *sitter.Node) bool {
	if assign == nil {
		return false
	}
	field, ok := w.r.assigns[assign.Type()]
	return ok && sameNode(assign.ChildByFieldName(field), target)
}

func isTypeField(n *sitter.Node) bool {
	p := n.Parent()
	return p != nil && sameNode(p.ChildByFieldName("type"), n)
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// leading returns n's named children of the given types up to the first
// child of another type. Multi-name declarations such as `var a, b int`
// list their names first.
func leading(n *sitter.Node, types ...string) []*sitter.Node {
	want := set(types...)
	var out []*sitter.Node
	for i := range int(n.NamedChildCount()) {
		c := n.NamedChild(i)
		if !want[c.Type()] {
			break
		}
		out = append(out, c)
	}
	return out
}

// namedOfType returns every named child of n with one of the given types.
func namedOfType(n *sitter.Node, types ...string) []*sitter.Node {
	if n == nil {
		return nil
	}
	want := set(types...)
	var out []*sitter.Node
	for i := range int(n.NamedChildCount()) {
		if c := n.NamedChild(i); want[c.Type()] {
			out = append(out, c)
		}
	}
	return out
}

// firstOfType returns the first named child of n with the given type.
func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := range int(n.NamedChildCount()) {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

func hasChildType(n *sitter.Node, typ string) bool {
	for i := range int(n.ChildCount()) {
		if n.Child(i).Type() == typ {
			return true
		}
	}
	return false
}
