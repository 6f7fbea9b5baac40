package scope

// BindingID is a handle into a Tracker's binding arena.
type BindingID uint32

// Scope is a lexical region in the scope tree.
type Scope struct {
	ID       ScopeID     `json:"id"`
	Kind     ScopeKind   `json:"kind"`
	Parent   ScopeID     `json:"parent"`
	Range    Range       `json:"range"`
	Bindings []BindingID `json:"bindings,omitempty"`
}

// IsRoot reports whether the scope is the global root.
func (s Scope) IsRoot() bool { return s.ID == RootScope }

// Tracker stores bindings and the scope tree that owns them.
//
// Scopes and bindings live in slices addressed by ScopeID and BindingID.
// Scope ids are assigned sequentially; id 0 is the global root, created by
// NewTracker, and new scopes start at 1. A Tracker is not safe for
// concurrent mutation.
type Tracker struct {
	bindings []Binding
	ids      map[BindingKey]BindingID
	byName   map[string][]BindingID
	scopes   []Scope
}

// NewTracker creates a tracker holding only the global scope.
func NewTracker() *Tracker {
	return &Tracker{
		ids:    make(map[BindingKey]BindingID),
		byName: make(map[string][]BindingID),
		scopes: []Scope{{ID: RootScope, Kind: ScopeGlobal, Parent: RootScope, Range: FullRange()}},
	}
}

// AddBinding stores a binding and registers it with its owning scope.
// Adding a binding whose key is already present replaces the stored value.
func (t *Tracker) AddBinding(b Binding) BindingID {
	key := b.Key()
	if id, ok := t.ids[key]; ok {
		old := t.bindings[id]
		t.bindings[id] = b
		if old.Scope != b.Scope {
			t.detach(old.Scope, id)
			t.attach(b.Scope, id)
		}
		return id
	}

	id := BindingID(len(t.bindings))
	t.bindings = append(t.bindings, b)
	t.ids[key] = id
	t.byName[b.Name] = append(t.byName[b.Name], id)
	t.attach(b.Scope, id)
	return id
}

func (t *Tracker) attach(sid ScopeID, id BindingID) {
	if int(sid) < len(t.scopes) {
		t.scopes[sid].Bindings = append(t.scopes[sid].Bindings, id)
	}
}

func (t *Tracker) detach(sid ScopeID, id BindingID) {
	if int(sid) >= len(t.scopes) {
		return
	}
	members := t.scopes[sid].Bindings
	for i, m := range members {
		if m == id {
			t.scopes[sid].Bindings = append(members[:i:i], members[i+1:]...)
			return
		}
	}
}

// CreateScope allocates the next scope id under parent. An unknown parent
// is replaced by the root so the tree never contains dangling links.
func (t *Tracker) CreateScope(kind ScopeKind, rng Range, parent ScopeID) ScopeID {
	if int(parent) >= len(t.scopes) {
		parent = RootScope
	}
	id := ScopeID(len(t.scopes))
	t.scopes = append(t.scopes, Scope{ID: id, Kind: kind, Parent: parent, Range: rng})
	return id
}

// FindByName returns every binding with the given name in insertion order.
func (t *Tracker) FindByName(name string) []Binding {
	ids := t.byName[name]
	if len(ids) == 0 {
		return nil
	}
	out := make([]Binding, len(ids))
	for i, id := range ids {
		out[i] = t.bindings[id]
	}
	return out
}

// FindVisible returns the binding named name that is visible from scope at.
// The walk starts at at and climbs parent links to the root, so the
// innermost declaration shadows outer ones.
func (t *Tracker) FindVisible(name string, at ScopeID) (Binding, bool) {
	ids := t.byName[name]
	if len(ids) == 0 {
		return Binding{}, false
	}
	current := at
	for {
		for _, id := range ids {
			if t.bindings[id].Scope == current {
				return t.bindings[id], true
			}
		}
		if current == RootScope || int(current) >= len(t.scopes) {
			return Binding{}, false
		}
		current = t.scopes[current].Parent
	}
}

// VisibleAt resolves name from the innermost scope containing the position.
func (t *Tracker) VisibleAt(name string, line, character uint32) (Binding, bool) {
	return t.FindVisible(name, t.ScopeAt(line, character))
}

// ScopeAt returns the most deeply nested scope containing the position.
// Equal depths keep the lower id. The root covers every position.
func (t *Tracker) ScopeAt(line, character uint32) ScopeID {
	best := RootScope
	bestDepth := -1
	for _, s := range t.scopes {
		if !s.Range.Contains(line, character) {
			continue
		}
		if d := t.Depth(s.ID); d > bestDepth {
			best, bestDepth = s.ID, d
		}
	}
	return best
}

// Depth is the number of parent hops from id to the root.
func (t *Tracker) Depth(id ScopeID) int {
	depth := 0
	for id != RootScope && int(id) < len(t.scopes) {
		id = t.scopes[id].Parent
		depth++
	}
	return depth
}

// Chain lists id followed by each ancestor up to and including the root.
func (t *Tracker) Chain(id ScopeID) []ScopeID {
	if int(id) >= len(t.scopes) {
		return nil
	}
	chain := []ScopeID{id}
	for id != RootScope {
		id = t.scopes[id].Parent
		chain = append(chain, id)
	}
	return chain
}

// Scope returns the scope with the given id.
func (t *Tracker) Scope(id ScopeID) (Scope, bool) {
	if int(id) >= len(t.scopes) {
		return Scope{}, false
	}
	return t.scopes[id], true
}

// Binding returns the binding stored under id.
func (t *Tracker) Binding(id BindingID) (Binding, bool) {
	if int(id) >= len(t.bindings) {
		return Binding{}, false
	}
	return t.bindings[id], true
}

// Lookup returns the binding with the given key.
func (t *Tracker) Lookup(key BindingKey) (Binding, bool) {
	id, ok := t.ids[key]
	if !ok {
		return Binding{}, false
	}
	return t.bindings[id], true
}

// Members returns the bindings owned by a scope, in insertion order.
func (t *Tracker) Members(id ScopeID) []Binding {
	if int(id) >= len(t.scopes) {
		return nil
	}
	ids := t.scopes[id].Bindings
	out := make([]Binding, len(ids))
	for i, bid := range ids {
		out[i] = t.bindings[bid]
	}
	return out
}

// Bindings returns all bindings in insertion order.
func (t *Tracker) Bindings() []Binding {
	out := make([]Binding, len(t.bindings))
	copy(out, t.bindings)
	return out
}

// ExportedBindings returns the exported subset of Bindings.
func (t *Tracker) ExportedBindings() []Binding {
	var out []Binding
	for _, b := range t.bindings {
		if b.Exported {
			out = append(out, b)
		}
	}
	return out
}

// Scopes returns every scope ordered by id, root first.
func (t *Tracker) Scopes() []Scope {
	out := make([]Scope, len(t.scopes))
	for i, s := range t.scopes {
		s.Bindings = append([]BindingID(nil), s.Bindings...)
		out[i] = s
	}
	return out
}

// Len returns the number of stored bindings.
func (t *Tracker) Len() int { return len(t.bindings) }

// ScopeCount returns the number of scopes including the root.
func (t *Tracker) ScopeCount() int { return len(t.scopes) }
