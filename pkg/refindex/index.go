package refindex

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/grahambrooks/refactor-dsl-sub001/pkg/scope"
)

// FileID is a handle for an interned file path.
type FileID uint32

type refID uint32

type cachedResolution struct {
	generation uint64
	result     ResolvedReference
}

// override is an externally supplied verdict. A nil binding means the
// oracle found nothing.
type override struct {
	binding *scope.BindingKey
}

// Index cross-references bindings and references by name and by file and
// resolves references to bindings.
//
// Every mutation advances a generation counter. Cached resolutions carry the
// generation they were computed at and are recomputed once it moves on, so
// queries after an insert never see stale results. An Index is not safe for
// concurrent use; populate it from a single writer before querying.
type Index struct {
	files   []string
	fileIDs map[string]FileID

	bindings       []scope.Binding
	bindingIDs     map[scope.BindingKey]scope.BindingID
	bindingsByName map[string][]scope.BindingID
	bindingsByFile map[FileID][]scope.BindingID

	refs       []Reference
	refIDs     map[ReferenceKey]refID
	refsByName map[string][]refID
	refsByFile map[FileID][]refID

	bindingFiles *roaring.Bitmap
	refFiles     *roaring.Bitmap

	generation uint64
	cache      map[ReferenceKey]cachedResolution
	overrides  map[ReferenceKey]override
}

// New creates an empty index.
func New() *Index {
	idx := &Index{}
	idx.reset()
	return idx
}

func (i *Index) reset() {
	i.files = nil
	i.fileIDs = make(map[string]FileID)
	i.bindings = nil
	i.bindingIDs = make(map[scope.BindingKey]scope.BindingID)
	i.bindingsByName = make(map[string][]scope.BindingID)
	i.bindingsByFile = make(map[FileID][]scope.BindingID)
	i.refs = nil
	i.refIDs = make(map[ReferenceKey]refID)
	i.refsByName = make(map[string][]refID)
	i.refsByFile = make(map[FileID][]refID)
	i.bindingFiles = roaring.New()
	i.refFiles = roaring.New()
	i.cache = make(map[ReferenceKey]cachedResolution)
	i.overrides = make(map[ReferenceKey]override)
}

func (i *Index) intern(path string) FileID {
	if id, ok := i.fileIDs[path]; ok {
		return id
	}
	id := FileID(len(i.files))
	i.files = append(i.files, path)
	i.fileIDs[path] = id
	return id
}

// FileID returns the handle for an indexed path.
func (i *Index) FileID(path string) (FileID, bool) {
	id, ok := i.fileIDs[path]
	return id, ok
}

// FilePath returns the path for a handle.
func (i *Index) FilePath(id FileID) string {
	if int(id) < len(i.files) {
		return i.files[id]
	}
	return ""
}

// Generation returns the mutation counter. It increases on every insert,
// override and Clear.
func (i *Index) Generation() uint64 { return i.generation }

// AddBinding stores a copy of b. Re-adding a key replaces the stored binding
// without changing its position in the name and file buckets.
func (i *Index) AddBinding(b scope.Binding) scope.BindingID {
	i.generation++
	key := b.Key()
	if id, ok := i.bindingIDs[key]; ok {
		i.bindings[id] = b
		return id
	}

	fid := i.intern(b.File)
	id := scope.BindingID(len(i.bindings))
	i.bindings = append(i.bindings, b)
	i.bindingIDs[key] = id
	i.bindingsByName[b.Name] = append(i.bindingsByName[b.Name], id)
	i.bindingsByFile[fid] = append(i.bindingsByFile[fid], id)
	i.bindingFiles.Add(uint32(fid))
	return id
}

// AddBindings stores each binding in order.
func (i *Index) AddBindings(bs []scope.Binding) {
	for _, b := range bs {
		i.AddBinding(b)
	}
}

// AddReference stores a copy of r. A reference with an existing key replaces
// the stored one and keeps its bucket position.
func (i *Index) AddReference(r Reference) {
	i.generation++
	key := r.Key()
	if id, ok := i.refIDs[key]; ok {
		old := i.refs[id]
		i.refs[id] = r
		if old.Name != r.Name {
			i.refsByName[old.Name] = removeRef(i.refsByName[old.Name], id)
			if len(i.refsByName[old.Name]) == 0 {
				delete(i.refsByName, old.Name)
			}
			i.refsByName[r.Name] = insertRef(i.refsByName[r.Name], id)
		}
		return
	}

	fid := i.intern(r.File)
	id := refID(len(i.refs))
	i.refs = append(i.refs, r)
	i.refIDs[key] = id
	i.refsByName[r.Name] = append(i.refsByName[r.Name], id)
	i.refsByFile[fid] = append(i.refsByFile[fid], id)
	i.refFiles.Add(uint32(fid))
}

// AddReferences stores each reference in order.
func (i *Index) AddReferences(rs []Reference) {
	for _, r := range rs {
		i.AddReference(r)
	}
}

func removeRef(ids []refID, id refID) []refID {
	for n, v := range ids {
		if v == id {
			return append(ids[:n:n], ids[n+1:]...)
		}
	}
	return ids
}

// insertRef keeps buckets ordered by arena position, which is insertion order.
func insertRef(ids []refID, id refID) []refID {
	n := len(ids)
	for n > 0 && ids[n-1] > id {
		n--
	}
	ids = append(ids, 0)
	copy(ids[n+1:], ids[n:])
	ids[n] = id
	return ids
}

// FindBindings returns every binding with the given name in insertion order.
func (i *Index) FindBindings(name string) []scope.Binding {
	return i.collectBindings(i.bindingsByName[name])
}

// BindingsInFile returns the bindings defined in file in insertion order.
func (i *Index) BindingsInFile(file string) []scope.Binding {
	fid, ok := i.fileIDs[file]
	if !ok {
		return nil
	}
	return i.collectBindings(i.bindingsByFile[fid])
}

// ReferencesInFile returns the references located in file in insertion order.
func (i *Index) ReferencesInFile(file string) []Reference {
	fid, ok := i.fileIDs[file]
	if !ok {
		return nil
	}
	return i.collectRefs(i.refsByFile[fid])
}

// FindReferencesTo returns every indexed reference sharing b's name, across
// all files, in insertion order. Matching is by name only; callers that need
// precision should Resolve each result and filter on confidence.
func (i *Index) FindReferencesTo(b scope.Binding) []Reference {
	return i.collectRefs(i.refsByName[b.Name])
}

// Binding returns the stored binding with the given key.
func (i *Index) Binding(key scope.BindingKey) (scope.Binding, bool) {
	id, ok := i.bindingIDs[key]
	if !ok {
		return scope.Binding{}, false
	}
	return i.bindings[id], true
}

// BindingAt returns the binding declared at the given position.
func (i *Index) BindingAt(file string, line, character uint32, name string) (scope.Binding, bool) {
	return i.Binding(scope.BindingKey{File: file, Line: line, Character: character, Name: name})
}

// ReferenceAt returns the reference starting at the given position.
func (i *Index) ReferenceAt(file string, line, character uint32) (Reference, bool) {
	id, ok := i.refIDs[ReferenceKey{File: file, Line: line, Character: character}]
	if !ok {
		return Reference{}, false
	}
	return i.refs[id], true
}

// Bindings returns all bindings grouped by file in first-seen file order.
func (i *Index) Bindings() []scope.Binding {
	out := make([]scope.Binding, 0, len(i.bindings))
	for fid := range i.files {
		out = append(out, i.collectBindings(i.bindingsByFile[FileID(fid)])...)
	}
	return out
}

// Files returns every file holding a binding or reference, each once, in
// the order the index first saw them.
func (i *Index) Files() []string {
	present := roaring.Or(i.bindingFiles, i.refFiles)
	out := make([]string, 0, present.GetCardinality())
	it := present.Iterator()
	for it.HasNext() {
		out = append(out, i.files[it.Next()])
	}
	return out
}

// FilesWithBindings returns the handles of files that define at least one binding.
func (i *Index) FilesWithBindings() *roaring.Bitmap { return i.bindingFiles.Clone() }

// FilesWithReferences returns the handles of files that contain at least one reference.
func (i *Index) FilesWithReferences() *roaring.Bitmap { return i.refFiles.Clone() }

// Resolve maps r to its most likely binding.
//
// An override recorded for r's key wins outright. Otherwise every binding
// sharing r's name is scored and the strictly highest confidence wins, ties
// keeping the earliest inserted candidate. No candidates yields
// ConfidenceNone and a nil binding.
func (i *Index) Resolve(r Reference) ResolvedReference {
	key := r.Key()
	if c, ok := i.cache[key]; ok && c.generation == i.generation && c.result.Reference == r {
		return c.result
	}

	result := i.resolve(r)
	i.cache[key] = cachedResolution{generation: i.generation, result: result}
	return result
}

func (i *Index) resolve(r Reference) ResolvedReference {
	if o, ok := i.overrides[r.Key()]; ok {
		if o.binding == nil {
			return ResolvedReference{Reference: r, Confidence: ConfidenceNone}
		}
		if b, found := i.Binding(*o.binding); found {
			return ResolvedReference{Reference: r, Binding: &b, Confidence: ConfidenceCertain}
		}
	}

	var (
		best     *scope.Binding
		bestConf = ConfidenceNone
	)
	for _, id := range i.bindingsByName[r.Name] {
		if c := Score(r, i.bindings[id]); c > bestConf {
			b := i.bindings[id]
			best, bestConf = &b, c
		}
	}
	return ResolvedReference{Reference: r, Binding: best, Confidence: bestConf}
}

// ResolveFile resolves every reference located in file.
func (i *Index) ResolveFile(file string) []ResolvedReference {
	refs := i.ReferencesInFile(file)
	out := make([]ResolvedReference, len(refs))
	for n, r := range refs {
		out[n] = i.Resolve(r)
	}
	return out
}

// Override records a ground-truth verdict for r. A non-nil binding resolves
// with ConfidenceCertain; nil records that the reference names nothing in
// the index. Overrides survive ClearCache and are dropped by Clear.
func (i *Index) Override(r Reference, b *scope.Binding) {
	i.generation++
	if b == nil {
		i.overrides[r.Key()] = override{}
		return
	}
	key := b.Key()
	i.overrides[r.Key()] = override{binding: &key}
}

// Overrides returns the number of recorded overrides.
func (i *Index) Overrides() int { return len(i.overrides) }

// ClearCache drops cached resolutions.
func (i *Index) ClearCache() {
	i.cache = make(map[ReferenceKey]cachedResolution)
}

// Clear removes everything, including overrides.
func (i *Index) Clear() {
	gen := i.generation + 1
	i.reset()
	i.generation = gen
}

// Stats summarizes index contents.
type Stats struct {
	Files      int    `json:"files"`
	Bindings   int    `json:"bindings"`
	References int    `json:"references"`
	Overrides  int    `json:"overrides"`
	Generation uint64 `json:"generation"`
}

// Stats returns counts of the stored facts.
func (i *Index) Stats() Stats {
	return Stats{
		Files:      len(i.files),
		Bindings:   len(i.bindings),
		References: len(i.refs),
		Overrides:  len(i.overrides),
		Generation: i.generation,
	}
}

func (i *Index) collectBindings(ids []scope.BindingID) []scope.Binding {
	if len(ids) == 0 {
		return nil
	}
	out := make([]scope.Binding, len(ids))
	for n, id := range ids {
		out[n] = i.bindings[id]
	}
	return out
}

func (i *Index) collectRefs(ids []refID) []Reference {
	if len(ids) == 0 {
		return nil
	}
	out := make([]Reference, len(ids))
	for n, id := range ids {
		out[n] = i.refs[id]
	}
	return out
}
