// Package hrg implements the Heterogeneous Relation Graph: the
// shared-content, multi-relation item graph that the linguistic front end
// builds and every later synthesis stage reads.
//
// Items and their content are not linked by pointer but by index into
// per-utterance arenas ([Utterance.items], [Utterance.contents]); an [Item]
// value is a tiny handle pairing the owning utterance with an index. This
// keeps the graph free of reference cycles (a concern with the pointer-based
// doubly-linked, parent-tracking structure the design is modeled on) while
// preserving O(1) navigation.
package hrg

const noIndex int32 = -1

// contentRecord is the arena-allocated backing store for one piece of shared
// content: its feature map, plus the single item index that references it in
// each relation it participates in.
type contentRecord struct {
	features  Features
	relations map[string]int32 // relation name -> item index
}

// itemRecord is the arena-allocated backing store for one item: a reference
// to its content plus the four structural links (next/prev sibling, parent,
// first/last daughter), all expressed as indices into Utterance.items.
type itemRecord struct {
	content       int32
	relationName  string
	next, prev    int32
	parent        int32
	firstDaughter int32
	lastDaughter  int32
}

// Utterance holds the per-synthesis feature map, the named relations built
// on it, and the arenas backing every item and content created during the
// front-end pipeline.
//
// Utterance references its owning voice weakly: the Voice field is typed as
// any specifically so this package does not import the voice package
// (which itself depends on hrg) and so that [Utterance.Sever] can zero it
// out before persistence without the caller needing to know the concrete
// voice type.
type Utterance struct {
	Features Features
	Voice    any

	relations     map[string]*Relation
	relationOrder []string

	contents []contentRecord
	items    []itemRecord
}

// New creates an empty Utterance optionally owned by voice (pass nil for an
// unattached utterance, e.g. one being deserialized).
func New(voice any) *Utterance {
	return &Utterance{
		Features:  Features{},
		Voice:     voice,
		relations: make(map[string]*Relation),
	}
}

// Sever clears the back-reference to the owning voice, as required before
// persisting an utterance; the loader re-attaches a voice by name.
func (u *Utterance) Sever() { u.Voice = nil }

// Relation returns the named relation, creating an empty one on first
// access. Creation order is preserved by [Utterance.RelationNames].
func (u *Utterance) Relation(name string) *Relation {
	if r, ok := u.relations[name]; ok {
		return r
	}
	r := &Relation{utt: u, name: name, head: noIndex, tail: noIndex}
	u.relations[name] = r
	u.relationOrder = append(u.relationOrder, name)
	return r
}

// GetRelation returns the named relation without creating it.
func (u *Utterance) GetRelation(name string) (*Relation, bool) {
	r, ok := u.relations[name]
	return r, ok
}

// HasRelation reports whether name has been created on this utterance.
func (u *Utterance) HasRelation(name string) bool {
	_, ok := u.relations[name]
	return ok
}

// RelationNames returns every relation name created on this utterance, in
// creation order.
func (u *Utterance) RelationNames() []string {
	out := make([]string, len(u.relationOrder))
	copy(out, u.relationOrder)
	return out
}

// newContent allocates a fresh, empty content record and returns its index.
func (u *Utterance) newContent() int32 {
	idx := int32(len(u.contents))
	u.contents = append(u.contents, contentRecord{
		features:  Features{},
		relations: make(map[string]int32),
	})
	return idx
}

// newItem allocates a fresh item record referencing contentIdx within
// relationName, recording the back-reference on the content. Returns
// [DuplicateItemInRelationError] if the content already has an item in that
// relation.
func (u *Utterance) newItem(relationName string, contentIdx int32) (int32, error) {
	cr := &u.contents[contentIdx]
	if _, exists := cr.relations[relationName]; exists {
		return noIndex, &DuplicateItemInRelationError{Relation: relationName}
	}
	idx := int32(len(u.items))
	u.items = append(u.items, itemRecord{
		content:       contentIdx,
		relationName:  relationName,
		next:          noIndex,
		prev:          noIndex,
		parent:        noIndex,
		firstDaughter: noIndex,
		lastDaughter:  noIndex,
	})
	cr.relations[relationName] = idx
	return idx, nil
}
