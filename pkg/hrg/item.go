package hrg

// Item is a handle to one node of one relation: the owning utterance plus
// an index into its item arena. The zero value is not a valid Item; use
// [Item.Valid] to check. Two Items are the "same"
// when they reference the same content, regardless of which relation or
// utterance-local item each belongs to — see [Item.Equal].
type Item struct {
	Utt *Utterance
	Idx int32
}

// Valid reports whether it refers to a real item.
func (it Item) Valid() bool { return it.Utt != nil && it.Idx >= 0 && int(it.Idx) < len(it.Utt.items) }

func (it Item) rec() *itemRecord { return &it.Utt.items[it.Idx] }

// ContentIndex returns the index of the content this item references. Two
// items (possibly in different relations) sharing a ContentIndex are the
// same node seen through different relations.
func (it Item) ContentIndex() int32 { return it.rec().content }

// Equal reports whether it and other reference the same content within the
// same utterance.
func (it Item) Equal(other Item) bool {
	if it.Utt != other.Utt {
		return false
	}
	return it.ContentIndex() == other.ContentIndex()
}

// RelationName returns the name of the relation this item belongs to.
func (it Item) RelationName() string { return it.rec().relationName }

// Features returns the mutable feature map of this item's content. Mutating
// the returned map mutates the shared content seen by every relation that
// references it.
func (it Item) Features() Features { return it.Utt.contents[it.ContentIndex()].features }

// SetFeature sets a feature on this item's content.
func (it Item) SetFeature(name string, value any) {
	it.Utt.contents[it.ContentIndex()].features[name] = value
}

// Next returns the next sibling at this item's tree depth (top-level if it
// has no parent, otherwise the next daughter of the same parent).
func (it Item) Next() (Item, bool) {
	idx := it.rec().next
	if idx == noIndex {
		return Item{}, false
	}
	return Item{Utt: it.Utt, Idx: idx}, true
}

// Prev returns the previous sibling at this item's tree depth.
func (it Item) Prev() (Item, bool) {
	idx := it.rec().prev
	if idx == noIndex {
		return Item{}, false
	}
	return Item{Utt: it.Utt, Idx: idx}, true
}

// Parent returns this item's parent, if any.
func (it Item) Parent() (Item, bool) {
	idx := it.rec().parent
	if idx == noIndex {
		return Item{}, false
	}
	return Item{Utt: it.Utt, Idx: idx}, true
}

// FirstDaughter returns this item's first daughter, if any.
func (it Item) FirstDaughter() (Item, bool) {
	idx := it.rec().firstDaughter
	if idx == noIndex {
		return Item{}, false
	}
	return Item{Utt: it.Utt, Idx: idx}, true
}

// LastDaughter returns this item's last daughter, if any.
func (it Item) LastDaughter() (Item, bool) {
	idx := it.rec().lastDaughter
	if idx == noIndex {
		return Item{}, false
	}
	return Item{Utt: it.Utt, Idx: idx}, true
}

// First walks backward to the first item in it's sibling chain (itself if
// already first).
func (it Item) First() Item {
	cur := it
	for {
		prev, ok := cur.Prev()
		if !ok {
			return cur
		}
		cur = prev
	}
}

// Last walks forward to the last item in it's sibling chain.
func (it Item) Last() Item {
	cur := it
	for {
		next, ok := cur.Next()
		if !ok {
			return cur
		}
		cur = next
	}
}

// Daughters returns every daughter of it, in order.
func (it Item) Daughters() []Item {
	var out []Item
	d, ok := it.FirstDaughter()
	for ok {
		out = append(out, d)
		d, ok = d.Next()
	}
	return out
}

// NumDaughters returns the count of it's daughters.
func (it Item) NumDaughters() int { return len(it.Daughters()) }

// InRelation returns the co-content item in the named relation: the item
// that references the same content as it, but lives in relation name.
func (it Item) InRelation(name string) (Item, bool) {
	idx, ok := it.Utt.contents[it.ContentIndex()].relations[name]
	if !ok {
		return Item{}, false
	}
	return Item{Utt: it.Utt, Idx: idx}, true
}

// AddDaughter creates a new item as it's last daughter, in it's own
// relation. When share is non-nil, the new item references share's content
// instead of fresh content; this fails with
// [DuplicateItemInRelationError] if that content already has an item in
// it's relation.
func (it Item) AddDaughter(share *Item) (Item, error) {
	relName := it.RelationName()
	var contentIdx int32
	if share != nil {
		contentIdx = share.ContentIndex()
	} else {
		contentIdx = it.Utt.newContent()
	}
	idx, err := it.Utt.newItem(relName, contentIdx)
	if err != nil {
		return Item{}, err
	}
	rec := &it.Utt.items[idx]
	rec.parent = it.Idx

	parentRec := it.rec()
	if parentRec.lastDaughter == noIndex {
		parentRec.firstDaughter = idx
		parentRec.lastDaughter = idx
	} else {
		it.Utt.items[parentRec.lastDaughter].next = idx
		rec.prev = parentRec.lastDaughter
		parentRec.lastDaughter = idx
	}
	return Item{Utt: it.Utt, Idx: idx}, nil
}

// Remove detaches it from its relation, repairing head/tail, parent
// first/last-daughter, and sibling links. When cascadeDaughters is true,
// every daughter (recursively) is removed first. When removeContent is
// true, the underlying content record is cleared entirely (features wiped,
// all relation back-references dropped) rather than merely unlinked from
// this relation — use with care, since other relations may still hold items
// referencing that content.
func (it Item) Remove(cascadeDaughters, removeContent bool) {
	if cascadeDaughters {
		for _, d := range it.Daughters() {
			d.Remove(true, removeContent)
		}
	}

	rec := it.rec()
	prevIdx, nextIdx, parentIdx := rec.prev, rec.next, rec.parent

	if prevIdx != noIndex {
		it.Utt.items[prevIdx].next = nextIdx
	} else if parentIdx != noIndex {
		it.Utt.items[parentIdx].firstDaughter = nextIdx
	} else if r, ok := it.Utt.GetRelation(rec.relationName); ok {
		r.head = nextIdx
	}

	if nextIdx != noIndex {
		it.Utt.items[nextIdx].prev = prevIdx
	} else if parentIdx != noIndex {
		it.Utt.items[parentIdx].lastDaughter = prevIdx
	} else if r, ok := it.Utt.GetRelation(rec.relationName); ok {
		r.tail = prevIdx
	}

	cr := &it.Utt.contents[rec.content]
	delete(cr.relations, rec.relationName)
	if removeContent {
		cr.features = nil
		cr.relations = nil
	}
}
