package hrg

// Relation is a named, ordered doubly-linked list of top-level items, with
// optional parent/daughter links forming a forest rooted at those top-level
// items. Iteration over a Relation ([Relation.Items]) visits only the
// top-level list, in linked-list order, regardless of the tree beneath each
// item.
type Relation struct {
	utt  *Utterance
	name string
	head int32
	tail int32
}

// Name returns the relation's name.
func (r *Relation) Name() string { return r.name }

// IsEmpty reports whether the relation has no top-level items.
func (r *Relation) IsEmpty() bool { return r.head == noIndex }

// Head returns the first top-level item.
func (r *Relation) Head() (Item, bool) {
	if r.head == noIndex {
		return Item{}, false
	}
	return Item{Utt: r.utt, Idx: r.head}, true
}

// Tail returns the last top-level item.
func (r *Relation) Tail() (Item, bool) {
	if r.tail == noIndex {
		return Item{}, false
	}
	return Item{Utt: r.utt, Idx: r.tail}, true
}

// Items returns every top-level item, in relation order.
func (r *Relation) Items() []Item {
	var out []Item
	cur, ok := r.Head()
	for ok {
		out = append(out, cur)
		cur, ok = cur.Next()
	}
	return out
}

// Len returns the number of top-level items.
func (r *Relation) Len() int { return len(r.Items()) }

// AppendItem creates a new top-level item at the tail of the relation. When
// share is non-nil, the new item references share's content instead of
// fresh content, failing with [DuplicateItemInRelationError] if that content
// already has an item in this relation.
func (r *Relation) AppendItem(share *Item) (Item, error) {
	var contentIdx int32
	if share != nil {
		contentIdx = share.ContentIndex()
	} else {
		contentIdx = r.utt.newContent()
	}
	idx, err := r.utt.newItem(r.name, contentIdx)
	if err != nil {
		return Item{}, err
	}
	rec := &r.utt.items[idx]
	if r.tail == noIndex {
		r.head = idx
	} else {
		r.utt.items[r.tail].next = idx
		rec.prev = r.tail
	}
	r.tail = idx
	return Item{Utt: r.utt, Idx: idx}, nil
}

// InsertItemAfter creates a new top-level item immediately after anchor in
// this relation's list, splicing it into the sibling chain. anchor must be
// a top-level item (no parent) of this relation. Used by the pauses stage
// to insert a silence Segment after a phrase's last Segment without
// disturbing the rest of the utterance-wide Segment order.
func (r *Relation) InsertItemAfter(anchor Item, share *Item) (Item, error) {
	var contentIdx int32
	if share != nil {
		contentIdx = share.ContentIndex()
	} else {
		contentIdx = r.utt.newContent()
	}
	idx, err := r.utt.newItem(r.name, contentIdx)
	if err != nil {
		return Item{}, err
	}
	rec := &r.utt.items[idx]
	anchorRec := anchor.rec()
	nextIdx := anchorRec.next

	rec.prev = anchor.Idx
	rec.next = nextIdx
	anchorRec.next = idx
	if nextIdx != noIndex {
		r.utt.items[nextIdx].prev = idx
	} else {
		r.tail = idx
	}
	return Item{Utt: r.utt, Idx: idx}, nil
}

// PrependItem creates a new top-level item at the head of the relation.
func (r *Relation) PrependItem(share *Item) (Item, error) {
	var contentIdx int32
	if share != nil {
		contentIdx = share.ContentIndex()
	} else {
		contentIdx = r.utt.newContent()
	}
	idx, err := r.utt.newItem(r.name, contentIdx)
	if err != nil {
		return Item{}, err
	}
	rec := &r.utt.items[idx]
	if r.head == noIndex {
		r.tail = idx
	} else {
		r.utt.items[r.head].prev = idx
		rec.next = r.head
	}
	r.head = idx
	return Item{Utt: r.utt, Idx: idx}, nil
}
