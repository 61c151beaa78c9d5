// Package segmap implements an interval container keyed by half-open
// uint64 ranges, storing an arbitrary payload per stored segment and
// detecting any partial intersection between a queried range and the
// segments already stored.
package segmap

import (
	"fmt"

	"github.com/google/btree"
)

// Segment is a half-open integer range [Start, End).
type Segment struct {
	Start, End uint64
}

// IntersectError is returned whenever a queried segment partially
// intersects a stored one — as opposed to matching it exactly or not
// touching it at all. Witness is one point inside the intersection,
// suitable for locating the offending stored segment via GetContaining.
type IntersectError struct{ Witness uint64 }

func (e *IntersectError) Error() string {
	return fmt.Sprintf("segmap: requested segment intersects one in the map, at point %d", e.Witness)
}

type anchorKind int

const (
	anchorStart anchorKind = iota
	anchorEnd
	anchorEndStart
)

// anchor is one node of the map backing a SegmentMap[V]: a key together
// with its role (segment start, segment end, or both at once when two
// stored segments touch) and, for End/EndStart anchors, the payload of the
// segment that ends there.
type anchor[V any] struct {
	key   uint64
	kind  anchorKind
	value V
}

func (a *anchor[V]) Less(than btree.Item) bool {
	return a.key < than.(*anchor[V]).key
}

func (a *anchor[V]) hasValue() bool {
	return a.kind == anchorEnd || a.kind == anchorEndStart
}

// SegmentMap stores a set of disjoint half-open segments, each carrying a
// payload of type V, backed by an ordered key index of segment endpoints.
type SegmentMap[V any] struct {
	tree *btree.BTree
}

// New returns an empty SegmentMap.
func New[V any]() *SegmentMap[V] {
	return &SegmentMap[V]{tree: btree.New(32)}
}

func keyItem[V any](key uint64) *anchor[V] { return &anchor[V]{key: key} }

// anchorsInRange returns up to 3 anchors with key in [seg.Start, seg.End],
// in key order — exactly as many as the classification algorithm ever
// needs to look at.
func (m *SegmentMap[V]) anchorsInRange(seg Segment) []*anchor[V] {
	var out []*anchor[V]
	m.tree.AscendGreaterOrEqual(keyItem[V](seg.Start), func(item btree.Item) bool {
		a := item.(*anchor[V])
		if a.key > seg.End {
			return false
		}
		out = append(out, a)
		return len(out) < 3
	})
	return out
}

// classify runs the shared classification algorithm used by Get/Contains/
// EntryAt: it inspects the first three anchors inside [seg.Start, seg.End]
// and decides whether seg is absent, present exactly, or partially
// intersecting a stored segment.
//
// Returns (found bool, value *V, err error). found is false with err nil
// when absent; found is true with a non-nil value on an exact match
// (value is nil when the caller doesn't need it, e.g. Contains);
// err is an *IntersectError on partial intersection.
func (m *SegmentMap[V]) classify(seg Segment, wantValue bool) (bool, *V, error) {
	anchors := m.anchorsInRange(seg)
	if len(anchors) == 0 {
		return false, nil, nil
	}
	first := anchors[0]

	switch {
	case first.key == seg.Start && (first.kind == anchorStart || first.kind == anchorEndStart):
		if len(anchors) < 2 {
			return false, nil, &IntersectError{Witness: seg.Start}
		}
		second := anchors[1]
		if second.key != seg.End || !second.hasValue() {
			return false, nil, &IntersectError{Witness: seg.Start}
		}
		if len(anchors) > 2 {
			panic("segmap: range should not contain nodes after end")
		}
		if wantValue {
			v := second.value
			return true, &v, nil
		}
		return true, nil, nil

	case first.key == seg.Start && first.kind == anchorEnd:
		if len(anchors) < 2 {
			return false, nil, nil
		}
		second := anchors[1]
		if second.key == seg.End && second.kind == anchorStart {
			if len(anchors) > 2 {
				panic("segmap: range should not contain nodes after end")
			}
			return false, nil, nil
		}
		return false, nil, &IntersectError{Witness: second.key}

	case first.key == seg.End && first.kind == anchorStart:
		if len(anchors) > 1 {
			panic("segmap: range should not contain nodes after end")
		}
		return false, nil, nil

	case first.hasValue():
		return false, nil, &IntersectError{Witness: seg.Start}

	default:
		return false, nil, &IntersectError{Witness: first.key}
	}
}

// Get returns the payload of the stored segment exactly matching seg, or
// (nil, nil) if no stored segment intersects it at all, or an
// *IntersectError if seg partially intersects a stored segment.
func (m *SegmentMap[V]) Get(seg Segment) (*V, error) {
	found, v, err := m.classify(seg, true)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return v, nil
}

// Contains reports whether seg is stored exactly, returning an
// *IntersectError under the same conditions as Get.
func (m *SegmentMap[V]) Contains(seg Segment) (bool, error) {
	found, _, err := m.classify(seg, false)
	return found, err
}

// EntryKind distinguishes the two states an Entry can be in.
type EntryKind int

const (
	// Vacant means seg is not stored and doesn't intersect anything stored.
	Vacant EntryKind = iota
	// Occupied means seg is stored exactly.
	Occupied
)

// Entry is a handle into the map at a specific segment, obtained via
// EntryAt, letting a caller insert into a vacant slot or remove/replace an
// occupied one without a second lookup.
type Entry[V any] struct {
	m    *SegmentMap[V]
	seg  Segment
	kind EntryKind
}

// Kind reports whether the entry is Vacant or Occupied.
func (e *Entry[V]) Kind() EntryKind { return e.kind }

// Segment returns the segment this entry was obtained for.
func (e *Entry[V]) Segment() Segment { return e.seg }

// Insert stores value at this entry's segment. Only valid on a Vacant
// entry; calling it on an Occupied entry panics.
func (e *Entry[V]) Insert(value V) {
	if e.kind != Vacant {
		panic("segmap: Insert called on an occupied entry")
	}
	e.m.insertVacant(e.seg, value)
}

// Get returns the stored payload. Only valid on an Occupied entry.
func (e *Entry[V]) Get() V {
	if e.kind != Occupied {
		panic("segmap: Get called on a vacant entry")
	}
	v, _ := e.m.Get(e.seg)
	return *v
}

// Replace overwrites the stored payload at this (occupied) entry's
// segment, returning the old value.
func (e *Entry[V]) Replace(value V) V {
	if e.kind != Occupied {
		panic("segmap: Replace called on a vacant entry")
	}
	item := e.m.tree.Get(keyItem[V](e.seg.End)).(*anchor[V])
	old := item.value
	item.value = value
	return old
}

// Remove deletes the segment at this (occupied) entry, returning its
// stored payload.
func (e *Entry[V]) Remove() V {
	if e.kind != Occupied {
		panic("segmap: Remove called on a vacant entry")
	}
	v, _ := e.m.remove(e.seg)
	return v
}

// EntryAt returns an Entry for seg: Occupied if seg is stored exactly,
// Vacant if it doesn't intersect anything stored. Returns an
// *IntersectError on partial intersection, in which case no Entry is
// returned.
func (m *SegmentMap[V]) EntryAt(seg Segment) (*Entry[V], error) {
	ok, err := m.Contains(seg)
	if err != nil {
		return nil, err
	}
	if ok {
		return &Entry[V]{m: m, seg: seg, kind: Occupied}, nil
	}
	return &Entry[V]{m: m, seg: seg, kind: Vacant}, nil
}

func (m *SegmentMap[V]) insertVacant(seg Segment, value V) {
	addStart[V](m.tree, seg.Start)
	addEnd[V](m.tree, seg.End, value)
}

// Insert stores value at seg. If seg was already stored exactly, returns
// (true, old) with the previous value. If seg partially intersects a
// stored segment, returns (false, value, err) — note the rejected value is
// handed back to the caller, since Go has no ownership to reclaim it from.
func (m *SegmentMap[V]) Insert(seg Segment, value V) (hadOld bool, old V, err error) {
	entry, err := m.EntryAt(seg)
	if err != nil {
		return false, value, err
	}
	switch entry.Kind() {
	case Vacant:
		entry.Insert(value)
		var zero V
		return false, zero, nil
	default:
		return true, entry.Replace(value), nil
	}
}

func (m *SegmentMap[V]) remove(seg Segment) (V, bool) {
	removeStart[V](m.tree, seg.Start)
	v := removeEnd[V](m.tree, seg.End)
	return v, true
}

// Remove deletes seg if stored exactly, returning (value, true), or
// (zero, false) if not present.
func (m *SegmentMap[V]) Remove(seg Segment) (V, bool) {
	ok, err := m.Contains(seg)
	if err != nil || !ok {
		var zero V
		return zero, false
	}
	return m.remove(seg)
}

// GetContaining returns the unique stored segment [s,e) with s <= point <
// e, if one exists.
func (m *SegmentMap[V]) GetContaining(point uint64) (Segment, *V, bool) {
	var startItem *anchor[V]
	m.tree.DescendLessOrEqual(keyItem[V](point), func(item btree.Item) bool {
		startItem = item.(*anchor[V])
		return false
	})
	if startItem == nil || startItem.kind == anchorEnd {
		return Segment{}, nil, false
	}

	var endItem *anchor[V]
	skippedSelf := false
	m.tree.AscendGreaterOrEqual(keyItem[V](point), func(item btree.Item) bool {
		a := item.(*anchor[V])
		if !skippedSelf && a.key == point {
			skippedSelf = true
			return true
		}
		endItem = a
		return false
	})
	if endItem == nil || !endItem.hasValue() {
		return Segment{}, nil, false
	}
	v := endItem.value
	return Segment{Start: startItem.key, End: endItem.key}, &v, true
}

func addStart[V any](tree *btree.BTree, start uint64) {
	existing := tree.Get(keyItem[V](start))
	if existing == nil {
		tree.ReplaceOrInsert(&anchor[V]{key: start, kind: anchorStart})
		return
	}
	a := existing.(*anchor[V])
	if a.kind != anchorEnd {
		panic("segmap: expected Start/EndStart target to be End")
	}
	a.kind = anchorEndStart
}

func addEnd[V any](tree *btree.BTree, end uint64, value V) {
	existing := tree.Get(keyItem[V](end))
	if existing == nil {
		tree.ReplaceOrInsert(&anchor[V]{key: end, kind: anchorEnd, value: value})
		return
	}
	a := existing.(*anchor[V])
	if a.kind != anchorStart {
		panic("segmap: expected End target to be Start")
	}
	a.kind = anchorEndStart
	a.value = value
}

func removeStart[V any](tree *btree.BTree, start uint64) {
	existing := tree.Get(keyItem[V](start)).(*anchor[V])
	if existing.kind == anchorStart {
		tree.Delete(keyItem[V](start))
		return
	}
	if existing.kind != anchorEndStart {
		panic("segmap: expected Start/EndStart")
	}
	existing.kind = anchorEnd
}

func removeEnd[V any](tree *btree.BTree, end uint64) V {
	existing := tree.Get(keyItem[V](end)).(*anchor[V])
	if existing.kind == anchorEnd {
		v := existing.value
		tree.Delete(keyItem[V](end))
		return v
	}
	if existing.kind != anchorEndStart {
		panic("segmap: expected End/EndStart")
	}
	v := existing.value
	existing.kind = anchorStart
	var zero V
	existing.value = zero
	return v
}
