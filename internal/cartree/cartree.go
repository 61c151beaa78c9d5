// Package cartree implements the segment-array tree: a multiplexer that
// stores descriptions whose payload is an ordered sequence of disjoint
// segments, recognizing when one description is an extension of an
// already-stored one and rejecting genuinely conflicting descriptions.
package cartree

import (
	"fmt"

	"github.com/gaby/carvemerge/internal/segmap"
)

// Description is anything that can be stored in a SegmentArrayTree: an
// ordered sequence of disjoint disk segments, with per-element equality
// so two descriptions can be compared for compatibility. Elem should
// return a comparable value (a struct of basic fields, as ByteRun is) —
// the tree compares elements with Go's == via the empty interface.
type Description interface {
	Len() int
	Segment(i int) segmap.Segment
	Elem(i int) any
}

// IntersectingSegmentError means a segment of the description being added
// partially overlaps a segment already stored under description Owner.
type IntersectingSegmentError struct{ Owner int }

func (e *IntersectingSegmentError) Error() string {
	return fmt.Sprintf("cartree: intersected a segment with segment array at index %d", e.Owner)
}

// OverlappingSegmentArraysError means the description being added has
// segments that exactly match two different already-stored descriptions —
// it cannot be reconciled with either.
type OverlappingSegmentArraysError struct{ Index1, Index2 int }

func (e *OverlappingSegmentArraysError) Error() string {
	return fmt.Sprintf("cartree: a segment array overlapped with several disjoint segment arrays, at least at indexes %d, %d", e.Index1, e.Index2)
}

// IncompatibleSegmentArraysError means the description being added shares
// segments with exactly one stored description, Index, but the two
// disagree elementwise somewhere within their shared prefix length.
type IncompatibleSegmentArraysError struct{ Index int }

func (e *IncompatibleSegmentArraysError) Error() string {
	return fmt.Sprintf("cartree: overlapped with segment array at index %d, without one being a strict extension of the other", e.Index)
}

// AddStatus classifies the outcome of a successful Add.
type AddStatus int

const (
	// Added means the description didn't intersect any stored one.
	Added AddStatus = iota
	// AlreadyContained means a stored description already covered it
	// (equal length or longer); Payload holds the argument back.
	AlreadyContained
	// Replaced means the description extended a shorter stored one;
	// Payload holds the description that was replaced.
	Replaced
)

// AddResult is the outcome of a successful Add.
type AddResult struct {
	Status  AddStatus
	Payload Description
}

// SegmentArrayTree owns a list of descriptions and an index of all their
// segments for fast intersection queries.
type SegmentArrayTree struct {
	tree  *segmap.SegmentMap[int]
	items []Description
}

// New returns an empty SegmentArrayTree.
func New() *SegmentArrayTree {
	return &SegmentArrayTree{tree: segmap.New[int]()}
}

// SearchIntersecting reports which stored description (if any) every
// segment of d maps to. Returns (nil, nil) if d's segments are all new;
// (&k, nil) if they all map to the same stored index k; an
// *OverlappingSegmentArraysError if they map to two different indexes; or
// an *IntersectingSegmentError if some segment of d partially overlaps a
// stored segment.
func (t *SegmentArrayTree) SearchIntersecting(d Description) (*int, error) {
	var idx *int
	for i := 0; i < d.Len(); i++ {
		s := d.Segment(i)
		v, err := t.tree.Get(s)
		if err != nil {
			var ie *segmap.IntersectError
			if asIntersect(err, &ie) {
				_, ownerVal, ok := t.tree.GetContaining(ie.Witness)
				if !ok {
					panic("cartree: witness point not contained by any stored segment")
				}
				return nil, &IntersectingSegmentError{Owner: *ownerVal}
			}
			return nil, err
		}
		if v == nil {
			continue
		}
		if idx == nil {
			idx = v
		} else if *idx != *v {
			return nil, &OverlappingSegmentArraysError{Index1: *idx, Index2: *v}
		}
	}
	return idx, nil
}

func asIntersect(err error, target **segmap.IntersectError) bool {
	ie, ok := err.(*segmap.IntersectError)
	if ok {
		*target = ie
	}
	return ok
}

// Add inserts d into the tree. On success it never retains a half-added
// description: either every one of d's segments is new and gets recorded
// under a fresh index, or d is rejected/replaces a stored entry as a whole.
func (t *SegmentArrayTree) Add(d Description) (AddResult, error) {
	idx, err := t.SearchIntersecting(d)
	if err != nil {
		return AddResult{}, err
	}

	if idx == nil {
		newIdx := len(t.items)
		t.items = append(t.items, d)
		t.insertSegments(newIdx, d)
		return AddResult{Status: Added}, nil
	}

	existing := t.items[*idx]
	shared := existing.Len()
	if d.Len() < shared {
		shared = d.Len()
	}
	for i := 0; i < shared; i++ {
		if d.Elem(i) != existing.Elem(i) {
			return AddResult{}, &IncompatibleSegmentArraysError{Index: *idx}
		}
	}

	if d.Len() > existing.Len() {
		t.items[*idx] = d
		t.insertNewTail(*idx, existing.Len(), d)
		return AddResult{Status: Replaced, Payload: existing}, nil
	}
	return AddResult{Status: AlreadyContained, Payload: d}, nil
}

func (t *SegmentArrayTree) insertSegments(idx int, d Description) {
	for i := 0; i < d.Len(); i++ {
		entry, err := t.tree.EntryAt(d.Segment(i))
		if err != nil {
			panic("cartree: segment already validated as free, but map rejected it: " + err.Error())
		}
		if entry.Kind() == segmap.Vacant {
			entry.Insert(idx)
		}
	}
}

// insertNewTail records only the segments beyond the previously stored
// description's length — the shared prefix is already indexed under idx.
func (t *SegmentArrayTree) insertNewTail(idx int, from int, d Description) {
	for i := from; i < d.Len(); i++ {
		entry, err := t.tree.EntryAt(d.Segment(i))
		if err != nil {
			panic("cartree: segment already validated as free, but map rejected it: " + err.Error())
		}
		if entry.Kind() == segmap.Vacant {
			entry.Insert(idx)
		}
	}
}

// GetByIndex returns the description stored at idx.
func (t *SegmentArrayTree) GetByIndex(idx int) Description { return t.items[idx] }

// Len returns the number of stored descriptions.
func (t *SegmentArrayTree) Len() int { return len(t.items) }

// All returns every stored description, in insertion order (mutation order
// across Replaced calls aside).
func (t *SegmentArrayTree) All() []Description { return t.items }
