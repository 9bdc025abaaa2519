package gosmt

import (
	"github.com/benbjohnson/immutable"
)

// byteIndexHasher hashes the keys of the dense per-array byte-index sets
// (arrayFootprint.Bytes), which use an immutable.Map keyed by byte offset
// rather than a plain Go map so that add()/intersects() can share storage
// across clones the way the constraint manager's §5 "shallow reshare"
// contract requires.
type byteIndexHasher struct{}

func (byteIndexHasher) Hash(key uint64) uint32 {
	return uint32(key) ^ uint32(key>>32)
}

func (byteIndexHasher) Equal(a, b uint64) bool {
	return a == b
}

// arrayFootprint is one array's contribution to an IndependentElementSet:
// either a dense set of concrete byte offsets, or WholeObject covering
// every offset (set when the array is touched at a symbolic index).
type arrayFootprint struct {
	WholeObject bool
	Bytes       *immutable.Map[uint64, struct{}]
}

func newArrayFootprint() *arrayFootprint {
	return &arrayFootprint{Bytes: immutable.NewMap[uint64, struct{}](&byteIndexHasher{})}
}

func (f *arrayFootprint) withByte(off uint64) *arrayFootprint {
	if f.WholeObject {
		return f
	}
	return &arrayFootprint{WholeObject: false, Bytes: f.Bytes.Set(off, struct{}{})}
}

func (f *arrayFootprint) withWholeObject() *arrayFootprint {
	return &arrayFootprint{WholeObject: true, Bytes: f.Bytes}
}

func (f *arrayFootprint) intersects(other *arrayFootprint) bool {
	if f.WholeObject || other.WholeObject {
		return true
	}
	itr := f.Bytes.Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		if _, ok := other.Bytes.Get(k); ok {
			return true
		}
	}
	return false
}

func (f *arrayFootprint) union(other *arrayFootprint) *arrayFootprint {
	if f.WholeObject || other.WholeObject {
		return &arrayFootprint{WholeObject: true}
	}
	merged := f.Bytes
	itr := other.Bytes.Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		merged = merged.Set(k, struct{}{})
	}
	return &arrayFootprint{Bytes: merged}
}

// IndependentElementSet is the footprint of an expression or a set of
// expressions over arrays and byte indices, plus the list
// of constituent expressions so a factor can report its own constraints.
type IndependentElementSet struct {
	Arrays    map[*ArrayDescriptor]*arrayFootprint
	Exprs     *immutable.List[*BoolExprPtr]
	ExprCount int
}

func NewIndependentElementSet() *IndependentElementSet {
	return &IndependentElementSet{
		Arrays: make(map[*ArrayDescriptor]*arrayFootprint),
		Exprs:  immutable.NewList[*BoolExprPtr](),
	}
}

// FromExpr scans e's DAG for Read nodes, recording a concrete byte offset
// when the read index folds to a constant and marking the whole array
// touched otherwise.
func FromExpr(e *BoolExprPtr) *IndependentElementSet {
	s := NewIndependentElementSet()
	s.Exprs = s.Exprs.Append(e)
	s.ExprCount = 1
	s.scan(e.getInternal())
	return s
}

func (s *IndependentElementSet) scan(e internalExpr) {
	visited := make(map[uintptr]bool)
	var walk func(internalExpr)
	walk = func(n internalExpr) {
		if visited[n.rawPtr()] {
			return
		}
		visited[n.rawPtr()] = true
		if n.kind() == TY_READ {
			r := n.(*internalBVExprRead)
			s.recordRead(r)
			s.scan(r.index.e)
			for un := r.ul.Head; un != nil; un = un.Prev {
				walk(un.Index.e)
				walk(un.Value.e)
			}
			return
		}
		for _, c := range n.subexprs() {
			walk(c)
		}
	}
	walk(e)
}

func (s *IndependentElementSet) recordRead(r *internalBVExprRead) {
	fp, ok := s.Arrays[r.ul.Array]
	if !ok {
		fp = newArrayFootprint()
	}
	if idx, isConst := indexAsOffset(r.index); isConst {
		fp = fp.withByte(idx)
	} else {
		fp = fp.withWholeObject()
	}
	s.Arrays[r.ul.Array] = fp
}

func indexAsOffset(index *BVExprPtr) (uint64, bool) {
	if index.Kind() != TY_CONST {
		return 0, false
	}
	c, _ := index.GetConst()
	if !c.FitInLong() {
		return 0, false
	}
	return c.AsULong(), true
}

// Intersects reports true iff some array appears in both sets, either as
// whole-object on either side or with overlapping byte-sets.
func (s *IndependentElementSet) Intersects(other *IndependentElementSet) bool {
	for arr, fp := range s.Arrays {
		if ofp, ok := other.Arrays[arr]; ok && fp.intersects(ofp) {
			return true
		}
	}
	return false
}

// Add unions other into s: byte-sets merge, whole-object dominates, and the
// constituent expression lists concatenate.
func (s *IndependentElementSet) Add(other *IndependentElementSet) *IndependentElementSet {
	merged := &IndependentElementSet{
		Arrays:    make(map[*ArrayDescriptor]*arrayFootprint, len(s.Arrays)+len(other.Arrays)),
		Exprs:     s.Exprs,
		ExprCount: s.ExprCount,
	}
	for arr, fp := range s.Arrays {
		merged.Arrays[arr] = fp
	}
	for arr, fp := range other.Arrays {
		if existing, ok := merged.Arrays[arr]; ok {
			merged.Arrays[arr] = existing.union(fp)
		} else {
			merged.Arrays[arr] = fp
		}
	}
	itr := other.Exprs.Iterator()
	for !itr.Done() {
		_, e := itr.Next()
		merged.Exprs = merged.Exprs.Append(e)
		merged.ExprCount++
	}
	return merged
}

// ArrayList reports the set of arrays this footprint touches.
func (s *IndependentElementSet) ArrayList() []*ArrayDescriptor {
	out := make([]*ArrayDescriptor, 0, len(s.Arrays))
	for a := range s.Arrays {
		out = append(out, a)
	}
	return out
}

// BytesFor reports, for a single array, whether the footprint covers the
// whole object and which concrete offsets it names otherwise.
func (s *IndependentElementSet) BytesFor(a *ArrayDescriptor) (whole bool, offsets []uint64) {
	fp, ok := s.Arrays[a]
	if !ok {
		return false, nil
	}
	if fp.WholeObject {
		return true, nil
	}
	itr := fp.Bytes.Iterator()
	for !itr.Done() {
		k, _, _ := itr.Next()
		offsets = append(offsets, k)
	}
	return false, offsets
}

func (s *IndependentElementSet) ExprList() []*BoolExprPtr {
	out := make([]*BoolExprPtr, 0, s.ExprCount)
	itr := s.Exprs.Iterator()
	for !itr.Done() {
		_, e := itr.Next()
		out = append(out, e)
	}
	return out
}
