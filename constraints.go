package gosmt

import (
	"github.com/benbjohnson/immutable"
)

type uintptrHasher struct{}

func (uintptrHasher) Hash(key uintptr) uint32 {
	return uint32(key) ^ uint32(key>>32)
}

func (uintptrHasher) Equal(a, b uintptr) bool {
	return a == b
}

// ConstraintManager holds the ordered, deduplicated sequence of assumed-
// true top-level expressions for one execution state, the equalities map
// used for constant-equality substitution, and the independent-set
// partition of the constraint sequence.
type ConstraintManager struct {
	eb  *ExprBuilder
	cfg *Config

	order  *immutable.List[*BoolExprPtr]
	seen   map[uintptr]bool
	equalV *immutable.Map[uintptr, *BVConst] // expr id -> constant, for substitution
	equalE map[uintptr]*BVExprPtr            // expr id -> the rhs BVExprPtr itself, for rewriting

	factors []*IndependentElementSet
}

func NewConstraintManager(eb *ExprBuilder, cfg *Config) *ConstraintManager {
	return &ConstraintManager{
		eb:     eb,
		cfg:    cfg,
		order:  immutable.NewList[*BoolExprPtr](),
		seen:   make(map[uintptr]bool),
		equalV: immutable.NewMap[uintptr, *BVConst](&uintptrHasher{}),
		equalE: make(map[uintptr]*BVExprPtr),
	}
}

// NewConstraintManagerFrom builds a manager already containing exprs, in
// order, applying the same add_constraint machinery to each. It stops at
// the first expr AddConstraint rejects and returns the manager built so
// far, without reporting the rejection.
func NewConstraintManagerFrom(eb *ExprBuilder, cfg *Config, exprs []*BoolExprPtr) (*ConstraintManager, error) {
	cm := NewConstraintManager(eb, cfg)
	for _, e := range exprs {
		ok, err := cm.AddConstraint(e)
		if err != nil {
			return nil, err
		}
		if !ok {
			return cm, nil
		}
	}
	return cm, nil
}

// Clone copies the factor slice and the seen/equalE maps into a fresh
// manager and reshares everything else: the immutable order list, the
// immutable equalities map and the factors themselves (each factor's
// expression list is an immutable.List) are shared with the original.
func (cm *ConstraintManager) Clone() *ConstraintManager {
	seen := make(map[uintptr]bool, len(cm.seen))
	for k, v := range cm.seen {
		seen[k] = v
	}
	equalE := make(map[uintptr]*BVExprPtr, len(cm.equalE))
	for k, v := range cm.equalE {
		equalE[k] = v
	}
	factors := make([]*IndependentElementSet, len(cm.factors))
	copy(factors, cm.factors)
	return &ConstraintManager{
		eb:     cm.eb,
		cfg:    cm.cfg,
		order:  cm.order,
		seen:   seen,
		equalV: cm.equalV,
		equalE: equalE,
		factors: factors,
	}
}

func (cm *ConstraintManager) Len() int {
	return cm.order.Len()
}

func (cm *ConstraintManager) IsEmpty() bool {
	return cm.order.Len() == 0
}

func (cm *ConstraintManager) Iter() []*BoolExprPtr {
	out := make([]*BoolExprPtr, 0, cm.order.Len())
	itr := cm.order.Iterator()
	for !itr.Done() {
		_, e := itr.Next()
		out = append(out, e)
	}
	return out
}

func (cm *ConstraintManager) FactorsIter() []*IndependentElementSet {
	return cm.factors
}

// Simplify returns an equality-substituted version of e with no partition
// side effects.
func (cm *ConstraintManager) Simplify(e ExprPtr) ExprPtr {
	if !cm.cfg.RewriteEqualities || len(cm.equalE) == 0 {
		return e
	}
	m := make(map[uintptr]ExprPtr, len(cm.equalE))
	for id, rhs := range cm.equalE {
		c, _ := cm.equalV.Get(id)
		m[id] = cm.eb.BVV(c.AsLong(), c.Size)
		_ = rhs
	}
	v := &MapSubstVisitor{Map: m}
	r := NewRewriter(cm.eb, v)
	switch t := e.(type) {
	case *BVExprPtr:
		return r.RewriteBV(t)
	case *BoolExprPtr:
		return r.RewriteBool(t)
	default:
		panic("Simplify: unknown expression pointer type")
	}
}

// ReadSimplified builds a Read, first substituting any indices known to
// equal a recorded constant when SimplifySymIndices is enabled — giving
// Read's own constant-index folding rule (expr_builder.go) a better shot
// at short-circuiting against the update list instead of falling back to
// an ITE chain over a symbolic index.
func (cm *ConstraintManager) ReadSimplified(ul UpdateList, index *BVExprPtr) (*BVExprPtr, error) {
	if cm.cfg.SimplifySymIndices {
		index = cm.Simplify(index).(*BVExprPtr)
	}
	return cm.eb.Read(ul, index)
}

// AddConstraint implements add_constraint: simplify against the
// current equalities map; fold constant results; split conjunctions;
// record a new constant equality and rewrite existing constraints when the
// new constraint has the shape Eq(Constant, rhs); finally update the
// factor partition.
func (cm *ConstraintManager) AddConstraint(e *BoolExprPtr) (bool, error) {
	guard := AcquireCompareGuard()
	defer guard.Release()

	simplified := cm.Simplify(e).(*BoolExprPtr)

	if simplified.IsConst() {
		v, _ := simplified.GetConst()
		return v, nil
	}

	if simplified.Kind() == TY_BOOL_AND {
		for _, child := range boolAndOperands(simplified) {
			ok, err := cm.AddConstraint(child)
			if err != nil || !ok {
				return ok, err
			}
		}
		return true, nil
	}

	id := simplified.Id()
	if cm.seen[id] {
		return true, nil
	}

	cm.order = cm.order.Append(simplified)
	cm.seen[id] = true
	cm.insertIntoPartition(simplified)

	if rhsConst, rhsExpr, isEq := equalityConstant(simplified); isEq {
		return cm.recordEqualityAndRewrite(rhsExpr, rhsConst)
	}
	return true, nil
}

func boolAndOperands(e *BoolExprPtr) []*BoolExprPtr {
	inner := e.getInternal().(*internalBoolExprNaryOp)
	return inner.children
}

// equalityConstant detects Eq(Constant, rhs) / Eq(rhs, Constant) at the
// top level. TY_EQ only compares bit-vectors, so there is no boolean
// Eq-of-Eq case to handle.
func equalityConstant(e *BoolExprPtr) (*BVConst, *BVExprPtr, bool) {
	if e.Kind() != TY_EQ {
		return nil, nil, false
	}
	inner := e.getInternal().(*internalBoolExprCmp)
	if inner.lhs.IsConst() && !inner.rhs.IsConst() {
		c, _ := inner.lhs.GetConst()
		return c, inner.rhs, true
	}
	if inner.rhs.IsConst() && !inner.lhs.IsConst() {
		c, _ := inner.rhs.GetConst()
		return c, inner.lhs, true
	}
	return nil, nil, false
}

func (cm *ConstraintManager) recordEqualityAndRewrite(rhs *BVExprPtr, c *BVConst) (bool, error) {
	if !cm.cfg.RewriteEqualities {
		return true, nil
	}
	id := rhs.Id()
	cm.equalV = cm.equalV.Set(id, c)
	cm.equalE[id] = rhs

	m := map[uintptr]ExprPtr{id: cm.eb.BVV(c.AsLong(), c.Size)}
	v := &MapSubstVisitor{Map: m}

	existing := cm.Iter()
	for _, constraint := range existing {
		if constraint.Id() == cm.lastAdded() {
			continue
		}
		r := NewRewriter(cm.eb, v)
		rewritten := r.RewriteBool(constraint)
		if rewritten.Id() != constraint.Id() {
			cm.deleteConstraint(constraint)
			ok, err := cm.AddConstraint(rewritten)
			if err != nil || !ok {
				return ok, err
			}
		}
	}
	return true, nil
}

func (cm *ConstraintManager) lastAdded() uintptr {
	items := cm.Iter()
	if len(items) == 0 {
		return 0
	}
	return items[len(items)-1].Id()
}

// insertIntoPartition implements the partition-maintenance algorithm of
// collect existing factors the new constraint's footprint
// intersects; if exactly one intersects, extend it in place; otherwise
// union every intersecting factor (plus the new constraint) into one and
// drop the absorbed factors.
func (cm *ConstraintManager) insertIntoPartition(e *BoolExprPtr) {
	fp := FromExpr(e)

	var intersecting []int
	for i, f := range cm.factors {
		if f.Intersects(fp) {
			intersecting = append(intersecting, i)
		}
	}

	if len(intersecting) == 0 {
		cm.factors = append(cm.factors, fp)
		return
	}
	if len(intersecting) == 1 {
		idx := intersecting[0]
		cm.factors[idx] = cm.factors[idx].Add(fp)
		return
	}

	merged := fp
	keep := make([]*IndependentElementSet, 0, len(cm.factors)-len(intersecting)+1)
	absorbed := make(map[int]bool, len(intersecting))
	for _, i := range intersecting {
		absorbed[i] = true
		merged = merged.Add(cm.factors[i])
	}
	for i, f := range cm.factors {
		if !absorbed[i] {
			keep = append(keep, f)
		}
	}
	keep = append(keep, merged)
	cm.factors = keep
}

// deleteConstraint implements the rewrite-driven deletion side of §4.4:
// mark the containing factor dirty, drop the deleted constraint, and
// recompute the factor from its remaining expressions by pairwise-merging
// single-expression footprints until fixed point; a re-merge that splits
// into disjoint pieces replaces the old factor with those pieces.
func (cm *ConstraintManager) deleteConstraint(e *BoolExprPtr) {
	delete(cm.seen, e.Id())

	newOrder := immutable.NewList[*BoolExprPtr]()
	itr := cm.order.Iterator()
	for !itr.Done() {
		_, c := itr.Next()
		if c.Id() != e.Id() {
			newOrder = newOrder.Append(c)
		}
	}
	cm.order = newOrder

	for i, f := range cm.factors {
		if !factorContains(f, e) {
			continue
		}
		remaining := make([]*BoolExprPtr, 0, f.ExprCount-1)
		for _, c := range f.ExprList() {
			if c.Id() != e.Id() {
				remaining = append(remaining, c)
			}
		}
		pieces := rebuildFactors(remaining)
		cm.factors = append(cm.factors[:i:i], append(pieces, cm.factors[i+1:]...)...)
		return
	}
}

func factorContains(f *IndependentElementSet, e *BoolExprPtr) bool {
	for _, c := range f.ExprList() {
		if c.Id() == e.Id() {
			return true
		}
	}
	return false
}

// rebuildFactors re-partitions a flat list of constraints from scratch by
// pairwise-merging single-expression footprints until fixed point.
func rebuildFactors(exprs []*BoolExprPtr) []*IndependentElementSet {
	var factors []*IndependentElementSet
	for _, e := range exprs {
		fp := FromExpr(e)
		var intersecting []int
		for i, f := range factors {
			if f.Intersects(fp) {
				intersecting = append(intersecting, i)
			}
		}
		if len(intersecting) == 0 {
			factors = append(factors, fp)
			continue
		}
		merged := fp
		absorbed := make(map[int]bool, len(intersecting))
		for _, i := range intersecting {
			absorbed[i] = true
			merged = merged.Add(factors[i])
		}
		kept := make([]*IndependentElementSet, 0, len(factors))
		for i, f := range factors {
			if !absorbed[i] {
				kept = append(kept, f)
			}
		}
		kept = append(kept, merged)
		factors = kept
	}
	return factors
}
