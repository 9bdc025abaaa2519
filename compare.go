package gosmt

import (
	"sync"
	"sync/atomic"
)

// compareGuard is a scope-guard token for the process-wide structural-
// equality pair cache used by StructuralEqual. While at least one guard is
// outstanding, pairs of nodes found equal by a full recursive comparison
// are remembered so a DAG with heavy sharing doesn't pay for the same deep
// comparison twice during one pass. The cache is discarded the moment the
// last guard is released, since a node's canonical pointer can be reused
// by the hash-cons allocator once the finalizer-driven refcount in
// expr_builder.go drops it.
type compareGuard struct{}

var compareGuardHolders int64

var (
	equivCacheMu sync.Mutex
	equivCache   = make(map[[2]uintptr]bool)
)

// AcquireCompareGuard marks the start of a region that may perform many
// structural comparisons (a single rewrite pass, a single AddConstraint
// call). Callers must Release the returned guard when the region ends.
func AcquireCompareGuard() *compareGuard {
	atomic.AddInt64(&compareGuardHolders, 1)
	return &compareGuard{}
}

func (g *compareGuard) Release() {
	if atomic.AddInt64(&compareGuardHolders, -1) == 0 {
		equivCacheMu.Lock()
		equivCache = make(map[[2]uintptr]bool)
		equivCacheMu.Unlock()
	}
}

func pairKey(a, b uintptr) [2]uintptr {
	if a < b {
		return [2]uintptr{a, b}
	}
	return [2]uintptr{b, a}
}

// compareCached implements spec's "first compares hashes; on tie compares
// kinds; on tie ... recurses" rule, consulting/populating the pair cache
// only while a comparison guard is held.
func compareCached(pa, pb uintptr, ha, hb uint64, ka, kb int, deep func() bool) bool {
	if pa == pb {
		return true
	}
	if ha != hb || ka != kb {
		return false
	}

	guarded := atomic.LoadInt64(&compareGuardHolders) > 0
	key := pairKey(pa, pb)
	if guarded {
		equivCacheMu.Lock()
		if eq, ok := equivCache[key]; ok {
			equivCacheMu.Unlock()
			return eq
		}
		equivCacheMu.Unlock()
	}

	eq := deep()

	if guarded {
		equivCacheMu.Lock()
		equivCache[key] = eq
		equivCacheMu.Unlock()
	}
	return eq
}

// structuralEqualBV is the authoritative equality check backing the
// bit-vector hash-cons bucket scan: shallowEq's children-pointer check
// handles the overwhelming common case where both sides were already
// built from canonical (hash-consed) children, falling back to a full
// recursive deepEq only when that fast path disagrees.
func structuralEqualBV(a, b internalBVExpr) bool {
	if a.rawPtr() == b.rawPtr() {
		return true
	}
	if a.hash() != b.hash() || a.kind() != b.kind() {
		return false
	}
	if a.shallowEq(b) {
		return true
	}
	return compareCached(a.rawPtr(), b.rawPtr(), a.hash(), b.hash(), a.kind(), b.kind(), func() bool {
		return a.deepEq(b)
	})
}

func structuralEqualBool(a, b internalBoolExpr) bool {
	if a.rawPtr() == b.rawPtr() {
		return true
	}
	if a.hash() != b.hash() || a.kind() != b.kind() {
		return false
	}
	if a.shallowEq(b) {
		return true
	}
	return compareCached(a.rawPtr(), b.rawPtr(), a.hash(), b.hash(), a.kind(), b.kind(), func() bool {
		return a.deepEq(b)
	})
}

// StructuralEqual decides whether two expressions denote the same term,
// independent of whether they were hash-consed through the same
// ExprBuilder. Two expressions built by the same builder are always
// pointer-equal when structurally equal (the hash-cons invariant), so this
// only does real work when comparing terms from different builders.
func StructuralEqual(a, b ExprPtr) bool {
	switch av := a.(type) {
	case *BVExprPtr:
		bv, ok := b.(*BVExprPtr)
		return ok && structuralEqualBV(av.e, bv.e)
	case *BoolExprPtr:
		bb, ok := b.(*BoolExprPtr)
		return ok && structuralEqualBool(av.e, bb.e)
	default:
		return false
	}
}
