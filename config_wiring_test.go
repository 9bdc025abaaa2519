package gosmt

import (
	"testing"

	"golang.org/x/xerrors"
)

func TestReadSimplifiedFoldsKnownIndex(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	cfg := DefaultConfig()
	cfg.SimplifySymIndices = true
	cm := NewConstraintManager(eb, cfg)

	a := eb.ArraySymbol(cache, "a", 8, 32, 8)
	i := eb.BVS("i", 32)
	iEq2, err := eb.Eq(i, eb.BVV(2, 32))
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := cm.AddConstraint(iEq2); err != nil || !ok {
		t.Fatal("i == 2 should be accepted")
	}

	read, err := cm.ReadSimplified(a, i)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := eb.Read(a, eb.BVV(2, 32))
	if read.Id() != want.Id() {
		t.Errorf("expected ReadSimplified to fold the index to the known constant, got %q want %q",
			read.String(), want.String())
	}
}

func TestReadSimplifiedNoopWhenDisabled(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	cfg := DefaultConfig()
	cfg.SimplifySymIndices = false
	cm := NewConstraintManager(eb, cfg)

	a := eb.ArraySymbol(cache, "a", 8, 32, 8)
	i := eb.BVS("i", 32)
	iEq2, _ := eb.Eq(i, eb.BVV(2, 32))
	if ok, err := cm.AddConstraint(iEq2); err != nil || !ok {
		t.Fatal("i == 2 should be accepted")
	}

	read, err := cm.ReadSimplified(a, i)
	if err != nil {
		t.Fatal(err)
	}
	plain, _ := eb.Read(a, i)
	if read.Id() != plain.Id() {
		t.Error("expected ReadSimplified to behave like a plain Read when disabled")
	}
}

func TestNewLimitedArraySymbolRejectsOversize(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	cfg := DefaultConfig()
	cfg.MaxSymArraySize = 4

	_, err := NewLimitedArraySymbol(eb, cfg, cache, "big", 5, 32, 8)
	if err == nil {
		t.Fatal("expected an error for an array past the configured limit")
	}
	if !xerrors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity, got %v", err)
	}
}

func TestNewLimitedArraySymbolAcceptsWithinLimit(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	cfg := DefaultConfig()
	cfg.MaxSymArraySize = 4

	ul, err := NewLimitedArraySymbol(eb, cfg, cache, "small", 4, 32, 8)
	if err != nil {
		t.Fatal(err)
	}
	if ul.Array.Size != 4 {
		t.Errorf("got size %d, want 4", ul.Array.Size)
	}
}

func TestChunkFactorsByExprCountRespectsThreshold(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	arrays := make([]*ArrayDescriptor, 5)
	factors := make([]*IndependentElementSet, 5)
	for i := range arrays {
		arr := eb.ArraySymbol(cache, string(rune('a'+i)), 4, 32, 8)
		arrays[i] = arr.Array
		read, _ := eb.Read(arr, eb.BVV(0, 32))
		eq, _ := eb.Eq(read, eb.BVV(int64(i), 8))
		factors[i] = FromExpr(eq)
	}

	groups := chunkFactorsByExprCount(factors, 2)
	total := 0
	for _, g := range groups {
		count := 0
		for _, f := range g {
			count += f.ExprCount
		}
		if count > 2 {
			t.Errorf("group exceeds threshold: %d > 2", count)
		}
		total += len(g)
	}
	if total != len(factors) {
		t.Errorf("expected all %d factors distributed across groups, got %d", len(factors), total)
	}
}

// recordingBackend captures the query it was last asked to check, so tests
// can assert on what reached the backend without needing a real solver.
type recordingBackend struct {
	lastQuery *BoolExprPtr
}

func (b *recordingBackend) clone() solverBackend { return b }
func (b *recordingBackend) check(query *BoolExprPtr) int {
	b.lastQuery = query
	return RESULT_SAT
}
func (b *recordingBackend) model() map[string]*BVConst                               { return nil }
func (b *recordingBackend) modelBytes() map[*ArrayDescriptor]map[uint64]byte         { return nil }
func (b *recordingBackend) evalUpto(bv *BVExprPtr, pi *BoolExprPtr, n int) []*BVConst { return nil }

func newSolverWithRecordingBackend(cfg *Config) (*Solver, *recordingBackend) {
	eb := NewExprBuilder()
	backend := &recordingBackend{}
	s := &Solver{
		eb:            eb,
		cfg:           cfg,
		backend:       backend,
		cm:            NewConstraintManager(eb, cfg),
		validityCache: make(map[uintptr]int),
	}
	return s, backend
}

func TestEqualitySubstitutionRewritesQueryBeforeBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EqualitySubstitution = true
	s, backend := newSolverWithRecordingBackend(cfg)
	eb := s.eb

	a := eb.BVS("a", 32)
	eq, _ := eb.Eq(a, eb.BVV(7, 32))
	if !s.Add(eq) {
		t.Fatal("expected a == 7 to be accepted")
	}

	b := eb.BVS("b", 32)
	query, _ := eb.Ule(b, a)
	s.CheckSat(query)

	if backend.lastQuery == nil {
		t.Fatal("expected the query to reach the backend")
	}
	if containsExpr(eb, backend.lastQuery, a) {
		t.Error("expected the solver-chain equality layer to substitute a's known value out of the query")
	}
}

func TestEqualitySubstitutionOffLeavesQueryAlone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EqualitySubstitution = false
	s, backend := newSolverWithRecordingBackend(cfg)
	eb := s.eb

	a := eb.BVS("a", 32)
	eq, _ := eb.Eq(a, eb.BVV(7, 32))
	if !s.Add(eq) {
		t.Fatal("expected a == 7 to be accepted")
	}

	b := eb.BVS("b", 32)
	query, _ := eb.Ule(b, a)
	s.CheckSat(query)

	if backend.lastQuery == nil {
		t.Fatal("expected the query to reach the backend")
	}
	if !containsExpr(eb, backend.lastQuery, a) {
		t.Error("expected the query to reach the backend unsubstituted when EqualitySubstitution is off")
	}
}

// containsExpr reports whether target (identified by its hash-consed Id)
// occurs anywhere in e.
func containsExpr(eb *ExprBuilder, e *BoolExprPtr, target *BVExprPtr) bool {
	found := false
	v := &scanVisitor{fn: func(ep ExprPtr) {
		if bv, ok := ep.(*BVExprPtr); ok && bv.Id() == target.Id() {
			found = true
		}
	}}
	r := NewRewriter(eb, v)
	r.RewriteBool(e)
	return found
}

type scanVisitor struct {
	baseVisitor
	fn func(ExprPtr)
}

func (v *scanVisitor) VisitPre(e ExprPtr) Action {
	v.fn(e)
	return DoChildren()
}

func TestChunkFactorsByExprCountZeroThresholdIsOneGroup(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	arr := eb.ArraySymbol(cache, "a", 4, 32, 8)
	read, _ := eb.Read(arr, eb.BVV(0, 32))
	eq, _ := eb.Eq(read, eb.BVV(1, 8))
	factors := []*IndependentElementSet{FromExpr(eq)}

	groups := chunkFactorsByExprCount(factors, 0)
	if len(groups) != 1 {
		t.Errorf("expected chunking disabled (one group) for a non-positive threshold, got %d groups", len(groups))
	}
}
