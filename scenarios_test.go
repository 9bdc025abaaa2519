package gosmt

import "testing"

// TestScenarioS1 exercises scenario S1: a fresh 4-byte array x with
// Read(x,0) == 42 constrains Eval(Read(x,0)) to 42 and leaves the
// partition with a single factor whose footprint is {x: {0}}.
func TestScenarioS1(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	solver := NewSolver(eb, DefaultConfig())

	x := eb.ArraySymbol(cache, "x", 4, 32, 8)
	read0, _ := eb.Read(x, eb.BVV(0, 32))
	constraint, err := eb.Eq(read0, eb.BVV(42, 8))
	if err != nil {
		t.Fatal(err)
	}
	if ok := solver.Add(constraint); !ok {
		t.Fatal("constraint should be satisfiable")
	}

	got := solver.Eval(read0)
	if got == nil || got.AsLong() != 42 {
		t.Errorf("Eval(Read(x,0)) = %v, want 42", got)
	}

	factors := solver.cm.FactorsIter()
	if len(factors) != 1 {
		t.Fatalf("expected a single factor, got %d", len(factors))
	}
	whole, offsets := factors[0].BytesFor(x.Array)
	if whole || len(offsets) != 1 || offsets[0] != 0 {
		t.Errorf("expected factor footprint {x: {0}}, got whole=%v offsets=%v", whole, offsets)
	}
}

// TestScenarioS5 exercises scenario S5: adding Eq(0, 1) must be rejected
// and must leave the constraint manager unchanged.
func TestScenarioS5(t *testing.T) {
	eb := NewExprBuilder()
	solver := NewSolver(eb, DefaultConfig())

	contradiction, err := eb.Eq(eb.BVV(0, 8), eb.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}
	if ok := solver.Add(contradiction); ok {
		t.Error("Eq(0, 1) should be rejected")
	}
	if solver.cm.Len() != 0 {
		t.Error("a rejected constraint must leave the manager unchanged")
	}
}

// TestScenarioS6 exercises scenario S6: Not(Not(Ult(x,y))) with
// non-constant x, y canonicalizes to the original Ult(x,y).
func TestScenarioS6(t *testing.T) {
	eb := NewExprBuilder()
	x := eb.BVS("x", 32)
	y := eb.BVS("y", 32)

	ult, err := eb.Ult(x, y)
	if err != nil {
		t.Fatal(err)
	}
	notOnce, err := eb.BoolNot(ult)
	if err != nil {
		t.Fatal(err)
	}
	notTwice, err := eb.BoolNot(notOnce)
	if err != nil {
		t.Fatal(err)
	}

	if notTwice.Id() != ult.Id() {
		t.Errorf("Not(Not(Ult(x,y))) should canonicalize back to Ult(x,y); got %q vs %q",
			notTwice.String(), ult.String())
	}
}
