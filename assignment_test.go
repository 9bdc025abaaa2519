package gosmt

import "testing"

func TestAssignmentEvaluateSubstitutesBoundReads(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	a := eb.ArraySymbol(cache, "a", 4, 32, 8)

	read0, _ := eb.Read(a, eb.BVV(0, 32))
	read1, _ := eb.Read(a, eb.BVV(1, 32))
	sum, err := eb.Add(read0, read1)
	if err != nil {
		t.Fatal(err)
	}

	assign := NewAssignment(eb)
	assign.Bind(a.Array, 0, 3)
	assign.Bind(a.Array, 1, 4)

	res := assign.Evaluate(sum).(*BVExprPtr)
	if !res.IsConst() {
		t.Fatalf("expected a fully-resolved constant, got %q", res.String())
	}
	c, _ := res.GetConst()
	if c.AsLong() != 7 {
		t.Errorf("got %d, want 7", c.AsLong())
	}
}

func TestAssignmentEvaluateLeavesUnboundReadsResidual(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	a := eb.ArraySymbol(cache, "a", 4, 32, 8)

	read0, _ := eb.Read(a, eb.BVV(0, 32))
	assign := NewAssignment(eb)

	res := assign.Evaluate(read0).(*BVExprPtr)
	if res.IsConst() {
		t.Error("an unbound read should remain residual")
	}
}

func TestAssignmentEvaluateResolvesReadOverWrite(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	a := eb.ArraySymbol(cache, "a", 4, 32, 8)

	written := eb.Write(a, eb.BVV(2, 32), eb.BVV(0xAA, 8))
	readWritten, _ := eb.Read(written, eb.BVV(2, 32))
	readUntouched, _ := eb.Read(written, eb.BVV(0, 32))

	assign := NewAssignment(eb)
	assign.Bind(a.Array, 0, 5)
	assign.Bind(a.Array, 2, 0xFF) // must be shadowed by the write's own value

	res := assign.Evaluate(readWritten).(*BVExprPtr)
	if !res.IsConst() {
		t.Fatalf("expected the write's value to resolve the read, got %q", res.String())
	}
	c, _ := res.GetConst()
	if c.AsLong() != 0xAA {
		t.Errorf("got %d, want 0xAA (the write's value, not the stale binding)", c.AsLong())
	}

	res = assign.Evaluate(readUntouched).(*BVExprPtr)
	if !res.IsConst() {
		t.Fatalf("expected the pre-write binding to resolve the read, got %q", res.String())
	}
	c, _ = res.GetConst()
	if c.AsLong() != 5 {
		t.Errorf("got %d, want 5", c.AsLong())
	}
}

func TestAssignmentVerifyPanicsOnDisagreement(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	a := eb.ArraySymbol(cache, "a", 4, 32, 8)
	read0, _ := eb.Read(a, eb.BVV(0, 32))
	eq1, err := eb.Eq(read0, eb.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}

	assign := NewAssignment(eb)
	assign.Bind(a.Array, 0, 9) // deliberately wrong

	defer func() {
		if r := recover(); r == nil {
			t.Error("Verify should panic when the assignment disagrees with the constraint")
		}
	}()
	assign.Verify([]*BoolExprPtr{eq1}, nil)
}

func TestAssignmentVerifyAcceptsConsistentModel(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	a := eb.ArraySymbol(cache, "a", 4, 32, 8)
	read0, _ := eb.Read(a, eb.BVV(0, 32))
	eq1, err := eb.Eq(read0, eb.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}

	assign := NewAssignment(eb)
	assign.Bind(a.Array, 0, 1)

	assign.Verify([]*BoolExprPtr{eq1}, nil) // should not panic
}

func TestAssignmentMaterializeBytesZeroFillsUnbound(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	a := eb.ArraySymbol(cache, "a", 4, 32, 8)

	assign := NewAssignment(eb)
	assign.Bind(a.Array, 2, 0xAB)

	bytes := assign.MaterializeBytes(a.Array, 4)
	want := []byte{0, 0, 0xAB, 0}
	for i := range want {
		if bytes[i] != want[i] {
			t.Errorf("byte %d: got %#x, want %#x", i, bytes[i], want[i])
		}
	}
}
