package gosmt

import "testing"

func TestAddConstraintRejectsConstantFalse(t *testing.T) {
	eb := NewExprBuilder()
	cm := NewConstraintManager(eb, DefaultConfig())

	falseEq, err := eb.Eq(eb.BVV(0, 8), eb.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}

	ok, err := cm.AddConstraint(falseEq)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Eq(0, 1) should be rejected as infeasible")
	}
	if cm.Len() != 0 {
		t.Error("a rejected constraint must not be recorded")
	}
}

func TestAddConstraintDedups(t *testing.T) {
	eb := NewExprBuilder()
	cm := NewConstraintManager(eb, DefaultConfig())

	a := eb.BVS("a", 32)
	constraint, err := eb.Eq(a, eb.BVV(1, 32))
	if err != nil {
		t.Fatal(err)
	}

	if ok, err := cm.AddConstraint(constraint); err != nil || !ok {
		t.Fatal("first add should succeed")
	}
	if ok, err := cm.AddConstraint(constraint); err != nil || !ok {
		t.Fatal("second add of the same constraint should be a no-op success")
	}
	if cm.Len() != 1 {
		t.Errorf("expected exactly one recorded constraint, got %d", cm.Len())
	}
}

// TestEqualitySubstitutionRewritesExisting mirrors scenario S2: adding
// Read(a,0) == Read(b,0) then Read(a,0) == 1 should rewrite the first
// constraint into Read(b,0) == 1 via the recorded equality.
func TestEqualitySubstitutionRewritesExisting(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	cm := NewConstraintManager(eb, DefaultConfig())

	a := eb.ArraySymbol(cache, "a", 4, 32, 8)
	b := eb.ArraySymbol(cache, "b", 4, 32, 8)

	readA0, _ := eb.Read(a, eb.BVV(0, 32))
	readB0, _ := eb.Read(b, eb.BVV(0, 32))

	crossEq, err := eb.Eq(readA0, readB0)
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := cm.AddConstraint(crossEq); err != nil || !ok {
		t.Fatal("cross-array equality should be accepted")
	}

	aIsOne, err := eb.Eq(readA0, eb.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := cm.AddConstraint(aIsOne); err != nil || !ok {
		t.Fatal("Read(a,0) == 1 should be accepted")
	}

	foundRewrittenCrossEq := false
	for _, c := range cm.Iter() {
		if isReadEqualToConstant(c, b.Array, 0, 1) {
			foundRewrittenCrossEq = true
		}
	}
	if !foundRewrittenCrossEq {
		t.Errorf("expected the cross-array equality to be rewritten to Read(b,0) == 1, constraints: %v",
			exprStrings(cm.Iter()))
	}

	factors := cm.FactorsIter()
	if len(factors) != 1 {
		t.Fatalf("expected the two constraints to merge into one factor, got %d", len(factors))
	}
	whole, offsets := factors[0].BytesFor(a.Array)
	if whole || len(offsets) != 1 || offsets[0] != 0 {
		t.Errorf("expected factor to touch a[0], got whole=%v offsets=%v", whole, offsets)
	}
	whole, offsets = factors[0].BytesFor(b.Array)
	if whole || len(offsets) != 1 || offsets[0] != 0 {
		t.Errorf("expected factor to touch b[0], got whole=%v offsets=%v", whole, offsets)
	}
}

// TestEqualitySubstitutionFoldsArithmetic mirrors scenario S4: adding
// Read(a,0) + Read(a,1) == 3 then Read(a,0) == 1 should fold the first
// constraint down to Read(a,1) == 2.
func TestEqualitySubstitutionFoldsArithmetic(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	cm := NewConstraintManager(eb, DefaultConfig())

	a := eb.ArraySymbol(cache, "a", 4, 32, 8)
	readA0, _ := eb.Read(a, eb.BVV(0, 32))
	readA1, _ := eb.Read(a, eb.BVV(1, 32))

	sum, err := eb.Add(readA0, readA1)
	if err != nil {
		t.Fatal(err)
	}
	sumEq3, err := eb.Eq(sum, eb.BVV(3, 8))
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := cm.AddConstraint(sumEq3); err != nil || !ok {
		t.Fatal("sum constraint should be accepted")
	}

	a0Eq1, err := eb.Eq(readA0, eb.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := cm.AddConstraint(a0Eq1); err != nil || !ok {
		t.Fatal("Read(a,0) == 1 should be accepted")
	}

	found := false
	for _, c := range cm.Iter() {
		if isReadEqualToConstant(c, a.Array, 1, 2) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the sum constraint to fold to Read(a,1) == 2, constraints: %v",
			exprStrings(cm.Iter()))
	}
}

func exprStrings(es []*BoolExprPtr) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.String()
	}
	return out
}

// isReadEqualToConstant reports whether c is Eq(Read(array,offset), value)
// in either operand order.
func isReadEqualToConstant(c *BoolExprPtr, array *ArrayDescriptor, offset uint64, value int64) bool {
	if c.Kind() != TY_EQ {
		return false
	}
	cmp := c.getInternal().(*internalBoolExprCmp)
	sides := []*BVExprPtr{cmp.lhs, cmp.rhs}
	for i, side := range sides {
		other := sides[1-i]
		if side.Kind() != TY_READ {
			continue
		}
		read := side.getInternal().(*internalBVExprRead)
		if read.ul.Array != array || read.ul.Head != nil {
			continue
		}
		off, isConst := indexAsOffset(read.index)
		if !isConst || off != offset {
			continue
		}
		if !other.IsConst() {
			continue
		}
		c, _ := other.GetConst()
		if c.AsLong() == value {
			return true
		}
	}
	return false
}
