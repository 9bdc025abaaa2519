package gosmt

import "testing"

func TestIndependentElementSetConcreteOffset(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	ul := eb.ArraySymbol(cache, "x", 4, 32, 8)

	idx := eb.BVV(0, 32)
	readByte, err := eb.Read(ul, idx)
	if err != nil {
		t.Fatal(err)
	}
	eq, err := eb.Eq(readByte, eb.BVV(42, 8))
	if err != nil {
		t.Fatal(err)
	}

	fp := FromExpr(eq)
	whole, offsets := fp.BytesFor(ul.Array)
	if whole {
		t.Error("a concrete-index read should not be whole-object")
	}
	if len(offsets) != 1 || offsets[0] != 0 {
		t.Errorf("expected footprint {0}, got %v", offsets)
	}
}

func TestIndependentElementSetSymbolicIndexIsWholeObject(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	ul := eb.ArraySymbol(cache, "x", 4, 32, 8)

	idxSym := eb.BVS("i", 32)
	readByte, err := eb.Read(ul, idxSym)
	if err != nil {
		t.Fatal(err)
	}
	eq, err := eb.Eq(readByte, eb.BVV(1, 8))
	if err != nil {
		t.Fatal(err)
	}

	fp := FromExpr(eq)
	whole, _ := fp.BytesFor(ul.Array)
	if !whole {
		t.Error("a symbolic-index read should mark the whole array")
	}
}

func TestIndependentElementSetIntersectsAndAdd(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	a := eb.ArraySymbol(cache, "a", 4, 32, 8)
	b := eb.ArraySymbol(cache, "b", 4, 32, 8)

	readA0, _ := eb.Read(a, eb.BVV(0, 32))
	eqA, _ := eb.Eq(readA0, eb.BVV(1, 8))
	fpA := FromExpr(eqA)

	readB3, _ := eb.Read(b, eb.BVV(3, 32))
	eqB, _ := eb.Eq(readB3, eb.BVV(2, 8))
	fpB := FromExpr(eqB)

	if fpA.Intersects(fpB) {
		t.Error("disjoint-array footprints should not intersect")
	}

	merged := fpA.Add(fpB)
	if !merged.Intersects(fpA) || !merged.Intersects(fpB) {
		t.Error("a merged footprint should intersect both constituents")
	}
	if merged.ExprCount != 2 {
		t.Errorf("expected 2 constituent expressions, got %d", merged.ExprCount)
	}
}
