package gosmt

import "testing"

func TestUpdateListExtendSharesTail(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	ul := eb.ArraySymbol(cache, "a", 4, 32, 8)

	ul1 := ul.Write_(eb, 0, 0xAA)
	ul2 := ul1.Write_(eb, 1, 0xBB)

	if ul2.Head.Prev != ul1.Head {
		t.Error("Extend should share the prior chain, not copy it")
	}
	if ul2.Head.Len() != 2 {
		t.Errorf("expected chain length 2, got %d", ul2.Head.Len())
	}
	if ul1.Head.Len() != 1 {
		t.Errorf("expected chain length 1, got %d", ul1.Head.Len())
	}
}

func TestUpdateListHashStable(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	ul := eb.ArraySymbol(cache, "a", 4, 32, 8)

	ul1 := ul.Write_(eb, 0, 0xAA)
	ul2 := ul.Write_(eb, 0, 0xAA)

	if ul1.Hash() != ul2.Hash() {
		t.Error("two update lists built the same way should hash the same")
	}
}

// Write_ is a small test helper around eb.Write for literal index/value
// pairs, avoiding repetitive eb.BVV calls in every test case.
func (ul UpdateList) Write_(eb *ExprBuilder, index, value int64) UpdateList {
	idx := eb.BVV(index, ul.Array.DomainWidth)
	val := eb.BVV(value, ul.Array.RangeWidth)
	return eb.Write(ul, idx, val)
}
