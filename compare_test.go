package gosmt

import "testing"

func TestStructuralEqualSameBuilderIsPointerIdentity(t *testing.T) {
	eb := NewExprBuilder()
	a := eb.BVS("a", 32)
	b := eb.BVS("a", 32) // same name/width, same builder -> hash-cons hit

	if a.Id() != b.Id() {
		t.Fatal("hash-consing should have returned the same node for identical symbols")
	}
	if !StructuralEqual(a, b) {
		t.Error("expected StructuralEqual to agree with hash-cons identity")
	}
}

func TestStructuralEqualAcrossBuilders(t *testing.T) {
	eb1 := NewExprBuilder()
	eb2 := NewExprBuilder()

	x1, err := eb1.Add(eb1.BVS("a", 32), eb1.BVV(1, 32))
	if err != nil {
		t.Fatal(err)
	}
	x2, err := eb2.Add(eb2.BVS("a", 32), eb2.BVV(1, 32))
	if err != nil {
		t.Fatal(err)
	}

	if x1.Id() == x2.Id() {
		t.Fatal("expressions from different builders should never share a pointer")
	}
	if !StructuralEqual(x1, x2) {
		t.Error("expected structurally identical expressions from different builders to compare equal")
	}
}

func TestStructuralEqualDetectsDifference(t *testing.T) {
	eb := NewExprBuilder()
	a := eb.BVS("a", 32)
	b := eb.BVS("b", 32)

	if StructuralEqual(a, b) {
		t.Error("distinct symbols must not compare equal")
	}
}

func TestCompareGuardClearsCacheOnRelease(t *testing.T) {
	eb1 := NewExprBuilder()
	eb2 := NewExprBuilder()
	x1, _ := eb1.Add(eb1.BVS("a", 32), eb1.BVV(1, 32))
	x2, _ := eb2.Add(eb2.BVS("a", 32), eb2.BVV(1, 32))

	guard := AcquireCompareGuard()
	if !StructuralEqual(x1, x2) {
		t.Fatal("expected equal expressions to compare equal under a guard")
	}
	key := pairKey(x1.Id(), x2.Id())
	equivCacheMu.Lock()
	_, cached := equivCache[key]
	equivCacheMu.Unlock()
	if !cached {
		t.Error("expected the pair to be cached while a guard is held")
	}
	guard.Release()

	equivCacheMu.Lock()
	_, stillCached := equivCache[key]
	equivCacheMu.Unlock()
	if stillCached {
		t.Error("expected the cache to be cleared once the last guard releases")
	}
}
