package gosmt

import "testing"

func TestSingleSubstVisitor(t *testing.T) {
	eb := NewExprBuilder()
	a := eb.BVS("a", 32)
	b := eb.BVS("b", 32)

	expr, err := eb.Add(a, b)
	if err != nil {
		t.Fatal(err)
	}

	r := NewRewriter(eb, &SingleSubstVisitor{Src: a, Dst: eb.BVV(5, 32)})
	rewritten := r.RewriteBV(expr)

	want, err := eb.Add(eb.BVV(5, 32), b)
	if err != nil {
		t.Fatal(err)
	}
	if rewritten.Id() != want.Id() {
		t.Errorf("got %q, want %q", rewritten.String(), want.String())
	}
}

func TestMapSubstVisitor(t *testing.T) {
	eb := NewExprBuilder()
	a := eb.BVS("a", 32)
	b := eb.BVS("b", 32)

	expr, err := eb.Add(a, b)
	if err != nil {
		t.Fatal(err)
	}

	m := map[uintptr]ExprPtr{
		a.Id(): eb.BVV(1, 32),
		b.Id(): eb.BVV(2, 32),
	}
	r := NewRewriter(eb, &MapSubstVisitor{Map: m})
	rewritten := r.RewriteBV(expr)

	if !rewritten.IsConst() {
		t.Fatalf("expected a fully-folded constant, got %q", rewritten.String())
	}
	c, _ := rewritten.GetConst()
	if c.AsLong() != 3 {
		t.Errorf("got %d, want 3", c.AsLong())
	}
}

func TestRewriterMemoizesPerTraversal(t *testing.T) {
	eb := NewExprBuilder()
	a := eb.BVS("a", 32)

	// shared subterm referenced twice
	shared, err := eb.Add(a, eb.BVV(1, 32))
	if err != nil {
		t.Fatal(err)
	}
	expr, err := eb.Add(shared, shared)
	if err != nil {
		t.Fatal(err)
	}

	r := NewRewriter(eb, &SingleSubstVisitor{Src: a, Dst: eb.BVV(10, 32)})
	rewritten := r.RewriteBV(expr)

	want, err := eb.Add(eb.BVV(11, 32), eb.BVV(11, 32))
	if err != nil {
		t.Fatal(err)
	}
	if rewritten.Id() != want.Id() {
		t.Errorf("got %q, want %q", rewritten.String(), want.String())
	}
}
