package gosmt

import "testing"

// TestGetInitialValuesPerFactor mirrors scenario S3: two independent
// constraints over two different arrays produce two single-constraint
// factors, and GetInitialValues fills exactly the referenced bytes.
func TestGetInitialValuesPerFactor(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	cfg := DefaultConfig()
	cfg.IndependentSolverType = IndependentSolverPerFactor

	a := eb.ArraySymbol(cache, "a", 4, 32, 8)
	b := eb.ArraySymbol(cache, "b", 4, 32, 8)

	readA0, _ := eb.Read(a, eb.BVV(0, 32))
	aEq1, _ := eb.Eq(readA0, eb.BVV(1, 8))

	readB3, _ := eb.Read(b, eb.BVV(3, 32))
	bEq2, _ := eb.Eq(readB3, eb.BVV(2, 8))

	is := NewIndependentSolver(eb, cfg)
	res, err := is.GetInitialValues([]*BoolExprPtr{aEq1, bEq2}, []*ArrayDescriptor{a.Array, b.Array})
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasSolution {
		t.Fatal("expected a solution")
	}

	if res.Bytes[a.Array][0] != 1 {
		t.Errorf("expected a[0] == 1, got %d", res.Bytes[a.Array][0])
	}
	if res.Bytes[b.Array][3] != 2 {
		t.Errorf("expected b[3] == 2, got %d", res.Bytes[b.Array][3])
	}
	for i, v := range res.Bytes[a.Array] {
		if i != 0 && v != 0 {
			t.Errorf("expected a[%d] == 0, got %d", i, v)
		}
	}
}

func TestGetInitialValuesUnsatFactorFails(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()
	cfg := DefaultConfig()

	a := eb.ArraySymbol(cache, "a", 4, 32, 8)
	readA0, _ := eb.Read(a, eb.BVV(0, 32))
	aEq1, _ := eb.Eq(readA0, eb.BVV(1, 8))
	aEq2, _ := eb.Eq(readA0, eb.BVV(2, 8))

	is := NewIndependentSolver(eb, cfg)
	res, err := is.GetInitialValues([]*BoolExprPtr{aEq1, aEq2}, []*ArrayDescriptor{a.Array})
	if err != nil {
		t.Fatal(err)
	}
	if res.HasSolution {
		t.Error("Read(a,0) == 1 && Read(a,0) == 2 has no solution")
	}
}

func TestGetInitialValuesBatchMatchesPerFactor(t *testing.T) {
	eb := NewExprBuilder()
	cache := NewArrayCache()

	a := eb.ArraySymbol(cache, "a", 4, 32, 8)
	b := eb.ArraySymbol(cache, "b", 4, 32, 8)

	readA0, _ := eb.Read(a, eb.BVV(0, 32))
	aEq1, _ := eb.Eq(readA0, eb.BVV(1, 8))

	readB3, _ := eb.Read(b, eb.BVV(3, 32))
	bEq2, _ := eb.Eq(readB3, eb.BVV(2, 8))

	constraints := []*BoolExprPtr{aEq1, bEq2}
	arrays := []*ArrayDescriptor{a.Array, b.Array}

	batchCfg := DefaultConfig()
	batchCfg.IndependentSolverType = IndependentSolverBatch
	batchSolver := NewIndependentSolver(eb, batchCfg)
	batchRes, err := batchSolver.GetInitialValues(constraints, arrays)
	if err != nil {
		t.Fatal(err)
	}
	if !batchRes.HasSolution {
		t.Fatal("expected a solution in batch mode")
	}
	if batchRes.Bytes[a.Array][0] != 1 || batchRes.Bytes[b.Array][3] != 2 {
		t.Errorf("batch mode produced wrong bytes: a=%v b=%v", batchRes.Bytes[a.Array], batchRes.Bytes[b.Array])
	}
}
