package gosmt

// Assignment is a partial byte-map over arrays plus an evaluator that
// reduces an expression to either a Constant or a partially-simplified
// residual. It is the model verifier:
// after Independent solving produces byte vectors, Verify re-checks every
// source constraint and the negated query against the merged map.
type Assignment struct {
	eb       *ExprBuilder
	bindings map[*ArrayDescriptor]map[uint64]byte
}

func NewAssignment(eb *ExprBuilder) *Assignment {
	return &Assignment{eb: eb, bindings: make(map[*ArrayDescriptor]map[uint64]byte)}
}

// Bind records the byte value at offset within array's materialized model.
func (a *Assignment) Bind(array *ArrayDescriptor, offset uint64, value byte) {
	m, ok := a.bindings[array]
	if !ok {
		m = make(map[uint64]byte)
		a.bindings[array] = m
	}
	m[offset] = value
}

// BindBytes records a whole byte vector for array starting at offset 0.
func (a *Assignment) BindBytes(array *ArrayDescriptor, bytes []byte) {
	for i, b := range bytes {
		a.Bind(array, uint64(i), b)
	}
}

type assignmentVisitor struct {
	baseVisitor
	a *Assignment
}

// resolveOffset reduces index under the assignment and reports its value as
// a byte offset, if it comes out constant.
func (v *assignmentVisitor) resolveOffset(index *BVExprPtr) (uint64, bool) {
	if off, ok := indexAsOffset(index); ok {
		return off, true
	}
	resolved := v.a.Evaluate(index).(*BVExprPtr)
	return indexAsOffset(resolved)
}

func (v *assignmentVisitor) VisitPre(e ExprPtr) Action {
	bv, ok := e.(*BVExprPtr)
	if !ok || bv.Kind() != TY_READ {
		return DoChildren()
	}
	r := bv.getInternal().(*internalBVExprRead)

	off, isConst := v.resolveOffset(r.index)
	if !isConst {
		return DoChildren()
	}

	// Walk the update list from the most recent write backward, mirroring
	// the constant-index walk in ExprBuilder.Read: the first write whose
	// index resolves to the same offset shadows everything older.
	for un := r.ul.Head; un != nil; un = un.Prev {
		wOff, wConst := v.resolveOffset(un.Index)
		if !wConst {
			return DoChildren()
		}
		if wOff == off {
			return ChangeTo(v.a.Evaluate(un.Value).(*BVExprPtr))
		}
	}

	byteMap, ok := v.a.bindings[r.ul.Array]
	if !ok {
		return DoChildren()
	}
	val, ok := byteMap[off]
	if !ok {
		return DoChildren()
	}
	return ChangeTo(v.a.eb.BVV(int64(val), r.ul.Array.RangeWidth))
}

// Evaluate substitutes every Read this assignment can resolve and returns
// the (possibly still-residual) result.
func (a *Assignment) Evaluate(e ExprPtr) ExprPtr {
	r := NewRewriter(a.eb, &assignmentVisitor{a: a})
	switch t := e.(type) {
	case *BVExprPtr:
		return r.RewriteBV(t)
	case *BoolExprPtr:
		return r.RewriteBool(t)
	default:
		panic("Assignment.Evaluate: unknown expression pointer type")
	}
}

// Verify checks every constraint in constraints plus the negated query
// under this assignment; each must reduce to constant-true. A non-constant
// or false result means the solver and the verifier disagree on a model
// it itself produced, treated as a programming invariant violation that
// must fail loudly, so Verify panics rather than returning a recoverable
// error.
func (a *Assignment) Verify(constraints []*BoolExprPtr, negatedQuery *BoolExprPtr) {
	check := func(e *BoolExprPtr) {
		res := a.Evaluate(e).(*BoolExprPtr)
		if !res.IsConst() {
			panic(wrapf(ErrSolverDisagreement, "constraint %q evaluated to non-constant residual %q", e.String(), res.String()))
		}
		v, _ := res.GetConst()
		if !v {
			panic(wrapf(ErrSolverDisagreement, "constraint %q evaluated to false", e.String()))
		}
	}
	for _, c := range constraints {
		check(c)
	}
	if negatedQuery != nil {
		check(negatedQuery)
	}
}

// MaterializeBytes returns one byte per index 0..size-1 for array, using
// the bound value or zero when unreferenced.
func (a *Assignment) MaterializeBytes(array *ArrayDescriptor, size uint) []byte {
	out := make([]byte, size)
	byteMap, ok := a.bindings[array]
	if !ok {
		return out
	}
	for i := range out {
		if v, ok := byteMap[uint64(i)]; ok {
			out[i] = v
		}
	}
	return out
}
