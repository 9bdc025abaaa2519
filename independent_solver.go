package gosmt

import "golang.org/x/exp/slices"

// InitialValues is the outcome of GetInitialValues: either a byte vector
// per requested array (HasSolution true) or no solution at all.
type InitialValues struct {
	HasSolution bool
	Bytes       map[*ArrayDescriptor][]byte
}

// IndependentSolver answers GetInitialValues(constraints, arrays) by
// running the factor partition of a ConstraintManager through one or more
// concrete-solver checks and merging the resulting byte assignments, in
// the manner of KLEE's IndependentSolver.
type IndependentSolver struct {
	eb      *ExprBuilder
	cfg     *Config
	backend solverBackend
}

func NewIndependentSolver(eb *ExprBuilder, cfg *Config) *IndependentSolver {
	return &IndependentSolver{eb: eb, cfg: cfg, backend: newZ3Backend()}
}

// GetInitialValues computes a model for every array in arrays, consistent
// with constraints, using either the per-factor or batch strategy named by
// cfg.IndependentSolverType. Arrays with no constraints touching them get
// an all-zeros vector for arrays nothing references.
func (s *IndependentSolver) GetInitialValues(constraints []*BoolExprPtr, arrays []*ArrayDescriptor) (*InitialValues, error) {
	cm := NewConstraintManager(s.eb, s.cfg)
	for _, c := range constraints {
		ok, err := cm.AddConstraint(c)
		if err != nil {
			return nil, err
		}
		if !ok {
			return &InitialValues{HasSolution: false}, nil
		}
	}

	var out *InitialValues
	var err error
	switch s.cfg.IndependentSolverType {
	case IndependentSolverBatch:
		out, err = s.getInitialValuesBatch(cm, arrays)
	default:
		out, err = s.getInitialValuesPerFactor(cm, arrays)
	}
	if err != nil || out == nil || !out.HasSolution {
		return out, err
	}

	// The merge above drew bytes from as many independent backend calls as
	// there were factors; re-check the full constraint set against the
	// merged map before handing it back, so a merge bug surfaces here
	// rather than as a silently wrong model downstream.
	assign := NewAssignment(s.eb)
	for a, bytes := range out.Bytes {
		assign.BindBytes(a, bytes)
	}
	assign.Verify(constraints, nil)

	return out, nil
}

// getInitialValuesPerFactor solves one factor at a time, restricting each
// check to exactly that factor's constraints; a single factor reporting
// unsat fails the whole query.
func (s *IndependentSolver) getInitialValuesPerFactor(cm *ConstraintManager, arrays []*ArrayDescriptor) (*InitialValues, error) {
	out := &InitialValues{HasSolution: true, Bytes: make(map[*ArrayDescriptor][]byte)}

	for _, a := range arrays {
		out.Bytes[a] = make([]byte, a.Size)
	}

	for _, f := range cm.FactorsIter() {
		exprs := f.ExprList()
		if len(exprs) == 0 {
			continue
		}
		pi := s.eb.BoolVal(true)
		for _, e := range exprs {
			var err error
			pi, err = s.eb.BoolAnd(pi, e)
			if err != nil {
				return nil, err
			}
		}

		r := s.backend.check(pi)
		if r == RESULT_UNSAT {
			return &InitialValues{HasSolution: false}, nil
		}
		if r != RESULT_SAT {
			return nil, wrapf(ErrSolverUnknown, "factor check returned non-definite result")
		}

		modelBytes := s.backend.modelBytes()
		for _, a := range f.ArrayList() {
			target, wanted := out.Bytes[a]
			byteMap, hasModel := modelBytes[a]
			if !wanted {
				continue
			}
			if !hasModel {
				continue
			}
			for off, v := range byteMap {
				if off < uint64(len(target)) {
					target[off] = v
				}
			}
		}
	}

	return out, nil
}

// getInitialValuesBatch solves the requested factors in groups, one backend
// call per group made by chunkFactorsByExprCount. Every byte a call's model
// reports for a requested array is copied into the result; the copy is not
// filtered by the offsets the individual constituent factors reference. A
// factor whose arrays were never referenced by the batch (no requested
// array overlaps it) is skipped rather than asserted against: absence of
// overlap is not an error here, it just means that factor contributes
// nothing to this batch's answer.
func (s *IndependentSolver) getInitialValuesBatch(cm *ConstraintManager, arrays []*ArrayDescriptor) (*InitialValues, error) {
	out := &InitialValues{HasSolution: true, Bytes: make(map[*ArrayDescriptor][]byte)}
	for _, a := range arrays {
		out.Bytes[a] = make([]byte, a.Size)
	}

	wanted := make(map[*ArrayDescriptor]bool, len(arrays))
	for _, a := range arrays {
		wanted[a] = true
	}

	relevant := make([]*IndependentElementSet, 0, len(cm.FactorsIter()))
	for _, f := range cm.FactorsIter() {
		touches := false
		for _, a := range f.ArrayList() {
			if wanted[a] {
				touches = true
				break
			}
		}
		if touches {
			relevant = append(relevant, f)
		}
	}

	slices.SortFunc(relevant, func(a, b *IndependentElementSet) bool {
		return a.ExprCount < b.ExprCount
	})

	for _, chunk := range chunkFactorsByExprCount(relevant, s.cfg.ExprNumThreshold) {
		pi := s.eb.BoolVal(true)
		any := false
		for _, f := range chunk {
			for _, e := range f.ExprList() {
				any = true
				var err error
				pi, err = s.eb.BoolAnd(pi, e)
				if err != nil {
					return nil, err
				}
			}
		}
		if !any {
			continue
		}

		r := s.backend.check(pi)
		if r == RESULT_UNSAT {
			return &InitialValues{HasSolution: false}, nil
		}
		if r != RESULT_SAT {
			return nil, wrapf(ErrSolverUnknown, "batch check returned non-definite result")
		}

		modelBytes := s.backend.modelBytes()
		for a, target := range out.Bytes {
			byteMap, ok := modelBytes[a]
			if !ok {
				continue
			}
			for off, v := range byteMap {
				if off < uint64(len(target)) {
					target[off] = v
				}
			}
		}
	}
	return out, nil
}

// chunkFactorsByExprCount groups factors (already sorted ascending by
// ExprCount) into runs whose combined expression count stays at or below
// threshold, so one batch call's conjunction does not grow past the
// configured solver-call size even when many small factors are relevant.
// A single factor larger than threshold forms a group of its own. A
// non-positive threshold disables chunking (everything in one group).
func chunkFactorsByExprCount(factors []*IndependentElementSet, threshold int) [][]*IndependentElementSet {
	if threshold <= 0 {
		return [][]*IndependentElementSet{factors}
	}
	var groups [][]*IndependentElementSet
	var cur []*IndependentElementSet
	count := 0
	for _, f := range factors {
		if count > 0 && count+f.ExprCount > threshold {
			groups = append(groups, cur)
			cur = nil
			count = 0
		}
		cur = append(cur, f)
		count += f.ExprCount
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}
