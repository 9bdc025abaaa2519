package gosmt

const (
	RESULT_ERROR   = 0
	RESULT_SAT     = 1
	RESULT_UNSAT   = 2
	RESULT_UNKNOWN = 3
)

// solverBackend is the concrete-solver adapter boundary. The
// core never emits solver-specific text; everything beyond this interface
// is the backend's business.
type solverBackend interface {
	clone() solverBackend
	check(query *BoolExprPtr) int
	model() map[string]*BVConst
	modelBytes() map[*ArrayDescriptor]map[uint64]byte
	evalUpto(bv *BVExprPtr, pi *BoolExprPtr, n int) []*BVConst
}

// Solver is the outermost layer of a chain:
// validity cache -> constant-folding shortcut -> equality substitution ->
// independent filter -> concrete backend. substituteQuery/Eval/EvalUpto are
// the query-side equality-substitution layer, gated by cfg.EqualitySubstitution;
// ConstraintManager.AddConstraint/Simplify run the separate, always-on-when-
// RewriteEqualities-set pass that keeps stored constraints substituted. The
// independent filter is IndependentConstraintsFor below; the cache/shortcut
// layers are the early returns in CheckSat/Satisfiable.
type Solver struct {
	eb      *ExprBuilder
	cfg     *Config
	backend solverBackend
	cm      *ConstraintManager

	validityCache map[uintptr]int
}

func NewZ3Solver(eb *ExprBuilder) *Solver {
	return NewSolver(eb, DefaultConfig())
}

func NewSolver(eb *ExprBuilder, cfg *Config) *Solver {
	return &Solver{
		eb:            eb,
		cfg:           cfg,
		backend:       newZ3Backend(),
		cm:            NewConstraintManager(eb, cfg),
		validityCache: make(map[uintptr]int),
	}
}

// Clone performs a deep clone of the factor partition and a shallow
// reshare of constraint-expression references; the concrete
// backend is cloned independently since it owns no cross-state invariants
// this layer needs to preserve.
func (s *Solver) Clone() *Solver {
	return &Solver{
		eb:            s.eb,
		cfg:           s.cfg,
		backend:       s.backend.clone(),
		cm:            s.cm.Clone(),
		validityCache: make(map[uintptr]int),
	}
}

// Add records constraint, returning false if the path is now infeasible
//.
func (s *Solver) Add(constraint *BoolExprPtr) bool {
	ok, err := s.cm.AddConstraint(constraint)
	if err != nil {
		panic(err)
	}
	if ok {
		s.validityCache = make(map[uintptr]int)
	}
	return ok
}

// Pi is the conjunction of every top-level constraint currently recorded.
func (s *Solver) Pi() *BoolExprPtr {
	res := s.eb.BoolVal(true)
	for _, c := range s.cm.Iter() {
		var err error
		res, err = s.eb.BoolAnd(res, c)
		if err != nil {
			panic(err)
		}
	}
	return res
}

// IndependentConstraintsFor implements independent filter: the
// footprint of query selects every factor it intersects, and only those
// factors' constraints are shipped to the inner solver.
func (s *Solver) IndependentConstraintsFor(query ExprPtr) []*BoolExprPtr {
	var fp *IndependentElementSet
	switch q := query.(type) {
	case *BoolExprPtr:
		fp = FromExpr(q)
	case *BVExprPtr:
		dummy, _ := s.eb.Eq(q, q)
		fp = FromExpr(dummy)
	default:
		return s.cm.Iter()
	}

	var out []*BoolExprPtr
	for _, f := range s.cm.FactorsIter() {
		if f.Intersects(fp) {
			out = append(out, f.ExprList()...)
		}
	}
	return out
}

func (s *Solver) piFor(query ExprPtr) *BoolExprPtr {
	constraints := s.IndependentConstraintsFor(query)
	res := s.eb.BoolVal(true)
	for _, c := range constraints {
		var err error
		res, err = s.eb.BoolAnd(res, c)
		if err != nil {
			panic(err)
		}
	}
	return res
}

// Satisfiable checks the full constraint set with no decision query.
func (s *Solver) Satisfiable() int {
	pi := s.Pi()
	if r, ok := s.validityCache[pi.Id()]; ok {
		return r
	}
	r := s.backend.check(pi)
	s.validityCache[pi.Id()] = r
	return r
}

// substituteQuery applies the solver-chain equality layer: when
// cfg.EqualitySubstitution is set, a query handed to the chain (as opposed
// to a stored constraint, which ConstraintManager substitutes on its own
// schedule under RewriteEqualities) is rewritten against the known
// constant-equality map before it reaches the constant-fold shortcut or the
// backend.
func (s *Solver) substituteQuery(e *BoolExprPtr) *BoolExprPtr {
	if !s.cfg.EqualitySubstitution {
		return e
	}
	return s.cm.Simplify(e).(*BoolExprPtr)
}

// CheckSat implements the full chain for a decision query: equality
// substitution, constant-fold shortcut, independent filter, concrete
// backend, validity cache.
func (s *Solver) CheckSat(query *BoolExprPtr) int {
	query = s.substituteQuery(query)

	if query.IsConst() {
		v, _ := query.GetConst()
		if v {
			return RESULT_SAT
		}
		return RESULT_UNSAT
	}

	pi, err := s.eb.BoolAnd(s.piFor(query), query)
	if err != nil {
		panic(err)
	}
	if r, ok := s.validityCache[pi.Id()]; ok {
		return r
	}
	r := s.backend.check(pi)
	s.validityCache[pi.Id()] = r
	return r
}

func (s *Solver) MustBeTrue(query *BoolExprPtr) bool {
	negated, err := s.eb.BoolNot(query)
	if err != nil {
		panic(err)
	}
	return s.CheckSat(negated) == RESULT_UNSAT
}

func (s *Solver) MayBeTrue(query *BoolExprPtr) bool {
	return s.CheckSat(query) == RESULT_SAT
}

func (s *Solver) Model() map[string]*BVConst {
	return s.backend.model()
}

func (s *Solver) Eval(bv *BVExprPtr) *BVConst {
	if s.cfg.EqualitySubstitution {
		bv = s.cm.Simplify(bv).(*BVExprPtr)
	}
	pi := s.piFor(bv)
	res := s.backend.evalUpto(bv, pi, 1)
	if len(res) == 0 {
		return nil
	}
	return res[0]
}

func (s *Solver) EvalUpto(bv *BVExprPtr, n int) []*BVConst {
	if s.cfg.EqualitySubstitution {
		bv = s.cm.Simplify(bv).(*BVExprPtr)
	}
	pi := s.piFor(bv)
	return s.backend.evalUpto(bv, pi, n)
}
