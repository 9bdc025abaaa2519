package gosmt

import "golang.org/x/xerrors"

// Error kinds exposed by the core. The constraint manager
// recovers Infeasible locally by returning false from AddConstraint; every
// other kind propagates to the caller, who logs and abandons the affected
// execution state.
var (
	ErrInfeasibleConstraint      = xerrors.New("infeasible constraint")
	ErrSolverUnknown             = xerrors.New("solver returned unknown")
	ErrSolverFailure             = xerrors.New("solver backend failure")
	ErrSolverDisagreement        = xerrors.New("model does not satisfy its constraints")
	ErrCanonicalizationViolation = xerrors.New("canonicalization invariant violated")
	ErrCapacity                  = xerrors.New("symbolic array exceeds max-sym-array-size")
)

func wrapf(err error, format string, args ...interface{}) error {
	args = append(args, err)
	return xerrors.Errorf(format+": %w", args...)
}
