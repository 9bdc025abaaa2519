package gosmt

import (
	"context"
	"sync/atomic"
	"time"
)

// SolverChain wraps a Solver with a deadline and a cooperative cancellation
// flag, giving callers set_timeout/cancel control over how long a single
// concrete-solver call may run without reaching into the backend adapter
// itself. Timeout is honored by racing the backend call against a timer;
// go-z3's Go binding does not expose mid-check interruption, so an expired
// deadline reports RESULT_UNKNOWN and abandons (rather than kills) the
// still-running goroutine.
type SolverChain struct {
	solver    *Solver
	timeout   time.Duration
	cancelled int32

	// pending closes once a previously abandoned call's goroutine actually
	// returns. The next call on this chain waits on it before touching the
	// Solver/backend again, so two calls never run concurrently against
	// the single-threaded, unlocked contract even after a timeout.
	pending chan struct{}
}

func NewSolverChain(solver *Solver) *SolverChain {
	return &SolverChain{solver: solver, timeout: solver.cfg.CoreSolverTimeout}
}

func (c *SolverChain) SetTimeout(d time.Duration) {
	c.timeout = d
}

// Cancel marks every call still in flight or issued afterward as
// cancelled; a cancelled call returns RESULT_UNKNOWN without touching the
// backend. The flag is sticky until reset via a fresh SolverChain.
func (c *SolverChain) Cancel() {
	atomic.StoreInt32(&c.cancelled, 1)
}

func (c *SolverChain) cancelled_() bool {
	return atomic.LoadInt32(&c.cancelled) != 0
}

func (c *SolverChain) Add(constraint *BoolExprPtr) bool {
	return c.solver.Add(constraint)
}

func (c *SolverChain) Clone() *SolverChain {
	return &SolverChain{solver: c.solver.Clone(), timeout: c.timeout}
}

// awaitPrevious blocks until any call abandoned by a prior timeout on this
// chain has actually returned. Without this, a caller that keeps issuing
// queries on a chain that just timed out would race its own abandoned
// goroutine against the next call over the shared Solver/backend state.
func (c *SolverChain) awaitPrevious() {
	if c.pending != nil {
		<-c.pending
		c.pending = nil
	}
}

// runWithDeadline runs fn under c.timeout, returning onTimeout's value if
// the deadline elapses first. fn keeps running to completion in its own
// goroutine even after the deadline fires, but c.pending records when it
// does so the chain's next call can wait for it rather than overlap it.
func runWithDeadline[T any](c *SolverChain, ctx context.Context, timeout time.Duration, fn func() T, onTimeout T) T {
	c.awaitPrevious()
	if timeout <= 0 {
		return fn()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan T, 1)
	go func() { done <- fn() }()

	select {
	case v := <-done:
		return v
	case <-ctx.Done():
		ready := make(chan struct{})
		go func() {
			<-done
			close(ready)
		}()
		c.pending = ready
		return onTimeout
	}
}

func (c *SolverChain) Satisfiable() int {
	if c.cancelled_() {
		return RESULT_UNKNOWN
	}
	return runWithDeadline(c, context.Background(), c.timeout, c.solver.Satisfiable, RESULT_UNKNOWN)
}

func (c *SolverChain) CheckSat(query *BoolExprPtr) int {
	if c.cancelled_() {
		return RESULT_UNKNOWN
	}
	return runWithDeadline(c, context.Background(), c.timeout, func() int {
		return c.solver.CheckSat(query)
	}, RESULT_UNKNOWN)
}

func (c *SolverChain) MustBeTrue(query *BoolExprPtr) bool {
	if c.cancelled_() {
		return false
	}
	return runWithDeadline(c, context.Background(), c.timeout, func() bool {
		return c.solver.MustBeTrue(query)
	}, false)
}

func (c *SolverChain) MayBeTrue(query *BoolExprPtr) bool {
	if c.cancelled_() {
		return false
	}
	return runWithDeadline(c, context.Background(), c.timeout, func() bool {
		return c.solver.MayBeTrue(query)
	}, false)
}

func (c *SolverChain) Eval(bv *BVExprPtr) *BVConst {
	if c.cancelled_() {
		return nil
	}
	return runWithDeadline(c, context.Background(), c.timeout, func() *BVConst {
		return c.solver.Eval(bv)
	}, nil)
}

func (c *SolverChain) EvalUpto(bv *BVExprPtr, n int) []*BVConst {
	if c.cancelled_() {
		return nil
	}
	return runWithDeadline(c, context.Background(), c.timeout, func() []*BVConst {
		return c.solver.EvalUpto(bv, n)
	}, nil)
}

func (c *SolverChain) Model() map[string]*BVConst {
	return c.solver.Model()
}

// GetInitialValues delegates to an IndependentSolver constructed against
// this chain's constraint set, applying the same deadline discipline as
// every other call.
func (c *SolverChain) GetInitialValues(arrays []*ArrayDescriptor) (*InitialValues, error) {
	is := NewIndependentSolver(c.solver.eb, c.solver.cfg)
	if c.cancelled_() {
		return nil, ErrSolverUnknown
	}
	type result struct {
		v   *InitialValues
		err error
	}
	r := runWithDeadline(c, context.Background(), c.timeout, func() result {
		v, err := is.GetInitialValues(c.solver.cm.Iter(), arrays)
		return result{v, err}
	}, result{nil, ErrSolverUnknown})
	return r.v, r.err
}
