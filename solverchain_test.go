package gosmt

import (
	"testing"
	"time"
)

// slowBackend blocks in check until unblock is closed, letting tests force
// a timeout deterministically instead of racing a real clock.
type slowBackend struct {
	unblock chan struct{}
}

func (b *slowBackend) clone() solverBackend { return b }
func (b *slowBackend) check(query *BoolExprPtr) int {
	<-b.unblock
	return RESULT_SAT
}
func (b *slowBackend) model() map[string]*BVConst                              { return nil }
func (b *slowBackend) modelBytes() map[*ArrayDescriptor]map[uint64]byte        { return nil }
func (b *slowBackend) evalUpto(bv *BVExprPtr, pi *BoolExprPtr, n int) []*BVConst { return nil }

func newChainWithSlowBackend() (*SolverChain, chan struct{}) {
	eb := NewExprBuilder()
	cfg := DefaultConfig()
	unblock := make(chan struct{})
	solver := &Solver{
		eb:            eb,
		cfg:           cfg,
		backend:       &slowBackend{unblock: unblock},
		cm:            NewConstraintManager(eb, cfg),
		validityCache: make(map[uintptr]int),
	}
	chain := NewSolverChain(solver)
	chain.SetTimeout(20 * time.Millisecond)
	return chain, unblock
}

func TestSolverChainTimesOut(t *testing.T) {
	chain, unblock := newChainWithSlowBackend()
	defer close(unblock)

	if got := chain.Satisfiable(); got != RESULT_UNKNOWN {
		t.Errorf("got %d, want RESULT_UNKNOWN on timeout", got)
	}
}

func TestSolverChainCancelShortCircuits(t *testing.T) {
	chain, unblock := newChainWithSlowBackend()
	defer close(unblock)

	chain.Cancel()
	if got := chain.Satisfiable(); got != RESULT_UNKNOWN {
		t.Errorf("got %d, want RESULT_UNKNOWN after Cancel", got)
	}
	if got := chain.Eval(nil); got != nil {
		t.Errorf("got %v, want nil after Cancel", got)
	}
}

func TestSolverChainSerializesAgainstAbandonedCall(t *testing.T) {
	chain, unblock := newChainWithSlowBackend()

	if got := chain.Satisfiable(); got != RESULT_UNKNOWN {
		t.Fatalf("got %d, want RESULT_UNKNOWN on timeout", got)
	}

	started := make(chan struct{})
	done := make(chan int, 1)
	go func() {
		close(started)
		done <- chain.Satisfiable()
	}()
	<-started

	select {
	case <-done:
		t.Fatal("second call returned before the abandoned first call was unblocked")
	case <-time.After(20 * time.Millisecond):
	}

	close(unblock)
	if got := <-done; got != RESULT_SAT {
		t.Errorf("got %d, want RESULT_SAT once the abandoned call finally returns", got)
	}
}

func TestSolverChainNoTimeoutReturnsRealResult(t *testing.T) {
	eb := NewExprBuilder()
	solver := NewSolver(eb, DefaultConfig())
	chain := NewSolverChain(solver)
	chain.SetTimeout(5 * time.Second)

	a := eb.BVS("a", 32)
	eq, err := eb.Eq(a, eb.BVV(1, 32))
	if err != nil {
		t.Fatal(err)
	}
	if !chain.Add(eq) {
		t.Fatal("expected a satisfiable constraint to be accepted")
	}
	if got := chain.Satisfiable(); got != RESULT_SAT {
		t.Errorf("got %d, want RESULT_SAT", got)
	}
}
