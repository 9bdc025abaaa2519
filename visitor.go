package gosmt

// Action is the generic DAG-rewriter's decision for one visited node, in
// the style of KLEE's ExprVisitor::Action. expr_eval.go hard-codes a
// single substitution pass; Visitor generalizes that into the reusable
// base the constraint manager's equality substitution and single-
// replacement passes both build on.
type Action struct {
	kind int
	repl ExprPtr
}

const (
	actionDoChildren = iota
	actionChangeTo
	actionSkipChildren
)

func DoChildren() Action {
	return Action{kind: actionDoChildren}
}

func ChangeTo(e ExprPtr) Action {
	return Action{kind: actionChangeTo, repl: e}
}

func SkipChildren() Action {
	return Action{kind: actionSkipChildren}
}

// Visitor walks an expression DAG pre- and post-order. VisitUpdateNode is
// consulted whenever a Read node's update list must be rewritten.
type Visitor interface {
	VisitPre(e ExprPtr) Action
	VisitPost(e ExprPtr) Action
	VisitUpdateNode(un *UpdateNode) *UpdateNode
}

// rewriter drives a Visitor over a DAG with a per-traversal memo map, kept
// local to one Rewrite call so a substitution never leaks into a later,
// unrelated traversal (spec's locality requirement for the replacement
// cache, as opposed to the global uniqued update-node map below).
type rewriter struct {
	eb    *ExprBuilder
	v     Visitor
	memo  map[uintptr]ExprPtr
	unMap map[uintptr]*UpdateNode
}

// globalUpdateNodeMap uniques rewritten update-node suffixes across
// traversals: two independent rewrites that happen to produce the same
// (array, index, value, prev) tuple share storage rather than allocating
// twice. This mirrors the hash-cons caches in expr_builder.go, applied to
// UpdateNode instead of internalExpr.
var globalUpdateNodeMap = make(map[uint64]*UpdateNode)

func internUpdateNode(un *UpdateNode) *UpdateNode {
	if un == nil {
		return nil
	}
	if existing, ok := globalUpdateNodeMap[un.hash]; ok {
		return existing
	}
	globalUpdateNodeMap[un.hash] = un
	return un
}

func NewRewriter(eb *ExprBuilder, v Visitor) *rewriter {
	return &rewriter{eb: eb, v: v, memo: make(map[uintptr]ExprPtr), unMap: make(map[uintptr]*UpdateNode)}
}

func (r *rewriter) RewriteBV(e *BVExprPtr) *BVExprPtr {
	guard := AcquireCompareGuard()
	defer guard.Release()
	return r.rewrite(e).(*BVExprPtr)
}

func (r *rewriter) RewriteBool(e *BoolExprPtr) *BoolExprPtr {
	guard := AcquireCompareGuard()
	defer guard.Release()
	return r.rewrite(e).(*BoolExprPtr)
}

func (r *rewriter) rewrite(eptr ExprPtr) ExprPtr {
	id := eptr.getInternal().rawPtr()
	if cached, ok := r.memo[id]; ok {
		return cached
	}

	pre := r.v.VisitPre(eptr)
	if pre.kind == actionChangeTo {
		r.memo[id] = pre.repl
		return pre.repl
	}
	if pre.kind == actionSkipChildren {
		r.memo[id] = eptr
		return eptr
	}

	result := r.rebuildChildren(eptr)

	post := r.v.VisitPost(result)
	if post.kind == actionChangeTo {
		result = post.repl
	}

	r.memo[id] = result
	return result
}

func (r *rewriter) rewriteUpdateList(ul UpdateList) UpdateList {
	if ul.Head == nil {
		return ul
	}
	prefix := r.rewriteUpdateList(UpdateList{Array: ul.Array, Head: ul.Head.Prev})
	rewritten := r.v.VisitUpdateNode(ul.Head)
	if rewritten == nil {
		rewritten = ul.Head
	}
	index := r.rewrite(rewritten.Index).(*BVExprPtr)
	value := r.rewrite(rewritten.Value).(*BVExprPtr)
	if index.Id() == rewritten.Index.Id() && value.Id() == rewritten.Value.Id() && prefix.Head == ul.Head.Prev {
		return UpdateList{Array: ul.Array, Head: internUpdateNode(rewritten)}
	}
	return UpdateList{Array: prefix.Array, Head: internUpdateNode(newUpdateNode(index, value, prefix.Head))}
}

// rebuildChildren re-applies the node's constructor to its (possibly
// rewritten) children, returning eptr unchanged if nothing below it
// changed — this keeps hash-consing effective for untouched subtrees.
func (r *rewriter) rebuildChildren(eptr ExprPtr) ExprPtr {
	e := eptr.getInternal()
	eb := r.eb

	switch e.kind() {
	case TY_SYM, TY_CONST, TY_BOOL_CONST:
		return eptr
	case TY_NOT:
		c := e.(*internalBVExprUnArithmetic)
		child := r.rewrite(c.child).(*BVExprPtr)
		return eb.Not(child)
	case TY_NEG:
		c := e.(*internalBVExprUnArithmetic)
		child := r.rewrite(c.child).(*BVExprPtr)
		return eb.Neg(child)
	case TY_NOT_OPT:
		c := e.(*internalBVExprNotOpt)
		child := r.rewrite(c.child).(*BVExprPtr)
		return eb.NotOptimized(child)
	case TY_EXTRACT:
		c := e.(*internalBVExprExtract)
		child := r.rewrite(c.child).(*BVExprPtr)
		res, err := eb.Extract(child, c.high, c.low)
		mustOk(err)
		return res
	case TY_ZEXT:
		c := e.(*internalBVExprExtend)
		child := r.rewrite(c.child).(*BVExprPtr)
		res, err := eb.ZExt(child, c.n)
		mustOk(err)
		return res
	case TY_SEXT:
		c := e.(*internalBVExprExtend)
		child := r.rewrite(c.child).(*BVExprPtr)
		res, err := eb.SExt(child, c.n)
		mustOk(err)
		return res
	case TY_CONCAT:
		c := e.(*internalBVExprConcat)
		res := r.rewrite(c.children[0]).(*BVExprPtr)
		var err error
		for i := 1; i < len(c.children); i++ {
			child := r.rewrite(c.children[i]).(*BVExprPtr)
			res, err = eb.Concat(res, child)
			mustOk(err)
		}
		return res
	case TY_ITE:
		c := e.(*internalBVExprITE)
		cond := r.rewrite(c.cond).(*BoolExprPtr)
		t := r.rewrite(c.iftrue).(*BVExprPtr)
		f := r.rewrite(c.iffalse).(*BVExprPtr)
		res, err := eb.ITE(cond, t, f)
		mustOk(err)
		return res
	case TY_READ:
		c := e.(*internalBVExprRead)
		ul := r.rewriteUpdateList(c.ul)
		index := r.rewrite(c.index).(*BVExprPtr)
		res, err := eb.Read(ul, index)
		mustOk(err)
		return res
	case TY_ADD, TY_MUL, TY_AND, TY_OR, TY_XOR:
		c := e.(*internalBVExprBinArithmetic)
		return r.rebuildNary(c, eb)
	case TY_SDIV, TY_UDIV, TY_SREM, TY_UREM, TY_SHL, TY_LSHR, TY_ASHR:
		c := e.(*internalBVExprBinArithmetic)
		lhs := r.rewrite(c.children[0]).(*BVExprPtr)
		rhs := r.rewrite(c.children[1]).(*BVExprPtr)
		return r.rebuildBinary(c.kind(), lhs, rhs, eb)
	case TY_ULT, TY_ULE, TY_UGT, TY_UGE, TY_SLT, TY_SLE, TY_SGT, TY_SGE, TY_EQ:
		c := e.(*internalBoolExprCmp)
		lhs := r.rewrite(c.lhs).(*BVExprPtr)
		rhs := r.rewrite(c.rhs).(*BVExprPtr)
		return r.rebuildCmp(c.kind(), lhs, rhs, eb)
	case TY_BOOL_NOT:
		c := e.(*internalBoolUnArithmetic)
		child := r.rewrite(c.child).(*BoolExprPtr)
		res, err := eb.BoolNot(child)
		mustOk(err)
		return res
	case TY_BOOL_AND, TY_BOOL_OR:
		c := e.(*internalBoolExprNaryOp)
		res := r.rewrite(c.children[0]).(*BoolExprPtr)
		var err error
		for i := 1; i < len(c.children); i++ {
			child := r.rewrite(c.children[i]).(*BoolExprPtr)
			if e.kind() == TY_BOOL_AND {
				res, err = eb.BoolAnd(res, child)
			} else {
				res, err = eb.BoolOr(res, child)
			}
			mustOk(err)
		}
		return res
	default:
		panic("rewriter: unhandled expression kind")
	}
}

func (r *rewriter) rebuildNary(c *internalBVExprBinArithmetic, eb *ExprBuilder) *BVExprPtr {
	res := r.rewrite(c.children[0]).(*BVExprPtr)
	var err error
	for i := 1; i < len(c.children); i++ {
		child := r.rewrite(c.children[i]).(*BVExprPtr)
		switch c.kind() {
		case TY_ADD:
			res, err = eb.Add(res, child)
		case TY_MUL:
			res, err = eb.Mul(res, child)
		case TY_AND:
			res, err = eb.And(res, child)
		case TY_OR:
			res, err = eb.Or(res, child)
		case TY_XOR:
			res, err = eb.Xor(res, child)
		}
		mustOk(err)
	}
	return res
}

func (r *rewriter) rebuildBinary(kind int, lhs, rhs *BVExprPtr, eb *ExprBuilder) *BVExprPtr {
	var res *BVExprPtr
	var err error
	switch kind {
	case TY_SDIV:
		res, err = eb.SDiv(lhs, rhs)
	case TY_UDIV:
		res, err = eb.UDiv(lhs, rhs)
	case TY_SREM:
		res, err = eb.SRem(lhs, rhs)
	case TY_UREM:
		res, err = eb.URem(lhs, rhs)
	case TY_SHL:
		res, err = eb.Shl(lhs, rhs)
	case TY_LSHR:
		res, err = eb.LShr(lhs, rhs)
	case TY_ASHR:
		res, err = eb.AShr(lhs, rhs)
	}
	mustOk(err)
	return res
}

func (r *rewriter) rebuildCmp(kind int, lhs, rhs *BVExprPtr, eb *ExprBuilder) *BoolExprPtr {
	var res *BoolExprPtr
	var err error
	switch kind {
	case TY_ULT:
		res, err = eb.Ult(lhs, rhs)
	case TY_ULE:
		res, err = eb.Ule(lhs, rhs)
	case TY_UGT:
		res, err = eb.UGt(lhs, rhs)
	case TY_UGE:
		res, err = eb.UGe(lhs, rhs)
	case TY_SLT:
		res, err = eb.SLt(lhs, rhs)
	case TY_SLE:
		res, err = eb.SLe(lhs, rhs)
	case TY_SGT:
		res, err = eb.SGt(lhs, rhs)
	case TY_SGE:
		res, err = eb.SGe(lhs, rhs)
	case TY_EQ:
		res, err = eb.Eq(lhs, rhs)
	}
	mustOk(err)
	return res
}

func mustOk(err error) {
	if err != nil {
		panic(err)
	}
}

// baseVisitor gives every Visitor implementation DoChildren defaults for
// the hooks it doesn't care about.
type baseVisitor struct{}

func (baseVisitor) VisitPre(e ExprPtr) Action             { return DoChildren() }
func (baseVisitor) VisitPost(e ExprPtr) Action            { return DoChildren() }
func (baseVisitor) VisitUpdateNode(un *UpdateNode) *UpdateNode { return un }

// SingleSubstVisitor replaces every occurrence of Src with Dst.
type SingleSubstVisitor struct {
	baseVisitor
	Src ExprPtr
	Dst ExprPtr
}

func (v *SingleSubstVisitor) VisitPre(e ExprPtr) Action {
	if e.getInternal().rawPtr() == v.Src.getInternal().rawPtr() {
		return ChangeTo(v.Dst)
	}
	return DoChildren()
}

// MapSubstVisitor replaces each key expression found in Map with its value.
type MapSubstVisitor struct {
	baseVisitor
	Map map[uintptr]ExprPtr
}

func (v *MapSubstVisitor) VisitPre(e ExprPtr) Action {
	if dst, ok := v.Map[e.getInternal().rawPtr()]; ok {
		return ChangeTo(dst)
	}
	return DoChildren()
}
