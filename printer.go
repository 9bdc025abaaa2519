package gosmt

import (
	"fmt"
	"strings"
)

// kindMnemonic names kind() values for the debug dump below, mirroring the
// operator symbols already carried by individual internal node types
// (e.g. internalBVExprBinArithmetic.symbol) but keyed generically so the
// printer works over the internalExpr interface alone.
var kindMnemonic = map[int]string{
	TY_SYM: "Sym", TY_CONST: "Const", TY_EXTRACT: "Extract", TY_CONCAT: "Concat",
	TY_ZEXT: "ZExt", TY_SEXT: "SExt", TY_ITE: "Ite",
	TY_NOT: "Not", TY_NEG: "Neg", TY_SHL: "Shl", TY_LSHR: "LShr", TY_ASHR: "AShr",
	TY_AND: "And", TY_OR: "Or", TY_XOR: "Xor", TY_ADD: "Add", TY_MUL: "Mul",
	TY_SDIV: "SDiv", TY_UDIV: "UDiv", TY_SREM: "SRem", TY_UREM: "URem",
	TY_ULT: "Ult", TY_ULE: "Ule", TY_UGT: "Ugt", TY_UGE: "Uge",
	TY_SLT: "Slt", TY_SLE: "Sle", TY_SGT: "Sgt", TY_SGE: "Sge", TY_EQ: "Eq",
	TY_BOOL_CONST: "BoolConst", TY_BOOL_NOT: "BoolNot", TY_BOOL_AND: "And", TY_BOOL_OR: "Or",
	TY_READ: "Read", TY_NOT_OPT: "NotOptimized",
}

// ExprPrinter is a shared-subexpression dump in the style of KLEE's
// ExprPPrinter: any node reachable from more than one parent across the
// printed forest is hoisted into a numbered "N<k>:" binding so the DAG's
// actual sharing is visible in the text instead of being inlined
// repeatedly.
type ExprPrinter struct {
	counts  map[uintptr]int
	labels  map[uintptr]string
	order   []uintptr
	nodes   map[uintptr]internalExpr
	next    int
}

func newExprPrinter() *ExprPrinter {
	return &ExprPrinter{
		counts: make(map[uintptr]int),
		labels: make(map[uintptr]string),
		nodes:  make(map[uintptr]internalExpr),
	}
}

func (p *ExprPrinter) collect(n internalExpr) {
	if _, seen := p.nodes[n.rawPtr()]; seen {
		p.counts[n.rawPtr()]++
		return
	}
	p.nodes[n.rawPtr()] = n
	p.counts[n.rawPtr()] = 1
	for _, c := range n.subexprs() {
		p.collect(c)
	}
}

func (p *ExprPrinter) assignLabels() {
	for ptr, n := range p.nodes {
		if p.counts[ptr] > 1 && !n.isLeaf() {
			if _, ok := p.labels[ptr]; !ok {
				p.labels[ptr] = fmt.Sprintf("N%d", p.next)
				p.next++
				p.order = append(p.order, ptr)
			}
		}
	}
}

func (p *ExprPrinter) render(n internalExpr) string {
	if label, ok := p.labels[n.rawPtr()]; ok {
		return label
	}
	return p.renderInline(n)
}

func (p *ExprPrinter) renderInline(n internalExpr) string {
	if n.isLeaf() {
		return n.String()
	}
	children := n.subexprs()
	parts := make([]string, len(children))
	for i, c := range children {
		parts[i] = p.render(c)
	}
	mnemonic, ok := kindMnemonic[n.kind()]
	if !ok {
		mnemonic = fmt.Sprintf("Kind%d", n.kind())
	}
	if len(parts) == 0 {
		return mnemonic
	}
	return fmt.Sprintf("(%s %s)", mnemonic, strings.Join(parts, " "))
}

// PrintQuery formats constraints and query in the shared-node style
// described above: a preamble of "N<k>: <expr>" bindings for every node
// with more than one reference, followed by the constraint list and the
// query itself, each referencing those labels instead of re-inlining them.
func PrintQuery(constraints []*BoolExprPtr, query *BoolExprPtr) string {
	p := newExprPrinter()
	for _, c := range constraints {
		p.collect(c.getInternal())
	}
	if query != nil {
		p.collect(query.getInternal())
	}
	p.assignLabels()

	var b strings.Builder
	for _, ptr := range p.order {
		fmt.Fprintf(&b, "%s: %s\n", p.labels[ptr], p.renderInline(p.nodes[ptr]))
	}

	b.WriteString("Constraints [\n")
	for _, c := range constraints {
		fmt.Fprintf(&b, "  %s\n", p.render(c.getInternal()))
	}
	b.WriteString("]\n")
	if query != nil {
		fmt.Fprintf(&b, "Query [ %s ]\n", p.render(query.getInternal()))
	}
	return b.String()
}

// smtMnemonic maps kind() to its SMT-LIB2 QF_BV/QF_ABV operator name.
var smtMnemonic = map[int]string{
	TY_EXTRACT: "extract", TY_CONCAT: "concat", TY_ZEXT: "zero_extend", TY_SEXT: "sign_extend",
	TY_ITE: "ite", TY_NOT: "bvnot", TY_NEG: "bvneg", TY_SHL: "bvshl", TY_LSHR: "bvlshr",
	TY_ASHR: "bvashr", TY_AND: "bvand", TY_OR: "bvor", TY_XOR: "bvxor", TY_ADD: "bvadd",
	TY_MUL: "bvmul", TY_SDIV: "bvsdiv", TY_UDIV: "bvudiv", TY_SREM: "bvsrem", TY_UREM: "bvurem",
	TY_ULT: "bvult", TY_ULE: "bvule", TY_UGT: "bvugt", TY_UGE: "bvuge",
	TY_SLT: "bvslt", TY_SLE: "bvsle", TY_SGT: "bvsgt", TY_SGE: "bvsge", TY_EQ: "=",
	TY_BOOL_NOT: "not", TY_BOOL_AND: "and", TY_BOOL_OR: "or",
}

type smtlibWriter struct {
	declared map[uintptr]bool
	arrays   map[*ArrayDescriptor]bool
	b        strings.Builder
}

// PrintSMTLIB renders constraints and query as SMT-LIB2 QF_ABV script text:
// one declare-fun per free symbol, one declare-fun per referenced array (as
// genuine Array sort, independent of whatever simplification the concrete
// backend adapter uses internally), an assert per constraint, an asserted
// negated query, and a trailing check-sat.
func PrintSMTLIB(constraints []*BoolExprPtr, query *BoolExprPtr) (string, error) {
	w := &smtlibWriter{declared: make(map[uintptr]bool), arrays: make(map[*ArrayDescriptor]bool)}

	for _, c := range constraints {
		w.declareFrom(c.getInternal())
	}
	if query != nil {
		w.declareFrom(query.getInternal())
	}

	for _, c := range constraints {
		text, err := w.encode(c.getInternal())
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&w.b, "(assert %s)\n", text)
	}
	if query != nil {
		text, err := w.encode(query.getInternal())
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&w.b, "(assert (not %s))\n", text)
	}
	w.b.WriteString("(check-sat)\n")
	return w.b.String(), nil
}

func (w *smtlibWriter) declareFrom(n internalExpr) {
	if w.declared[n.rawPtr()] {
		return
	}
	w.declared[n.rawPtr()] = true

	switch t := n.(type) {
	case *internalBVS:
		fmt.Fprintf(&w.b, "(declare-fun %s () (_ BitVec %d))\n", t.name, t.sz)
	case *internalBVExprRead:
		if !w.arrays[t.ul.Array] {
			w.arrays[t.ul.Array] = true
			fmt.Fprintf(&w.b, "(declare-fun %s () (Array (_ BitVec %d) (_ BitVec %d)))\n",
				t.ul.Array.Name, t.ul.Array.DomainWidth, t.ul.Array.RangeWidth)
		}
		for un := t.ul.Head; un != nil; un = un.Prev {
			w.declareFrom(un.Index.e)
			w.declareFrom(un.Value.e)
		}
	}
	for _, c := range n.subexprs() {
		w.declareFrom(c)
	}
}

func (w *smtlibWriter) encode(n internalExpr) (string, error) {
	switch t := n.(type) {
	case *internalBVS:
		return t.name, nil
	case *internalBVV:
		return fmt.Sprintf("(_ bv%s %d)", t.Value.value.String(), t.Value.Size), nil
	case *internalBoolVal:
		if t.Value.Value {
			return "true", nil
		}
		return "false", nil
	case *internalBVExprRead:
		// ul.Head is the most recent write; walk back to the oldest one
		// first so stores nest oldest-innermost, newest-outermost, and a
		// later write correctly shadows an earlier one at the same index.
		var chain []*UpdateNode
		for un := t.ul.Head; un != nil; un = un.Prev {
			chain = append(chain, un)
		}
		base := t.ul.Array.Name
		for i := len(chain) - 1; i >= 0; i-- {
			un := chain[i]
			idx, err := w.encode(un.Index.e)
			if err != nil {
				return "", err
			}
			val, err := w.encode(un.Value.e)
			if err != nil {
				return "", err
			}
			base = fmt.Sprintf("(store %s %s %s)", base, idx, val)
		}
		idx, err := w.encode(t.index.e)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(select %s %s)", base, idx), nil
	case *internalBVExprNotOpt:
		return w.encode(t.child.e)
	case *internalBVExprExtract:
		child, err := w.encode(t.child.e)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("((_ extract %d %d) %s)", t.high, t.low, child), nil
	}

	mnemonic, ok := smtMnemonic[n.kind()]
	if !ok {
		return "", fmt.Errorf("PrintSMTLIB: unsupported kind %d", n.kind())
	}
	children := n.subexprs()
	if len(children) == 0 {
		return mnemonic, nil
	}
	parts := make([]string, len(children))
	for i, c := range children {
		text, err := w.encode(c)
		if err != nil {
			return "", err
		}
		parts[i] = text
	}
	return fmt.Sprintf("(%s %s)", mnemonic, strings.Join(parts, " ")), nil
}
