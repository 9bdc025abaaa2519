package gosmt

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// UpdateNode is one write array[index] := value layered over the previous
// state of the array. Nodes are shared: many update lists may point into
// the same suffix, and Extend allocates exactly one new node whose Prev
// points into that shared tail (grounded on KLEE's UpdateNode).
type UpdateNode struct {
	Index *BVExprPtr
	Value *BVExprPtr
	Prev  *UpdateNode

	hash   uint64
	length int
}

func newUpdateNode(index, value *BVExprPtr, prev *UpdateNode) *UpdateNode {
	h := xxhash.New()
	h.Write([]byte("UpdateNode"))
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, uint64(index.e.rawPtr()))
	h.Write(raw)
	binary.BigEndian.PutUint64(raw, uint64(value.e.rawPtr()))
	h.Write(raw)
	length := 1
	if prev != nil {
		binary.BigEndian.PutUint64(raw, prev.hash)
		h.Write(raw)
		length = prev.length + 1
	}
	return &UpdateNode{Index: index, Value: value, Prev: prev, hash: h.Sum64(), length: length}
}

func (un *UpdateNode) Hash() uint64 {
	return un.hash
}

func (un *UpdateNode) Len() int {
	if un == nil {
		return 0
	}
	return un.length
}

// UpdateList pairs an array descriptor with the head of its write history.
// The list is value-typed: copying it copies the (Array, Head) pair, never
// the chain itself.
type UpdateList struct {
	Array *ArrayDescriptor
	Head  *UpdateNode
}

func NewUpdateList(array *ArrayDescriptor) UpdateList {
	return UpdateList{Array: array}
}

// Extend returns a new UpdateList with one additional write on top of the
// current head; the previous chain is shared, not copied.
func (ul UpdateList) Extend(index, value *BVExprPtr) UpdateList {
	return UpdateList{Array: ul.Array, Head: newUpdateNode(index, value, ul.Head)}
}

func (ul UpdateList) Hash() uint64 {
	h := xxhash.New()
	h.Write([]byte(ul.Array.Name))
	if ul.Head != nil {
		raw := make([]byte, 8)
		binary.BigEndian.PutUint64(raw, ul.Head.hash)
		h.Write(raw)
	}
	return h.Sum64()
}

func (ul UpdateList) Equal(other UpdateList) bool {
	return ul.Array == other.Array && ul.Head == other.Head
}

func (ul UpdateList) String() string {
	b := strings.Builder{}
	b.WriteString(ul.Array.Name)
	count := 0
	for un := ul.Head; un != nil; un = un.Prev {
		count++
	}
	if count > 0 {
		b.WriteString("[")
		b.WriteString(strconv.Itoa(count))
		b.WriteString(" writes]")
	}
	return b.String()
}

// ConstantIndex reports whether Index is a folded literal and returns it.
func (un *UpdateNode) ConstantIndex() (*BVConst, bool) {
	if un.Index.Kind() != TY_CONST {
		return nil, false
	}
	c, _ := un.Index.GetConst()
	return c, true
}
