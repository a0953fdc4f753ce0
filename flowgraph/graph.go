// Package flowgraph assembles each function's reachable-from-entry
// instruction graph (spec.md §4.5): for every instruction it resolves
// PC- and SP-effects and records successor offsets, call edges, and
// whether the function has any reachable return. Grounded on the
// teacher's vm/executor.go per-opcode dispatch loop, generalized from
// "execute one instruction, advance PC" to "compute an instruction's
// successor offsets," and on parser/symbols.go's once-built,
// address-keyed adjacency-map style.
package flowgraph

import (
	"fmt"
	"sort"

	"github.com/lookbusy1344/armv6m-stackdepth/cursor"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
	"github.com/lookbusy1344/armv6m-stackdepth/pcflow"
	"github.com/lookbusy1344/armv6m-stackdepth/spflow"
)

// Node is one instruction's resolved position in the graph: its PC- and
// SP-effects, and its successor set. A nil Successors slice (as opposed
// to an empty, non-nil one) distinguishes Return (no successor notion
// at all) from Invalid/terminal (successors = {}, spec.md §4.5).
type Node struct {
	Offset           uint32
	Instruction      isa.Instruction
	PCKind           pcflow.Kind
	Conditional      bool
	Successors       []uint32 // nil for Return; [] for Invalid/terminal
	CallAddresses    []isa.Address
	CallReturnOffset *uint32 // nil if the call cannot return into this function
	SP               spflow.Effect
}

// Graph is the reachable-from-offset-0 instruction graph of one
// function.
type Graph struct {
	FunctionAddr isa.Address
	Nodes        map[uint32]*Node
	Order        []uint32 // reachable offsets, ascending
	HasReturn    bool
	Next         map[uint32][]uint32
	Prev         map[uint32][]uint32
}

// RejectedError reports a function the instruction-graph builder
// cannot accept: a reachable fall-off-the-end, a call whose callee set
// includes an address with no known function, or a call that returns
// when no return-to offset exists.
type RejectedError struct {
	FunctionAddr isa.Address
	Offset       uint32
	Reason       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("function 0x%x offset %d: %s", e.FunctionAddr, e.Offset, e.Reason)
}

// Build constructs the reachable instruction graph for fn. calleeReturns
// reports, for a call target address, whether that callee has any
// return of its own; it is consulted to decide whether a call's
// fall-through edge is live. calleeExists resolves a callee address to
// "a function exists there" so unresolved calls (no callee anywhere in
// the image) are rejected rather than silently dropped.
func Build(fn *cursor.Function, overrides pcflow.CallOverrides, calleeReturns func(isa.Address) bool, calleeExists func(isa.Address) bool) (*Graph, []error) {
	g := &Graph{
		FunctionAddr: fn.Raw.Address,
		Nodes:        make(map[uint32]*Node),
		Next:         make(map[uint32][]uint32),
		Prev:         make(map[uint32][]uint32),
	}

	var errs []error
	first, ok := fn.First()
	if !ok {
		return g, nil
	}

	worklist := []uint32{first.Offset()}
	visited := map[uint32]bool{first.Offset(): true}

	for len(worklist) > 0 {
		offset := worklist[0]
		worklist = worklist[1:]

		cur, ok := fn.At(offset)
		if !ok {
			errs = append(errs, &RejectedError{FunctionAddr: fn.Raw.Address, Offset: offset, Reason: "reachable successor does not point at an instruction boundary"})
			continue
		}

		pcEff, err := pcflow.Resolve(cur, overrides)
		if err != nil {
			errs = append(errs, fmt.Errorf("function 0x%x: %w", fn.Raw.Address, err))
			continue
		}
		spEff, err := spflow.Resolve(offset, cur.Instruction())
		if err != nil {
			errs = append(errs, fmt.Errorf("function 0x%x: %w", fn.Raw.Address, err))
			continue
		}

		node := &Node{Offset: offset, Instruction: cur.Instruction(), PCKind: pcEff.Kind, Conditional: pcEff.Conditional, SP: spEff}
		next, nextOK := cur.Next()

		switch pcEff.Kind {
		case pcflow.Flow:
			if nextOK {
				node.Successors = []uint32{next.Offset()}
			} else {
				node.Successors = []uint32{} // ⊥: falls off the end
				errs = append(errs, &RejectedError{FunctionAddr: fn.Raw.Address, Offset: offset, Reason: "falls off the end of the function while reachable"})
			}
		case pcflow.Branch:
			succ := append([]uint32{}, pcEff.TargetOffsets...)
			if pcEff.Conditional {
				if nextOK {
					succ = append(succ, next.Offset())
				} else {
					errs = append(errs, &RejectedError{FunctionAddr: fn.Raw.Address, Offset: offset, Reason: "conditional branch falls off the end of the function while reachable"})
				}
			}
			node.Successors = succ
		case pcflow.Call:
			node.CallAddresses = pcEff.TargetAddresses
			anyUnknown, anyReturns := false, false
			for _, addr := range pcEff.TargetAddresses {
				if calleeExists != nil && !calleeExists(addr) {
					errs = append(errs, &RejectedError{FunctionAddr: fn.Raw.Address, Offset: offset, Reason: fmt.Sprintf("calls 0x%x, no function found at that address", addr)})
					anyUnknown = true
					continue
				}
				if calleeReturns == nil || calleeReturns(addr) {
					anyReturns = true
				}
			}
			if anyUnknown {
				node.Successors = []uint32{}
			} else if anyReturns {
				if !nextOK {
					errs = append(errs, &RejectedError{FunctionAddr: fn.Raw.Address, Offset: offset, Reason: "call returns but has no return-to offset in this function"})
					node.Successors = []uint32{}
				} else {
					ret := next.Offset()
					node.CallReturnOffset = &ret
					node.Successors = []uint32{ret}
				}
			} else {
				node.Successors = []uint32{}
			}
		case pcflow.Return:
			node.Successors = nil
			g.HasReturn = true
		case pcflow.Invalid:
			node.Successors = []uint32{}
		}

		g.Nodes[offset] = node
		g.Order = append(g.Order, offset)

		for _, s := range node.Successors {
			if !visited[s] {
				visited[s] = true
				worklist = append(worklist, s)
			}
		}
	}

	sort.Slice(g.Order, func(i, j int) bool { return g.Order[i] < g.Order[j] })
	for _, off := range g.Order {
		n := g.Nodes[off]
		for _, s := range n.Successors {
			g.Next[off] = append(g.Next[off], s)
			g.Prev[s] = append(g.Prev[s], off)
		}
	}
	return g, errs
}
