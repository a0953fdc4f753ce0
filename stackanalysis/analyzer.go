// Package stackanalysis derives a function's own stack growth from its
// flow graph (spec.md §4.6): an entry-forward walk from offset 0 and a
// return-backward walk from every return site, each stopping at a call,
// a wrong-direction stack delta, or a branch/join boundary, with a
// conservation check tying the two together. Grounded directly on the
// teacher's vm/stack_trace.go, which already tracks RecordSPMove events
// keyed by PC during emulation; this package is the static analogue of
// that same SP-delta bookkeeping.
package stackanalysis

import (
	"fmt"
	"sort"

	"github.com/lookbusy1344/armv6m-stackdepth/flowgraph"
	"github.com/lookbusy1344/armv6m-stackdepth/pcflow"
)

// RejectedError reports a function the stack analyzer cannot certify a
// single canonical stack_grow for.
type RejectedError struct {
	FunctionAddr uint32
	Reason       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("function 0x%x: %s", e.FunctionAddr, e.Reason)
}

// Result is one function's analysis outcome.
type Result struct {
	StackGrow uint32
}

// Analyze computes g's own stack growth.
//
// The entry walk accumulates the function's prologue: it follows
// offset 0 forward through single-successor, single-predecessor
// instructions, folding in every non-positive SP delta, and stops
// before an instruction whose delta is positive (the epilogue
// boundary) without including it. The return walk is the mirror
// image: starting at a return site it follows predecessors backward,
// folding in every non-negative delta, and stops before an
// instruction whose delta is negative without including it. Each
// walk also stops at a call or at a branch/join boundary. Excluding
// the boundary instruction from both walks is what makes
// entry-sum + return-sum == 0 hold for straight-line leaf functions
// (spec.md §8 S1) rather than both walks independently absorbing the
// whole function and netting to zero. This is recorded as a resolved
// Open Question in DESIGN.md.
func Analyze(g *flowgraph.Graph) (Result, error) {
	entrySum, entryVisited, ok := entryWalk(g)
	if !ok {
		return Result{}, &RejectedError{FunctionAddr: uint32(g.FunctionAddr), Reason: "entry walk could not start at offset 0"}
	}
	if entrySum%4 != 0 {
		return Result{}, &RejectedError{FunctionAddr: uint32(g.FunctionAddr), Reason: fmt.Sprintf("entry-walk sum %d is not a multiple of 4", entrySum)}
	}

	returnOffsets := returnSites(g)
	allVisited := copySet(entryVisited)

	if len(returnOffsets) == 0 {
		if err := checkCoverage(g, allVisited); err != nil {
			return Result{}, err
		}
		return Result{StackGrow: uint32(-entrySum)}, nil
	}

	var canonicalSum int32
	haveCanonical := false
	for _, off := range returnOffsets {
		sum, visited := returnWalk(g, off)
		for o := range visited {
			allVisited[o] = true
		}
		if !haveCanonical {
			canonicalSum = sum
			haveCanonical = true
			continue
		}
		if sum != canonicalSum {
			return Result{}, &RejectedError{FunctionAddr: uint32(g.FunctionAddr), Reason: "different return paths result in differing stack sizes"}
		}
	}

	if entrySum+canonicalSum != 0 {
		return Result{}, &RejectedError{FunctionAddr: uint32(g.FunctionAddr), Reason: fmt.Sprintf("stack not returned to zero: entry-sum %d, return-sum %d", entrySum, canonicalSum)}
	}

	if err := checkCoverage(g, allVisited); err != nil {
		return Result{}, err
	}

	return Result{StackGrow: uint32(-entrySum)}, nil
}

func entryWalk(g *flowgraph.Graph) (int32, map[uint32]bool, bool) {
	if _, ok := g.Nodes[0]; !ok {
		return 0, nil, false
	}
	var sum int32
	visited := make(map[uint32]bool)
	offset := uint32(0)
	for {
		required := 1
		if offset == 0 {
			required = 0
		}
		if len(g.Prev[offset]) != required {
			break
		}
		node, ok := g.Nodes[offset]
		if !ok {
			break
		}
		if node.SP.Present && node.SP.Add > 0 {
			break
		}
		sum += node.SP.Add
		visited[offset] = true

		if node.PCKind == pcflow.Call {
			break
		}
		if len(node.Successors) != 1 {
			break
		}
		offset = node.Successors[0]
	}
	return sum, visited, true
}

func returnWalk(g *flowgraph.Graph, start uint32) (int32, map[uint32]bool) {
	var sum int32
	visited := make(map[uint32]bool)
	offset := start
	first := true
	for {
		required := 1
		if first {
			required = 0
		}
		if len(g.Next[offset]) != required {
			break
		}
		node, ok := g.Nodes[offset]
		if !ok {
			break
		}
		if node.SP.Present && node.SP.Add < 0 {
			break
		}
		sum += node.SP.Add
		visited[offset] = true

		if node.PCKind == pcflow.Call {
			break
		}
		preds := g.Prev[offset]
		if len(preds) != 1 {
			break
		}
		offset = preds[0]
		first = false
	}
	return sum, visited
}

func returnSites(g *flowgraph.Graph) []uint32 {
	var out []uint32
	for _, off := range g.Order {
		if g.Nodes[off].Successors == nil {
			out = append(out, off)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func copySet(m map[uint32]bool) map[uint32]bool {
	out := make(map[uint32]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func checkCoverage(g *flowgraph.Graph, visited map[uint32]bool) error {
	for _, off := range g.Order {
		node := g.Nodes[off]
		if node.SP.Present && node.SP.Add != 0 && !visited[off] {
			return &RejectedError{FunctionAddr: uint32(g.FunctionAddr), Reason: fmt.Sprintf("function not analyzable: stack-affecting instruction at offset %d lies outside the entry/return walks", off)}
		}
	}
	return nil
}
