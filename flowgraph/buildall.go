package flowgraph

import (
	"github.com/lookbusy1344/armv6m-stackdepth/cursor"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
	"github.com/lookbusy1344/armv6m-stackdepth/pcflow"
)

// BuildAll builds every function's graph. A call edge's liveness
// depends on whether its callee has a reachable return, which in turn
// depends on the callee's own graph — so this iterates to a fixed
// point, the same repeated-pass shape the cumulative-stack solver uses
// (spec.md §4.7) over the call graph. Unknown callees default to
// "returns" (the conservative choice: dropping a live edge would
// under-count reachable code) until their own graph is built; true
// recursion never stabilizes this value and is left for the cumulative
// solver to report as a cycle by name.
func BuildAll(functions []*cursor.Function, overrides pcflow.CallOverrides) (map[isa.Address]*Graph, []error) {
	exists := make(map[isa.Address]bool, len(functions))
	for _, fn := range functions {
		exists[fn.Raw.Address] = true
	}

	returns := make(map[isa.Address]bool, len(functions))
	graphs := make(map[isa.Address]*Graph, len(functions))

	calleeReturns := func(addr isa.Address) bool {
		r, ok := returns[addr]
		return !ok || r
	}
	calleeExists := func(addr isa.Address) bool { return exists[addr] }

	var lastErrs []error
	maxPasses := len(functions) + 2
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		lastErrs = nil
		for _, fn := range functions {
			g, errs := Build(fn, overrides, calleeReturns, calleeExists)
			lastErrs = append(lastErrs, errs...)
			if prev, ok := graphs[fn.Raw.Address]; !ok || prev.HasReturn != g.HasReturn {
				changed = true
			}
			graphs[fn.Raw.Address] = g
			returns[fn.Raw.Address] = g.HasReturn
		}
		if !changed {
			break
		}
	}
	return graphs, lastErrs
}
