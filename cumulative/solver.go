// Package cumulative computes each function's cumulative stack growth
// over the static call graph (spec.md §4.7):
// stack_grow_cumulative(f) = stack_grow(f) + max(cumulative(g) : g in callees(f)),
// 0 if f has no callees. Grounded on parser/macros.go's repeated
// expansion-until-no-progress loop for nested macro resolution, reused
// here as a bounded-worklist fixed point with the same "no progress ⇒
// cycle" termination rule.
package cumulative

import (
	"fmt"
	"sort"

	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

// Function is the minimal per-function input the solver needs: its own
// growth and its direct callees.
type Function struct {
	Address   isa.Address
	Names     []string
	StackGrow uint32
	Callees   []isa.Address
}

// Result is the solved cumulative growth for every function that could
// be resolved.
type Result struct {
	Cumulative map[isa.Address]uint32
}

// CycleError reports a set of functions whose call graph forms a cycle
// (direct or indirect recursion), which spec.md's Non-goals exclude
// support for.
type CycleError struct {
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("call-graph cycle (recursion) involving: %v", e.Names)
}

// Solve runs the repeated-pass fixed point described in spec.md §4.7.
func Solve(functions []Function) (Result, error) {
	byAddr := make(map[isa.Address]Function, len(functions))
	for _, f := range functions {
		byAddr[f.Address] = f
	}

	cumulative := make(map[isa.Address]uint32, len(functions))
	resolved := make(map[isa.Address]bool, len(functions))

	for {
		progressed := false
		for _, f := range functions {
			if resolved[f.Address] {
				continue
			}
			ready := true
			maxCallee := uint32(0)
			for _, callee := range f.Callees {
				if callee == f.Address {
					ready = false
					break
				}
				if !resolved[callee] {
					ready = false
					break
				}
				if c := cumulative[callee]; c > maxCallee {
					maxCallee = c
				}
			}
			if !ready {
				continue
			}
			cumulative[f.Address] = f.StackGrow + maxCallee
			resolved[f.Address] = true
			progressed = true
		}
		if !progressed {
			break
		}
	}

	if len(resolved) != len(functions) {
		var names []string
		for _, f := range functions {
			if !resolved[f.Address] {
				names = append(names, primaryName(f))
			}
		}
		sort.Strings(names)
		return Result{}, &CycleError{Names: names}
	}

	return Result{Cumulative: cumulative}, nil
}

func primaryName(f Function) string {
	if len(f.Names) == 0 {
		return fmt.Sprintf("0x%x", f.Address)
	}
	return f.Names[0]
}
