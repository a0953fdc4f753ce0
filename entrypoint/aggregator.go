// Package entrypoint aggregates the vector table's entry points into
// priority groups and sums the processor's worst-case concurrent stack
// usage (spec.md §4.8). Grounded on the teacher's vm/syscall.go
// dispatch-table-by-number idiom, adapted from syscall numbers to
// vector-table indices and priority groups.
package entrypoint

import (
	"sort"
)

// ExceptionFrameBytes is the fixed exception-entry frame size the
// processor automatically pushes (8 words: R0-R3, R12, LR, PC, xPSR).
const ExceptionFrameBytes = 32

// PriorityGroupCount is the Cortex-M0's fixed number of configurable
// preemption levels (2 configurable priority bits).
const PriorityGroupCount = 4

// Raw is one vector-table entry before stack-grow has been rounded and
// frame overhead added.
type Raw struct {
	Name            string
	CumulativeStack uint32
	IsReset         bool // no exception frame overhead
	PriorityGroup   int  // -1 if unknown (worst-case: may preempt anything)
	NonConfigurable bool // Reset/HardFault/NMI: always its own singleton group
}

// Entrypoint is one lifted, program-level vector-table entry.
type Entrypoint struct {
	Name      string
	StackGrow uint32
}

// PriorityGroup is a set of entrypoints that cannot preempt each other.
type PriorityGroup struct {
	Members   []Entrypoint
	StackGrow uint32 // max over members
}

// Program is the aggregated, whole-program entrypoint picture.
type Program struct {
	Groups    []PriorityGroup
	StackSize uint32
}

// Lift rounds r's stack_grow up to an 8-byte multiple and adds the
// exception-entry frame overhead (0 for Reset).
func Lift(r Raw) Entrypoint {
	frame := uint32(ExceptionFrameBytes)
	if r.IsReset {
		frame = 0
	}
	raw := r.CumulativeStack + frame
	rounded := (raw + 7) &^ 7
	return Entrypoint{Name: r.Name, StackGrow: rounded}
}

// Aggregate builds priority groups from raw entrypoints and sums their
// worst-case stack growth (spec.md §4.8 step 2-3).
//
// Group A — Reset plus the non-configurable exceptions (HardFault, NMI
// if enabled) — is appended unconditionally and never competes for one
// of the P slots. Only group B, the configurable exceptions/interrupts
// (grouped by known priority index, or singleton when the priority is
// unknown and any of them may preempt any other), is capped to the top
// P = PriorityGroupCount by StackGrow. Mirrors the original's
// `entrypoints_priority_groups.append(...)` for group A versus
// `islice(sorted(...), PRIORITY_GROUPS)` for group B.
func Aggregate(raws []Raw) Program {
	var nonConfigurable []PriorityGroup
	var unknownPriority []PriorityGroup
	byGroup := map[int][]Entrypoint{}

	for _, r := range raws {
		ep := Lift(r)
		switch {
		case r.IsReset || r.NonConfigurable:
			nonConfigurable = append(nonConfigurable, PriorityGroup{Members: []Entrypoint{ep}, StackGrow: ep.StackGrow})
		case r.PriorityGroup < 0:
			unknownPriority = append(unknownPriority, PriorityGroup{Members: []Entrypoint{ep}, StackGrow: ep.StackGrow})
		default:
			byGroup[r.PriorityGroup] = append(byGroup[r.PriorityGroup], ep)
		}
	}

	var candidates []PriorityGroup
	candidates = append(candidates, unknownPriority...)
	for _, members := range byGroup {
		worst := uint32(0)
		for _, m := range members {
			if m.StackGrow > worst {
				worst = m.StackGrow
			}
		}
		sort.Slice(members, func(i, j int) bool { return members[i].Name < members[j].Name })
		candidates = append(candidates, PriorityGroup{Members: members, StackGrow: worst})
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].StackGrow > candidates[j].StackGrow })

	top := candidates
	if len(top) > PriorityGroupCount {
		top = top[:PriorityGroupCount]
	}

	var groups []PriorityGroup
	var total uint32
	groups = append(groups, nonConfigurable...)
	for _, g := range nonConfigurable {
		total += g.StackGrow
	}
	groups = append(groups, top...)
	for _, g := range top {
		total += g.StackGrow
	}

	return Program{Groups: groups, StackSize: total}
}
