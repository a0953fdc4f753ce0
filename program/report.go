// Package program assembles the earlier pipeline stages into the final
// whole-program report (spec.md §4's stage 10, "Program assembler").
// Grounded on the teacher's api/models.go, which shapes internal VM
// state into stable, externally consumed DTOs the same way this
// package shapes the analysis pipeline's internal types into a single
// reportable Program value.
package program

import (
	"github.com/lookbusy1344/armv6m-stackdepth/entrypoint"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

// Function is one function's program-level report row.
type Function struct {
	Address             isa.Address
	Names               []string
	StackGrow           uint32
	StackGrowCumulative uint32
	CallAddresses       []isa.Address
	Unreachable         bool // true if no entrypoint/call site reaches it (spec.md §7 warning)
}

// Program is the fully assembled whole-program report.
type Program struct {
	Functions   []Function
	Entrypoints entrypoint.Program
	Warnings    []string
}

// ByAddress returns fn's index-by-address map, built once per call
// (spec.md §3's "lazy derived indexes" note recommends building these
// at construction time instead; Program is small enough and built once
// per run that callers needing repeated lookups should cache this
// themselves).
func (p *Program) ByAddress() map[isa.Address]*Function {
	m := make(map[isa.Address]*Function, len(p.Functions))
	for i := range p.Functions {
		m[p.Functions[i].Address] = &p.Functions[i]
	}
	return m
}
