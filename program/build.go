package program

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/lookbusy1344/armv6m-stackdepth/cumulative"
	"github.com/lookbusy1344/armv6m-stackdepth/cursor"
	"github.com/lookbusy1344/armv6m-stackdepth/flowgraph"
	"github.com/lookbusy1344/armv6m-stackdepth/image"
	"github.com/lookbusy1344/armv6m-stackdepth/internal/cfg"
	"github.com/lookbusy1344/armv6m-stackdepth/internal/demangle"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
	"github.com/lookbusy1344/armv6m-stackdepth/pcflow"
	"github.com/lookbusy1344/armv6m-stackdepth/stackanalysis"
)

// exceptionName is the ARMv6-M fixed vector-table layout (spec.md §6):
// offsets 1-15 are core exceptions, reserved indices are warned about
// but not fatal.
var exceptionName = map[int]string{
	1:  "Reset",
	2:  "NMI",
	3:  "HardFault",
	11: "SVCall",
	14: "PendSV",
	15: "SysTick",
}

// BatchError collects every per-function or per-instruction diagnostic
// from one analysis run (spec.md §7: "analyzing all functions reports a
// grouped failure rather than bailing on the first").
type BatchError struct {
	Errors []error
}

func (e *BatchError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors, first: %s", len(e.Errors), e.Errors[0])
}

// Build runs the full pipeline (decode → cursor → pcflow/spflow →
// flowgraph → stackanalysis → cumulative → entrypoint) over img,
// applying config overrides, and assembles the final Program.
func Build(img *image.Image, config *cfg.Config) (*Program, error) {
	if config == nil {
		config = cfg.Default()
	}

	overrides := make(pcflow.CallOverrides, len(config.Functions.InstructionsEffect.CallOverrides))
	for _, ov := range config.Functions.InstructionsEffect.CallOverrides {
		addr, err := isa.NewAddress(ov.Source)
		if err != nil {
			return nil, fmt.Errorf("program: call_overrides: %w", err)
		}
		targets := make([]isa.Address, 0, len(ov.Targets))
		for _, t := range ov.Targets {
			ta, err := isa.NewAddress(t)
			if err != nil {
				return nil, fmt.Errorf("program: call_overrides: %w", err)
			}
			targets = append(targets, ta)
		}
		overrides[addr] = targets
	}

	var errs []error
	functions := make([]*cursor.Function, 0, len(img.Functions))
	byAddr := make(map[isa.Address]*cursor.Function, len(img.Functions))
	for _, raw := range img.Functions {
		fn, err := cursor.NewFunction(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		functions = append(functions, fn)
		byAddr[raw.Address] = fn
	}
	if len(errs) > 0 {
		return nil, &BatchError{Errors: errs}
	}

	graphs, graphErrs := flowgraph.BuildAll(functions, overrides)
	if len(graphErrs) > 0 {
		return nil, &BatchError{Errors: graphErrs}
	}

	type analyzed struct {
		raw   *isa.FunctionRaw
		grow  uint32
		calls []isa.Address
	}
	results := make([]analyzed, 0, len(functions))
	for _, fn := range functions {
		g := graphs[fn.Raw.Address]
		res, err := stackanalysis.Analyze(g)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		results = append(results, analyzed{raw: fn.Raw, grow: res.StackGrow, calls: callTargets(g)})
	}
	if len(errs) > 0 {
		return nil, &BatchError{Errors: errs}
	}

	cumInput := make([]cumulative.Function, 0, len(results))
	for _, r := range results {
		cumInput = append(cumInput, cumulative.Function{
			Address:   r.raw.Address,
			Names:     r.raw.Names,
			StackGrow: r.grow,
			Callees:   r.calls,
		})
	}
	cumResult, err := cumulative.Solve(cumInput)
	if err != nil {
		return nil, err
	}

	reportByAddr := make(map[isa.Address]*Function, len(results))
	reportFns := make([]Function, 0, len(results))
	for _, r := range results {
		names := make([]string, len(r.raw.Names))
		for i, n := range r.raw.Names {
			names[i] = demangle.Name(n)
		}
		reportFns = append(reportFns, Function{
			Address:             r.raw.Address,
			Names:               names,
			StackGrow:           r.grow,
			StackGrowCumulative: cumResult.Cumulative[r.raw.Address],
			CallAddresses:       r.calls,
		})
	}
	sort.Slice(reportFns, func(i, j int) bool { return reportFns[i].Address < reportFns[j].Address })
	for i := range reportFns {
		reportByAddr[reportFns[i].Address] = &reportFns[i]
	}

	markReachability(reportFns, reportByAddr, img, overrides)

	entrypoints, warnings, err := buildEntrypoints(img, cumResult, config, reportByAddr)
	if err != nil {
		return nil, err
	}

	return &Program{Functions: reportFns, Entrypoints: entrypoints, Warnings: warnings}, nil
}

func callTargets(g *flowgraph.Graph) []isa.Address {
	seen := map[isa.Address]bool{}
	var out []isa.Address
	for _, off := range g.Order {
		for _, addr := range g.Nodes[off].CallAddresses {
			if !seen[addr] {
				seen[addr] = true
				out = append(out, addr)
			}
		}
	}
	return out
}

// markReachability flags functions not reachable from any entrypoint
// vector or any other function's call set (spec.md §7 warning).
func markReachability(fns []Function, byAddr map[isa.Address]*Function, img *image.Image, overrides pcflow.CallOverrides) {
	reached := map[isa.Address]bool{}
	for _, f := range fns {
		for _, c := range f.CallAddresses {
			reached[c] = true
		}
	}
	for _, v := range vectorAddresses(img.VectorTable) {
		reached[v] = true
	}
	for i := range fns {
		if !reached[fns[i].Address] {
			fns[i].Unreachable = true
		}
	}
}

func vectorAddresses(vecTable []byte) []isa.Address {
	var out []isa.Address
	for i := 0; i+4 <= len(vecTable); i += 4 {
		raw := binary.LittleEndian.Uint32(vecTable[i:])
		if raw == 0 {
			continue
		}
		if addr, err := isa.NewAddress(raw); err == nil {
			out = append(out, addr)
		}
	}
	return out
}
