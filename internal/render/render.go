// Package render formats a program.Program for terminal output: a
// column-aligned function table and a priority-group summary.
// Grounded on the teacher's tools/format.go column-alignment approach
// (padToColumn / fixed columns), translated to text/tabwriter since no
// third-party table-rendering library appears anywhere in the pack.
package render

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/lookbusy1344/armv6m-stackdepth/internal/runcfg"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
	"github.com/lookbusy1344/armv6m-stackdepth/program"
)

func formatAddress(addr isa.Address, numberFormat string) string {
	if numberFormat == "dec" {
		return fmt.Sprintf("%d", addr)
	}
	return fmt.Sprintf("0x%08x", uint32(addr))
}

// FunctionTable writes the per-function report as an aligned table.
func FunctionTable(w io.Writer, p *program.Program, cfg *runcfg.Config) error {
	if cfg == nil {
		cfg = runcfg.Default()
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tNAME\tSTACK_GROW\tSTACK_GROW_CUMULATIVE\tCALLS\tREACHABLE")

	rows := p.Functions
	if cfg.Display.MaxRows > 0 && len(rows) > cfg.Display.MaxRows {
		rows = rows[:cfg.Display.MaxRows]
	}
	for _, f := range rows {
		name := "?"
		if len(f.Names) > 0 {
			name = f.Names[0]
		}
		reachable := "yes"
		if f.Unreachable {
			reachable = "no"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			formatAddress(f.Address, cfg.Display.NumberFormat), name,
			f.StackGrow, f.StackGrowCumulative, len(f.CallAddresses), reachable)
	}
	if len(p.Functions) > len(rows) {
		fmt.Fprintf(tw, "...\t(%d more functions omitted, raise display.max_rows)\t\t\t\t\n", len(p.Functions)-len(rows))
	}
	return tw.Flush()
}

// EntrypointSummary writes the aggregated priority-group picture and
// the final worst-case stack size.
func EntrypointSummary(w io.Writer, p *program.Program, cfg *runcfg.Config) error {
	if cfg == nil {
		cfg = runcfg.Default()
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tMEMBERS\tSTACK_GROW")
	for i, g := range p.Entrypoints.Groups {
		names := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			names = append(names, m.Name)
		}
		sort.Strings(names)
		fmt.Fprintf(tw, "%d\t%v\t%d\n", i, names, g.StackGrow)
	}
	fmt.Fprintf(tw, "TOTAL\t\t%d\n", p.Entrypoints.StackSize)
	return tw.Flush()
}

// Warnings writes one line per diagnostic warning.
func Warnings(w io.Writer, p *program.Program) {
	for _, msg := range p.Warnings {
		fmt.Fprintf(w, "warning: %s\n", msg)
	}
}

// CallTree writes one call-graph tree per root function (a reachable
// function nothing else in the program calls — i.e. an entrypoint
// handler), marking with "*" the callee at each level whose
// StackGrowCumulative equals the parent's StackGrowCumulative minus the
// parent's own StackGrow, since that is the callee
// whose own recursive growth is what the cumulative-stack solver
// (spec.md §4.7) actually walked to produce the parent's figure.
func CallTree(w io.Writer, p *program.Program, cfg *runcfg.Config) error {
	if cfg == nil {
		cfg = runcfg.Default()
	}
	byAddr := p.ByAddress()

	called := map[isa.Address]bool{}
	for _, f := range p.Functions {
		for _, c := range f.CallAddresses {
			called[c] = true
		}
	}

	var roots []program.Function
	for _, f := range p.Functions {
		if !f.Unreachable && !called[f.Address] {
			roots = append(roots, f)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Address < roots[j].Address })

	for _, r := range roots {
		name := displayName(r.Names)
		fmt.Fprintf(w, "%s (grow=%d cumul=%d)\n", name, r.StackGrow, r.StackGrowCumulative)
		printCallTreeChildren(w, byAddr, r.Address, "  ", map[isa.Address]bool{r.Address: true}, cfg)
	}
	return nil
}

func printCallTreeChildren(w io.Writer, byAddr map[isa.Address]*program.Function, addr isa.Address, prefix string, onPath map[isa.Address]bool, cfg *runcfg.Config) {
	fn, ok := byAddr[addr]
	if !ok {
		return
	}

	calls := append([]isa.Address(nil), fn.CallAddresses...)
	sort.Slice(calls, func(i, j int) bool { return calls[i] < calls[j] })

	for _, c := range calls {
		callee, ok := byAddr[c]
		if !ok {
			fmt.Fprintf(w, "%s  <unresolved %s>\n", prefix, formatAddress(c, cfg.Display.NumberFormat))
			continue
		}
		hot := callee.StackGrowCumulative == fn.StackGrowCumulative-fn.StackGrow
		marker := " "
		if hot {
			marker = "*"
		}
		fmt.Fprintf(w, "%s%s %s (grow=%d cumul=%d)\n", prefix, marker, displayName(callee.Names), callee.StackGrow, callee.StackGrowCumulative)
		if onPath[c] {
			// Call graph is a DAG (cumulative.Solve already rejects
			// cycles) but a diamond can revisit the same callee on two
			// branches; don't re-expand a node already on this path.
			continue
		}
		next := make(map[isa.Address]bool, len(onPath)+1)
		for k := range onPath {
			next[k] = true
		}
		next[c] = true
		printCallTreeChildren(w, byAddr, c, prefix+"  ", next, cfg)
	}
}

func displayName(names []string) string {
	if len(names) == 0 {
		return "?"
	}
	return names[0]
}
