// Package explorer is a read-only interactive browser over an already
// computed program.Program, opened with the "-explore" flag. Grounded
// directly on the teacher's debugger/tui.go: the same
// tview.Application/Flex/TextView/InputField layout and command-input
// idiom, adapted from an editable breakpoint/register debugger to a
// read-only function list and call-graph/entrypoint browser.
package explorer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lookbusy1344/armv6m-stackdepth/isa"
	"github.com/lookbusy1344/armv6m-stackdepth/program"
)

// Explorer is the interactive program browser.
type Explorer struct {
	Program *program.Program
	byAddr  map[isa.Address]*program.Function

	App          *tview.Application
	FunctionList *tview.List
	DetailView   *tview.TextView
	EntryView    *tview.TextView
	CommandInput *tview.InputField

	order []isa.Address
}

// New builds an Explorer over p.
func New(p *program.Program) *Explorer {
	e := &Explorer{
		Program: p,
		byAddr:  p.ByAddress(),
		App:     tview.NewApplication(),
	}
	e.order = make([]isa.Address, 0, len(p.Functions))
	for _, f := range p.Functions {
		e.order = append(e.order, f.Address)
	}
	sort.Slice(e.order, func(i, j int) bool { return e.order[i] < e.order[j] })

	e.initializeViews()
	e.buildLayout()
	e.populateFunctionList()
	return e
}

func (e *Explorer) initializeViews() {
	e.FunctionList = tview.NewList().ShowSecondaryText(false)
	e.FunctionList.SetBorder(true).SetTitle(" Functions ")

	e.DetailView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	e.DetailView.SetBorder(true).SetTitle(" Detail ")

	e.EntryView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	e.EntryView.SetBorder(true).SetTitle(" Entrypoints ")
	e.updateEntryView()

	e.CommandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0)
	e.CommandInput.SetBorder(true).SetTitle(" Goto (address or name) ")
	e.CommandInput.SetDoneFunc(e.handleCommand)
}

func (e *Explorer) buildLayout() {
	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(e.FunctionList, 0, 3, true).
		AddItem(e.CommandInput, 3, 0, false)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(e.DetailView, 0, 2, false).
		AddItem(e.EntryView, 0, 1, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(left, 0, 1, true).
		AddItem(right, 0, 2, false)

	e.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlC {
			e.App.Stop()
			return nil
		}
		return event
	})

	e.App.SetRoot(root, true).SetFocus(e.FunctionList)
}

func (e *Explorer) populateFunctionList() {
	for _, addr := range e.order {
		fn := e.byAddr[addr]
		name := "?"
		if len(fn.Names) > 0 {
			name = fn.Names[0]
		}
		label := fmt.Sprintf("0x%08x  %-40s  grow=%-6d cumul=%-6d", uint32(addr), name, fn.StackGrow, fn.StackGrowCumulative)
		target := addr
		e.FunctionList.AddItem(label, "", 0, func() { e.showFunction(target) })
	}
	e.FunctionList.SetChangedFunc(func(i int, _ string, _ string, _ rune) {
		if i >= 0 && i < len(e.order) {
			e.showFunction(e.order[i])
		}
	})
	if len(e.order) > 0 {
		e.showFunction(e.order[0])
	}
}

func (e *Explorer) showFunction(addr isa.Address) {
	fn, ok := e.byAddr[addr]
	if !ok {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]Address:[white] 0x%08x\n", uint32(fn.Address))
	fmt.Fprintf(&b, "[yellow]Names:[white] %s\n", strings.Join(fn.Names, ", "))
	fmt.Fprintf(&b, "[yellow]Stack grow (own):[white] %d\n", fn.StackGrow)
	fmt.Fprintf(&b, "[yellow]Stack grow (cumulative):[white] %d\n", fn.StackGrowCumulative)
	fmt.Fprintf(&b, "[yellow]Reachable:[white] %v\n\n", !fn.Unreachable)
	fmt.Fprintf(&b, "[yellow]Calls:[white]\n")
	for _, c := range fn.CallAddresses {
		callee, ok := e.byAddr[c]
		if !ok {
			fmt.Fprintf(&b, "  0x%08x <unresolved>\n", uint32(c))
			continue
		}
		name := "?"
		if len(callee.Names) > 0 {
			name = callee.Names[0]
		}
		fmt.Fprintf(&b, "  0x%08x  %s (cumul=%d)\n", uint32(c), name, callee.StackGrowCumulative)
	}
	e.DetailView.SetText(b.String())
}

func (e *Explorer) updateEntryView() {
	var b strings.Builder
	for i, g := range e.Program.Entrypoints.Groups {
		var names []string
		for _, m := range g.Members {
			names = append(names, m.Name)
		}
		fmt.Fprintf(&b, "group %d: %s (grow=%d)\n", i, strings.Join(names, ", "), g.StackGrow)
	}
	fmt.Fprintf(&b, "\n[yellow]Total worst-case stack:[white] %d\n", e.Program.Entrypoints.StackSize)
	e.EntryView.SetText(b.String())
}

// handleCommand jumps the function list to an address (hexadecimal,
// with or without a 0x prefix) or
// an exact function name typed into the command input.
func (e *Explorer) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	text := strings.TrimSpace(e.CommandInput.GetText())
	e.CommandInput.SetText("")
	if text == "" {
		return
	}
	if addr, err := parseAddress(text); err == nil {
		for i, a := range e.order {
			if a == addr {
				e.FunctionList.SetCurrentItem(i)
				return
			}
		}
		return
	}
	for i, a := range e.order {
		for _, n := range e.byAddr[a].Names {
			if n == text {
				e.FunctionList.SetCurrentItem(i)
				return
			}
		}
	}
}

func parseAddress(s string) (isa.Address, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return isa.Address(n), nil
}

// Run starts the explorer's event loop.
func (e *Explorer) Run() error {
	return e.App.Run()
}
