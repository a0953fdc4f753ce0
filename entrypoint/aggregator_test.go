package entrypoint

import "testing"

func TestLiftRoundsUpAndAddsFrame(t *testing.T) {
	cases := []struct {
		name    string
		raw     Raw
		want    uint32
	}{
		{"reset no frame, already aligned", Raw{Name: "Reset", CumulativeStack: 64, IsReset: true}, 64},
		{"non-reset adds 32-byte frame, already aligned", Raw{Name: "HardFault", CumulativeStack: 16}, 48},
		{"adds 32-byte frame, result already 8-aligned", Raw{Name: "I0", CumulativeStack: 40}, 72},
		{"adds 32-byte frame, bigger cumulative", Raw{Name: "I1", CumulativeStack: 56}, 88},
		{"unknown priority still lifts the same way", Raw{Name: "Iunknown", CumulativeStack: 80, PriorityGroup: -1}, 112},
	}
	for _, c := range cases {
		got := Lift(c.raw)
		if got.StackGrow != c.want {
			t.Fatalf("%s: Lift(%+v).StackGrow = %d, want %d", c.name, c.raw, got.StackGrow, c.want)
		}
	}
}

// TestAggregateWorkedExample reproduces spec.md §8 S5 exactly: total = 384.
func TestAggregateWorkedExample(t *testing.T) {
	raws := []Raw{
		{Name: "Reset", CumulativeStack: 64, IsReset: true},
		{Name: "HardFault", CumulativeStack: 16, NonConfigurable: true},
		{Name: "I0", CumulativeStack: 40, PriorityGroup: 0},
		{Name: "I1", CumulativeStack: 56, PriorityGroup: 1},
		{Name: "Iunknown", CumulativeStack: 80, PriorityGroup: -1},
	}
	prog := Aggregate(raws)

	want := map[string]uint32{
		"Reset":     64,
		"HardFault": 48,
		"I0":        72,
		"I1":        88,
		"Iunknown":  112,
	}
	got := map[string]uint32{}
	for _, g := range prog.Groups {
		for _, m := range g.Members {
			got[m.Name] = m.StackGrow
		}
	}
	for name, w := range want {
		if got[name] != w {
			t.Fatalf("%s stack_grow = %d, want %d", name, got[name], w)
		}
	}

	if len(prog.Groups) != 5 { // reset + hardfault + 3 configurable groups
		t.Fatalf("got %d groups, want 5 (reset + hardfault + 3)", len(prog.Groups))
	}
	if prog.StackSize != 384 {
		t.Fatalf("StackSize = %d, want 384", prog.StackSize)
	}
}

// TestAggregateCapsAtPriorityGroupCount exercises the "select top 4 by
// size" rule when more than P candidate groups compete.
func TestAggregateCapsAtPriorityGroupCount(t *testing.T) {
	raws := []Raw{
		{Name: "Reset", CumulativeStack: 0, IsReset: true},
		{Name: "A", CumulativeStack: 8, PriorityGroup: -1},
		{Name: "B", CumulativeStack: 16, PriorityGroup: -1},
		{Name: "C", CumulativeStack: 24, PriorityGroup: -1},
		{Name: "D", CumulativeStack: 32, PriorityGroup: -1},
		{Name: "E", CumulativeStack: 40, PriorityGroup: -1}, // 5th singleton, the largest
	}
	prog := Aggregate(raws)
	if len(prog.Groups) != 5 { // reset + 4 selected by size (the smallest, "A", is excluded)
		t.Fatalf("got %d groups, want 5", len(prog.Groups))
	}
	for _, g := range prog.Groups {
		for _, m := range g.Members {
			if m.Name == "A" {
				t.Fatalf("A (the smallest candidate) should have been dropped by the top-4 selection")
			}
		}
	}
}

// TestAggregateNonConfigurableSurvivesTheCap guards against the
// non-configurable group (HardFault, NMI) being thrown into the
// capped-at-P candidate pool alongside configurable/unknown-priority
// groups: with five configurable singletons outweighing HardFault and
// NMI, both non-configurable exceptions must still appear in the final
// groups and contribute to StackSize, since only group B (configurable)
// is subject to the top-PriorityGroupCount selection (spec.md §4.8 step
// 2; the non-configurable group is appended unconditionally).
func TestAggregateNonConfigurableSurvivesTheCap(t *testing.T) {
	raws := []Raw{
		{Name: "Reset", CumulativeStack: 0, IsReset: true},
		{Name: "HardFault", CumulativeStack: 8, NonConfigurable: true},
		{Name: "NMI", CumulativeStack: 8, NonConfigurable: true},
		{Name: "A", CumulativeStack: 100, PriorityGroup: -1},
		{Name: "B", CumulativeStack: 200, PriorityGroup: -1},
		{Name: "C", CumulativeStack: 300, PriorityGroup: -1},
		{Name: "D", CumulativeStack: 400, PriorityGroup: -1},
		{Name: "E", CumulativeStack: 500, PriorityGroup: -1}, // 5th configurable singleton, bumps A out of the top 4
	}
	prog := Aggregate(raws)

	seen := map[string]bool{}
	var total uint32
	for _, g := range prog.Groups {
		for _, m := range g.Members {
			seen[m.Name] = true
			total += m.StackGrow
		}
	}
	if !seen["HardFault"] || !seen["NMI"] {
		t.Fatalf("HardFault/NMI must survive the top-%d cap on configurable groups, got groups: %+v", PriorityGroupCount, prog.Groups)
	}
	if seen["A"] {
		t.Fatalf("A (the smallest configurable candidate) should have been dropped by the top-%d selection", PriorityGroupCount)
	}
	if prog.StackSize != total {
		t.Fatalf("StackSize = %d, want sum over all surviving groups %d", prog.StackSize, total)
	}
}

func TestAggregateGroupsConfigurablePrioritiesTogether(t *testing.T) {
	raws := []Raw{
		{Name: "I0a", CumulativeStack: 8, PriorityGroup: 0},
		{Name: "I0b", CumulativeStack: 24, PriorityGroup: 0},
	}
	prog := Aggregate(raws)
	if len(prog.Groups) != 1 {
		t.Fatalf("got %d groups, want 1 (both share priority group 0)", len(prog.Groups))
	}
	g := prog.Groups[0]
	if len(g.Members) != 2 {
		t.Fatalf("group has %d members, want 2", len(g.Members))
	}
	wantWorst := Lift(Raw{CumulativeStack: 24}).StackGrow
	if g.StackGrow != wantWorst {
		t.Fatalf("group StackGrow = %d, want max-over-members %d", g.StackGrow, wantWorst)
	}
}
