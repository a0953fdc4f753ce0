package cumulative

import (
	"testing"

	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

// TestSolveLeafHasNoCallees exercises the base case: stack_grow_cumulative
// is just stack_grow when a function calls nothing.
func TestSolveLeafHasNoCallees(t *testing.T) {
	functions := []Function{
		{Address: 0x100, Names: []string{"foo"}, StackGrow: 8},
	}
	res, err := Solve(functions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Cumulative[0x100] != 8 {
		t.Fatalf("cumulative = %d, want 8", res.Cumulative[0x100])
	}
}

// TestSolveChain exercises a three-deep call chain where the middle
// function has two callees: cumulative takes the larger callee branch.
func TestSolveChain(t *testing.T) {
	functions := []Function{
		{Address: 0x100, Names: []string{"leaf_small"}, StackGrow: 4},
		{Address: 0x200, Names: []string{"leaf_big"}, StackGrow: 20},
		{Address: 0x300, Names: []string{"mid"}, StackGrow: 8, Callees: []isa.Address{0x100, 0x200}},
		{Address: 0x400, Names: []string{"top"}, StackGrow: 4, Callees: []isa.Address{0x300}},
	}
	res, err := Solve(functions)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Cumulative[0x100] != 4 {
		t.Fatalf("leaf_small cumulative = %d, want 4", res.Cumulative[0x100])
	}
	if res.Cumulative[0x200] != 20 {
		t.Fatalf("leaf_big cumulative = %d, want 20", res.Cumulative[0x200])
	}
	if res.Cumulative[0x300] != 28 { // 8 + max(4, 20)
		t.Fatalf("mid cumulative = %d, want 28", res.Cumulative[0x300])
	}
	if res.Cumulative[0x400] != 32 { // 4 + 28
		t.Fatalf("top cumulative = %d, want 32", res.Cumulative[0x400])
	}
}

// TestSolveRejectsDirectRecursion exercises spec.md §8 S4: a calls b,
// b calls a.
func TestSolveRejectsDirectRecursion(t *testing.T) {
	functions := []Function{
		{Address: 0x100, Names: []string{"a"}, StackGrow: 8, Callees: []isa.Address{0x200}},
		{Address: 0x200, Names: []string{"b"}, StackGrow: 8, Callees: []isa.Address{0x100}},
	}
	_, err := Solve(functions)
	if err == nil {
		t.Fatalf("expected a cycle error")
	}
	cycleErr, ok := err.(*CycleError)
	if !ok {
		t.Fatalf("error = %T, want *CycleError", err)
	}
	want := map[string]bool{"a": true, "b": true}
	if len(cycleErr.Names) != 2 {
		t.Fatalf("cycle names = %v, want both a and b", cycleErr.Names)
	}
	for _, n := range cycleErr.Names {
		if !want[n] {
			t.Fatalf("unexpected name %q in cycle diagnostic", n)
		}
	}
}

// TestSolveRejectsSelfRecursion covers a function that calls itself.
func TestSolveRejectsSelfRecursion(t *testing.T) {
	functions := []Function{
		{Address: 0x100, Names: []string{"loop"}, StackGrow: 8, Callees: []isa.Address{0x100}},
	}
	if _, err := Solve(functions); err == nil {
		t.Fatalf("expected a cycle error for self-recursion")
	}
}
