package render

import (
	"strings"
	"testing"

	"github.com/lookbusy1344/armv6m-stackdepth/isa"
	"github.com/lookbusy1344/armv6m-stackdepth/program"
)

func TestFunctionTableFormatsAddressAndColumns(t *testing.T) {
	p := &program.Program{
		Functions: []program.Function{
			{Address: 0x100, Names: []string{"foo"}, StackGrow: 8, StackGrowCumulative: 8},
		},
	}
	var b strings.Builder
	if err := FunctionTable(&b, p, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := b.String()
	if !strings.Contains(out, "foo") || !strings.Contains(out, "0x00000100") {
		t.Fatalf("FunctionTable output missing expected fields: %q", out)
	}
}

// TestCallTreeMarksHotPath builds a tiny four-function call graph
// (root -> a -> b, root -> c, where a's subtree carries the larger
// cumulative growth) and checks the tree starts at the unreferenced
// root and marks the callee whose growth the parent's cumulative
// figure is attributable to.
func TestCallTreeMarksHotPath(t *testing.T) {
	p := &program.Program{
		Functions: []program.Function{
			{Address: 0x10, Names: []string{"b"}, StackGrow: 4, StackGrowCumulative: 4},
			{Address: 0x20, Names: []string{"c"}, StackGrow: 4, StackGrowCumulative: 4},
			{Address: 0x30, Names: []string{"a"}, StackGrow: 4, StackGrowCumulative: 8, CallAddresses: []isa.Address{0x10}},
			{Address: 0x40, Names: []string{"root"}, StackGrow: 4, StackGrowCumulative: 12, CallAddresses: []isa.Address{0x30, 0x20}},
		},
	}

	var b strings.Builder
	if err := CallTree(&b, p, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := b.String()

	if !strings.HasPrefix(out, "root (grow=4 cumul=12)\n") {
		t.Fatalf("CallTree should start at the unreferenced root, got: %q", out)
	}
	if !strings.Contains(out, "* a (grow=4 cumul=8)") {
		t.Fatalf("CallTree should mark a as the hot callee of root: %q", out)
	}
	if strings.Contains(out, "* c (grow=4 cumul=4)") {
		t.Fatalf("CallTree should not mark c as hot: %q", out)
	}
	if !strings.Contains(out, "b (grow=4 cumul=4)") {
		t.Fatalf("CallTree should recurse into a's subtree: %q", out)
	}
}
