package stackanalysis

import (
	"testing"

	"github.com/lookbusy1344/armv6m-stackdepth/cursor"
	"github.com/lookbusy1344/armv6m-stackdepth/flowgraph"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }

func functionFromCode(t *testing.T, addr isa.Address, name string, code []byte) *cursor.Function {
	t.Helper()
	raw := &isa.FunctionRaw{
		Address: addr,
		Size:    uint32(len(code)),
		Names:   []string{name},
		Regions: []isa.Region{{Offset: 0, Size: uint32(len(code)), Kind: isa.RegionCode}},
		Bytes:   code,
	}
	fn, err := cursor.NewFunction(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return fn
}

// TestAnalyzeLeafFunction is spec.md §8 S1: stack_grow = 8.
func TestAnalyzeLeafFunction(t *testing.T) {
	var code []byte
	code = append(code, le16(0b1011010100010000)...) // PUSH {R4, LR}
	code = append(code, le16(0b0010000000101010)...) // MOVS R0, #0x2A
	code = append(code, le16(0b1011110100010000)...) // POP {R4, PC}
	fn := functionFromCode(t, 0x100, "foo", code)

	g, errs := flowgraph.Build(fn, nil, nil, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected graph errors: %v", errs)
	}
	res, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.StackGrow != 8 {
		t.Fatalf("StackGrow = %d, want 8", res.StackGrow)
	}
}

// TestAnalyzeNonReturningCall is spec.md §8 S2: main.stack_grow = 4.
func TestAnalyzeNonReturningCall(t *testing.T) {
	var mainCode []byte
	mainCode = append(mainCode, le16(0b1011010100000000)...)      // PUSH {LR}
	mainCode = append(mainCode, []byte{0x00, 0xF0, 0x7D, 0xF8}...) // BL panic (+250 -> 0x300)
	mainFn := functionFromCode(t, 0x200, "main", mainCode)

	exists := map[isa.Address]bool{0x200: true, 0x300: true}
	returns := map[isa.Address]bool{0x300: false}
	calleeExists := func(a isa.Address) bool { return exists[a] }
	calleeReturns := func(a isa.Address) bool { r, ok := returns[a]; return !ok || r }

	g, errs := flowgraph.Build(mainFn, nil, calleeReturns, calleeExists)
	if len(errs) != 0 {
		t.Fatalf("unexpected graph errors: %v", errs)
	}
	res, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.StackGrow != 4 {
		t.Fatalf("StackGrow = %d, want 4", res.StackGrow)
	}
}

// TestAnalyzePanicSelfLoop is spec.md §8 S2's callee: panic.stack_grow = 0.
func TestAnalyzePanicSelfLoop(t *testing.T) {
	code := le16(0b1110011111111110) // B . (self: offset+4-4=offset)
	fn := functionFromCode(t, 0x300, "panic", code)

	g, errs := flowgraph.Build(fn, nil, nil, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected graph errors: %v", errs)
	}
	res, err := Analyze(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.StackGrow != 0 {
		t.Fatalf("StackGrow = %d, want 0", res.StackGrow)
	}
}

// TestAnalyzeRejectsDivergentReturnPaths is spec.md §8 S6: two POP {PC}
// sites where one pops an extra register must be rejected.
func TestAnalyzeRejectsDivergentReturnPaths(t *testing.T) {
	var code []byte
	code = append(code, le16(0b1011010100010000)...) // 0: PUSH {R4, LR}
	code = append(code, le16(0b0010100000000000)...) // 2: CMP R0, #0
	code = append(code, le16(0b1101000000000000)...) // 4: BEQ #8 (taken: target = 4+4+0 = 8)
	code = append(code, le16(0b1011110100010000)...) // 6: POP {R4, PC}       (fallthrough return, 2 regs)
	code = append(code, le16(0b1011110100110000)...) // 8: POP {R4, R5, PC}  (branch-target return, 3 regs)
	fn := functionFromCode(t, 0x100, "divergent", code)

	g, errs := flowgraph.Build(fn, nil, nil, nil)
	if len(errs) != 0 {
		t.Fatalf("unexpected graph errors: %v", errs)
	}
	if _, err := Analyze(g); err == nil {
		t.Fatalf("expected divergent return paths to be rejected")
	}
}
