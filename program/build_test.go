package program

import (
	"encoding/binary"
	"testing"

	"github.com/lookbusy1344/armv6m-stackdepth/image"
	"github.com/lookbusy1344/armv6m-stackdepth/internal/cfg"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }

func vecTable(entries ...uint32) []byte {
	out := make([]byte, len(entries)*4)
	for i, e := range entries {
		binary.LittleEndian.PutUint32(out[i*4:], e)
	}
	return out
}

// TestBuildFullPipeline exercises Build end-to-end over a tiny synthetic
// image: a leaf function (spec.md §8 S1) wired as Reset, and a
// trivial BX LR handler wired as HardFault.
func TestBuildFullPipeline(t *testing.T) {
	var leafCode []byte
	leafCode = append(leafCode, le16(0b1011010100010000)...) // PUSH {R4, LR}
	leafCode = append(leafCode, le16(0b0010000000101010)...) // MOVS R0, #0x2A
	leafCode = append(leafCode, le16(0b1011110100010000)...) // POP {R4, PC}

	bxLR := le16(0b0100011101110000) // BX LR

	img := &image.Image{
		Functions: []*isa.FunctionRaw{
			{
				Address: 0x100, Size: uint32(len(leafCode)), Names: []string{"foo"},
				Regions: []isa.Region{{Offset: 0, Size: uint32(len(leafCode)), Kind: isa.RegionCode}},
				Bytes:   leafCode,
			},
			{
				Address: 0x200, Size: uint32(len(bxLR)), Names: []string{"fault_handler"},
				Regions: []isa.Region{{Offset: 0, Size: uint32(len(bxLR)), Kind: isa.RegionCode}},
				Bytes:   bxLR,
			},
		},
		VectorTable: vecTable(0, 0x101, 0, 0x201), // [SP, Reset=foo, NMI unset, HardFault=fault_handler]
	}

	prog, err := Build(img, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byAddr := prog.ByAddress()
	foo, ok := byAddr[0x100]
	if !ok {
		t.Fatalf("expected a function at 0x100")
	}
	if foo.StackGrow != 8 || foo.StackGrowCumulative != 8 {
		t.Fatalf("foo = %+v, want StackGrow=8 StackGrowCumulative=8", foo)
	}
	if foo.Unreachable {
		t.Fatalf("foo is wired as Reset, should not be flagged unreachable")
	}

	fault, ok := byAddr[0x200]
	if !ok {
		t.Fatalf("expected a function at 0x200")
	}
	if fault.StackGrow != 0 || fault.StackGrowCumulative != 0 {
		t.Fatalf("fault_handler = %+v, want StackGrow=0", fault)
	}
	if fault.Unreachable {
		t.Fatalf("fault_handler is wired as HardFault, should not be flagged unreachable")
	}

	if prog.Entrypoints.StackSize != 40 { // Reset(8) + HardFault(0+32 frame, rounded)=32
		t.Fatalf("Entrypoints.StackSize = %d, want 40", prog.Entrypoints.StackSize)
	}
	if len(prog.Entrypoints.Groups) != 2 { // Reset + HardFault singleton
		t.Fatalf("got %d entrypoint groups, want 2", len(prog.Entrypoints.Groups))
	}
}

func TestBuildRejectsMissingResetVector(t *testing.T) {
	bxLR := le16(0b0100011101110000)
	img := &image.Image{
		Functions: []*isa.FunctionRaw{{
			Address: 0x200, Size: uint32(len(bxLR)), Names: []string{"fault_handler"},
			Regions: []isa.Region{{Offset: 0, Size: uint32(len(bxLR)), Kind: isa.RegionCode}},
			Bytes:   bxLR,
		}},
		VectorTable: vecTable(0, 0, 0, 0x201), // no Reset entry
	}
	if _, err := Build(img, nil); err == nil {
		t.Fatalf("expected an error: no Reset vector")
	}
}

func TestBuildMarksUnreachableFunctions(t *testing.T) {
	bxLR := le16(0b0100011101110000)
	img := &image.Image{
		Functions: []*isa.FunctionRaw{
			{
				Address: 0x100, Size: uint32(len(bxLR)), Names: []string{"reset_handler"},
				Regions: []isa.Region{{Offset: 0, Size: uint32(len(bxLR)), Kind: isa.RegionCode}},
				Bytes:   bxLR,
			},
			{
				Address: 0x200, Size: uint32(len(bxLR)), Names: []string{"hardfault_handler"},
				Regions: []isa.Region{{Offset: 0, Size: uint32(len(bxLR)), Kind: isa.RegionCode}},
				Bytes:   bxLR,
			},
			{
				Address: 0x300, Size: uint32(len(bxLR)), Names: []string{"dead_code"},
				Regions: []isa.Region{{Offset: 0, Size: uint32(len(bxLR)), Kind: isa.RegionCode}},
				Bytes:   bxLR,
			},
		},
		VectorTable: vecTable(0, 0x101, 0, 0x201),
	}
	prog, err := Build(img, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byAddr := prog.ByAddress()
	if !byAddr[0x300].Unreachable {
		t.Fatalf("dead_code at 0x300 is called by nothing and is not a vector: should be flagged unreachable")
	}
	if byAddr[0x100].Unreachable || byAddr[0x200].Unreachable {
		t.Fatalf("vector-reachable functions should not be flagged unreachable")
	}
}

func TestBuildAppliesCallOverride(t *testing.T) {
	// A BLX through R1 with no literal writer: only the config override
	// resolves the callee.
	var code []byte
	code = append(code, le16(0b1011010100000000)...) // PUSH {LR}
	code = append(code, le16(0x4788)...)              // BLX R1
	code = append(code, le16(0b0010000000000000)...) // MOVS R0, #0 (return-to site, no SP effect)
	code = append(code, le16(0b1011110100000000)...) // POP {PC}
	bxLR := le16(0b0100011101110000)

	img := &image.Image{
		Functions: []*isa.FunctionRaw{
			{
				Address: 0x100, Size: uint32(len(code)), Names: []string{"caller"},
				Regions: []isa.Region{{Offset: 0, Size: uint32(len(code)), Kind: isa.RegionCode}},
				Bytes:   code,
			},
			{
				Address: 0x400, Size: uint32(len(bxLR)), Names: []string{"callee"},
				Regions: []isa.Region{{Offset: 0, Size: uint32(len(bxLR)), Kind: isa.RegionCode}},
				Bytes:   bxLR,
			},
		},
		VectorTable: vecTable(0, 0x101, 0, 0x401),
	}
	config := cfg.Default()
	config.Functions.InstructionsEffect.CallOverrides = []cfg.CallOverride{
		{Source: 0x102, Targets: []uint32{0x400}}, // BLX is at offset 2 within caller, address 0x102
	}

	prog, err := Build(img, config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	byAddr := prog.ByAddress()
	caller := byAddr[0x100]
	if len(caller.CallAddresses) != 1 || caller.CallAddresses[0] != 0x400 {
		t.Fatalf("caller.CallAddresses = %v, want [0x400]", caller.CallAddresses)
	}
}
