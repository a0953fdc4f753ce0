package pcflow

import (
	"github.com/lookbusy1344/armv6m-stackdepth/cursor"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

// resolveJumpTable inverts the canonical GCC/LLVM jump-table epilogue
// (spec.md §4.3.1):
//
//	ADD  Rn, PC
//	LDR{B|H} Rn, [Rn, #4]
//	LSLS Rn, Rn, #1
//	ADD  PC, Rn
//
// cur points at the final ADD PC, Rn. The three predecessors are walked
// textually (offset order), not via control-flow predecessors — per
// spec.md §9 this is an acknowledged limitation, not a bug.
func resolveJumpTable(cur cursor.InstructionCursor) (Effect, error) {
	add := cur.Instruction().(isa.AddRegT2)
	tableReg := add.Rm

	lsls, ok := cur.Previous()
	if !ok {
		return Effect{}, reject(cur.Offset(), "jump table: no predecessor for ADD PC, R%d", tableReg)
	}
	shift, ok := lsls.Instruction().(isa.ShiftImm)
	if !ok || shift.Op != isa.ShiftLSL || shift.Rd != tableReg || shift.Rm != tableReg || shift.Imm5 != 1 {
		return Effect{}, reject(cur.Offset(), "jump table: expected LSLS R%d, R%d, #1 at offset %d", tableReg, tableReg, lsls.Offset())
	}

	ldr, ok := lsls.Previous()
	if !ok {
		return Effect{}, reject(cur.Offset(), "jump table: no predecessor for LSLS")
	}
	width, err := jumpTableLoadWidth(ldr, tableReg)
	if err != nil {
		return Effect{}, err
	}

	addRnPc, ok := ldr.Previous()
	if !ok {
		return Effect{}, reject(cur.Offset(), "jump table: no predecessor for LDR%s", widthSuffix(width))
	}
	base, ok := addRnPc.Instruction().(isa.AddRegT2)
	if !ok || base.Rdn != tableReg || base.Rm != isa.PC {
		return Effect{}, reject(cur.Offset(), "jump table: expected ADD R%d, PC at offset %d", tableReg, addRnPc.Offset())
	}

	dc, ok := cur.Function().DataRegion(cur.EndOffset())
	if !ok {
		return Effect{}, reject(cur.Offset(), "jump table: no DATA region immediately follows ADD PC, R%d", tableReg)
	}

	instrOffset := cur.Offset()
	var targets []uint32
	for {
		var elem uint32
		var nextDC cursor.DataCursor
		var readErr error
		if width == 1 {
			elem, nextDC, readErr = dc.ReadU8()
		} else {
			elem, nextDC, readErr = dc.ReadU16()
		}
		if readErr == cursor.ErrEndOfRegion {
			break
		}
		if readErr != nil {
			return Effect{}, reject(cur.Offset(), "jump table: %s", readErr)
		}
		dc = nextDC
		if elem == 0 {
			continue // any zero entry is padding/sentinel, spec.md §4.3.1
		}
		targets = append(targets, instrOffset+4+elem*2)
	}

	if len(targets) == 0 {
		return Effect{}, reject(cur.Offset(), "jump table: empty target set after discarding zero entries")
	}
	return Effect{Kind: Branch, Conditional: false, TargetOffsets: targets}, nil
}

func jumpTableLoadWidth(ldr cursor.InstructionCursor, tableReg byte) (uint32, error) {
	mem, ok := ldr.Instruction().(isa.LdrStrImm)
	if !ok || mem.Rt != tableReg || mem.Rn != tableReg {
		return 0, reject(ldr.Offset(), "jump table: expected LDRB/LDRH R%d, [R%d, #4] at offset %d", tableReg, tableReg, ldr.Offset())
	}
	switch {
	case mem.Op == isa.MemLdrB && mem.Imm5 == 4:
		return 1, nil
	case mem.Op == isa.MemLdrH && mem.Imm5 == 2: // Imm5 scaled by 2 for halfword
		return 2, nil
	}
	return 0, reject(ldr.Offset(), "jump table: unsupported load width/offset at offset %d", ldr.Offset())
}

func widthSuffix(width uint32) string {
	if width == 1 {
		return "B"
	}
	return "H"
}
