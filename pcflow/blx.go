package pcflow

import (
	"github.com/lookbusy1344/armv6m-stackdepth/cursor"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

// resolveBlx inverts the canonical computed-call idiom (spec.md §4.3.2):
//
//	LDR  Rn, [PC, #imm]   ; literal load of the callee's address
//	...                   ; arbitrary instructions not writing Rn
//	BLX  Rn
//
// cur points at the BLX. overrides may additionally (or instead) supply
// targets for this call's absolute address; per spec.md §9 Open
// Question (a), the two sources are unioned, never one overriding the
// other.
func resolveBlx(cur cursor.InstructionCursor, overrides CallOverrides) (Effect, error) {
	blx := cur.Instruction().(isa.BlxReg)

	staticTarget, staticErr := resolveBlxLiteral(cur, blx.Rm)

	var targets []isa.Address
	if staticErr == nil {
		targets = append(targets, staticTarget)
	}
	if overrides != nil {
		if extra, ok := overrides[cur.AbsoluteAddress()]; ok {
			targets = unionAddresses(targets, extra)
		}
	}

	if len(targets) == 0 {
		if staticErr != nil {
			return Effect{}, staticErr
		}
		return Effect{}, reject(cur.Offset(), "BLX R%d: no static literal load found and no call_overrides entry for this address; enable LTO, supply call_overrides, or file a bug", blx.Rm)
	}
	return Effect{Kind: Call, TargetAddresses: targets}, nil
}

func resolveBlxLiteral(cur cursor.InstructionCursor, rm byte) (isa.Address, error) {
	writer, ok := walkBackToWriter(cur, rm)
	if !ok {
		return 0, reject(cur.Offset(), "BLX R%d: no preceding instruction writes R%d", rm, rm)
	}
	lit, ok := writer.Instruction().(isa.LdrLiteral)
	if !ok || lit.Rt != rm {
		return 0, reject(cur.Offset(), "BLX R%d: nearest writer at offset %d is not LDR R%d, [PC, #imm]", rm, writer.Offset(), rm)
	}

	dataOffset := writer.Offset() + 4 + uint32(lit.Imm8)*4
	dc, ok := writer.Function().DataRegion(dataOffset)
	if !ok {
		return 0, reject(cur.Offset(), "BLX R%d: literal at offset %d does not fall in a DATA region", rm, dataOffset)
	}
	raw, _, err := dc.ReadU32()
	if err != nil {
		return 0, reject(cur.Offset(), "BLX R%d: %s", rm, err)
	}
	if raw&1 == 0 {
		return 0, reject(cur.Offset(), "BLX R%d: literal 0x%x does not have the Thumb bit set", rm, raw)
	}
	addr, err := isa.NewAddress(raw)
	if err != nil {
		return 0, reject(cur.Offset(), "BLX R%d: %s", rm, err)
	}
	return addr, nil
}

// walkBackToWriter scans backward in textual (offset) order from cur
// and returns the nearest preceding instruction whose write set
// contains rm.
func walkBackToWriter(cur cursor.InstructionCursor, rm byte) (cursor.InstructionCursor, bool) {
	at := cur
	for {
		prev, ok := at.Previous()
		if !ok {
			return cursor.InstructionCursor{}, false
		}
		if prev.Instruction().Writes().Contains(int(rm)) {
			return prev, true
		}
		at = prev
	}
}

func unionAddresses(existing []isa.Address, extra []isa.Address) []isa.Address {
	seen := make(map[isa.Address]bool, len(existing))
	for _, a := range existing {
		seen[a] = true
	}
	out := existing
	for _, a := range extra {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}
