package pcflow

import (
	"fmt"

	"github.com/lookbusy1344/armv6m-stackdepth/cursor"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

// Kind classifies an instruction's effect on PC.
type Kind int

const (
	// Flow is ordinary fall-through: the instruction does not redirect
	// control flow (spec.md §4.3's "none").
	Flow Kind = iota
	Branch
	Call
	Return
	Invalid
)

func (k Kind) String() string {
	switch k {
	case Flow:
		return "Flow"
	case Branch:
		return "Branch"
	case Call:
		return "Call"
	case Return:
		return "Return"
	case Invalid:
		return "Invalid"
	}
	return "unknown"
}

// Effect is the resolved PC-effect of one instruction.
type Effect struct {
	Kind            Kind
	Conditional     bool          // meaningful for Branch
	TargetOffsets   []uint32      // Branch: function-relative targets
	TargetAddresses []isa.Address // Call: absolute callee addresses
}

// CallOverrides maps the absolute address of a BLX instruction to a
// user-supplied set of callee addresses (spec.md §4.3.2, §6).
type CallOverrides map[isa.Address][]isa.Address

// Resolve classifies cur's PC-effect. overrides may be nil.
func Resolve(cur cursor.InstructionCursor, overrides CallOverrides) (Effect, error) {
	instr := cur.Instruction()
	offset := cur.Offset()

	switch v := instr.(type) {
	case isa.BCond:
		target := uint32(int64(offset) + 4 + int64(v.Imm8))
		return Effect{Kind: Branch, Conditional: true, TargetOffsets: []uint32{target}}, nil
	case isa.BUncond:
		target := uint32(int64(offset) + 4 + int64(v.Imm11))
		return Effect{Kind: Branch, Conditional: false, TargetOffsets: []uint32{target}}, nil
	case isa.Bl:
		target := isa.Address(int64(cur.AbsoluteAddress()) + 4 + int64(v.Imm))
		return Effect{Kind: Call, TargetAddresses: []isa.Address{target}}, nil
	case isa.Bx:
		if v.Rm == isa.LR {
			return Effect{Kind: Return}, nil
		}
		return Effect{}, reject(offset, "BX R%d: only BX LR is supported as a return", v.Rm)
	case isa.MovRegT1:
		if v.Rd != isa.PC {
			return Effect{Kind: Flow}, nil
		}
		if v.Rm == isa.LR {
			return Effect{Kind: Return}, nil
		}
		return Effect{}, reject(offset, "MOV PC, R%d: only MOV PC, LR is supported as a return", v.Rm)
	case isa.Pop:
		if v.PC {
			return Effect{Kind: Return}, nil
		}
		return Effect{Kind: Flow}, nil
	case isa.UdfT1:
		return Effect{Kind: Invalid}, nil
	case isa.UdfT2:
		return Effect{Kind: Invalid}, nil
	case isa.AddRegT2:
		if v.Rdn != isa.PC {
			return Effect{Kind: Flow}, nil
		}
		if v.Rm == isa.SP {
			return Effect{}, reject(offset, "ADD PC, SP is not a supported computed-branch form")
		}
		return resolveJumpTable(cur)
	case isa.BlxReg:
		return resolveBlx(cur, overrides)
	}

	if instr.Writes().Contains(isa.PC) {
		panic(fmt.Sprintf("pcflow: offset %d: instruction %T writes PC but has no PC-effect classification", offset, instr))
	}
	return Effect{Kind: Flow}, nil
}
