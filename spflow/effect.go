// Package spflow resolves each instruction's effect on the stack
// pointer (spec.md §4.4). It is grounded on the teacher's
// vm/data_processing.go ADD/SUB-immediate decode shapes and
// vm/stack_trace.go's existing notion of a signed SP delta per
// instruction (RecordSPMove), generalized here from a dynamic per-PC
// event log to a static per-instruction classification.
package spflow

import (
	"fmt"

	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

// Effect is the signed byte delta an instruction applies to SP:
// SP := SP + Add. A zero-value Effect with Present == false means the
// instruction has no SP effect at all.
type Effect struct {
	Present bool
	Add     int32
}

// RejectedError reports an SP-affecting instruction spec.md §4.4
// declines to support: RTOS multi-stack switching, dynamic stack
// allocation, or direct SP-register aliasing the analyzer cannot track
// statically.
type RejectedError struct {
	Offset uint32
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("offset %d: unsupported SP-affecting instruction: %s", e.Offset, e.Reason)
}

// Resolve classifies instr's effect on SP.
func Resolve(offset uint32, instr isa.Instruction) (Effect, error) {
	switch v := instr.(type) {
	case isa.AddSpImm7:
		return Effect{Present: true, Add: int32(v.Imm7) * 4}, nil
	case isa.SubSpImm7:
		return Effect{Present: true, Add: -int32(v.Imm7) * 4}, nil
	case isa.Push:
		n := v.Regs.PopCount()
		if v.LR {
			n++
		}
		return Effect{Present: true, Add: -4 * int32(n)}, nil
	case isa.Pop:
		n := v.Regs.PopCount()
		if v.PC {
			n++
		}
		return Effect{Present: true, Add: 4 * int32(n)}, nil
	case isa.AddRegT2:
		if v.Rdn == isa.SP {
			return Effect{}, reject(offset, fmt.Sprintf("ADD SP, R%d (likely RTOS multi-stack, dynamic allocation, or stack-pointer switching)", v.Rm))
		}
		return Effect{}, nil
	case isa.MovRegT1:
		if v.Rd == isa.SP {
			return Effect{}, reject(offset, fmt.Sprintf("MOV SP, R%d (likely RTOS multi-stack, dynamic allocation, or stack-pointer switching)", v.Rm))
		}
		return Effect{}, nil
	case isa.Msr:
		switch v.Sysm {
		case isa.SysmMSP, isa.SysmPSP, isa.SysmCONTROL:
			return Effect{}, reject(offset, "MSR to MSP/PSP/CONTROL (likely RTOS multi-stack or stack-pointer switching)")
		}
		return Effect{}, nil
	}

	if instr.Writes().Contains(isa.SP) {
		panic(fmt.Sprintf("spflow: offset %d: instruction %T writes SP but has no SP-effect classification", offset, instr))
	}
	return Effect{}, nil
}

func reject(offset uint32, reason string) error {
	return &RejectedError{Offset: offset, Reason: reason}
}
