package isa

// Instruction is the common interface over every ARMv6-M Thumb encoding
// this tool understands. Per the hierarchy note in spec.md §9 the
// variants are modeled as a flat set of small structs (struct
// composition, not a class hierarchy): each embeds Base, which supplies
// Size and Writes by field promotion, and carries 2-5 operand fields of
// its own.
type Instruction interface {
	Size() int
	Writes() RegSet
}

// Base carries the two properties every instruction variant publishes
// regardless of its operand shape: its encoded size in bytes (2 or 4)
// and the set of registers it writes. The decoder computes Writes per
// decoded instance (e.g. a register-destination field holding PC makes
// PC a member), not once per Go type, since the same encoding can write
// different registers depending on its operands.
type Base struct {
	size   int
	writes RegSet
}

func (b Base) Size() int        { return b.size }
func (b Base) Writes() RegSet   { return b.writes }
func newBase(size int, w RegSet) Base { return Base{size: size, writes: w} }

// ---- shift / data-processing family (operand shapes shared across several mnemonics) ----

// ShiftOp distinguishes the three immediate-shift mnemonics, which share
// an identical {Rd, Rm, Imm5} encoding shape.
type ShiftOp int

const (
	ShiftLSL ShiftOp = iota
	ShiftLSR
	ShiftASR
)

// ShiftImm is LSL/LSR/ASR (immediate), T1.
type ShiftImm struct {
	Base
	Op   ShiftOp
	Rd   byte
	Rm   byte
	Imm5 byte
}

func NewShiftImm(op ShiftOp, rd, rm, imm5 byte) ShiftImm {
	return ShiftImm{Base: newBase(2, Reg(int(rd))), Op: op, Rd: rd, Rm: rm, Imm5: imm5}
}

// AddRegT1 is ADD (register), T1: Rd, Rn, Rm all low registers.
type AddRegT1 struct {
	Base
	Rd, Rn, Rm byte
}

func NewAddRegT1(rd, rn, rm byte) AddRegT1 {
	return AddRegT1{Base: newBase(2, Reg(int(rd))), Rd: rd, Rn: rn, Rm: rm}
}

// SubRegT1 is SUB (register), T1.
type SubRegT1 struct {
	Base
	Rd, Rn, Rm byte
}

func NewSubRegT1(rd, rn, rm byte) SubRegT1 {
	return SubRegT1{Base: newBase(2, Reg(int(rd))), Rd: rd, Rn: rn, Rm: rm}
}

// AddImm3 is ADD (immediate), T1: Rd, Rn, #imm3.
type AddImm3 struct {
	Base
	Rd, Rn byte
	Imm3   byte
}

func NewAddImm3(rd, rn, imm3 byte) AddImm3 {
	return AddImm3{Base: newBase(2, Reg(int(rd))), Rd: rd, Rn: rn, Imm3: imm3}
}

// SubImm3 is SUB (immediate), T1.
type SubImm3 struct {
	Base
	Rd, Rn byte
	Imm3   byte
}

func NewSubImm3(rd, rn, imm3 byte) SubImm3 {
	return SubImm3{Base: newBase(2, Reg(int(rd))), Rd: rd, Rn: rn, Imm3: imm3}
}

// MovImm8 is MOV (immediate), T1: Rd, #imm8.
type MovImm8 struct {
	Base
	Rd   byte
	Imm8 byte
}

func NewMovImm8(rd, imm8 byte) MovImm8 {
	return MovImm8{Base: newBase(2, Reg(int(rd))), Rd: rd, Imm8: imm8}
}

// CmpImm8 is CMP (immediate), T1: Rn, #imm8. Writes nothing (flags only).
type CmpImm8 struct {
	Base
	Rn   byte
	Imm8 byte
}

func NewCmpImm8(rn, imm8 byte) CmpImm8 {
	return CmpImm8{Base: newBase(2, 0), Rn: rn, Imm8: imm8}
}

// AddImm8 is ADD (immediate), T2: Rdn, #imm8.
type AddImm8 struct {
	Base
	Rdn  byte
	Imm8 byte
}

func NewAddImm8(rdn, imm8 byte) AddImm8 {
	return AddImm8{Base: newBase(2, Reg(int(rdn))), Rdn: rdn, Imm8: imm8}
}

// SubImm8 is SUB (immediate), T2: Rdn, #imm8.
type SubImm8 struct {
	Base
	Rdn  byte
	Imm8 byte
}

func NewSubImm8(rdn, imm8 byte) SubImm8 {
	return SubImm8{Base: newBase(2, Reg(int(rdn))), Rdn: rdn, Imm8: imm8}
}

// DPOp distinguishes the two-operand "data-processing register" T1
// mnemonics, which all share the {Rdn, Rm} shape: AND, EOR, LSL(reg),
// LSR(reg), ASR(reg), ADC, SBC, ROR, ORR, BIC.
type DPOp int

const (
	DPAnd DPOp = iota
	DPEor
	DPLsl
	DPLsr
	DPAsr
	DPAdc
	DPSbc
	DPRor
	DPOrr
	DPBic
)

// DPReg is the shared shape for the DPOp family above.
type DPReg struct {
	Base
	Op       DPOp
	Rdn, Rm  byte
}

func NewDPReg(op DPOp, rdn, rm byte) DPReg {
	return DPReg{Base: newBase(2, Reg(int(rdn))), Op: op, Rdn: rdn, Rm: rm}
}

// TstReg is TST (register), T1. Writes nothing (flags only).
type TstReg struct {
	Base
	Rn, Rm byte
}

func NewTstReg(rn, rm byte) TstReg { return TstReg{Base: newBase(2, 0), Rn: rn, Rm: rm} }

// CmnReg is CMN (register), T1. Writes nothing.
type CmnReg struct {
	Base
	Rn, Rm byte
}

func NewCmnReg(rn, rm byte) CmnReg { return CmnReg{Base: newBase(2, 0), Rn: rn, Rm: rm} }

// RsbImm is RSB (immediate) #0, T1 (the NEGS alias).
type RsbImm struct {
	Base
	Rd, Rn byte
}

func NewRsbImm(rd, rn byte) RsbImm { return RsbImm{Base: newBase(2, Reg(int(rd))), Rd: rd, Rn: rn} }

// CmpRegT1 is CMP (register), T1, low registers only. Writes nothing.
type CmpRegT1 struct {
	Base
	Rn, Rm byte
}

func NewCmpRegT1(rn, rm byte) CmpRegT1 { return CmpRegT1{Base: newBase(2, 0), Rn: rn, Rm: rm} }

// CmpRegT2 is CMP (register), T2, at least one high register. Writes nothing.
type CmpRegT2 struct {
	Base
	Rn, Rm byte
}

func NewCmpRegT2(rn, rm byte) CmpRegT2 { return CmpRegT2{Base: newBase(2, 0), Rn: rn, Rm: rm} }

// MulReg is MUL, T1: Rdm, Rn (Rd and one source operand share Rdm).
type MulReg struct {
	Base
	Rdm, Rn byte
}

func NewMulReg(rdm, rn byte) MulReg {
	return MulReg{Base: newBase(2, Reg(int(rdm))), Rdm: rdm, Rn: rn}
}

// MvnReg is MVN (register), T1.
type MvnReg struct {
	Base
	Rd, Rm byte
}

func NewMvnReg(rd, rm byte) MvnReg { return MvnReg{Base: newBase(2, Reg(int(rd))), Rd: rd, Rm: rm} }

// AddRegT2 is ADD (register), T2: Rdn, Rm, either operand may be any of
// R0-R15 (high registers, SP, PC included). Rdn == PC is the jump-table
// computed branch form (pcflow rejects it when Rm == SP); Rdn == SP is
// the rejected stack-pointer-arithmetic form (spflow handles it by
// inspecting the fields directly, not through Writes()).
type AddRegT2 struct {
	Base
	Rdn, Rm byte
}

func NewAddRegT2(rdn, rm byte) AddRegT2 {
	return AddRegT2{Base: newBase(2, Reg(int(rdn))), Rdn: rdn, Rm: rm}
}

// MovRegT1 is MOV (register), T1: moves between any registers (including
// PC, SP), does not set flags.
type MovRegT1 struct {
	Base
	Rd, Rm byte
}

func NewMovRegT1(rd, rm byte) MovRegT1 {
	return MovRegT1{Base: newBase(2, Reg(int(rd))), Rd: rd, Rm: rm}
}

// MovRegT2 is MOV (register), T2: low registers only, sets flags. This
// is the encoding spec.md calls out as aliasing "LSL Rd, Rm, #0".
type MovRegT2 struct {
	Base
	Rd, Rm byte
}

func NewMovRegT2(rd, rm byte) MovRegT2 {
	return MovRegT2{Base: newBase(2, Reg(int(rd))), Rd: rd, Rm: rm}
}

// Bx is BX, T1: branch and exchange to Rm. Classified Return iff Rm == LR.
type Bx struct {
	Base
	Rm byte
}

func NewBx(rm byte) Bx { return Bx{Base: newBase(2, Reg(PC)), Rm: rm} }

// BlxReg is BLX (register), T1: a computed call, resolved via the BLX
// literal-load backward walk (pcflow).
type BlxReg struct {
	Base
	Rm byte
}

func NewBlxReg(rm byte) BlxReg { return BlxReg{Base: newBase(2, Union(Reg(PC), Reg(LR))), Rm: rm} }

// ---- load/store family ----

// MemOp distinguishes width/signedness across the load/store families
// below, which otherwise share an identical operand shape.
type MemOp int

const (
	MemLdrW MemOp = iota
	MemStrW
	MemLdrB
	MemStrB
	MemLdrH
	MemStrH
	MemLdrSB
	MemLdrSH
)

func (op MemOp) isLoad() bool {
	switch op {
	case MemLdrW, MemLdrB, MemLdrH, MemLdrSB, MemLdrSH:
		return true
	}
	return false
}

// LdrStrImm is the {Rt, Rn, #imm5} immediate-offset family: LDR/STR,
// LDRB/STRB, LDRH/STRH (all T1).
type LdrStrImm struct {
	Base
	Op   MemOp
	Rt   byte
	Rn   byte
	Imm5 byte
}

func NewLdrStrImm(op MemOp, rt, rn, imm5 byte) LdrStrImm {
	w := RegSet(0)
	if op.isLoad() {
		w = Reg(int(rt))
	}
	return LdrStrImm{Base: newBase(2, w), Op: op, Rt: rt, Rn: rn, Imm5: imm5}
}

// LdrStrSp is the SP-relative {Rt, #imm8} family: LDR/STR (imm8), T2.
type LdrStrSp struct {
	Base
	Op   MemOp
	Rt   byte
	Imm8 byte
}

func NewLdrStrSp(op MemOp, rt, imm8 byte) LdrStrSp {
	w := RegSet(0)
	if op.isLoad() {
		w = Reg(int(rt))
	}
	return LdrStrSp{Base: newBase(2, w), Op: op, Rt: rt, Imm8: imm8}
}

// LdrLiteral is LDR (literal), T1: Rt, [PC, #imm8*4].
type LdrLiteral struct {
	Base
	Rt   byte
	Imm8 byte
}

func NewLdrLiteral(rt, imm8 byte) LdrLiteral {
	return LdrLiteral{Base: newBase(2, Reg(int(rt))), Rt: rt, Imm8: imm8}
}

// LdrStrReg is the register-offset {Rt, Rn, Rm} family: STR/STRH/STRB,
// LDR/LDRH/LDRB/LDRSB/LDRSH (all T1).
type LdrStrReg struct {
	Base
	Op       MemOp
	Rt, Rn, Rm byte
}

func NewLdrStrReg(op MemOp, rt, rn, rm byte) LdrStrReg {
	w := RegSet(0)
	if op.isLoad() {
		w = Reg(int(rt))
	}
	return LdrStrReg{Base: newBase(2, w), Op: op, Rt: rt, Rn: rn, Rm: rm}
}

// Adr is ADR, T1: Rd := Align(PC,4) + #imm8*4. Pure address computation,
// no control-flow effect.
type Adr struct {
	Base
	Rd   byte
	Imm8 byte
}

func NewAdr(rd, imm8 byte) Adr { return Adr{Base: newBase(2, Reg(int(rd))), Rd: rd, Imm8: imm8} }

// AddRdSpImm8 is ADD (SP plus immediate), T1: Rd := SP + #imm8*4. Leaves
// SP itself unmodified (spflow reports no SP effect for this form).
type AddRdSpImm8 struct {
	Base
	Rd   byte
	Imm8 byte
}

func NewAddRdSpImm8(rd, imm8 byte) AddRdSpImm8 {
	return AddRdSpImm8{Base: newBase(2, Reg(int(rd))), Rd: rd, Imm8: imm8}
}

// AddSpImm7 is ADD (SP plus immediate), T2: SP := SP + #imm7*4.
type AddSpImm7 struct {
	Base
	Imm7 byte
}

func NewAddSpImm7(imm7 byte) AddSpImm7 { return AddSpImm7{Base: newBase(2, Reg(SP)), Imm7: imm7} }

// SubSpImm7 is SUB (SP minus immediate), T1: SP := SP - #imm7*4.
type SubSpImm7 struct {
	Base
	Imm7 byte
}

func NewSubSpImm7(imm7 byte) SubSpImm7 { return SubSpImm7{Base: newBase(2, Reg(SP)), Imm7: imm7} }

// ExtOp distinguishes the four sign/zero-extend mnemonics, which share
// an identical {Rd, Rm} shape.
type ExtOp int

const (
	ExtSXTB ExtOp = iota
	ExtSXTH
	ExtUXTB
	ExtUXTH
)

// Extend is SXTB/SXTH/UXTB/UXTH, T1.
type Extend struct {
	Base
	Op     ExtOp
	Rd, Rm byte
}

func NewExtend(op ExtOp, rd, rm byte) Extend {
	return Extend{Base: newBase(2, Reg(int(rd))), Op: op, Rd: rd, Rm: rm}
}

// ---- stack, flow control, hints, system ----

// Push is PUSH, T1: stores {regs[, LR]} and decrements SP.
type Push struct {
	Base
	Regs RegSet
	LR   bool
}

func NewPush(regs RegSet, lr bool) Push {
	return Push{Base: newBase(2, Reg(SP)), Regs: regs, LR: lr}
}

// Pop is POP, T1: loads {regs[, PC]} and increments SP.
type Pop struct {
	Base
	Regs RegSet
	PC   bool
}

func NewPop(regs RegSet, pc bool) Pop {
	w := Union(regs, Reg(SP))
	if pc {
		w = Union(w, Reg(PC))
	}
	return Pop{Base: newBase(2, w), Regs: regs, PC: pc}
}

// Cps is CPS, T1 (CPSID/CPSIE affecting PRIMASK only; no GPR write).
type Cps struct {
	Base
	Disable bool
}

func NewCps(disable bool) Cps { return Cps{Base: newBase(2, 0), Disable: disable} }

// RevOp distinguishes the three byte-reversal mnemonics (identical {Rd, Rm} shape).
type RevOp int

const (
	RevREV RevOp = iota
	RevREV16
	RevREVSH
)

// RevFamily is REV/REV16/REVSH, T1.
type RevFamily struct {
	Base
	Op     RevOp
	Rd, Rm byte
}

func NewRevFamily(op RevOp, rd, rm byte) RevFamily {
	return RevFamily{Base: newBase(2, Reg(int(rd))), Op: op, Rd: rd, Rm: rm}
}

// Bkpt is BKPT, T1. Treated as an ordinary (debug-monitor) instruction:
// execution is assumed to continue to the next instruction.
type Bkpt struct {
	Base
	Imm8 byte
}

func NewBkpt(imm8 byte) Bkpt { return Bkpt{Base: newBase(2, 0), Imm8: imm8} }

// HintOp enumerates the zero-operand hint-space instructions.
type HintOp int

const (
	HintNOP HintOp = iota
	HintYIELD
	HintWFE
	HintWFI
	HintSEV
)

// Hint is NOP/YIELD/WFE/WFI/SEV, T1.
type Hint struct {
	Base
	Op HintOp
}

func NewHint(op HintOp) Hint { return Hint{Base: newBase(2, 0), Op: op} }

// BCond is B (conditional), T1.
type BCond struct {
	Base
	Cond byte
	Imm8 int32
}

func NewBCond(cond byte, imm8 int32) BCond {
	return BCond{Base: newBase(2, Reg(PC)), Cond: cond, Imm8: imm8}
}

// BUncond is B (unconditional), T2.
type BUncond struct {
	Base
	Imm11 int32
}

func NewBUncond(imm11 int32) BUncond { return BUncond{Base: newBase(2, Reg(PC)), Imm11: imm11} }

// Svc is SVC, T1. Modeled as an ordinary instruction (no call/return
// effect): the supervisor call does not alter the static call graph.
type Svc struct {
	Base
	Imm8 byte
}

func NewSvc(imm8 byte) Svc { return Svc{Base: newBase(2, 0), Imm8: imm8} }

// UdfT1 is UDF, T1 (16-bit permanently-undefined instruction). Per the
// testable-properties invariant in spec.md §8, any instruction whose
// PC-effect is other than Flow/Call/Return carries PC in its write set.
type UdfT1 struct {
	Base
	Imm8 byte
}

func NewUdfT1(imm8 byte) UdfT1 { return UdfT1{Base: newBase(2, Reg(PC)), Imm8: imm8} }

// UdfT2 is UDF.W, T2 (32-bit form).
type UdfT2 struct {
	Base
	Imm16 uint16
}

func NewUdfT2(imm16 uint16) UdfT2 { return UdfT2{Base: newBase(4, Reg(PC)), Imm16: imm16} }

// Ldm is LDM, T1. Thumb-1 LDM always writes back to Rn unless Rn is
// itself in the register list.
type Ldm struct {
	Base
	Rn   byte
	Regs RegSet
}

func NewLdm(rn byte, regs RegSet) Ldm {
	w := regs
	if !regs.Contains(int(rn)) {
		w = Union(w, Reg(int(rn)))
	}
	return Ldm{Base: newBase(2, w), Rn: rn, Regs: regs}
}

// Stm is STM, T1. Always writes back to Rn; does not write the stored
// registers.
type Stm struct {
	Base
	Rn   byte
	Regs RegSet
}

func NewStm(rn byte, regs RegSet) Stm {
	return Stm{Base: newBase(2, Reg(int(rn))), Rn: rn, Regs: regs}
}

// ---- 32-bit encodings ----

// Bl is BL, T1 (32-bit): call with link, PC-relative target.
type Bl struct {
	Base
	Imm int32
}

func NewBl(imm int32) Bl { return Bl{Base: newBase(4, Union(Reg(PC), Reg(LR))), Imm: imm} }

// BarrierOp distinguishes the three memory/instruction barriers (identical {option} shape).
type BarrierOp int

const (
	BarrierDMB BarrierOp = iota
	BarrierDSB
	BarrierISB
)

// DmbDsbIsb is DMB/DSB/ISB, T1 (32-bit).
type DmbDsbIsb struct {
	Base
	Op     BarrierOp
	Option byte
}

func NewDmbDsbIsb(op BarrierOp, option byte) DmbDsbIsb {
	return DmbDsbIsb{Base: newBase(4, 0), Op: op, Option: option}
}

// Mrs is MRS, T1 (32-bit): Rd := special register named by Sysm.
type Mrs struct {
	Base
	Rd   byte
	Sysm byte
}

func NewMrs(rd, sysm byte) Mrs { return Mrs{Base: newBase(4, Reg(int(rd))), Rd: rd, Sysm: sysm} }

// Msr is MSR, T1 (32-bit): special register named by Sysm := Rn. Sysm
// values for MSP/PSP/CONTROL are the ones spflow rejects (§4.4); since
// those destinations are not general-purpose registers this type's
// Writes() is empty, and spflow inspects Sysm directly.
type Msr struct {
	Base
	Sysm byte
	Rn   byte
}

func NewMsr(sysm, rn byte) Msr { return Msr{Base: newBase(4, 0), Sysm: sysm, Rn: rn} }

// SysmMSP, SysmPSP, SysmCONTROL are the MRS/MSR Sysm encodings for the
// special registers spflow must recognize and reject when written.
const (
	SysmMSP     = 0x08
	SysmPSP     = 0x09
	SysmCONTROL = 0x14
)
