package decode

import "github.com/lookbusy1344/armv6m-stackdepth/isa"

// decode16 dispatches a plain Thumb-16 half-word. Every case below tests
// only the bits the architecture actually fixes for that group; the
// remaining bits always carry register, immediate, or sub-opcode
// payload and must never leak into the group selector.
func decode16(op uint16, offset uint32) (isa.Instruction, error) {
	w := uint32(op)
	top5 := bits(w, 15, 11)

	switch {
	case top5 == 0b00000: // LSL (imm), or MOV (reg) T2 alias when imm5 == 0
		rd, rm, imm5 := byte(bits(w, 2, 0)), byte(bits(w, 5, 3)), byte(bits(w, 10, 6))
		if imm5 == 0 {
			return isa.NewMovRegT2(rd, rm), nil
		}
		return isa.NewShiftImm(isa.ShiftLSL, rd, rm, imm5), nil
	case top5 == 0b00001: // LSR (imm)
		rd, rm, imm5 := byte(bits(w, 2, 0)), byte(bits(w, 5, 3)), byte(bits(w, 10, 6))
		return isa.NewShiftImm(isa.ShiftLSR, rd, rm, imm5), nil
	case top5 == 0b00010: // ASR (imm)
		rd, rm, imm5 := byte(bits(w, 2, 0)), byte(bits(w, 5, 3)), byte(bits(w, 10, 6))
		return isa.NewShiftImm(isa.ShiftASR, rd, rm, imm5), nil
	case bits(w, 15, 9) == 0b0001100: // ADD (reg) T1
		rd, rn, rm := byte(bits(w, 2, 0)), byte(bits(w, 5, 3)), byte(bits(w, 8, 6))
		return isa.NewAddRegT1(rd, rn, rm), nil
	case bits(w, 15, 9) == 0b0001101: // SUB (reg) T1
		rd, rn, rm := byte(bits(w, 2, 0)), byte(bits(w, 5, 3)), byte(bits(w, 8, 6))
		return isa.NewSubRegT1(rd, rn, rm), nil
	case bits(w, 15, 9) == 0b0001110: // ADD (imm3) T1
		rd, rn, imm3 := byte(bits(w, 2, 0)), byte(bits(w, 5, 3)), byte(bits(w, 8, 6))
		return isa.NewAddImm3(rd, rn, imm3), nil
	case bits(w, 15, 9) == 0b0001111: // SUB (imm3) T1
		rd, rn, imm3 := byte(bits(w, 2, 0)), byte(bits(w, 5, 3)), byte(bits(w, 8, 6))
		return isa.NewSubImm3(rd, rn, imm3), nil
	case top5 == 0b00100: // MOV (imm8) T1
		rd, imm8 := byte(bits(w, 10, 8)), byte(bits(w, 7, 0))
		return isa.NewMovImm8(rd, imm8), nil
	case top5 == 0b00101: // CMP (imm8) T1
		rn, imm8 := byte(bits(w, 10, 8)), byte(bits(w, 7, 0))
		return isa.NewCmpImm8(rn, imm8), nil
	case top5 == 0b00110: // ADD (imm8) T2
		rdn, imm8 := byte(bits(w, 10, 8)), byte(bits(w, 7, 0))
		return isa.NewAddImm8(rdn, imm8), nil
	case top5 == 0b00111: // SUB (imm8) T2
		rdn, imm8 := byte(bits(w, 10, 8)), byte(bits(w, 7, 0))
		return isa.NewSubImm8(rdn, imm8), nil
	case bits(w, 15, 10) == 0b010000: // data-processing register group
		return decodeDataProcessing(w, offset)
	case bits(w, 15, 10) == 0b010001: // special data / branch-exchange group
		return decodeSpecialData(w, offset)
	case top5 == 0b01001: // LDR (literal) T1
		rt, imm8 := byte(bits(w, 10, 8)), byte(bits(w, 7, 0))
		return isa.NewLdrLiteral(rt, imm8), nil
	case bits(w, 15, 9) == 0b0101000: // STR (reg)
		return memReg(isa.MemStrW, w), nil
	case bits(w, 15, 9) == 0b0101001: // STRH (reg)
		return memReg(isa.MemStrH, w), nil
	case bits(w, 15, 9) == 0b0101010: // STRB (reg)
		return memReg(isa.MemStrB, w), nil
	case bits(w, 15, 9) == 0b0101011: // LDRSB (reg)
		return memReg(isa.MemLdrSB, w), nil
	case bits(w, 15, 9) == 0b0101100: // LDR (reg)
		return memReg(isa.MemLdrW, w), nil
	case bits(w, 15, 9) == 0b0101101: // LDRH (reg)
		return memReg(isa.MemLdrH, w), nil
	case bits(w, 15, 9) == 0b0101110: // LDRB (reg)
		return memReg(isa.MemLdrB, w), nil
	case bits(w, 15, 9) == 0b0101111: // LDRSH (reg)
		return memReg(isa.MemLdrSH, w), nil
	case top5 == 0b01100: // STR (imm5), word
		return memImm5(isa.MemStrW, w), nil
	case top5 == 0b01101: // LDR (imm5), word
		return memImm5(isa.MemLdrW, w), nil
	case top5 == 0b01110: // STRB (imm5)
		return memImm5(isa.MemStrB, w), nil
	case top5 == 0b01111: // LDRB (imm5)
		return memImm5(isa.MemLdrB, w), nil
	case top5 == 0b10000: // STRH (imm5)
		return memImm5(isa.MemStrH, w), nil
	case top5 == 0b10001: // LDRH (imm5)
		return memImm5(isa.MemLdrH, w), nil
	case top5 == 0b10010: // STR (SP-relative imm8)
		rt, imm8 := byte(bits(w, 10, 8)), byte(bits(w, 7, 0))
		return isa.NewLdrStrSp(isa.MemStrW, rt, imm8), nil
	case top5 == 0b10011: // LDR (SP-relative imm8)
		rt, imm8 := byte(bits(w, 10, 8)), byte(bits(w, 7, 0))
		return isa.NewLdrStrSp(isa.MemLdrW, rt, imm8), nil
	case top5 == 0b10100: // ADR
		rd, imm8 := byte(bits(w, 10, 8)), byte(bits(w, 7, 0))
		return isa.NewAdr(rd, imm8), nil
	case top5 == 0b10101: // ADD (SP plus imm8) T1, Rd := SP + imm
		rd, imm8 := byte(bits(w, 10, 8)), byte(bits(w, 7, 0))
		return isa.NewAddRdSpImm8(rd, imm8), nil
	case bits(w, 15, 12) == 0b1011: // miscellaneous 16-bit group
		return decodeMisc16(w, offset)
	case top5 == 0b11000: // STM
		rn, regs8 := byte(bits(w, 10, 8)), byte(bits(w, 7, 0))
		return isa.NewStm(rn, regList8(regs8)), nil
	case top5 == 0b11001: // LDM
		rn, regs8 := byte(bits(w, 10, 8)), byte(bits(w, 7, 0))
		return isa.NewLdm(rn, regList8(regs8)), nil
	case bits(w, 15, 12) == 0b1101: // B (conditional) / SVC / UDF
		return decodeCondBranch(w, offset)
	case top5 == 0b11100: // B (unconditional) T2
		imm11 := signExtend(bits(w, 10, 0)<<1, 12)
		return isa.NewBUncond(imm11), nil
	}

	return nil, undefined(offset, w, "unallocated 16-bit Thumb opcode")
}

func regList8(mask byte) isa.RegSet {
	var rs isa.RegSet
	for i := 0; i < 8; i++ {
		if mask&(1<<uint(i)) != 0 {
			rs |= isa.Reg(i)
		}
	}
	return rs
}

func memImm5(op isa.MemOp, w uint32) isa.Instruction {
	rt, rn, imm5 := byte(bits(w, 2, 0)), byte(bits(w, 5, 3)), byte(bits(w, 10, 6))
	return isa.NewLdrStrImm(op, rt, rn, imm5)
}

func memReg(op isa.MemOp, w uint32) isa.Instruction {
	rt, rn, rm := byte(bits(w, 2, 0)), byte(bits(w, 5, 3)), byte(bits(w, 8, 6))
	return isa.NewLdrStrReg(op, rt, rn, rm)
}

func decodeDataProcessing(w uint32, offset uint32) (isa.Instruction, error) {
	sub := bits(w, 9, 6)
	rm := byte(bits(w, 5, 3))
	rdn := byte(bits(w, 2, 0))
	switch sub {
	case 0b0000:
		return isa.NewDPReg(isa.DPAnd, rdn, rm), nil
	case 0b0001:
		return isa.NewDPReg(isa.DPEor, rdn, rm), nil
	case 0b0010:
		return isa.NewDPReg(isa.DPLsl, rdn, rm), nil
	case 0b0011:
		return isa.NewDPReg(isa.DPLsr, rdn, rm), nil
	case 0b0100:
		return isa.NewDPReg(isa.DPAsr, rdn, rm), nil
	case 0b0101:
		return isa.NewDPReg(isa.DPAdc, rdn, rm), nil
	case 0b0110:
		return isa.NewDPReg(isa.DPSbc, rdn, rm), nil
	case 0b0111:
		return isa.NewDPReg(isa.DPRor, rdn, rm), nil
	case 0b1000:
		return isa.NewTstReg(rdn, rm), nil
	case 0b1001:
		// RSB (immediate) #0, the NEGS alias: source is in the Rm field position (Rn), dest Rd.
		return isa.NewRsbImm(rdn, rm), nil
	case 0b1010:
		return isa.NewCmpRegT1(rdn, rm), nil
	case 0b1011:
		return isa.NewCmnReg(rdn, rm), nil
	case 0b1100:
		return isa.NewDPReg(isa.DPOrr, rdn, rm), nil
	case 0b1101:
		return isa.NewMulReg(rdn, rm), nil
	case 0b1110:
		return isa.NewDPReg(isa.DPBic, rdn, rm), nil
	case 0b1111:
		return isa.NewMvnReg(rdn, rm), nil
	}
	return nil, undefined(offset, w, "unreachable data-processing subcode")
}

func decodeSpecialData(w uint32, offset uint32) (isa.Instruction, error) {
	op := bits(w, 9, 8)
	if op == 0b11 {
		l := bits(w, 7, 7)
		rm := byte(bits(w, 6, 3))
		if bits(w, 2, 0) != 0 {
			return nil, unpredictable(offset, w, "BX/BLX requires low 3 bits zero")
		}
		if l == 0 {
			return isa.NewBx(rm), nil
		}
		return isa.NewBlxReg(rm), nil
	}
	dn := byte(bits(w, 7, 7))
	rdn := (dn << 3) | byte(bits(w, 2, 0))
	rm := byte(bits(w, 6, 3))
	switch op {
	case 0b00:
		if rdn == isa.PC && rm == isa.PC {
			return nil, unpredictable(offset, w, "ADD PC, PC is unpredictable")
		}
		return isa.NewAddRegT2(rdn, rm), nil
	case 0b01:
		if rdn < isa.R8 && rm < isa.R8 {
			return nil, unpredictable(offset, w, "CMP (reg T2) requires at least one high register")
		}
		return isa.NewCmpRegT2(rdn, rm), nil
	case 0b10:
		return isa.NewMovRegT1(rdn, rm), nil // MOV PC, Rm: handled as Return in pcflow
	}
	return nil, undefined(offset, w, "unreachable special-data subcode")
}

// decodeMisc16 dispatches the "1011xxxxxxxxxxxx" miscellaneous group.
// Every sub-format below is identified by a fixed-width prefix that
// excludes any operand bit — bits[10:5] in particular are never part of
// a group selector here, since they carry imm7/Rm/rlist payload.
func decodeMisc16(w uint32, offset uint32) (isa.Instruction, error) {
	top8 := bits(w, 15, 8)

	switch {
	case top8 == 0b10110000: // ADD/SUB (SP plus/minus imm7)
		s := bits(w, 7, 7)
		imm7 := byte(bits(w, 6, 0))
		if s == 0 {
			return isa.NewAddSpImm7(imm7), nil
		}
		return isa.NewSubSpImm7(imm7), nil
	case top8 == 0b10110010: // SXTH/SXTB/UXTH/UXTB
		sub := bits(w, 7, 6)
		rm := byte(bits(w, 5, 3))
		rd := byte(bits(w, 2, 0))
		ops := []isa.ExtOp{isa.ExtSXTH, isa.ExtSXTB, isa.ExtUXTH, isa.ExtUXTB}
		return isa.NewExtend(ops[sub], rd, rm), nil
	case bits(w, 15, 9) == 0b1011010: // PUSH
		m := bits(w, 8, 8)
		regs := regList8(byte(bits(w, 7, 0)))
		return isa.NewPush(regs, m == 1), nil
	case bits(w, 15, 5) == 0b10110110011: // CPS
		if bits(w, 3, 0) != 0 {
			return nil, unpredictable(offset, w, "CPS requires low 4 bits zero")
		}
		disable := bits(w, 4, 4) == 1
		return isa.NewCps(disable), nil
	case top8 == 0b10111010: // REV family
		sub := bits(w, 7, 6)
		rm := byte(bits(w, 5, 3))
		rd := byte(bits(w, 2, 0))
		switch sub {
		case 0b00:
			return isa.NewRevFamily(isa.RevREV, rd, rm), nil
		case 0b01:
			return isa.NewRevFamily(isa.RevREV16, rd, rm), nil
		case 0b11:
			return isa.NewRevFamily(isa.RevREVSH, rd, rm), nil
		default:
			return nil, undefined(offset, w, "unallocated REV subcode")
		}
	case bits(w, 15, 9) == 0b1011110: // POP
		p := bits(w, 8, 8)
		regs := regList8(byte(bits(w, 7, 0)))
		return isa.NewPop(regs, p == 1), nil
	case top8 == 0b10111110: // BKPT
		return isa.NewBkpt(byte(bits(w, 7, 0))), nil
	case top8 == 0b10111111: // hint space
		opA := bits(w, 7, 4)
		opB := bits(w, 3, 0)
		if opA != 0 {
			return nil, undefined(offset, w, "hint space opA != 0 is not implemented for v6-M")
		}
		switch opB {
		case 0:
			return isa.NewHint(isa.HintNOP), nil
		case 1:
			return isa.NewHint(isa.HintYIELD), nil
		case 2:
			return isa.NewHint(isa.HintWFE), nil
		case 3:
			return isa.NewHint(isa.HintWFI), nil
		case 4:
			return isa.NewHint(isa.HintSEV), nil
		default:
			return nil, undefined(offset, w, "unallocated hint opB")
		}
	}
	return nil, undefined(offset, w, "unallocated miscellaneous 16-bit opcode")
}

func decodeCondBranch(w uint32, offset uint32) (isa.Instruction, error) {
	cond := byte(bits(w, 11, 8))
	imm8 := bits(w, 7, 0)
	switch cond {
	case 0b1110:
		return isa.NewUdfT1(byte(imm8)), nil
	case 0b1111:
		return isa.NewSvc(byte(imm8)), nil
	default:
		return isa.NewBCond(cond, signExtend(imm8<<1, 9)), nil
	}
}
