package decode

import "github.com/lookbusy1344/armv6m-stackdepth/isa"

// decode32 dispatches the handful of 32-bit Thumb-2 encodings ARMv6-M
// retains: BL, the three barriers, MRS, MSR, and UDF.W. opcode packs the
// two half-words as (hw2<<16)|hw1 per decodeOne, so hw1 — the
// lower-addressed half-word, carrying the primary opcode bits — sits in
// the low 16 bits here.
func decode32(opcode uint32, offset uint32) (isa.Instruction, error) {
	hw1 := bits(opcode, 15, 0)
	hw2 := bits(opcode, 31, 16)

	switch {
	case bits(hw1, 15, 11) == 0b11110 && bits(hw2, 15, 14) == 0b11 && bits(hw2, 12, 12) == 1: // BL, T1
		return decodeBl(hw1, hw2), nil
	case hw1 == 0xF3BF && bits(hw2, 15, 8) == 0b10001111: // DMB/DSB/ISB, T1
		return decodeBarrier(hw2, offset)
	case hw1 == 0xF3EF && bits(hw2, 15, 12) == 0b1000: // MRS, T1
		rd := byte(bits(hw2, 11, 8))
		sysm := byte(bits(hw2, 7, 0))
		return isa.NewMrs(rd, sysm), nil
	case bits(hw1, 15, 4) == 0b111100111000 && bits(hw2, 15, 8) == 0b10001000: // MSR (register), T1
		rn := byte(bits(hw1, 3, 0))
		sysm := byte(bits(hw2, 7, 0))
		return isa.NewMsr(sysm, rn), nil
	case bits(hw1, 15, 4) == 0b111101111111 && bits(hw2, 15, 12) == 0b1010: // UDF.W, T2
		imm4 := bits(hw1, 3, 0)
		imm12 := bits(hw2, 11, 0)
		imm16 := uint16((imm4 << 12) | imm12)
		return isa.NewUdfT2(imm16), nil
	}

	return nil, undefined(offset, opcode, "unallocated 32-bit Thumb opcode")
}

func decodeBl(hw1, hw2 uint32) isa.Instruction {
	s := bits(hw1, 10, 10)
	imm10 := bits(hw1, 9, 0)
	j1 := bits(hw2, 13, 13)
	j2 := bits(hw2, 11, 11)
	imm11 := bits(hw2, 10, 0)

	i1 := 1 - (j1 ^ s)
	i2 := 1 - (j2 ^ s)

	imm25 := (s << 24) | (i1 << 23) | (i2 << 22) | (imm10 << 12) | (imm11 << 1)
	return isa.NewBl(signExtend(imm25, 25))
}

func decodeBarrier(hw2 uint32, offset uint32) (isa.Instruction, error) {
	opsel := bits(hw2, 7, 4)
	option := byte(bits(hw2, 3, 0))
	switch opsel {
	case 0b0100:
		return isa.NewDmbDsbIsb(isa.BarrierDSB, option), nil
	case 0b0101:
		return isa.NewDmbDsbIsb(isa.BarrierDMB, option), nil
	case 0b0110:
		return isa.NewDmbDsbIsb(isa.BarrierISB, option), nil
	}
	return nil, undefined(offset, hw2, "unallocated barrier opcode")
}
