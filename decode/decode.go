package decode

import (
	"encoding/binary"

	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

// Decoded pairs a function-relative offset with the instruction decoded there.
type Decoded struct {
	Offset      uint32
	Instruction isa.Instruction
}

// Decode decodes a function's code bytes into an offset-ordered
// instruction stream. Postcondition (spec.md §4.1): the sum of decoded
// instruction sizes equals len(code).
func Decode(code []byte) ([]Decoded, error) {
	var out []Decoded
	var offset uint32
	for int(offset) < len(code) {
		d, err := decodeOne(code, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
		offset += uint32(d.Instruction.Size())
	}
	return out, nil
}

func decodeOne(code []byte, offset uint32) (Decoded, error) {
	if int(offset)+2 > len(code) {
		return Decoded{}, &TruncatedError{Offset: offset}
	}
	half1 := binary.LittleEndian.Uint16(code[offset:])

	if is32BitPrefix(half1) {
		if int(offset)+4 > len(code) {
			return Decoded{}, &TruncatedError{Offset: offset}
		}
		half2 := binary.LittleEndian.Uint16(code[offset+2:])
		// spec.md §4.1: concatenate as (half2<<16)|half1 — the first
		// half-word read forms the *lower* 16 bits of the combined opcode
		// and the second half-word the upper 16 bits.
		opcode := (uint32(half2) << 16) | uint32(half1)
		instr, err := decode32(opcode, offset)
		if err != nil {
			return Decoded{}, err
		}
		return Decoded{Offset: offset, Instruction: instr}, nil
	}

	instr, err := decode16(half1, offset)
	if err != nil {
		return Decoded{}, err
	}
	return Decoded{Offset: offset, Instruction: instr}, nil
}

// is32BitPrefix reports whether the top five bits of the first
// half-word's high byte select a 32-bit Thumb-2 encoding group.
func is32BitPrefix(half1 uint16) bool {
	top5 := (half1 >> 11) & 0x1F
	return top5 == 0b11101 || top5 == 0b11110 || top5 == 0b11111
}

// bits extracts the inclusive [hi:lo] bit field from v.
func bits(v uint32, hi, lo int) uint32 {
	mask := uint32(1)<<(hi-lo+1) - 1
	return (v >> uint(lo)) & mask
}

func signExtend(v uint32, bitsN int) int32 {
	shift := 32 - bitsN
	return int32(v<<uint(shift)) >> uint(shift)
}
