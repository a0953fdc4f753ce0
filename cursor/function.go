// Package cursor builds the navigable view of a decoded function: an
// offset-ordered instruction stream with previous/next adjacency, and
// byte-level cursors into its DATA regions. It is grounded on the
// teacher's vm/inst_memory.go (address-indexed, bounds-checked
// instruction access) and vm/memory.go's aligned little-endian readers,
// generalized from live execution to static navigation.
package cursor

import (
	"fmt"
	"sort"

	"github.com/lookbusy1344/armv6m-stackdepth/decode"
	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

// Function is the decoded, navigable form of one isa.FunctionRaw: its
// CODE regions decoded into an offset-ordered instruction stream, its
// DATA regions left as raw bytes for DataCursor.
type Function struct {
	Raw          *isa.FunctionRaw
	Instructions []decode.Decoded // ordered by Offset, spans all CODE regions
	offsetIndex  map[uint32]int
}

// NewFunction decodes every CODE region of raw and builds the
// function-relative offset index eagerly, per spec.md §9's guidance to
// compute derived indexes at construction rather than lazily.
func NewFunction(raw *isa.FunctionRaw) (*Function, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	fn := &Function{Raw: raw, offsetIndex: make(map[uint32]int)}
	for _, r := range raw.Regions {
		if r.Kind != isa.RegionCode {
			continue
		}
		decoded, err := decode.Decode(raw.CodeBytes(r))
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", raw.Names[0], err)
		}
		for _, d := range decoded {
			d.Offset += r.Offset
			fn.Instructions = append(fn.Instructions, d)
		}
	}
	sort.Slice(fn.Instructions, func(i, j int) bool {
		return fn.Instructions[i].Offset < fn.Instructions[j].Offset
	})
	for i, d := range fn.Instructions {
		fn.offsetIndex[d.Offset] = i
	}
	return fn, nil
}

// At returns a cursor at the instruction starting exactly at offset.
func (f *Function) At(offset uint32) (InstructionCursor, bool) {
	idx, ok := f.offsetIndex[offset]
	if !ok {
		return InstructionCursor{}, false
	}
	return InstructionCursor{fn: f, idx: idx}, true
}

// First returns a cursor at offset 0, or false if the function has no
// decoded instructions.
func (f *Function) First() (InstructionCursor, bool) {
	if len(f.Instructions) == 0 {
		return InstructionCursor{}, false
	}
	return InstructionCursor{fn: f, idx: 0}, true
}

// DataRegion returns a DataCursor at offset iff offset falls within one
// of the function's DATA regions.
func (f *Function) DataRegion(offset uint32) (DataCursor, bool) {
	r, ok := f.Raw.RegionAt(offset)
	if !ok || r.Kind != isa.RegionData {
		return DataCursor{}, false
	}
	return DataCursor{fn: f, region: r, offset: offset}, true
}

// InstructionCursor points at one decoded instruction within a
// Function. It is a cheap value (an index into the owning Function's
// slice), matching spec.md §9's opaque-triple recommendation for
// implementations using value semantics.
type InstructionCursor struct {
	fn  *Function
	idx int
}

func (c InstructionCursor) entry() decode.Decoded { return c.fn.Instructions[c.idx] }

// Offset is the function-relative byte offset of the instruction.
func (c InstructionCursor) Offset() uint32 { return c.entry().Offset }

// EndOffset is Offset plus the instruction's encoded size.
func (c InstructionCursor) EndOffset() uint32 {
	e := c.entry()
	return e.Offset + uint32(e.Instruction.Size())
}

// AbsoluteAddress is the instruction's load address.
func (c InstructionCursor) AbsoluteAddress() isa.Address {
	return c.fn.Raw.Address + isa.Address(c.Offset())
}

// Instruction returns the decoded instruction.
func (c InstructionCursor) Instruction() isa.Instruction { return c.entry().Instruction }

// Previous returns the preceding instruction cursor, or false at the
// first instruction.
func (c InstructionCursor) Previous() (InstructionCursor, bool) {
	if c.idx == 0 {
		return InstructionCursor{}, false
	}
	return InstructionCursor{fn: c.fn, idx: c.idx - 1}, true
}

// Next returns the following instruction cursor, or false past the last
// instruction.
func (c InstructionCursor) Next() (InstructionCursor, bool) {
	if c.idx+1 >= len(c.fn.Instructions) {
		return InstructionCursor{}, false
	}
	return InstructionCursor{fn: c.fn, idx: c.idx + 1}, true
}

// Function returns the owning function.
func (c InstructionCursor) Function() *Function { return c.fn }
