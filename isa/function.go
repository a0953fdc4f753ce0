package isa

import "fmt"

// Address is a non-negative, half-word-aligned byte address. The Thumb
// bit (bit 0, used to mark a symbol as a Thumb function or a vector
// entry as Thumb-mode) is always cleared before an Address is
// constructed; NewAddress documents and enforces this.
type Address uint32

// NewAddress clears the Thumb bit and validates half-word alignment.
func NewAddress(raw uint32) (Address, error) {
	a := Address(raw &^ 1)
	if a%2 != 0 {
		return 0, fmt.Errorf("address 0x%x is not half-word aligned", raw)
	}
	return a, nil
}

// RegionKind classifies a contiguous span of a function's bytes.
type RegionKind int

const (
	RegionCode RegionKind = iota
	RegionData
)

func (k RegionKind) String() string {
	if k == RegionCode {
		return "CODE"
	}
	return "DATA"
}

// Region is one contiguous, function-relative byte span.
type Region struct {
	Offset uint32
	Size   uint32
	Kind   RegionKind
}

func (r Region) End() uint32 { return r.Offset + r.Size }

// FunctionRaw is what the image adapter supplies for one function: its
// load address, total size, name set (duplicate symbols at the same
// address accumulate names rather than colliding), and an ordered,
// gap-free sequence of regions covering [0, Size).
type FunctionRaw struct {
	Address Address
	Size    uint32
	Names   []string
	Regions []Region
	Bytes   []byte // raw function bytes, length == Size
}

// Validate checks the Function (raw) invariants from spec.md §3: the
// region sequence is contiguous, starts at 0, ends at Size, and the
// first region is CODE.
func (f *FunctionRaw) Validate() error {
	if len(f.Names) == 0 {
		return fmt.Errorf("function at 0x%x has no name", f.Address)
	}
	if len(f.Regions) == 0 {
		return fmt.Errorf("function %s has no regions", f.primaryName())
	}
	if f.Regions[0].Kind != RegionCode {
		return fmt.Errorf("function %s does not start with a CODE region", f.primaryName())
	}
	var cursor uint32
	for i, r := range f.Regions {
		if r.Offset != cursor {
			return fmt.Errorf("function %s region %d starts at %d, expected %d (gap or overlap)", f.primaryName(), i, r.Offset, cursor)
		}
		cursor = r.End()
	}
	if cursor != f.Size {
		return fmt.Errorf("function %s regions cover %d bytes, expected %d", f.primaryName(), cursor, f.Size)
	}
	if uint32(len(f.Bytes)) != f.Size {
		return fmt.Errorf("function %s has %d raw bytes, expected %d", f.primaryName(), len(f.Bytes), f.Size)
	}
	return nil
}

func (f *FunctionRaw) primaryName() string {
	if len(f.Names) == 0 {
		return fmt.Sprintf("0x%x", f.Address)
	}
	return f.Names[0]
}

// RegionAt returns the region containing the function-relative offset,
// or false if the offset is out of bounds.
func (f *FunctionRaw) RegionAt(offset uint32) (Region, bool) {
	for _, r := range f.Regions {
		if offset >= r.Offset && offset < r.End() {
			return r, true
		}
	}
	return Region{}, false
}

// CodeBytes returns the function's code bytes in a given region.
func (f *FunctionRaw) CodeBytes(r Region) []byte {
	return f.Bytes[r.Offset:r.End()]
}
