package cursor

import (
	"errors"
	"fmt"

	"github.com/lookbusy1344/armv6m-stackdepth/isa"
)

// ErrEndOfRegion is returned by a DataCursor read when the cursor sits
// exactly at the end of its region: a clean stop, not a failure. Callers
// such as the jump-table resolver (spec.md §4.3.1) use this to know when
// to stop reading table elements.
var ErrEndOfRegion = errors.New("cursor: at end of data region")

// DataCursor points at a byte position within one DATA region of a
// Function. Reads are little-endian, must be naturally aligned to their
// size, and must not cross the region boundary.
type DataCursor struct {
	fn     *Function
	region isa.Region
	offset uint32
}

// Offset is the function-relative byte offset the cursor points at.
func (c DataCursor) Offset() uint32 { return c.offset }

func (c DataCursor) checkRead(size uint32) error {
	if c.offset == c.region.End() {
		return ErrEndOfRegion
	}
	if c.offset%size != 0 {
		return fmt.Errorf("cursor: unaligned %d-byte read at offset %d", size, c.offset)
	}
	if c.offset+size > c.region.End() {
		return fmt.Errorf("cursor: %d-byte read at offset %d overflows region ending at %d", size, c.offset, c.region.End())
	}
	return nil
}

func (c DataCursor) bytesAt(size uint32) []byte {
	start := c.offset - c.region.Offset
	return c.fn.Raw.CodeBytes(c.region)[start : start+size]
}

// ReadU8 reads one byte and returns the advanced cursor.
func (c DataCursor) ReadU8() (uint32, DataCursor, error) {
	if err := c.checkRead(1); err != nil {
		return 0, DataCursor{}, err
	}
	b := c.bytesAt(1)
	return uint32(b[0]), c.advance(1), nil
}

// ReadU16 reads a little-endian halfword and returns the advanced
// cursor. The read must be 2-byte aligned.
func (c DataCursor) ReadU16() (uint32, DataCursor, error) {
	if err := c.checkRead(2); err != nil {
		return 0, DataCursor{}, err
	}
	b := c.bytesAt(2)
	v := uint32(b[0]) | uint32(b[1])<<8
	return v, c.advance(2), nil
}

// ReadU32 reads a little-endian word and returns the advanced cursor.
// The read must be 4-byte aligned.
func (c DataCursor) ReadU32() (uint32, DataCursor, error) {
	if err := c.checkRead(4); err != nil {
		return 0, DataCursor{}, err
	}
	b := c.bytesAt(4)
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return v, c.advance(4), nil
}

func (c DataCursor) advance(size uint32) DataCursor {
	return DataCursor{fn: c.fn, region: c.region, offset: c.offset + size}
}
