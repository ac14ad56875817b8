// Package wire implements the low-level byte encoding used by the exmdb
// wire protocol: little-endian fixed-width primitives, NUL-terminated
// strings, length-prefixed binary blobs, and request framing.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ErrShort is returned when a Pop* call needs more bytes than remain in
// the buffer.
type ErrShort struct {
	Want, Have int
}

func (e *ErrShort) Error() string {
	return fmt.Sprintf("wire: short read: wanted %d bytes, %d available", e.Want, e.Have)
}

// Buffer is a growable byte buffer with a read cursor. It is used both to
// build outgoing request bodies (Push*, Start/Finalize) and to parse
// incoming response bodies (Pop*).
//
// Buffer is not safe for concurrent use.
type Buffer struct {
	data  []byte
	rpos  int
	err   error
	frame int // offset of the reserved length prefix, or -1
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{frame: -1}
}

// NewBufferFrom returns a Buffer whose read cursor starts at 0 over data.
// data is used directly, not copied.
func NewBufferFrom(data []byte) *Buffer {
	return &Buffer{data: data, frame: -1}
}

// Err returns the first error encountered by a Pop* call, if any.
func (b *Buffer) Err() error {
	return b.err
}

// Bytes returns the buffer's current contents.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of bytes currently stored.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Reset empties the buffer and resets the read cursor.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.rpos = 0
	b.err = nil
	b.frame = -1
}

// Rewind resets only the read cursor, leaving the stored bytes intact.
func (b *Buffer) Rewind() {
	b.rpos = 0
}

// Tell returns the current offset of the read cursor.
func (b *Buffer) Tell() int {
	return b.rpos
}

// PushRaw appends p verbatim.
func (b *Buffer) PushRaw(p []byte) {
	b.data = append(b.data, p...)
}

// PushByte appends a single byte.
func (b *Buffer) PushByte(v byte) {
	b.data = append(b.data, v)
}

// PushBool appends v as a single byte, 1 for true.
func (b *Buffer) PushBool(v bool) {
	if v {
		b.PushByte(1)
	} else {
		b.PushByte(0)
	}
}

// PushUint16 appends v little-endian.
func (b *Buffer) PushUint16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
}

// PushUint32 appends v little-endian.
func (b *Buffer) PushUint32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
}

// PushUint64 appends v little-endian.
func (b *Buffer) PushUint64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
}

// PushUint64BE appends v big-endian, the write-side counterpart of
// PopUint64BE.
func (b *Buffer) PushUint64BE(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
}

// PushFloat32 appends v in IEEE 754 binary32, little-endian.
func (b *Buffer) PushFloat32(v float32) {
	b.PushUint32(math.Float32bits(v))
}

// PushFloat64 appends v in IEEE 754 binary64, little-endian.
func (b *Buffer) PushFloat64(v float64) {
	b.PushUint64(math.Float64bits(v))
}

// PushCString appends s followed by a single NUL terminator.
func (b *Buffer) PushCString(s string) {
	b.data = append(b.data, s...)
	b.data = append(b.data, 0)
}

// PushBinary appends a uint32 length prefix followed by p.
func (b *Buffer) PushBinary(p []byte) {
	b.PushUint32(uint32(len(p)))
	b.PushRaw(p)
}

// Start begins a request frame: it reserves 4 bytes for a length prefix
// to be filled in by Finalize. Must be called on an empty buffer.
func (b *Buffer) Start() {
	b.frame = len(b.data)
	b.data = append(b.data, 0, 0, 0, 0)
}

// Finalize writes the body length (current size minus the 4-byte prefix
// itself) into the reserved slot opened by Start. Panics if Start was not
// called first.
func (b *Buffer) Finalize() {
	if b.frame < 0 {
		panic("wire: Finalize called without Start")
	}
	length := uint32(len(b.data) - b.frame - 4)
	binary.LittleEndian.PutUint32(b.data[b.frame:b.frame+4], length)
	b.frame = -1
}

func (b *Buffer) need(n int) ([]byte, bool) {
	if b.err != nil {
		return nil, false
	}
	if b.rpos+n > len(b.data) {
		b.err = &ErrShort{Want: n, Have: len(b.data) - b.rpos}
		return nil, false
	}
	p := b.data[b.rpos : b.rpos+n]
	b.rpos += n
	return p, true
}

// PopRaw returns the next n bytes and advances the cursor. The returned
// slice aliases the buffer's storage and must be copied if it needs to
// outlive a subsequent mutation of the buffer.
func (b *Buffer) PopRaw(n int) []byte {
	p, ok := b.need(n)
	if !ok {
		return nil
	}
	return p
}

// PopByte reads a single byte.
func (b *Buffer) PopByte() byte {
	p, ok := b.need(1)
	if !ok {
		return 0
	}
	return p[0]
}

// PopBool reads a single byte and reports whether it is non-zero.
func (b *Buffer) PopBool() bool {
	return b.PopByte() != 0
}

// PopUint16 reads a little-endian uint16.
func (b *Buffer) PopUint16() uint16 {
	p, ok := b.need(2)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint16(p)
}

// PopUint32 reads a little-endian uint32.
func (b *Buffer) PopUint32() uint32 {
	p, ok := b.need(4)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint32(p)
}

// PopUint64 reads a little-endian uint64.
func (b *Buffer) PopUint64() uint64 {
	p, ok := b.need(8)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint64(p)
}

// PopUint64BE reads a big-endian uint64. Used for AllocateCn's response.
func (b *Buffer) PopUint64BE() uint64 {
	p, ok := b.need(8)
	if !ok {
		return 0
	}
	return binary.BigEndian.Uint64(p)
}

// PopFloat32 reads an IEEE 754 binary32, little-endian.
func (b *Buffer) PopFloat32() float32 {
	return math.Float32frombits(b.PopUint32())
}

// PopFloat64 reads an IEEE 754 binary64, little-endian.
func (b *Buffer) PopFloat64() float64 {
	return math.Float64frombits(b.PopUint64())
}

// PopCString reads bytes up to and including the next NUL and returns
// them without the terminator. The returned slice aliases the buffer.
func (b *Buffer) PopCString() []byte {
	if b.err != nil {
		return nil
	}
	start := b.rpos
	for i := b.rpos; i < len(b.data); i++ {
		if b.data[i] == 0 {
			b.rpos = i + 1
			return b.data[start:i]
		}
	}
	b.err = &ErrShort{Want: 1, Have: 0}
	return nil
}

// PopBinary reads a uint32 length prefix followed by that many bytes.
// The returned slice aliases the buffer.
func (b *Buffer) PopBinary() []byte {
	n := b.PopUint32()
	if b.err != nil {
		return nil
	}
	return b.PopRaw(int(n))
}

// PushWChars appends data followed by a 2-byte 0x0000 terminator. Used
// for WSTRING propvals, whose wire encoding is UTF-16LE code units
// terminated by a NUL code unit rather than a NUL byte.
func (b *Buffer) PushWChars(data []byte) {
	b.PushRaw(data)
	b.PushUint16(0)
}

// PopWChars reads bytes up to and including the next 0x0000 code unit
// (two zero bytes at an even offset from start) and returns them
// without the terminator. The returned slice aliases the buffer.
func (b *Buffer) PopWChars() []byte {
	if b.err != nil {
		return nil
	}
	start := b.rpos
	for i := b.rpos; i+1 < len(b.data); i += 2 {
		if b.data[i] == 0 && b.data[i+1] == 0 {
			b.rpos = i + 2
			return b.data[start:i]
		}
	}
	b.err = &ErrShort{Want: 2, Have: len(b.data) - b.rpos}
	return nil
}

// Remaining reports how many unread bytes are left.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.rpos
}
