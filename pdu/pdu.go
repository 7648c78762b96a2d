// Package pdu implements the generic ACN PDU format.
//
// Each PDU in a block starts with a flags byte, whose high nibble holds the L, V, H, D flags,
// and whose low nibble begins the length field:
//
//	PDU := flags/length (2 or 3 bytes) + [vector] + [header] + [data]
//
// The length field is 12 bits long, or 20 bits long if L is set. It covers the whole PDU,
// including the flags/length field itself. The vector, header, and data segments are each
// present only if their flag is set. A segment whose flag is clear is inherited from
// the previous PDU in the same block.
package pdu

import "strconv"

const (
	// FlagL indicates that the length field is 3 bytes long instead of 2.
	FlagL = 0x80

	// FlagV indicates that the vector segment is present.
	FlagV = 0x40

	// FlagH indicates that the header segment is present.
	FlagH = 0x20

	// FlagD indicates that the data segment is present.
	FlagD = 0x10

	// FlagsMask masks off the length bits of the flags byte.
	FlagsMask = 0xF0
)

const (
	// NormalLengthFieldSize is the size of the flags and length field when L is clear.
	NormalLengthFieldSize = 2

	// ExtendedLengthFieldSize is the size of the flags and length field when L is set.
	ExtendedLengthFieldSize = 3

	// MaxNormalLength is the largest PDU length representable by a 2-byte length field.
	MaxNormalLength = 0x0FFF

	// MaxExtendedLength is the largest PDU length representable by a 3-byte length field.
	MaxExtendedLength = 0x0FFFFF
)

// LengthFieldSize returns the size of the length field indicated by the flags byte.
func LengthFieldSize(flags byte) int {
	if flags&FlagL != 0 {
		return ExtendedLengthFieldSize
	}
	return NormalLengthFieldSize
}

// DecodeLength decodes the length field at the beginning of b.
// It returns the PDU length and the size of the length field.
func DecodeLength(b []byte) (length, width int, err error) {
	if len(b) == 0 {
		return 0, 0, ErrTruncated
	}
	width = LengthFieldSize(b[0])
	if len(b) < width {
		return 0, width, ErrTruncated
	}
	if width == ExtendedLengthFieldSize {
		length = int(b[0]&^FlagsMask)<<16 | int(b[1])<<8 | int(b[2])
	} else {
		length = int(b[0]&^FlagsMask)<<8 | int(b[1])
	}
	return length, width, nil
}

// PutLength writes length into the length field at the beginning of b,
// preserving the flags in the high nibble of b[0]. If extended is true,
// the L flag is set and a 3-byte field is written.
//
// The caller must ensure that length fits in the chosen field
// and that b is large enough to hold it.
func PutLength(b []byte, length int, extended bool) {
	if extended {
		_ = b[2]
		b[0] = b[0]&FlagsMask | FlagL | byte(length>>16)&^FlagsMask
		b[1] = byte(length >> 8)
		b[2] = byte(length)
		return
	}
	_ = b[1]
	b[0] = b[0]&FlagsMask | byte(length>>8)&^FlagsMask
	b[1] = byte(length)
}

// Constraints describes the fixed segment sizes of a family of PDUs.
type Constraints struct {
	// VectorSize is the size of the vector segment.
	VectorSize int

	// HeaderSize is the size of the header segment.
	HeaderSize int
}

// segment is an optional view into the block being parsed.
type segment struct {
	b  []byte
	ok bool
}

// Cursor holds the parse state of a PDU block.
//
// The zero value is ready for parsing the first PDU in a block.
// After each successful call to [Parse], it holds the segments of the PDU
// that was just parsed, which are the inheritance source for the next PDU.
//
// A Cursor only holds slices of the block being parsed. It must not be used
// with a different block without calling [Cursor.Reset] first.
type Cursor struct {
	vector  segment
	header  segment
	data    segment
	next    int
	started bool
}

// Reset resets the cursor to the start-of-block state.
func (c *Cursor) Reset() {
	*c = Cursor{}
}

// Vector returns the vector segment of the most recently parsed PDU.
func (c *Cursor) Vector() ([]byte, bool) {
	return c.vector.b, c.vector.ok
}

// Header returns the header segment of the most recently parsed PDU.
func (c *Cursor) Header() ([]byte, bool) {
	return c.header.b, c.header.ok
}

// Data returns the data segment of the most recently parsed PDU.
func (c *Cursor) Data() ([]byte, bool) {
	return c.data.b, c.data.ok
}

// NextOffset returns the offset of the next PDU in the block.
// ok is false if no PDU has been parsed yet.
func (c *Cursor) NextOffset() (offset int, ok bool) {
	return c.next, c.started
}

// Parse parses the next PDU in buf, which must hold a whole PDU block,
// and stores its segments in cur.
//
// Segments whose flags are clear are inherited from the PDU previously parsed into cur.
// On error, cur is not modified. [ErrNoMorePDUs] is returned when the end of the block is reached.
//
// Parse does not copy or allocate on success.
func Parse(buf []byte, c Constraints, cur *Cursor) error {
	var start int
	if cur.started {
		start = cur.next
		if start < 0 || start >= len(buf) {
			return ErrNoMorePDUs
		}
	} else if len(buf) == 0 {
		return ErrNoMorePDUs
	}

	p := buf[start:]
	flags := p[0]

	length, width, err := DecodeLength(p)
	if err != nil {
		return NewParseError(err, start, "no room for length field")
	}

	minLen := width
	if flags&FlagV != 0 {
		minLen += c.VectorSize
	}
	if flags&FlagH != 0 {
		minLen += c.HeaderSize
	}
	if length < minLen {
		return NewParseError(ErrBadLength, start, "length "+strconv.Itoa(length)+" is less than minimum "+strconv.Itoa(minLen))
	}
	if length > len(p) {
		return NewParseError(ErrBadLength, start, "length "+strconv.Itoa(length)+" extends past end of buffer")
	}

	switch {
	case flags&FlagV == 0 && !cur.vector.ok:
		return NewParseError(ErrNoInheritSource, start, "vector")
	case flags&FlagH == 0 && !cur.header.ok:
		return NewParseError(ErrNoInheritSource, start, "header")
	case flags&FlagD == 0 && !cur.data.ok:
		return NewParseError(ErrNoInheritSource, start, "data")
	}

	next := *cur
	off := start + width

	if flags&FlagV != 0 {
		end := off + c.VectorSize
		next.vector = segment{buf[off:end:end], true}
		off = end
	}

	if flags&FlagH != 0 {
		end := off + c.HeaderSize
		next.header = segment{buf[off:end:end], true}
		off = end
	}

	end := start + length

	if flags&FlagD != 0 {
		next.data = segment{buf[off:end:end], true}
	}

	next.next = end
	next.started = true
	*cur = next
	return nil
}
