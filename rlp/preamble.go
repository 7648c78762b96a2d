package rlp

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/database64128/acn-go/slicehelper"
)

// TCPPreamble is a parsed ACN TCP preamble.
//
//	TCPPreamble := 12B packet identifier + u32be RLP block length
type TCPPreamble struct {
	// BlockLen is the length of the RLP block declared by the preamble.
	BlockLen int

	// RLPBlock holds the bytes of the RLP block that follow the preamble in the parsed buffer,
	// up to BlockLen bytes.
	RLPBlock []byte
}

// Complete returns whether the whole RLP block is in RLPBlock.
func (p TCPPreamble) Complete() bool {
	return len(p.RLPBlock) == p.BlockLen
}

// ParseTCPPreamble parses the TCP preamble at the beginning of buf.
//
// TCP has no message boundaries. The caller must make sure that
// the returned preamble is complete before parsing PDUs from its block.
func ParseTCPPreamble(buf []byte) (TCPPreamble, error) {
	if len(buf) < TCPPreambleSize {
		return TCPPreamble{}, ErrShortBuffer
	}

	if [PacketIdentifierSize]byte(buf[:PacketIdentifierSize]) != PacketIdentifier {
		return TCPPreamble{}, ErrPreambleMismatch
	}

	// A u32 length does not fit in int on 32-bit platforms.
	u := binary.BigEndian.Uint32(buf[PacketIdentifierSize:TCPPreambleSize])
	if uint64(u) > math.MaxInt {
		return TCPPreamble{}, fmt.Errorf("%w: block length %d exceeds %d", ErrPreambleMismatch, u, math.MaxInt)
	}
	blockLen := int(u)

	block := buf[TCPPreambleSize:]
	if len(block) > blockLen {
		block = block[:blockLen]
	}

	return TCPPreamble{
		BlockLen: blockLen,
		RLPBlock: block,
	}, nil
}

// UDPPreamble is a parsed ACN UDP preamble.
//
//	UDPPreamble := u16be preamble size + u16be postamble size + 12B packet identifier
type UDPPreamble struct {
	// RLPBlock is the RLP block in the datagram, with the preamble and postamble removed.
	RLPBlock []byte
}

// ParseUDPPreamble parses the UDP preamble of a whole datagram.
func ParseUDPPreamble(buf []byte) (UDPPreamble, error) {
	if len(buf) < UDPPreambleSize {
		return UDPPreamble{}, ErrShortBuffer
	}

	preambleLen := int(binary.BigEndian.Uint16(buf))
	postambleLen := int(binary.BigEndian.Uint16(buf[2:]))

	if preambleLen != UDPPreambleSize ||
		[PacketIdentifierSize]byte(buf[4:UDPPreambleSize]) != PacketIdentifier ||
		len(buf) <= preambleLen+postambleLen {
		return UDPPreamble{}, ErrPreambleMismatch
	}

	return UDPPreamble{
		RLPBlock: buf[preambleLen : len(buf)-postambleLen],
	}, nil
}

// PackTCPPreamble packs a TCP preamble for an RLP block of length blockLen into buf.
// It returns the number of bytes written.
func PackTCPPreamble(buf []byte, blockLen int) (int, error) {
	if err := checkBlockLen(blockLen); err != nil {
		return 0, err
	}
	if len(buf) < TCPPreambleSize {
		return 0, ErrShortBuffer
	}
	putTCPPreamble(buf, blockLen)
	return TCPPreambleSize, nil
}

// AppendTCPPreamble appends a TCP preamble for an RLP block of length blockLen to b.
// blockLen must be in [0, math.MaxUint32]. Use [PackTCPPreamble] to have it checked.
func AppendTCPPreamble(b []byte, blockLen int) []byte {
	b, p := slicehelper.Extend(b, TCPPreambleSize)
	putTCPPreamble(p, blockLen)
	return b
}

func checkBlockLen(blockLen int) error {
	if blockLen < 0 || uint64(blockLen) > math.MaxUint32 {
		return fmt.Errorf("%w: %d", ErrBlockLengthOutOfRange, blockLen)
	}
	return nil
}

func putTCPPreamble(b []byte, blockLen int) {
	_ = b[TCPPreambleSize-1]
	copy(b, PacketIdentifier[:])
	binary.BigEndian.PutUint32(b[PacketIdentifierSize:], uint32(blockLen))
}

// PackUDPPreamble packs a UDP preamble with no postamble into buf.
// It returns the number of bytes written.
func PackUDPPreamble(buf []byte) (int, error) {
	if len(buf) < UDPPreambleSize {
		return 0, ErrShortBuffer
	}
	putUDPPreamble(buf)
	return UDPPreambleSize, nil
}

// AppendUDPPreamble appends a UDP preamble with no postamble to b.
func AppendUDPPreamble(b []byte) []byte {
	b, p := slicehelper.Extend(b, UDPPreambleSize)
	putUDPPreamble(p)
	return b
}

func putUDPPreamble(b []byte) {
	_ = b[UDPPreambleSize-1]
	binary.BigEndian.PutUint16(b, UDPPreambleSize)
	binary.BigEndian.PutUint16(b[2:], 0)
	copy(b[4:], PacketIdentifier[:])
}
