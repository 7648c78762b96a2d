// Package rlp implements the ACN Root Layer Protocol.
//
// A root layer PDU is a generic ACN PDU with a 4-byte vector and a 16-byte header
// holding the sender's CID:
//
//	RootLayerPDU := flags/length (2 or 3 bytes) + [u32be vector] + [16B sender CID] + [data]
//
// A block of root layer PDUs is preceded by a TCP preamble on stream transports,
// or by a UDP preamble on datagram transports.
package rlp

import (
	"errors"

	"github.com/database64128/acn-go/internal/acnprot"
	"github.com/database64128/acn-go/pdu"
	"github.com/google/uuid"
)

const (
	// TCPPreambleSize is the size of a TCP preamble: the packet identifier and a u32be block length.
	TCPPreambleSize = 16

	// UDPPreambleSize is the size of a UDP preamble, which is also the only accepted preamble size field.
	UDPPreambleSize = 16

	// VectorSize is the size of a root layer vector.
	VectorSize = 4

	// CIDSize is the size of a component identifier.
	CIDSize = 16

	// HeaderSizeNormalLen is the size of a root layer PDU header with a 2-byte length field.
	HeaderSizeNormalLen = pdu.NormalLengthFieldSize + VectorSize + CIDSize

	// HeaderSizeExtLen is the size of a root layer PDU header with a 3-byte length field.
	HeaderSizeExtLen = pdu.ExtendedLengthFieldSize + VectorSize + CIDSize
)

// PacketIdentifierSize is the size of [PacketIdentifier].
const PacketIdentifierSize = 12

// PacketIdentifier identifies an ACN packet in both TCP and UDP preambles.
// The trailing NUL bytes are part of the identifier.
var PacketIdentifier = [PacketIdentifierSize]byte{'A', 'S', 'C', '-', 'E', '1', '.', '1', '7', 0, 0, 0}

// Constraints are the segment sizes of a root layer PDU.
var Constraints = pdu.Constraints{
	VectorSize: VectorSize,
	HeaderSize: CIDSize,
}

var (
	ErrPreambleMismatch       = errors.New("preamble mismatch")
	ErrExtendedLengthRequired = errors.New("vector requires the extended length field")
	ErrShortBuffer            = errors.New("destination buffer too small")
	ErrPDUTooLarge            = errors.New("PDU too large for the length field")
	ErrBlockLengthOutOfRange  = errors.New("block length out of range for a TCP preamble")
)

// CID is a component identifier: a UUID naming the component that sent a PDU.
type CID [CIDSize]byte

// NewCID returns a random (version 4) CID.
func NewCID() CID {
	return CID(uuid.New())
}

// ParseCID parses a CID in any of the forms accepted by [uuid.Parse].
func ParseCID(s string) (CID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CID{}, err
	}
	return CID(u), nil
}

// String returns the CID in the canonical UUID form.
func (c CID) String() string {
	return uuid.UUID(c).String()
}

// MarshalText implements [encoding.TextMarshaler.MarshalText].
func (c CID) MarshalText() ([]byte, error) {
	return uuid.UUID(c).MarshalText()
}

// UnmarshalText implements [encoding.TextUnmarshaler.UnmarshalText].
func (c *CID) UnmarshalText(text []byte) error {
	return (*uuid.UUID)(c).UnmarshalText(text)
}

// RootLayerPDU is a parsed or to-be-packed root layer PDU.
//
// When returned by a parse function, Data aliases the parsed buffer.
type RootLayerPDU struct {
	SenderCID CID
	Vector    uint32
	Data      []byte
}

// MandatesExtendedLength returns whether PDUs with the given vector
// must use the 3-byte length field regardless of their size.
func MandatesExtendedLength(vector uint32) bool {
	switch vector {
	case acnprot.ProtocolLLRP, acnprot.ProtocolBroker, acnprot.ProtocolRPT, acnprot.ProtocolEPT:
		return true
	default:
		return false
	}
}
