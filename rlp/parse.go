package rlp

import (
	"encoding/binary"
	"errors"
	"iter"

	"github.com/database64128/acn-go/pdu"
)

// ParseRootLayerPDU parses the next root layer PDU in block, using cur to keep track of
// the position in the block and the segments to inherit.
//
// A typical parse loop looks like:
//
//	var cur pdu.Cursor
//	for {
//		p, err := rlp.ParseRootLayerPDU(block, &cur)
//		if err != nil {
//			if errors.Is(err, pdu.ErrNoMorePDUs) {
//				break
//			}
//			return err
//		}
//		handle(&p)
//	}
//
// On error, cur is not modified. The returned PDU's Data aliases block.
func ParseRootLayerPDU(block []byte, cur *pdu.Cursor) (RootLayerPDU, error) {
	start, _ := cur.NextOffset()

	next := *cur
	if err := pdu.Parse(block, Constraints, &next); err != nil {
		return RootLayerPDU{}, err
	}

	vector, _ := next.Vector()
	header, _ := next.Header()
	data, _ := next.Data()

	p := RootLayerPDU{
		SenderCID: CID(header),
		Vector:    binary.BigEndian.Uint32(vector),
		Data:      data,
	}

	if block[start]&pdu.FlagL == 0 && MandatesExtendedLength(p.Vector) {
		return RootLayerPDU{}, pdu.NewParseError(ErrExtendedLengthRequired, start, "")
	}

	*cur = next
	return p, nil
}

// ParseRootLayerHeader parses the flags, length, vector, and CID of the root layer PDU
// at the beginning of buf, without requiring the data segment to be in buf.
// It is useful when reading PDUs from a stream.
//
// prev is the previously parsed PDU in the same block, or nil for the first PDU.
// Segments not present in this PDU are inherited from prev.
//
// pduLen is the declared length of the whole PDU. If the data segment is present,
// the returned PDU's Data holds the part of it that is in buf. The caller must wait
// for pduLen bytes to arrive and parse again to get the whole data segment.
func ParseRootLayerHeader(buf []byte, prev *RootLayerPDU) (p RootLayerPDU, pduLen int, err error) {
	length, width, err := pdu.DecodeLength(buf)
	if err != nil {
		return RootLayerPDU{}, 0, pdu.NewParseError(err, 0, "no room for length field")
	}
	flags := buf[0]

	minLen := width
	if flags&pdu.FlagV != 0 {
		minLen += VectorSize
	}
	if flags&pdu.FlagH != 0 {
		minLen += CIDSize
	}
	if length < minLen {
		return RootLayerPDU{}, 0, pdu.NewParseError(pdu.ErrBadLength, 0, "")
	}
	if flags&(pdu.FlagV|pdu.FlagH|pdu.FlagD) != pdu.FlagV|pdu.FlagH|pdu.FlagD && prev == nil {
		return RootLayerPDU{}, 0, pdu.NewParseError(pdu.ErrNoInheritSource, 0, "")
	}

	off := width

	if flags&pdu.FlagV != 0 {
		if len(buf) < off+VectorSize {
			return RootLayerPDU{}, 0, pdu.NewParseError(pdu.ErrTruncated, 0, "no room for vector")
		}
		p.Vector = binary.BigEndian.Uint32(buf[off:])
		off += VectorSize
	} else {
		p.Vector = prev.Vector
	}

	if flags&pdu.FlagL == 0 && MandatesExtendedLength(p.Vector) {
		return RootLayerPDU{}, 0, pdu.NewParseError(ErrExtendedLengthRequired, 0, "")
	}

	if flags&pdu.FlagH != 0 {
		if len(buf) < off+CIDSize {
			return RootLayerPDU{}, 0, pdu.NewParseError(pdu.ErrTruncated, 0, "no room for CID")
		}
		p.SenderCID = CID(buf[off : off+CIDSize])
		off += CIDSize
	} else {
		p.SenderCID = prev.SenderCID
	}

	if flags&pdu.FlagD != 0 {
		end := min(length, len(buf))
		p.Data = buf[off:end:end]
	} else {
		p.Data = prev.Data
	}

	return p, length, nil
}

// All returns an iterator over the root layer PDUs in block.
//
// If a PDU cannot be parsed, the error is yielded and iteration stops.
// Reaching the end of the block is not an error.
func All(block []byte) iter.Seq2[RootLayerPDU, error] {
	return func(yield func(RootLayerPDU, error) bool) {
		var cur pdu.Cursor
		for {
			p, err := ParseRootLayerPDU(block, &cur)
			if err != nil {
				if !errors.Is(err, pdu.ErrNoMorePDUs) {
					yield(RootLayerPDU{}, err)
				}
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}
