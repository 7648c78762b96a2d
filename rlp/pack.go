package rlp

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/database64128/acn-go/pdu"
	"github.com/database64128/acn-go/slicehelper"
)

// headerSize returns the size of the header of a root layer PDU that inherits nothing.
func headerSize(vector uint32, dataLen int) int {
	if MandatesExtendedLength(vector) || HeaderSizeNormalLen+dataLen > pdu.MaxNormalLength {
		return HeaderSizeExtLen
	}
	return HeaderSizeNormalLen
}

func checkDataLen(dataLen int) error {
	if HeaderSizeExtLen+dataLen > pdu.MaxExtendedLength {
		return fmt.Errorf("%w: data length %d", ErrPDUTooLarge, dataLen)
	}
	return nil
}

// BlockSize returns the buffer size required to pack pdus as a block.
//
// The returned size assumes no inheritance between PDUs, so it is an upper bound.
// [PackRootLayerBlock] usually writes fewer bytes.
func BlockSize(pdus []RootLayerPDU) int {
	var size int
	for i := range pdus {
		dataLen := len(pdus[i].Data)
		size += headerSize(pdus[i].Vector, dataLen) + dataLen
	}
	return size
}

// PackRootLayerHeader packs the header of a root layer PDU into buf, without the data segment.
// The length field covers the data segment, which the caller is expected to write after the header.
// It is useful when writing PDUs to a stream.
//
// It returns the number of bytes written.
func PackRootLayerHeader(buf []byte, p *RootLayerPDU) (int, error) {
	dataLen := len(p.Data)
	if err := checkDataLen(dataLen); err != nil {
		return 0, err
	}

	hdrLen := headerSize(p.Vector, dataLen)
	if len(buf) < hdrLen {
		return 0, ErrShortBuffer
	}

	putRootLayerHeader(buf, p.Vector, p.SenderCID, hdrLen, dataLen)
	return hdrLen, nil
}

// PackRootLayerPDU packs a single root layer PDU into buf.
// It returns the number of bytes written.
func PackRootLayerPDU(buf []byte, p *RootLayerPDU) (int, error) {
	dataLen := len(p.Data)
	if err := checkDataLen(dataLen); err != nil {
		return 0, err
	}

	hdrLen := headerSize(p.Vector, dataLen)
	if len(buf) < hdrLen+dataLen {
		return 0, ErrShortBuffer
	}

	putRootLayerHeader(buf, p.Vector, p.SenderCID, hdrLen, dataLen)
	copy(buf[hdrLen:], p.Data)
	return hdrLen + dataLen, nil
}

func putRootLayerHeader(b []byte, vector uint32, cid CID, hdrLen, dataLen int) {
	b[0] = pdu.FlagV | pdu.FlagH | pdu.FlagD
	pdu.PutLength(b, hdrLen+dataLen, hdrLen == HeaderSizeExtLen)
	off := hdrLen - VectorSize - CIDSize
	binary.BigEndian.PutUint32(b[off:], vector)
	copy(b[off+VectorSize:hdrLen], cid[:])
}

// PackRootLayerBlock packs pdus into buf as a block.
// buf must be at least [BlockSize] bytes long. Nothing is written if it's not.
//
// Each PDU inherits the vector, the CID, and the data of the previous PDU
// when they are equal, so the written block is usually smaller than [BlockSize].
//
// It returns the number of bytes written.
func PackRootLayerBlock(buf []byte, pdus []RootLayerPDU) (int, error) {
	if len(buf) < BlockSize(pdus) {
		return 0, ErrShortBuffer
	}
	for i := range pdus {
		if err := checkDataLen(len(pdus[i].Data)); err != nil {
			return 0, err
		}
	}

	var (
		n    int
		last RootLayerPDU
	)

	for i := range pdus {
		p := &pdus[i]
		first := i == 0

		var flags byte
		length := pdu.NormalLengthFieldSize

		if first || p.Vector != last.Vector {
			flags |= pdu.FlagV
			length += VectorSize
			last.Vector = p.Vector
		}

		if first || p.SenderCID != last.SenderCID {
			flags |= pdu.FlagH
			length += CIDSize
			last.SenderCID = p.SenderCID
		}

		if first || !bytes.Equal(p.Data, last.Data) {
			flags |= pdu.FlagD
			length += len(p.Data)
			last.Data = p.Data
		}

		extended := MandatesExtendedLength(p.Vector) || length > pdu.MaxNormalLength
		if extended {
			length++
		}

		b := buf[n : n+length]
		b[0] = flags
		pdu.PutLength(b, length, extended)
		off := pdu.LengthFieldSize(b[0])

		if flags&pdu.FlagV != 0 {
			binary.BigEndian.PutUint32(b[off:], p.Vector)
			off += VectorSize
		}

		if flags&pdu.FlagH != 0 {
			off += copy(b[off:], p.SenderCID[:])
		}

		if flags&pdu.FlagD != 0 {
			copy(b[off:], p.Data)
		}

		n += length
	}

	return n, nil
}

// AppendRootLayerBlock packs pdus as a block and appends it to b.
func AppendRootLayerBlock(b []byte, pdus []RootLayerPDU) ([]byte, error) {
	head, tail := slicehelper.Extend(b, BlockSize(pdus))
	n, err := PackRootLayerBlock(tail, pdus)
	if err != nil {
		return b, err
	}
	return head[:len(b)+n], nil
}

// AppendTCPBlock packs pdus as a block and appends it to b, preceded by
// a TCP preamble carrying the length of the packed block.
func AppendTCPBlock(b []byte, pdus []RootLayerPDU) ([]byte, error) {
	start := len(b)
	head, err := AppendRootLayerBlock(AppendTCPPreamble(b, 0), pdus)
	if err != nil {
		return b, err
	}
	blockLen := len(head) - start - TCPPreambleSize
	if err = checkBlockLen(blockLen); err != nil {
		return b, err
	}
	putTCPPreamble(head[start:], blockLen)
	return head, nil
}
