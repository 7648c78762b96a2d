package rlp

import (
	"bytes"
	"errors"
	"strconv"
	"testing"

	"github.com/database64128/acn-go/internal/acnprot"
	"github.com/database64128/acn-go/pdu"
)

var (
	testCID1 = CID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	testCID2 = CID{0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff, 0x00}
)

// testBlock is a hand-packed block:
//
//  1. E1.31 data from testCID1 with 2 bytes of data.
//  2. Inherited vector and CID, 1 byte of data.
//  3. RPT from testCID2 with inherited data, extended length.
var testBlock = []byte{
	0x70, 0x18,
	0x00, 0x00, 0x00, 0x04,
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	0xaa, 0xbb,

	0x10, 0x03,
	0xcc,

	0xe0, 0x00, 0x17,
	0x00, 0x00, 0x00, 0x05,
	0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff, 0x00,
}

var testBlockPDUs = []RootLayerPDU{
	{SenderCID: testCID1, Vector: acnprot.ProtocolE131Data, Data: []byte{0xaa, 0xbb}},
	{SenderCID: testCID1, Vector: acnprot.ProtocolE131Data, Data: []byte{0xcc}},
	{SenderCID: testCID2, Vector: acnprot.ProtocolRPT, Data: []byte{0xcc}},
}

func assertPDUEqual(t *testing.T, got, want *RootLayerPDU) {
	t.Helper()
	if got.SenderCID != want.SenderCID {
		t.Errorf("SenderCID = %s, want %s", got.SenderCID, want.SenderCID)
	}
	if got.Vector != want.Vector {
		t.Errorf("Vector = %#x, want %#x", got.Vector, want.Vector)
	}
	if !bytes.Equal(got.Data, want.Data) {
		t.Errorf("Data = %x, want %x", got.Data, want.Data)
	}
}

func TestParseRootLayerPDU(t *testing.T) {
	var cur pdu.Cursor
	for i := range testBlockPDUs {
		p, err := ParseRootLayerPDU(testBlock, &cur)
		if err != nil {
			t.Fatalf("ParseRootLayerPDU #%d failed: %v", i, err)
		}
		assertPDUEqual(t, &p, &testBlockPDUs[i])
	}

	if _, err := ParseRootLayerPDU(testBlock, &cur); !errors.Is(err, pdu.ErrNoMorePDUs) {
		t.Errorf("ParseRootLayerPDU at end of block got %v, want %v", err, pdu.ErrNoMorePDUs)
	}
}

func TestAll(t *testing.T) {
	var i int
	for p, err := range All(testBlock) {
		if err != nil {
			t.Fatalf("All yielded error at #%d: %v", i, err)
		}
		assertPDUEqual(t, &p, &testBlockPDUs[i])
		i++
	}
	if i != len(testBlockPDUs) {
		t.Errorf("All yielded %d PDUs, want %d", i, len(testBlockPDUs))
	}

	for _, err := range All(testBlock[:len(testBlock)-1]) {
		if err != nil {
			return
		}
	}
	t.Error("All did not yield an error for a truncated block")
}

func TestParseRootLayerPDUExtendedLengthRequired(t *testing.T) {
	for _, vector := range []uint32{acnprot.ProtocolLLRP, acnprot.ProtocolBroker, acnprot.ProtocolRPT, acnprot.ProtocolEPT} {
		t.Run(acnprot.Name(vector), func(t *testing.T) {
			buf := []byte{
				0x70, 0x17,
				0x00, 0x00, 0x00, byte(vector),
				0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
				0xaa,
			}

			var cur pdu.Cursor
			if _, err := ParseRootLayerPDU(buf, &cur); !errors.Is(err, ErrExtendedLengthRequired) {
				t.Errorf("ParseRootLayerPDU got %v, want %v", err, ErrExtendedLengthRequired)
			}
			if _, ok := cur.NextOffset(); ok {
				t.Error("cursor modified on error")
			}
			if _, _, err := ParseRootLayerHeader(buf, nil); !errors.Is(err, ErrExtendedLengthRequired) {
				t.Errorf("ParseRootLayerHeader got %v, want %v", err, ErrExtendedLengthRequired)
			}
		})
	}
}

func TestParseRootLayerPDUFirstMustNotInherit(t *testing.T) {
	for _, flags := range []byte{0x60, 0x50, 0x30} {
		t.Run(strconv.FormatUint(uint64(flags), 16), func(t *testing.T) {
			buf := bytes.Clone(testBlock[:24])
			buf[0] = flags

			var cur pdu.Cursor
			if _, err := ParseRootLayerPDU(buf, &cur); !errors.Is(err, pdu.ErrNoInheritSource) {
				t.Errorf("ParseRootLayerPDU got %v, want %v", err, pdu.ErrNoInheritSource)
			}
			if _, _, err := ParseRootLayerHeader(buf, nil); !errors.Is(err, pdu.ErrNoInheritSource) {
				t.Errorf("ParseRootLayerHeader got %v, want %v", err, pdu.ErrNoInheritSource)
			}
		})
	}
}

func TestParseRootLayerHeader(t *testing.T) {
	var (
		prev *RootLayerPDU
		off  int
	)
	for i := range testBlockPDUs {
		p, pduLen, err := ParseRootLayerHeader(testBlock[off:], prev)
		if err != nil {
			t.Fatalf("ParseRootLayerHeader #%d failed: %v", i, err)
		}
		assertPDUEqual(t, &p, &testBlockPDUs[i])
		off += pduLen
		prev = &p
	}
	if off != len(testBlock) {
		t.Errorf("PDU lengths add up to %d, want %d", off, len(testBlock))
	}
}

func TestParseRootLayerHeaderPartialData(t *testing.T) {
	// Header and 1 of 2 data bytes.
	p, pduLen, err := ParseRootLayerHeader(testBlock[:HeaderSizeNormalLen+1], nil)
	if err != nil {
		t.Fatalf("ParseRootLayerHeader failed: %v", err)
	}
	if pduLen != 24 {
		t.Errorf("pduLen = %d, want 24", pduLen)
	}
	if !bytes.Equal(p.Data, []byte{0xaa}) {
		t.Errorf("p.Data = %x, want aa", p.Data)
	}
	if p.SenderCID != testCID1 || p.Vector != acnprot.ProtocolE131Data {
		t.Errorf("p = %+v", p)
	}

	// Header only.
	if _, _, err = ParseRootLayerHeader(testBlock[:HeaderSizeNormalLen], nil); err != nil {
		t.Errorf("ParseRootLayerHeader(header only) failed: %v", err)
	}

	// Truncated CID.
	if _, _, err = ParseRootLayerHeader(testBlock[:HeaderSizeNormalLen-1], nil); !errors.Is(err, pdu.ErrTruncated) {
		t.Errorf("ParseRootLayerHeader(truncated) got %v, want %v", err, pdu.ErrTruncated)
	}
}

func TestParseRootLayerPDUTruncatedAtEveryOffset(t *testing.T) {
	for n := range len(testBlock) {
		block := testBlock[:n]
		var cur pdu.Cursor
		for {
			p, err := ParseRootLayerPDU(block, &cur)
			if err != nil {
				break
			}
			if len(p.Data) > len(block) {
				t.Fatalf("n=%d: data segment longer than block", n)
			}
		}
		next, _ := cur.NextOffset()
		if next > n {
			t.Fatalf("n=%d: next offset %d past end of block", n, next)
		}
	}
}

func FuzzParseRootLayerPDU(f *testing.F) {
	f.Add(testBlock)

	f.Fuzz(func(t *testing.T, block []byte) {
		for p, err := range All(block) {
			if err != nil {
				return
			}
			if len(p.Data) > len(block) {
				t.Fatal("data segment longer than block")
			}
		}
	})
}

func FuzzParseRootLayerHeader(f *testing.F) {
	f.Add(testBlock)
	f.Add(testBlock[:3])

	f.Fuzz(func(t *testing.T, buf []byte) {
		p, pduLen, err := ParseRootLayerHeader(buf, &testBlockPDUs[0])
		if err != nil {
			return
		}
		if pduLen < pdu.NormalLengthFieldSize {
			t.Fatalf("pduLen = %d", pduLen)
		}
		if len(p.Data) > max(len(buf), len(testBlockPDUs[0].Data)) {
			t.Fatal("data segment longer than buffer")
		}
	})
}
