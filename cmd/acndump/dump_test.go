package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/database64128/acn-go/internal/acnprot"
	"github.com/database64128/acn-go/pdu"
	"github.com/database64128/acn-go/rlp"
)

var (
	testCID1 = rlp.CID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	testCID2 = rlp.CID{0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff, 0x00}
)

var testPDUs = []rlp.RootLayerPDU{
	{SenderCID: testCID1, Vector: acnprot.ProtocolE131Data, Data: []byte{0xaa, 0xbb}},
	{SenderCID: testCID1, Vector: acnprot.ProtocolE131Data, Data: []byte{0xcc}},
	{SenderCID: testCID2, Vector: acnprot.ProtocolRPT, Data: []byte{0xcc}},
}

func mustAppendBlock(t *testing.T, b []byte) []byte {
	t.Helper()
	b, err := rlp.AppendRootLayerBlock(b, testPDUs)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func checkRows(t *testing.T, rows []row, base int) {
	t.Helper()
	if len(rows) != len(testPDUs) {
		t.Fatalf("got %d rows, want %d", len(rows), len(testPDUs))
	}

	wantOffsets := []int{base, base + 24, base + 27}
	wantLengths := []int{24, 3, 23}
	wantFlags := []string{"-VHD", "---D", "LVH-"}
	for i, r := range rows {
		if r.offset != wantOffsets[i] {
			t.Errorf("rows[%d].offset = %d, want %d", i, r.offset, wantOffsets[i])
		}
		if r.length != wantLengths[i] {
			t.Errorf("rows[%d].length = %d, want %d", i, r.length, wantLengths[i])
		}
		if got := flagString(r.flags); got != wantFlags[i] {
			t.Errorf("rows[%d] flags = %s, want %s", i, got, wantFlags[i])
		}
		if r.p.SenderCID != testPDUs[i].SenderCID || r.p.Vector != testPDUs[i].Vector || !bytes.Equal(r.p.Data, testPDUs[i].Data) {
			t.Errorf("rows[%d].p = %+v, want %+v", i, r.p, testPDUs[i])
		}
	}
}

func TestDumpUDP(t *testing.T) {
	b := mustAppendBlock(t, rlp.AppendUDPPreamble(nil))
	rows, err := dumpUDP(b)
	if err != nil {
		t.Fatal(err)
	}
	checkRows(t, rows, rlp.UDPPreambleSize)
}

func TestDumpTCP(t *testing.T) {
	b, err := rlp.AppendTCPBlock(nil, testPDUs)
	if err != nil {
		t.Fatal(err)
	}
	blockLen := len(b) - rlp.TCPPreambleSize
	if b, err = rlp.AppendTCPBlock(b, testPDUs); err != nil {
		t.Fatal(err)
	}

	rows, err := dumpTCP(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2*len(testPDUs) {
		t.Fatalf("got %d rows, want %d", len(rows), 2*len(testPDUs))
	}
	checkRows(t, rows[:len(testPDUs)], rlp.TCPPreambleSize)

	second := rows[len(testPDUs):]
	if second[0].block != 1 {
		t.Errorf("second[0].block = %d, want 1", second[0].block)
	}
	checkRows(t, second, 2*rlp.TCPPreambleSize+blockLen)

	if _, err = dumpTCP(b[:len(b)-1]); !errors.Is(err, pdu.ErrTruncated) {
		t.Errorf("dumpTCP(truncated) got %v, want %v", err, pdu.ErrTruncated)
	}
}

func TestDumpBlockPartial(t *testing.T) {
	b := mustAppendBlock(t, nil)
	b = append(b, 0x70, 0x05, 0x00, 0x00, 0x00)

	rows, err := dumpBlock(nil, 0, 0, b)
	if !errors.Is(err, pdu.ErrBadLength) {
		t.Errorf("dumpBlock got %v, want %v", err, pdu.ErrBadLength)
	}
	checkRows(t, rows, 0)
}

func TestDecodeHex(t *testing.T) {
	got, err := decodeHex([]byte("0x70 16\n00 00\t00 04\n"))
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{0x70, 0x16, 0x00, 0x00, 0x00, 0x04}; !bytes.Equal(got, want) {
		t.Errorf("decodeHex = %x, want %x", got, want)
	}

	if _, err = decodeHex([]byte("7")); err == nil {
		t.Error("decodeHex accepted an odd-length input")
	}
}

func TestRenderTable(t *testing.T) {
	b := mustAppendBlock(t, rlp.AppendUDPPreamble(nil))
	rows, err := dumpUDP(b)
	if err != nil {
		t.Fatal(err)
	}

	var sb strings.Builder
	renderTable(&sb, rows)
	out := sb.String()

	for _, s := range []string{
		"E1.31 data",
		"RPT",
		testCID1.String(),
		testCID2.String(),
		"aabb",
		"LVH-",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("table output missing %q:\n%s", s, out)
		}
	}
}

func TestDataPreview(t *testing.T) {
	if got := dataPreview(bytes.Repeat([]byte{0xab}, maxDataPreview)); strings.HasSuffix(got, "...") {
		t.Errorf("dataPreview truncated %d bytes: %s", maxDataPreview, got)
	}
	if got := dataPreview(bytes.Repeat([]byte{0xab}, maxDataPreview+1)); !strings.HasSuffix(got, "...") {
		t.Errorf("dataPreview did not truncate %d bytes: %s", maxDataPreview+1, got)
	}
}

func TestDumpTCPHighBitLength(t *testing.T) {
	b := rlp.AppendTCPPreamble(nil, 0)
	b[rlp.PacketIdentifierSize] = 0x80
	b = mustAppendBlock(t, b)

	rows, err := dumpTCP(b)
	if !errors.Is(err, pdu.ErrTruncated) && !errors.Is(err, rlp.ErrPreambleMismatch) {
		t.Errorf("dumpTCP got %v, want %v or %v", err, pdu.ErrTruncated, rlp.ErrPreambleMismatch)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}
