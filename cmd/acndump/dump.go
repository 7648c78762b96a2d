package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/database64128/acn-go/internal/acnprot"
	"github.com/database64128/acn-go/pdu"
	"github.com/database64128/acn-go/rlp"
	"github.com/olekukonko/tablewriter"
)

// maxDataPreview is the number of data bytes shown per PDU.
const maxDataPreview = 16

// row is one decoded root layer PDU.
type row struct {
	block  int
	index  int
	offset int
	length int
	flags  byte
	p      rlp.RootLayerPDU
}

// dumpBlock decodes every PDU in block. base is the offset of block in the input.
// PDUs decoded before an error are returned along with it.
func dumpBlock(rows []row, blockIndex, base int, block []byte) ([]row, error) {
	var cur pdu.Cursor
	for i := 0; ; i++ {
		start, _ := cur.NextOffset()

		p, err := rlp.ParseRootLayerPDU(block, &cur)
		if err != nil {
			if errors.Is(err, pdu.ErrNoMorePDUs) {
				return rows, nil
			}
			return rows, fmt.Errorf("block %d at offset %d: %w", blockIndex, base+start, err)
		}

		next, _ := cur.NextOffset()
		rows = append(rows, row{
			block:  blockIndex,
			index:  i,
			offset: base + start,
			length: next - start,
			flags:  block[start] & pdu.FlagsMask,
			p:      p,
		})
	}
}

// dumpUDP decodes a datagram payload starting with a UDP preamble.
func dumpUDP(b []byte) ([]row, error) {
	preamble, err := rlp.ParseUDPPreamble(b)
	if err != nil {
		return nil, err
	}
	return dumpBlock(nil, 0, rlp.UDPPreambleSize, preamble.RLPBlock)
}

// dumpTCP decodes a captured stream of preamble-framed blocks.
func dumpTCP(b []byte) ([]row, error) {
	var (
		rows []row
		off  int
	)
	for i := 0; off < len(b); i++ {
		preamble, err := rlp.ParseTCPPreamble(b[off:])
		if err != nil {
			return rows, fmt.Errorf("preamble %d at offset %d: %w", i, off, err)
		}
		if !preamble.Complete() {
			return rows, fmt.Errorf("block %d at offset %d: %w: want %d bytes, have %d",
				i, off, pdu.ErrTruncated, preamble.BlockLen, len(preamble.RLPBlock))
		}
		rows, err = dumpBlock(rows, i, off+rlp.TCPPreambleSize, preamble.RLPBlock)
		if err != nil {
			return rows, err
		}
		off += rlp.TCPPreambleSize + preamble.BlockLen
	}
	return rows, nil
}

// decodeHex decodes hex input, ignoring whitespace and an optional 0x prefix.
func decodeHex(b []byte) ([]byte, error) {
	s := strings.Join(strings.Fields(string(b)), "")
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}

// flagString renders the L, V, H, D flags, with '-' for clear bits.
func flagString(flags byte) string {
	b := []byte("LVHD")
	for i, mask := range [...]byte{pdu.FlagL, pdu.FlagV, pdu.FlagH, pdu.FlagD} {
		if flags&mask == 0 {
			b[i] = '-'
		}
	}
	return string(b)
}

func vectorString(vector uint32) string {
	if name := acnprot.Name(vector); name != "" {
		return name
	}
	return "0x" + strconv.FormatUint(uint64(vector), 16)
}

func dataPreview(data []byte) string {
	if len(data) <= maxDataPreview {
		return hex.EncodeToString(data)
	}
	return hex.EncodeToString(data[:maxDataPreview]) + "..."
}

// renderTable writes rows as a table to w.
func renderTable(w io.Writer, rows []row) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Block", "PDU", "Offset", "Length", "Flags", "Vector", "Sender CID", "Data Length", "Data"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, r := range rows {
		tw.Append([]string{
			strconv.Itoa(r.block),
			strconv.Itoa(r.index),
			strconv.Itoa(r.offset),
			strconv.Itoa(r.length),
			flagString(r.flags),
			vectorString(r.p.Vector),
			r.p.SenderCID.String(),
			strconv.Itoa(len(r.p.Data)),
			dataPreview(r.p.Data),
		})
	}

	tw.Render()
}
