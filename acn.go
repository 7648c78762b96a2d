// Package acn implements the ACN (ANSI E1.17) PDU framing format
// and its Root Layer Protocol, the outermost envelope of sACN (E1.31),
// RDMnet (E1.33), and LLRP traffic.
//
// The codec lives in two packages:
//
// 1. [github.com/database64128/acn-go/pdu]: Generic flags/length/vector/header/data parsing
// with field inheritance, driven by a caller-owned cursor.
//
// 2. [github.com/database64128/acn-go/rlp]: TCP and UDP preambles, and Root Layer PDU
// parsing and packing. Packing elides vectors, CIDs, and data that repeat
// across consecutive PDUs in a block.
//
// Parsing never copies payload bytes. Every returned slice aliases the input buffer.
package acn
