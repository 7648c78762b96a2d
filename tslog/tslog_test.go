package tslog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/netip"
	"testing"

	"github.com/database64128/acn-go/internal/acnprot"
)

func TestVector(t *testing.T) {
	for _, c := range []struct {
		vector uint32
		want   string
	}{
		{acnprot.ProtocolE131Data, "E1.31 data"},
		{acnprot.ProtocolLLRP, "LLRP"},
		{0xdeadbeef, "0xdeadbeef"},
		{0x20, "0x000020"},
	} {
		if got := Vector("v", c.vector).Value.String(); got != c.want {
			t.Errorf("Vector(%#x) = %q, want %q", c.vector, got, c.want)
		}
	}
}

func TestAddrPort(t *testing.T) {
	if got := AddrPort("a", netip.AddrPort{}).Value.String(); got != "" {
		t.Errorf("AddrPort(zero) = %q, want empty", got)
	}
	if got := AddrPort("a", netip.MustParseAddrPort("127.0.0.1:5568")).Value.String(); got != "127.0.0.1:5568" {
		t.Errorf("AddrPort = %q, want 127.0.0.1:5568", got)
	}
}

func TestLoggerJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{Level: slog.LevelInfo, NoTime: true, UseJSONHandler: true}
	logger := cfg.NewLogger(&buf)

	logger.Debug("dropped")
	logger.Info("kept",
		CID("cid", [16]byte{15: 1}),
		Uint("pdus", uint64(3)),
	)

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("output is not a single JSON object: %v\n%s", err, buf.Bytes())
	}
	if m["msg"] != "kept" {
		t.Errorf("msg = %v, want kept", m["msg"])
	}
	if m["cid"] != "00000000-0000-0000-0000-000000000001" {
		t.Errorf("cid = %v", m["cid"])
	}
	if m["pdus"] != float64(3) {
		t.Errorf("pdus = %v, want 3", m["pdus"])
	}
	if _, ok := m["time"]; ok {
		t.Error("time present with NoTime set")
	}
}
