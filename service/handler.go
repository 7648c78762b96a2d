package service

import (
	"log/slog"
	"net/netip"

	"github.com/database64128/acn-go/rlp"
	"github.com/database64128/acn-go/tslog"
)

// Handler handles root layer PDUs decoded by receivers.
//
// p.Data aliases the receiver's buffer and is only valid until HandleRootLayerPDU returns.
// Implementations must copy it if they retain it.
//
// A handler shared by multiple receivers is called concurrently.
type Handler interface {
	HandleRootLayerPDU(src netip.AddrPort, p *rlp.RootLayerPDU)
}

// HandlerFunc is an adapter to allow the use of ordinary functions as [Handler]s.
type HandlerFunc func(src netip.AddrPort, p *rlp.RootLayerPDU)

// HandleRootLayerPDU implements [Handler.HandleRootLayerPDU].
func (f HandlerFunc) HandleRootLayerPDU(src netip.AddrPort, p *rlp.RootLayerPDU) {
	f(src, p)
}

// LogHandler logs each PDU at debug level.
type LogHandler struct {
	logger *tslog.Logger
}

// NewLogHandler returns a new [*LogHandler].
func NewLogHandler(logger *tslog.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

// HandleRootLayerPDU implements [Handler.HandleRootLayerPDU].
func (h *LogHandler) HandleRootLayerPDU(src netip.AddrPort, p *rlp.RootLayerPDU) {
	if !h.logger.Enabled(slog.LevelDebug) {
		return
	}
	h.logger.Debug("Received root layer PDU",
		tslog.AddrPort("sourceAddress", src),
		tslog.CID("senderCID", p.SenderCID),
		tslog.Vector("vector", p.Vector),
		tslog.Int("dataLength", len(p.Data)),
	)
}
