package conn

import "errors"

var (
	ErrMessageTruncated        = errors.New("the datagram is larger than the receive buffer")
	ErrControlMessageTruncated = errors.New("the control message is larger than the supplied buffer")
)

// ParseFlagsForError checks the message flags returned by [net.UDPConn.ReadMsgUDPAddrPort]
// and returns an error if the datagram or its control message was truncated.
//
// A truncated root layer block cannot be parsed reliably, so receivers drop such datagrams.
// The check is a no-op on platforms without MSG_TRUNC.
func ParseFlagsForError(flags int) error {
	return parseFlagsForError(flags)
}
