package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"strconv"
	"sync"

	"github.com/database64128/acn-go/conn"
	"github.com/database64128/acn-go/internal/acnprot"
	"github.com/database64128/acn-go/rlp"
	"github.com/database64128/acn-go/tslog"
)

// defaultMaxBlockSize is the default maximum size of a root layer block on a stream.
const defaultMaxBlockSize = 1 << 20

var errBlockTooLarge = errors.New("root layer block exceeds the maximum block size")

// StreamConfig is the configuration for a TCP root layer receiver.
type StreamConfig struct {
	// Name identifies the stream receiver in logs.
	Name string `json:"name"`

	// ListenNetwork controls the address family of the listener.
	//
	//  - "tcp": Determine from system capabilities and listen address.
	//  - "tcp4": AF_INET
	//  - "tcp6": AF_INET6
	//
	// If unspecified, "tcp" is used.
	ListenNetwork string `json:"listenNetwork,omitempty"`

	// ListenAddress is the address to bind the listener to.
	//
	// If unspecified, the stream receiver listens on the RDMnet port on all addresses.
	ListenAddress string `json:"listenAddress,omitempty"`

	// Socket holds options applied to the listener socket.
	// If unspecified, [conn.DefaultTCPListenerSocketConfig] is used.
	Socket *conn.SocketConfig `json:"socket,omitempty"`

	// MaxBlockSize is the maximum accepted block length in a TCP preamble.
	// Connections announcing larger blocks are closed.
	//
	// If unspecified, 1 MiB is used.
	MaxBlockSize int `json:"maxBlockSize,omitempty"`
}

// StreamReceiver creates a TCP stream receiver service from the config.
// Call the Start method on the returned service to start it.
func (sc *StreamConfig) StreamReceiver(logger *tslog.Logger, handler Handler) (*StreamReceiver, error) {
	switch sc.ListenNetwork {
	case "":
		sc.ListenNetwork = "tcp"
	case "tcp", "tcp4", "tcp6":
	default:
		return nil, fmt.Errorf("invalid listenNetwork %q: not one of [tcp tcp4 tcp6]", sc.ListenNetwork)
	}

	if sc.ListenAddress == "" {
		sc.ListenAddress = ":" + strconv.Itoa(acnprot.RDMnetPort)
	}

	switch {
	case sc.MaxBlockSize == 0:
		sc.MaxBlockSize = defaultMaxBlockSize
	case sc.MaxBlockSize < 0:
		return nil, fmt.Errorf("negative maxBlockSize: %d", sc.MaxBlockSize)
	}

	socketConfig := conn.DefaultTCPListenerSocketConfig
	if sc.Socket != nil {
		socketConfig = *sc.Socket
	}

	return &StreamReceiver{
		name:          sc.Name,
		listenNetwork: sc.ListenNetwork,
		listenAddress: sc.ListenAddress,
		maxBlockSize:  sc.MaxBlockSize,
		socketConfig:  socketConfig,
		handler:       handler,
		logger:        logger,
		conns:         make(map[*net.TCPConn]struct{}),
	}, nil
}

// StreamReceiver accepts TCP connections carrying preamble-framed root layer blocks
// and passes the PDUs to a [Handler] as they arrive.
//
// StreamReceiver implements [Service].
type StreamReceiver struct {
	name          string
	listenNetwork string
	listenAddress string
	maxBlockSize  int
	socketConfig  conn.SocketConfig
	handler       Handler
	logger        *tslog.Logger
	ln            *net.TCPListener
	mu            sync.Mutex
	closed        bool
	conns         map[*net.TCPConn]struct{}
	wg            sync.WaitGroup
}

// SlogAttr implements [Service.SlogAttr].
func (s *StreamReceiver) SlogAttr() slog.Attr {
	return slog.String("stream", s.name)
}

// LocalAddr returns the local address of the listener.
// It is only valid after Start returns successfully.
func (s *StreamReceiver) LocalAddr() netip.AddrPort {
	return s.ln.Addr().(*net.TCPAddr).AddrPort()
}

// Start implements [Service.Start].
func (s *StreamReceiver) Start(ctx context.Context) error {
	ln, err := s.socketConfig.ListenTCP(ctx, s.listenNetwork, s.listenAddress)
	if err != nil {
		return err
	}
	s.ln = ln
	s.listenAddress = ln.Addr().String()

	logger := s.logger.WithAttrs(
		slog.String("stream", s.name),
		slog.String("listenAddress", s.listenAddress),
	)

	s.wg.Add(1)
	go func() {
		s.accept(logger)
		s.wg.Done()
	}()

	logger.Info("Started stream receiver", tslog.Int("maxBlockSize", s.maxBlockSize))
	return nil
}

func (s *StreamReceiver) accept(logger *tslog.Logger) {
	for {
		c, err := s.ln.AcceptTCP()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warn("Failed to accept connection", tslog.Err(err))
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = c.Close()
			return
		}
		s.conns[c] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			s.serve(logger, c)
			s.mu.Lock()
			delete(s.conns, c)
			s.mu.Unlock()
			_ = c.Close()
			s.wg.Done()
		}()
	}
}

func (s *StreamReceiver) serve(logger *tslog.Logger, c *net.TCPConn) {
	remoteAddrPort := c.RemoteAddr().(*net.TCPAddr).AddrPort()
	logger = logger.WithAttrs(tslog.AddrPort("remoteAddress", remoteAddrPort))

	br := blockReader{
		r:       c,
		handler: s.handler,
		src:     remoteAddrPort,
		buf:     make([]byte, 0, min(s.maxBlockSize, 65536)),
		maxSize: s.maxBlockSize,
	}

	logger.Debug("Accepted connection")

	var err error
	for err == nil {
		err = br.readBlock()
	}

	attrs := []slog.Attr{
		tslog.Uint("blocksReceived", br.blocksReceived),
		tslog.Uint("pdusReceived", br.pdusReceived),
		tslog.Uint("invalidBlocks", br.invalidBlocks),
	}
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, os.ErrDeadlineExceeded):
		logger.Debug("Connection closed", attrs...)
	default:
		logger.Warn("Closing connection", append(attrs, tslog.Err(err))...)
	}
}

// blockReader reads preamble-framed root layer blocks from a stream.
type blockReader struct {
	r       io.Reader
	handler Handler
	src     netip.AddrPort

	// buf holds the current block. len(buf) is the number of bytes read so far.
	buf     []byte
	maxSize int

	blocksReceived uint64
	pdusReceived   uint64
	invalidBlocks  uint64
}

// fill reads from the stream until at least n bytes of the current block are buffered.
func (br *blockReader) fill(n int) error {
	if len(br.buf) >= n {
		return nil
	}
	have := len(br.buf)
	br.buf = br.buf[:n]
	if _, err := io.ReadFull(br.r, br.buf[have:n]); err != nil {
		br.buf = br.buf[:have]
		if err == io.EOF {
			// The preamble promised more.
			return io.ErrUnexpectedEOF
		}
		return err
	}
	return nil
}

// readBlock reads one preamble and its block, handling each PDU once it is complete.
//
// A malformed PDU invalidates the rest of its block, which is then skipped.
// The stream stays in sync because the preamble carries the block length.
// Read errors and invalid or oversized preambles are returned.
func (br *blockReader) readBlock() error {
	var preambleBuf [rlp.TCPPreambleSize]byte
	if _, err := io.ReadFull(br.r, preambleBuf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("truncated preamble: %w", err)
		}
		return err
	}

	preamble, err := rlp.ParseTCPPreamble(preambleBuf[:])
	if err != nil {
		return err
	}
	blockLen := preamble.BlockLen
	if blockLen > br.maxSize {
		return fmt.Errorf("%w: %d > %d", errBlockTooLarge, blockLen, br.maxSize)
	}

	if cap(br.buf) < blockLen {
		br.buf = make([]byte, 0, blockLen)
	}
	br.buf = br.buf[:0]
	br.blocksReceived++

	var (
		off  int
		last rlp.RootLayerPDU
		prev *rlp.RootLayerPDU
	)

	for off < blockLen {
		// Read enough for the largest header, then the whole PDU.
		if err = br.fill(min(off+rlp.HeaderSizeExtLen, blockLen)); err != nil {
			return err
		}

		_, pduLen, err := rlp.ParseRootLayerHeader(br.buf[off:], prev)
		if err != nil {
			return br.skipBlock(blockLen)
		}
		if off+pduLen > blockLen {
			return br.skipBlock(blockLen)
		}

		if err = br.fill(off + pduLen); err != nil {
			return err
		}

		p, _, err := rlp.ParseRootLayerHeader(br.buf[off:off+pduLen], prev)
		if err != nil {
			return br.skipBlock(blockLen)
		}

		br.pdusReceived++
		br.handler.HandleRootLayerPDU(br.src, &p)

		last = p
		prev = &last
		off += pduLen
	}

	return nil
}

// skipBlock discards the rest of the current block.
func (br *blockReader) skipBlock(blockLen int) error {
	br.invalidBlocks++
	return br.fill(blockLen)
}

// Stop implements [Service.Stop].
func (s *StreamReceiver) Stop() error {
	if err := s.ln.Close(); err != nil {
		return fmt.Errorf("failed to close listener: %w", err)
	}

	s.mu.Lock()
	s.closed = true
	for c := range s.conns {
		if err := c.SetReadDeadline(conn.ALongTimeAgo); err != nil {
			s.logger.Warn("Failed to SetReadDeadline on connection",
				slog.String("stream", s.name),
				tslog.Err(err),
			)
		}
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.logger.Info("Stopped stream receiver", slog.String("stream", s.name))
	return nil
}
