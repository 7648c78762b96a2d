package service

import (
	"context"
	"errors"
	"fmt"
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

// defaultMaxDatagramSize is the default receive buffer size of a UDP receiver.
// Root layer blocks are not fragmented across datagrams, so this covers the largest UDP payload.
const defaultMaxDatagramSize = 65535

// ReceiverConfig is the configuration for a UDP root layer receiver.
type ReceiverConfig struct {
	// Name identifies the receiver in logs.
	Name string `json:"name"`

	// ListenNetwork controls the address family of the socket.
	//
	//  - "udp": Determine from system capabilities and listen address.
	//  - "udp4": AF_INET
	//  - "udp6": AF_INET6
	//
	// If unspecified, "udp" is used.
	ListenNetwork string `json:"listenNetwork,omitempty"`

	// ListenAddress is the address to bind the socket to.
	//
	// If unspecified, the receiver listens on the sACN port on all addresses.
	ListenAddress string `json:"listenAddress,omitempty"`

	// Groups are the multicast groups to join.
	Groups []netip.Addr `json:"groups,omitempty"`

	// Universes are sACN universes whose multicast groups to join, in addition to Groups.
	Universes []uint16 `json:"universes,omitempty"`

	// Multicast controls group membership.
	Multicast conn.MulticastConfig `json:"multicast"`

	// Socket holds options applied to the socket.
	// If unspecified, [conn.DefaultUDPReceiverSocketConfig] is used.
	Socket *conn.SocketConfig `json:"socket,omitempty"`

	// MaxDatagramSize is the size of the receive buffer.
	// Larger datagrams are dropped.
	//
	// If unspecified, 65535 is used.
	MaxDatagramSize int `json:"maxDatagramSize,omitempty"`
}

// Receiver creates a UDP receiver service from the config.
// Call the Start method on the returned service to start it.
func (rc *ReceiverConfig) Receiver(logger *tslog.Logger, handler Handler) (*Receiver, error) {
	switch rc.ListenNetwork {
	case "":
		rc.ListenNetwork = "udp"
	case "udp", "udp4", "udp6":
	default:
		return nil, fmt.Errorf("invalid listenNetwork %q: not one of [udp udp4 udp6]", rc.ListenNetwork)
	}

	if rc.ListenAddress == "" {
		rc.ListenAddress = ":" + strconv.Itoa(acnprot.SACNPort)
	}

	switch {
	case rc.MaxDatagramSize == 0:
		rc.MaxDatagramSize = defaultMaxDatagramSize
	case rc.MaxDatagramSize < rlp.UDPPreambleSize+rlp.HeaderSizeNormalLen || rc.MaxDatagramSize > defaultMaxDatagramSize:
		return nil, fmt.Errorf("maxDatagramSize out of range [%d, %d]: %d", rlp.UDPPreambleSize+rlp.HeaderSizeNormalLen, defaultMaxDatagramSize, rc.MaxDatagramSize)
	}

	groups := make([]netip.Addr, 0, len(rc.Groups)+len(rc.Universes))
	groups = append(groups, rc.Groups...)
	for _, universe := range rc.Universes {
		groups = append(groups, conn.SACNUniverseGroup(universe))
	}
	for _, group := range groups {
		if !group.IsMulticast() {
			return nil, fmt.Errorf("group %s is not a multicast address", group)
		}
	}

	socketConfig := conn.DefaultUDPReceiverSocketConfig
	if rc.Socket != nil {
		socketConfig = *rc.Socket
	}

	return &Receiver{
		name:            rc.Name,
		listenNetwork:   rc.ListenNetwork,
		listenAddress:   rc.ListenAddress,
		groups:          groups,
		maxDatagramSize: rc.MaxDatagramSize,
		multicastConfig: rc.Multicast,
		socketConfig:    socketConfig,
		handler:         handler,
		logger:          logger,
	}, nil
}

// Receiver receives root layer blocks in UDP datagrams and passes the PDUs to a [Handler].
//
// Receiver implements [Service].
type Receiver struct {
	name            string
	listenNetwork   string
	listenAddress   string
	groups          []netip.Addr
	maxDatagramSize int
	multicastConfig conn.MulticastConfig
	socketConfig    conn.SocketConfig
	handler         Handler
	logger          *tslog.Logger
	uc              *net.UDPConn
	wg              sync.WaitGroup
}

// SlogAttr implements [Service.SlogAttr].
func (r *Receiver) SlogAttr() slog.Attr {
	return slog.String("receiver", r.name)
}

// LocalAddr returns the local address of the receiver's socket.
// It is only valid after Start returns successfully.
func (r *Receiver) LocalAddr() netip.AddrPort {
	return r.uc.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Start implements [Service.Start].
func (r *Receiver) Start(ctx context.Context) error {
	uc, err := r.socketConfig.ListenUDP(ctx, r.listenNetwork, r.listenAddress)
	if err != nil {
		return err
	}

	if err = r.multicastConfig.JoinGroups(uc, r.groups); err != nil {
		_ = uc.Close()
		return err
	}

	r.uc = uc
	r.listenAddress = uc.LocalAddr().String()

	logger := r.logger.WithAttrs(
		slog.String("receiver", r.name),
		slog.String("listenAddress", r.listenAddress),
	)

	r.wg.Add(1)
	go func() {
		r.recv(logger)
		r.wg.Done()
	}()

	logger.Info("Started receiver", tslog.Int("groups", len(r.groups)))
	return nil
}

func (r *Receiver) recv(logger *tslog.Logger) {
	buf := make([]byte, r.maxDatagramSize)

	var (
		datagramsReceived uint64
		bytesReceived     uint64
		invalidDatagrams  uint64
		pdusReceived      uint64
	)

	for {
		n, _, flags, srcAddrPort, err := r.uc.ReadMsgUDPAddrPort(buf, nil)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				break
			}
			logger.Warn("Failed to read datagram",
				tslog.AddrPort("sourceAddress", srcAddrPort),
				tslog.Int("datagramLength", n),
				tslog.Err(err),
			)
			continue
		}
		datagramsReceived++
		bytesReceived += uint64(n)

		if err = conn.ParseFlagsForError(flags); err != nil {
			invalidDatagrams++
			logger.Warn("Failed to read datagram",
				tslog.AddrPort("sourceAddress", srcAddrPort),
				tslog.Int("datagramLength", n),
				tslog.Err(err),
			)
			continue
		}

		preamble, err := rlp.ParseUDPPreamble(buf[:n])
		if err != nil {
			invalidDatagrams++
			logger.Debug("Dropping datagram with invalid preamble",
				tslog.AddrPort("sourceAddress", srcAddrPort),
				tslog.Int("datagramLength", n),
				tslog.Err(err),
			)
			continue
		}

		for p, err := range rlp.All(preamble.RLPBlock) {
			if err != nil {
				invalidDatagrams++
				logger.Warn("Failed to parse root layer PDU",
					tslog.AddrPort("sourceAddress", srcAddrPort),
					tslog.Int("blockLength", len(preamble.RLPBlock)),
					tslog.Err(err),
				)
				break
			}
			pdusReceived++
			r.handler.HandleRootLayerPDU(srcAddrPort, &p)
		}
	}

	logger.Info("Finished receiving",
		tslog.Uint("datagramsReceived", datagramsReceived),
		tslog.Uint("bytesReceived", bytesReceived),
		tslog.Uint("invalidDatagrams", invalidDatagrams),
		tslog.Uint("pdusReceived", pdusReceived),
	)
}

// Stop implements [Service.Stop].
func (r *Receiver) Stop() error {
	if err := r.uc.SetReadDeadline(conn.ALongTimeAgo); err != nil {
		return fmt.Errorf("failed to SetReadDeadline on receiver socket: %w", err)
	}

	r.wg.Wait()

	if err := r.uc.Close(); err != nil {
		return fmt.Errorf("failed to close receiver socket: %w", err)
	}

	r.logger.Info("Stopped receiver", slog.String("receiver", r.name))
	return nil
}
