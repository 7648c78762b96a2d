package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/database64128/acn-go/conn"
	"github.com/database64128/acn-go/internal/acnprot"
	"github.com/database64128/acn-go/jsonhelper"
	"github.com/database64128/acn-go/rlp"
	"github.com/database64128/acn-go/tslog"
)

// defaultSendInterval is the default interval between two transmissions of a sender's block.
const defaultSendInterval = time.Second

// SenderPDUConfig describes one root layer PDU in a sender's block.
type SenderPDUConfig struct {
	// Vector is the root layer vector, identifying the protocol of Data.
	Vector uint32 `json:"vector"`

	// Data is the PDU's data segment, base64-encoded in JSON.
	Data []byte `json:"data"`
}

// SenderConfig is the configuration for a UDP root layer sender.
type SenderConfig struct {
	// Name identifies the sender in logs.
	Name string `json:"name"`

	// Network controls the address family of the socket.
	//
	//  - "udp": Determine from system capabilities and destination.
	//  - "udp4": AF_INET
	//  - "udp6": AF_INET6
	//
	// If unspecified, "udp" is used.
	Network string `json:"network,omitempty"`

	// LocalAddress is the address to bind the socket to.
	// If unspecified, an ephemeral port on all addresses is used.
	LocalAddress string `json:"localAddress,omitempty"`

	// Destination is the address to send blocks to.
	//
	// If unspecified, Universe must be set.
	Destination string `json:"destination,omitempty"`

	// Universe selects the sACN multicast group of a universe as the destination,
	// with the sACN port. It is ignored if Destination is set.
	Universe uint16 `json:"universe,omitempty"`

	// CID is the sender's component identifier.
	// If unspecified, a random CID is generated when the sender is created.
	CID rlp.CID `json:"cid"`

	// PDUs are the root layer PDUs packed into the block, all carrying CID.
	PDUs []SenderPDUConfig `json:"pdus"`

	// Interval is the time between two transmissions.
	// If unspecified, 1s is used.
	Interval jsonhelper.Duration `json:"interval,omitempty"`

	// Multicast controls outgoing multicast datagrams.
	Multicast conn.MulticastConfig `json:"multicast"`

	// Socket holds options applied to the socket.
	// If unspecified, [conn.DefaultUDPSenderSocketConfig] is used.
	Socket *conn.SocketConfig `json:"socket,omitempty"`
}

// Sender creates a UDP sender service from the config.
// Call the Start method on the returned service to start it.
func (sc *SenderConfig) Sender(logger *tslog.Logger) (*Sender, error) {
	switch sc.Network {
	case "":
		sc.Network = "udp"
	case "udp", "udp4", "udp6":
	default:
		return nil, fmt.Errorf("invalid network %q: not one of [udp udp4 udp6]", sc.Network)
	}

	var (
		dst netip.AddrPort
		err error
	)
	switch {
	case sc.Destination != "":
		dst, err = conn.ResolveAddrPort(sc.Destination)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve destination %q: %w", sc.Destination, err)
		}
	case sc.Universe != 0:
		dst = netip.AddrPortFrom(conn.SACNUniverseGroup(sc.Universe), acnprot.SACNPort)
	default:
		return nil, errors.New("missing destination or universe")
	}

	if len(sc.PDUs) == 0 {
		return nil, errors.New("no PDUs to send")
	}

	if sc.CID == (rlp.CID{}) {
		sc.CID = rlp.NewCID()
	}

	if sc.Interval <= 0 {
		sc.Interval = jsonhelper.Duration(defaultSendInterval)
	}

	pdus := make([]rlp.RootLayerPDU, len(sc.PDUs))
	for i, pc := range sc.PDUs {
		pdus[i] = rlp.RootLayerPDU{
			SenderCID: sc.CID,
			Vector:    pc.Vector,
			Data:      pc.Data,
		}
	}

	payload := rlp.AppendUDPPreamble(make([]byte, 0, rlp.UDPPreambleSize+rlp.BlockSize(pdus)))
	payload, err = rlp.AppendRootLayerBlock(payload, pdus)
	if err != nil {
		return nil, fmt.Errorf("failed to pack root layer block: %w", err)
	}

	socketConfig := conn.DefaultUDPSenderSocketConfig
	if sc.Socket != nil {
		socketConfig = *sc.Socket
	}

	return &Sender{
		name:            sc.Name,
		network:         sc.Network,
		localAddress:    sc.LocalAddress,
		dst:             dst,
		cid:             sc.CID,
		interval:        sc.Interval.Value(),
		payload:         payload,
		multicastConfig: sc.Multicast,
		socketConfig:    socketConfig,
		logger:          logger,
	}, nil
}

// Sender periodically sends a root layer block in a UDP datagram.
//
// Sender implements [Service].
type Sender struct {
	name            string
	network         string
	localAddress    string
	dst             netip.AddrPort
	cid             rlp.CID
	interval        time.Duration
	payload         []byte
	multicastConfig conn.MulticastConfig
	socketConfig    conn.SocketConfig
	logger          *tslog.Logger
	uc              *net.UDPConn
	done            chan struct{}
	wg              sync.WaitGroup
}

// SlogAttr implements [Service.SlogAttr].
func (s *Sender) SlogAttr() slog.Attr {
	return slog.String("sender", s.name)
}

// Start implements [Service.Start].
func (s *Sender) Start(ctx context.Context) error {
	uc, err := s.socketConfig.ListenUDP(ctx, s.network, s.localAddress)
	if err != nil {
		return err
	}

	if err = s.multicastConfig.ConfigureSender(uc, s.dst.Addr()); err != nil {
		_ = uc.Close()
		return err
	}

	s.uc = uc
	s.done = make(chan struct{})

	logger := s.logger.WithAttrs(
		slog.String("sender", s.name),
		tslog.AddrPort("destination", s.dst),
	)

	s.wg.Add(1)
	go func() {
		s.send(logger)
		s.wg.Done()
	}()

	logger.Info("Started sender",
		tslog.CID("cid", s.cid),
		slog.Duration("interval", s.interval),
		tslog.Int("payloadLength", len(s.payload)),
	)
	return nil
}

func (s *Sender) send(logger *tslog.Logger) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var (
		datagramsSent uint64
		bytesSent     uint64
	)

	for {
		if _, err := s.uc.WriteToUDPAddrPort(s.payload, s.dst); err != nil {
			logger.Warn("Failed to send datagram", tslog.Err(err))
		} else {
			datagramsSent++
			bytesSent += uint64(len(s.payload))
		}

		select {
		case <-ticker.C:
		case <-s.done:
			logger.Info("Finished sending",
				tslog.Uint("datagramsSent", datagramsSent),
				tslog.Uint("bytesSent", bytesSent),
			)
			return
		}
	}
}

// Stop implements [Service.Stop].
func (s *Sender) Stop() error {
	close(s.done)
	s.wg.Wait()

	if err := s.uc.Close(); err != nil {
		return fmt.Errorf("failed to close sender socket: %w", err)
	}

	s.logger.Info("Stopped sender", slog.String("sender", s.name))
	return nil
}
