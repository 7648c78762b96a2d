// Package conn opens UDP and TCP sockets for ACN traffic with platform socket options applied.
package conn

import (
	"context"
	"net"
	"net/netip"
	"syscall"
)

// ResolveAddrPort resolves a string representation of an address to a netip.AddrPort.
func ResolveAddrPort(address string) (addrPort netip.AddrPort, err error) {
	addrPort, err = netip.ParseAddrPort(address)
	if err != nil {
		var ua *net.UDPAddr
		ua, err = net.ResolveUDPAddr("udp", address)
		if err != nil {
			return
		}
		addrPort = ua.AddrPort()
	}
	return
}

// SocketConfig contains options applied to sockets before they are bound.
type SocketConfig struct {
	// Fwmark sets the socket's fwmark on Linux, or user cookie on FreeBSD.
	//
	// Available on Linux and FreeBSD.
	Fwmark int `json:"fwmark,omitempty"`

	// TrafficClass sets the traffic class of the socket.
	//
	// Available on most Unix-like platforms.
	TrafficClass int `json:"trafficClass,omitempty"`

	// ReusePort allows multiple sockets to bind to the same address and port.
	// sACN receivers on the same host need this to share the well-known port.
	//
	// Available on most Unix-like platforms.
	ReusePort bool `json:"reusePort,omitempty"`
}

// DefaultUDPReceiverSocketConfig is the default socket config for receiving multicast root layer blocks.
var DefaultUDPReceiverSocketConfig = SocketConfig{
	ReusePort: true,
}

// DefaultUDPSenderSocketConfig is the default socket config for sending root layer blocks.
var DefaultUDPSenderSocketConfig = SocketConfig{}

// DefaultTCPListenerSocketConfig is the default socket config for stream listeners.
var DefaultTCPListenerSocketConfig = SocketConfig{}

type setFunc = func(fd int, network string) error

type setFuncSlice []setFunc

func (fns setFuncSlice) controlFunc() func(network, address string, c syscall.RawConn) error {
	if len(fns) == 0 {
		return nil
	}
	return func(network, address string, c syscall.RawConn) (err error) {
		if cerr := c.Control(func(fd uintptr) {
			for _, fn := range fns {
				if err = fn(int(fd), network); err != nil {
					return
				}
			}
		}); cerr != nil {
			return cerr
		}
		return
	}
}

func (cfg SocketConfig) listenConfig() *net.ListenConfig {
	fns := setFuncSlice{}.
		appendSetFwmarkFunc(cfg.Fwmark).
		appendSetTrafficClassFunc(cfg.TrafficClass).
		appendSetReusePortFunc(cfg.ReusePort)
	return &net.ListenConfig{
		Control: fns.controlFunc(),
	}
}

// ListenUDP wraps [net.ListenConfig.ListenPacket] and applies the socket options.
func (cfg SocketConfig) ListenUDP(ctx context.Context, network, address string) (*net.UDPConn, error) {
	pc, err := cfg.listenConfig().ListenPacket(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}

// ListenTCP wraps [net.ListenConfig.Listen] and applies the socket options.
func (cfg SocketConfig) ListenTCP(ctx context.Context, network, address string) (*net.TCPListener, error) {
	ln, err := cfg.listenConfig().Listen(ctx, network, address)
	if err != nil {
		return nil, err
	}
	return ln.(*net.TCPListener), nil
}
