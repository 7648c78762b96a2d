//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd

package conn

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func setTrafficClass(fd int, network string, trafficClass int) error {
	switch network {
	case "tcp4", "udp4":
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TOS, trafficClass); err != nil {
			return fmt.Errorf("failed to set socket option IP_TOS: %w", err)
		}
	case "tcp6", "udp6":
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_TCLASS, trafficClass); err != nil {
			return fmt.Errorf("failed to set socket option IPV6_TCLASS: %w", err)
		}
	default:
		return fmt.Errorf("unsupported network: %s", network)
	}
	return nil
}

func setReusePort(fd int, _ string) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("failed to set socket option SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		return fmt.Errorf("failed to set socket option SO_REUSEPORT: %w", err)
	}
	return nil
}

func (fns setFuncSlice) appendSetTrafficClassFunc(trafficClass int) setFuncSlice {
	if trafficClass != 0 {
		return append(fns, func(fd int, network string) error {
			return setTrafficClass(fd, network, trafficClass)
		})
	}
	return fns
}

func (fns setFuncSlice) appendSetReusePortFunc(reusePort bool) setFuncSlice {
	if reusePort {
		return append(fns, setReusePort)
	}
	return fns
}
