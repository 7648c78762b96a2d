package conn

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/database64128/netx-go"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

var errNotMulticast = errors.New("not a multicast address")

// MulticastConfig controls multicast group membership and transmission on a UDP socket.
type MulticastConfig struct {
	// Interface is the name of the network interface to use.
	// The empty string lets the system choose.
	//
	// An IPv6 group with a zone overrides this for that group.
	Interface string `json:"interface,omitempty"`

	// HopLimit is the IPv4 TTL or IPv6 hop limit of outgoing multicast datagrams.
	// Zero keeps the system default.
	HopLimit int `json:"hopLimit,omitempty"`

	// Loopback enables the delivery of outgoing multicast datagrams to local receivers.
	Loopback bool `json:"loopback,omitempty"`
}

// interfaceFor returns the interface to use for group, or nil for the system default.
func (c *MulticastConfig) interfaceFor(group netip.Addr) (*net.Interface, error) {
	if zone := group.Zone(); zone != "" {
		index := netx.ZoneCache.Index(zone)
		if index == 0 {
			return nil, fmt.Errorf("unknown zone %q", zone)
		}
		return net.InterfaceByIndex(index)
	}
	if c.Interface == "" {
		return nil, nil
	}
	return net.InterfaceByName(c.Interface)
}

// JoinGroups joins uc to each of the multicast groups.
func (c *MulticastConfig) JoinGroups(uc *net.UDPConn, groups []netip.Addr) error {
	for _, group := range groups {
		if !group.IsMulticast() {
			return fmt.Errorf("%s: %w", group, errNotMulticast)
		}

		ifi, err := c.interfaceFor(group)
		if err != nil {
			return fmt.Errorf("failed to look up interface for group %s: %w", group, err)
		}

		if group.Is4() || group.Is4In6() {
			err = ipv4.NewPacketConn(uc).JoinGroup(ifi, &net.UDPAddr{IP: group.Unmap().AsSlice()})
		} else {
			err = ipv6.NewPacketConn(uc).JoinGroup(ifi, &net.UDPAddr{IP: group.AsSlice()})
		}
		if err != nil {
			return fmt.Errorf("failed to join group %s: %w", group, err)
		}
	}
	return nil
}

// ConfigureSender applies the interface, hop limit, and loopback settings
// for multicast datagrams sent from uc to a group in the given address family.
func (c *MulticastConfig) ConfigureSender(uc *net.UDPConn, group netip.Addr) error {
	if !group.IsMulticast() {
		return nil
	}

	ifi, err := c.interfaceFor(group)
	if err != nil {
		return fmt.Errorf("failed to look up interface for group %s: %w", group, err)
	}

	if group.Is4() || group.Is4In6() {
		pc := ipv4.NewPacketConn(uc)
		if ifi != nil {
			if err = pc.SetMulticastInterface(ifi); err != nil {
				return fmt.Errorf("failed to set multicast interface: %w", err)
			}
		}
		if c.HopLimit != 0 {
			if err = pc.SetMulticastTTL(c.HopLimit); err != nil {
				return fmt.Errorf("failed to set multicast TTL: %w", err)
			}
		}
		if err = pc.SetMulticastLoopback(c.Loopback); err != nil {
			return fmt.Errorf("failed to set multicast loopback: %w", err)
		}
		return nil
	}

	pc := ipv6.NewPacketConn(uc)
	if ifi != nil {
		if err = pc.SetMulticastInterface(ifi); err != nil {
			return fmt.Errorf("failed to set multicast interface: %w", err)
		}
	}
	if c.HopLimit != 0 {
		if err = pc.SetMulticastHopLimit(c.HopLimit); err != nil {
			return fmt.Errorf("failed to set multicast hop limit: %w", err)
		}
	}
	if err = pc.SetMulticastLoopback(c.Loopback); err != nil {
		return fmt.Errorf("failed to set multicast loopback: %w", err)
	}
	return nil
}

// SACNUniverseGroup returns the IPv4 multicast group that carries sACN data for universe.
func SACNUniverseGroup(universe uint16) netip.Addr {
	return netip.AddrFrom4([4]byte{239, 255, byte(universe >> 8), byte(universe)})
}
