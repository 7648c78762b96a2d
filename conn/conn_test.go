package conn

import (
	"context"
	"errors"
	"net/netip"
	"testing"
)

func TestListenUDP(t *testing.T) {
	for _, c := range []struct {
		name         string
		socketConfig SocketConfig
	}{
		{"DefaultUDPReceiverSocketConfig", DefaultUDPReceiverSocketConfig},
		{"DefaultUDPSenderSocketConfig", DefaultUDPSenderSocketConfig},
	} {
		t.Run(c.name, func(t *testing.T) {
			for _, nac := range []struct {
				name    string
				network string
				address string
			}{
				{"udp+zero", "udp", ""},
				{"udp4+loopback4", "udp4", "127.0.0.1:"},
				{"udp4+zero", "udp4", ""},
			} {
				t.Run(nac.name, func(t *testing.T) {
					uc, err := c.socketConfig.ListenUDP(context.Background(), nac.network, nac.address)
					if err != nil {
						t.Fatal(err)
					}
					_ = uc.Close()
				})
			}
		})
	}
}

func TestListenUDPReusePort(t *testing.T) {
	ctx := context.Background()
	uc1, err := DefaultUDPReceiverSocketConfig.ListenUDP(ctx, "udp4", "127.0.0.1:")
	if err != nil {
		t.Fatal(err)
	}
	defer uc1.Close()

	address := uc1.LocalAddr().String()
	uc2, err := DefaultUDPReceiverSocketConfig.ListenUDP(ctx, "udp4", address)
	if err != nil {
		t.Fatalf("second bind to %s failed: %v", address, err)
	}
	_ = uc2.Close()
}

func TestListenTCP(t *testing.T) {
	ln, err := DefaultTCPListenerSocketConfig.ListenTCP(context.Background(), "tcp4", "127.0.0.1:")
	if err != nil {
		t.Fatal(err)
	}
	_ = ln.Close()
}

func TestResolveAddrPort(t *testing.T) {
	for _, c := range []struct {
		address string
		want    netip.AddrPort
	}{
		{"127.0.0.1:5568", netip.MustParseAddrPort("127.0.0.1:5568")},
		{"[::1]:5569", netip.MustParseAddrPort("[::1]:5569")},
		{"localhost:5568", netip.AddrPortFrom(netip.AddrFrom4([4]byte{127, 0, 0, 1}), 5568)},
	} {
		t.Run(c.address, func(t *testing.T) {
			got, err := ResolveAddrPort(c.address)
			if err != nil {
				t.Fatal(err)
			}
			if c.address == "localhost:5568" && got.Port() == 5568 && got.Addr().IsLoopback() {
				return
			}
			if got != c.want {
				t.Errorf("ResolveAddrPort(%q) = %s, want %s", c.address, got, c.want)
			}
		})
	}

	if _, err := ResolveAddrPort("no port"); err == nil {
		t.Error("ResolveAddrPort accepted an address without port")
	}
}

func TestSACNUniverseGroup(t *testing.T) {
	for _, c := range []struct {
		universe uint16
		want     string
	}{
		{1, "239.255.0.1"},
		{256, "239.255.1.0"},
		{63999, "239.255.249.255"},
	} {
		if got := SACNUniverseGroup(c.universe); got.String() != c.want {
			t.Errorf("SACNUniverseGroup(%d) = %s, want %s", c.universe, got, c.want)
		}
	}
}

func TestJoinGroupsRejectsUnicast(t *testing.T) {
	uc, err := DefaultUDPReceiverSocketConfig.ListenUDP(context.Background(), "udp4", "127.0.0.1:")
	if err != nil {
		t.Fatal(err)
	}
	defer uc.Close()

	var mc MulticastConfig
	err = mc.JoinGroups(uc, []netip.Addr{netip.MustParseAddr("192.0.2.1")})
	if !errors.Is(err, errNotMulticast) {
		t.Errorf("JoinGroups got %v, want %v", err, errNotMulticast)
	}
}

func TestParseFlagsForError(t *testing.T) {
	if err := ParseFlagsForError(0); err != nil {
		t.Errorf("ParseFlagsForError(0) = %v, want nil", err)
	}
}
