package discovery

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string]string

func (r fakeResolver) LookupName(_ context.Context, ip string) (string, error) {
	if name, ok := r[ip]; ok {
		return name, nil
	}
	return "", errors.New("no answer")
}

// openPorts returns a dialer that only connects to the given hosts.
func openPorts(hosts ...string) func(ctx context.Context, network, addr string) (net.Conn, error) {
	open := make(map[string]bool)
	for _, h := range hosts {
		open[h] = true
	}
	return func(_ context.Context, _, addr string) (net.Conn, error) {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if !open[host] {
			return nil, errors.New("connection refused")
		}
		client, server := net.Pipe()
		_ = server.Close()
		return client, nil
	}
}

func mustCIDR(t *testing.T, s string) *net.IPNet {
	t.Helper()
	_, n, err := net.ParseCIDR(s)
	require.NoError(t, err)
	return n
}

func TestSubnetHosts(t *testing.T) {
	t.Run("slash 30 skips network and broadcast", func(t *testing.T) {
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, subnetHosts(mustCIDR(t, "10.0.0.0/30"), nil))
	})

	t.Run("skips self", func(t *testing.T) {
		got := subnetHosts(mustCIDR(t, "10.0.0.0/30"), net.ParseIP("10.0.0.1"))
		assert.Equal(t, []string{"10.0.0.2"}, got)
	})

	t.Run("slash 32 is a single host", func(t *testing.T) {
		assert.Equal(t, []string{"10.0.0.9"}, subnetHosts(mustCIDR(t, "10.0.0.9/32"), nil))
	})

	t.Run("slash 24", func(t *testing.T) {
		got := subnetHosts(mustCIDR(t, "192.168.1.0/24"), nil)
		assert.Len(t, got, 254)
		assert.Equal(t, "192.168.1.1", got[0])
		assert.Equal(t, "192.168.1.254", got[253])
	})

	t.Run("ipv6 ignored", func(t *testing.T) {
		assert.Empty(t, subnetHosts(mustCIDR(t, "fe80::/64"), nil))
	})
}

func TestClampSubnet(t *testing.T) {
	wide := &net.IPNet{IP: net.ParseIP("10.1.2.3"), Mask: net.CIDRMask(16, 32)}
	assert.Equal(t, "10.1.2.0/24", clampSubnet(wide).String())

	narrow := &net.IPNet{IP: net.ParseIP("10.1.2.3"), Mask: net.CIDRMask(28, 32)}
	assert.Equal(t, "10.1.2.0/28", clampSubnet(narrow).String())
}

func TestProbeTransport_Sweep(t *testing.T) {
	tr := NewProbeTransport(ProbeOptions{
		Subnets:  []string{"10.0.0.0/29"},
		Dial:     openPorts("10.0.0.2", "10.0.0.5"),
		Resolver: fakeResolver{"10.0.0.2": "EPSON1A2B3C"},
	})

	session := NewSession(TCPPrinterFilter(VendorAny))
	require.NoError(t, tr.Start(context.Background(), session.Filter(), session))
	assert.Eventually(t, func() bool { return session.Len() == 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, tr.Stop())

	assert.ElementsMatch(t, []string{"TCP:10.0.0.2:EPSON1A2B3C", "TCP:10.0.0.5:Printer"}, session.Snapshot())
}

func TestProbeTransport_VendorFilter(t *testing.T) {
	var mu sync.Mutex
	var got []Announcement

	tr := NewProbeTransport(ProbeOptions{
		Subnets:  []string{"10.0.0.0/29"},
		Dial:     openPorts("10.0.0.2", "10.0.0.5"),
		Resolver: fakeResolver{"10.0.0.2": "EPSON1A2B3C", "10.0.0.5": "HP-LaserJet"},
	})

	require.NoError(t, tr.Start(context.Background(), TCPPrinterFilter(VendorEpson), ListenerFunc(func(a Announcement) {
		mu.Lock()
		got = append(got, a)
		mu.Unlock()
	})))

	// The sweep of six hosts returns on its own; wait for it before stopping.
	tr.worker.mu.Lock()
	done := tr.worker.done
	tr.worker.mu.Unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not finish")
	}
	require.NoError(t, tr.Stop())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, Announcement{Target: "10.0.0.2", DeviceName: "EPSON1A2B3C"}, got[0])
}

func TestProbeTransport_StartErrors(t *testing.T) {
	t.Run("invalid subnet", func(t *testing.T) {
		tr := NewProbeTransport(ProbeOptions{Subnets: []string{"not-a-cidr"}})
		err := tr.Start(context.Background(), TCPPrinterFilter(VendorAny), ListenerFunc(func(Announcement) {}))
		assert.ErrorIs(t, err, ErrTransportUnavailable)
	})

	t.Run("bluetooth filter", func(t *testing.T) {
		tr := NewProbeTransport(ProbeOptions{Subnets: []string{"10.0.0.0/30"}})
		err := tr.Start(context.Background(), Filter{PortType: PortBluetooth}, ListenerFunc(func(Announcement) {}))
		assert.ErrorIs(t, err, ErrTransportUnavailable)
	})
}

func TestNewProbeTransport_Defaults(t *testing.T) {
	tr := NewProbeTransport(ProbeOptions{NameLookup: true})
	assert.Equal(t, DefaultProbePort, tr.opts.Port)
	assert.Equal(t, DefaultDialTimeout, tr.opts.DialTimeout)
	assert.Equal(t, DefaultProbeConcurrency, tr.opts.Concurrency)
	assert.NotNil(t, tr.opts.Dial)
	assert.IsType(t, &MDNSNameResolver{}, tr.opts.Resolver)

	assert.Nil(t, NewProbeTransport(ProbeOptions{}).opts.Resolver)
}

func TestPtrName(t *testing.T) {
	ptr := func(target string) dns.RR {
		return &dns.PTR{
			Hdr: dns.RR_Header{Name: "5.0.0.10.in-addr.arpa.", Rrtype: dns.TypePTR, Class: dns.ClassINET},
			Ptr: target,
		}
	}

	m := new(dns.Msg)
	m.Answer = []dns.RR{ptr("EPSON1A2B3C.local.")}
	name, err := ptrName(m)
	require.NoError(t, err)
	assert.Equal(t, "EPSON1A2B3C", name)

	_, err = ptrName(new(dns.Msg))
	assert.Error(t, err)

	_, err = ptrName(nil)
	assert.Error(t, err)
}
