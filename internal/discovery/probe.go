package discovery

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/logging"
)

const (
	// DefaultProbePort is the raw-print (JetDirect) port receipt printers listen on
	DefaultProbePort = 9100

	// DefaultDialTimeout bounds each TCP connect during a sweep
	DefaultDialTimeout = 300 * time.Millisecond

	// DefaultProbeConcurrency limits simultaneous dials
	DefaultProbeConcurrency = 64

	// mdnsPort is where devices answer unicast mDNS queries
	mdnsPort = "5353"

	// maxSweepHosts caps the hosts enumerated from one subnet
	maxSweepHosts = 1024
)

// NameResolver looks up a display name for a host.
type NameResolver interface {
	LookupName(ctx context.Context, ip string) (string, error)
}

// ProbeOptions configures a ProbeTransport.
type ProbeOptions struct {
	Port         int
	DialTimeout  time.Duration
	Concurrency  int
	ICMPPrecheck bool
	NameLookup   bool

	// Subnets are CIDRs to sweep; empty means the local interfaces' /24s
	Subnets []string

	// Dial and Resolver are swapped in tests
	Dial     func(ctx context.Context, network, addr string) (net.Conn, error)
	Resolver NameResolver
}

// ProbeTransport finds printers by sweeping subnets for an open print port.
type ProbeTransport struct {
	opts   ProbeOptions
	worker worker
}

// NewProbeTransport creates a sweep transport, filling in defaults.
func NewProbeTransport(opts ProbeOptions) *ProbeTransport {
	if opts.Port == 0 {
		opts.Port = DefaultProbePort
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultProbeConcurrency
	}
	if opts.Dial == nil {
		d := &net.Dialer{Timeout: opts.DialTimeout}
		opts.Dial = d.DialContext
	}
	if opts.Resolver == nil && opts.NameLookup {
		opts.Resolver = &MDNSNameResolver{Timeout: opts.DialTimeout}
	}
	return &ProbeTransport{opts: opts}
}

// Start enumerates the hosts to sweep and begins probing them.
func (t *ProbeTransport) Start(ctx context.Context, filter Filter, listener Listener) error {
	if filter.PortType != PortTCP {
		return NewStartError(fmt.Errorf("probe cannot scan %s", filter.PortType))
	}

	hosts, err := t.hosts()
	if err != nil {
		return NewStartError(err)
	}
	if len(hosts) == 0 {
		return NewStartError(errors.New("no IPv4 subnets to sweep"))
	}

	logging.Debug("Starting port sweep",
		zap.Int("hosts", len(hosts)),
		zap.Int("port", t.opts.Port),
	)

	return t.worker.start(ctx, func(ctx context.Context) {
		t.sweep(ctx, hosts, filter, listener)
	})
}

// Stop cancels the sweep.
func (t *ProbeTransport) Stop() error {
	return t.worker.stop()
}

func (t *ProbeTransport) sweep(ctx context.Context, hosts []string, filter Filter, listener Listener) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, t.opts.Concurrency)

	for _, host := range hosts {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			defer func() { <-sem }()

			if a, ok := t.probe(ctx, host, filter); ok {
				listener.OnDiscovered(a)
			}
		}(host)
	}
	wg.Wait()
}

// probe checks a single host and builds its announcement.
func (t *ProbeTransport) probe(ctx context.Context, host string, filter Filter) (Announcement, bool) {
	if t.opts.ICMPPrecheck && !pingHost(ctx, host, t.opts.DialTimeout) {
		return Announcement{}, false
	}

	addr := net.JoinHostPort(host, strconv.Itoa(t.opts.Port))
	conn, err := t.opts.Dial(ctx, "tcp", addr)
	if err != nil {
		return Announcement{}, false
	}
	_ = conn.Close()

	var name string
	if t.opts.Resolver != nil {
		name, err = t.opts.Resolver.LookupName(ctx, host)
		if err != nil {
			logging.Debug("Name lookup failed",
				zap.String("host", host),
				zap.Error(err),
			)
		}
	}

	if !filter.MatchesVendor(name) {
		return Announcement{}, false
	}
	return Announcement{Target: host, DeviceName: name}, true
}

func (t *ProbeTransport) hosts() ([]string, error) {
	if len(t.opts.Subnets) > 0 {
		var out []string
		for _, cidr := range t.opts.Subnets {
			_, n, err := net.ParseCIDR(cidr)
			if err != nil {
				return nil, fmt.Errorf("invalid subnet %q: %w", cidr, err)
			}
			out = append(out, subnetHosts(n, nil)...)
		}
		return out, nil
	}
	return localHosts()
}

// localHosts returns the /24 neighbours of every local IPv4 address.
func localHosts() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	seen := make(map[string]bool)
	var out []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok || ipnet.IP.To4() == nil || ipnet.IP.IsLoopback() {
				continue
			}
			n := clampSubnet(ipnet)
			if seen[n.String()] {
				continue
			}
			seen[n.String()] = true
			out = append(out, subnetHosts(n, ipnet.IP)...)
		}
	}
	return out, nil
}

// clampSubnet narrows anything wider than /24 to the /24 around the address.
func clampSubnet(ipnet *net.IPNet) *net.IPNet {
	ones, bits := ipnet.Mask.Size()
	if bits != 32 || ones >= 24 {
		return &net.IPNet{IP: ipnet.IP.Mask(ipnet.Mask).To4(), Mask: ipnet.Mask}
	}
	mask := net.CIDRMask(24, 32)
	return &net.IPNet{IP: ipnet.IP.Mask(mask).To4(), Mask: mask}
}

// subnetHosts lists usable host addresses in n, skipping self.
func subnetHosts(n *net.IPNet, self net.IP) []string {
	base := n.IP.To4()
	if base == nil {
		return nil
	}
	ones, bits := n.Mask.Size()
	size := uint32(1) << uint(bits-ones)
	if size > maxSweepHosts {
		size = maxSweepHosts
	}

	start := binary.BigEndian.Uint32(base)
	var out []string
	for i := uint32(0); i < size; i++ {
		// Skip network and broadcast addresses for real subnets.
		if size > 2 && (i == 0 || i == size-1) {
			continue
		}
		ip := make(net.IP, 4)
		binary.BigEndian.PutUint32(ip, start+i)
		if self != nil && ip.Equal(self) {
			continue
		}
		out = append(out, ip.String())
	}
	return out
}

// pingHost reports whether host answers one ICMP echo. Hosts that cannot
// be pinged (no privileges, ICMP filtered by policy) count as reachable so
// the TCP probe still runs.
func pingHost(ctx context.Context, host string, timeout time.Duration) bool {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return true
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(false)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-stop:
		}
	}()

	if err := pinger.Run(); err != nil {
		return true
	}
	return pinger.Statistics().PacketsRecv > 0
}

// MDNSNameResolver asks a host for its own name with a unicast mDNS PTR
// query on port 5353. Epson printers answer with their "EPSONxxxxxx.local"
// hostname.
type MDNSNameResolver struct {
	Timeout time.Duration
}

// LookupName implements NameResolver.
func (r *MDNSNameResolver) LookupName(ctx context.Context, ip string) (string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("reverse address for %s: %w", ip, err)
	}

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)
	m.RecursionDesired = false

	c := &dns.Client{Net: "udp", Timeout: r.Timeout}
	in, _, err := c.ExchangeContext(ctx, m, net.JoinHostPort(ip, mdnsPort))
	if err != nil {
		return "", fmt.Errorf("mdns ptr query to %s: %w", ip, err)
	}
	return ptrName(in)
}

// ptrName extracts the first PTR target as a bare host label.
func ptrName(in *dns.Msg) (string, error) {
	if in == nil {
		return "", errors.New("empty response")
	}
	for _, rr := range in.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			name := strings.TrimSuffix(ptr.Ptr, ".")
			name = strings.TrimSuffix(name, ".local")
			if name != "" {
				return name, nil
			}
		}
	}
	return "", errors.New("no PTR record in response")
}
