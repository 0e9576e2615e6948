package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/eljam3239/flutter-epson/internal/logging"
)

const (
	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."
)

// DefaultServiceTypes are the DNS-SD types network receipt printers
// advertise. Most Epson TM models announce _pdl-datastream._tcp (raw port
// 9100) alongside _printer._tcp and _ipp._tcp.
var DefaultServiceTypes = []string{
	"_pdl-datastream._tcp",
	"_printer._tcp",
	"_ipp._tcp",
}

// MDNSOptions configures an MDNSTransport.
type MDNSOptions struct {
	ServiceTypes []string
	Domain       string
}

// MDNSTransport discovers printers by browsing DNS-SD service types.
type MDNSTransport struct {
	services []string
	domain   string

	// newResolver is swapped in tests
	newResolver func() (browser, error)

	worker worker
}

// browser is the part of *zeroconf.Resolver the transport uses.
type browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// NewMDNSTransport creates an mDNS transport.
func NewMDNSTransport(opts MDNSOptions) *MDNSTransport {
	services := opts.ServiceTypes
	if len(services) == 0 {
		services = DefaultServiceTypes
	}
	domain := opts.Domain
	if domain == "" {
		domain = ServiceDomain
	}
	return &MDNSTransport{
		services: services,
		domain:   domain,
		newResolver: func() (browser, error) {
			return zeroconf.NewResolver(nil)
		},
	}
}

// Start begins browsing every configured service type.
func (t *MDNSTransport) Start(ctx context.Context, filter Filter, listener Listener) error {
	if filter.PortType != PortTCP {
		return NewStartError(fmt.Errorf("mdns cannot scan %s", filter.PortType))
	}
	if len(t.services) == 0 {
		return NewStartError(errNoServices)
	}

	// One resolver per service type: each owns its sockets and shuts them
	// down when its browse context ends.
	resolvers := make([]browser, 0, len(t.services))
	for range t.services {
		r, err := t.newResolver()
		if err != nil {
			return NewStartError(fmt.Errorf("failed to create mDNS resolver: %w", err))
		}
		resolvers = append(resolvers, r)
	}

	return t.worker.start(ctx, func(ctx context.Context) {
		var wg sync.WaitGroup
		for i, service := range t.services {
			wg.Add(1)
			go func(r browser, service string) {
				defer wg.Done()
				t.browse(ctx, r, service, filter, listener)
			}(resolvers[i], service)
		}
		wg.Wait()
	})
}

func (t *MDNSTransport) browse(ctx context.Context, r browser, service string, filter Filter, listener Listener) {
	entries := make(chan *zeroconf.ServiceEntry)

	if err := r.Browse(ctx, service, t.domain, entries); err != nil {
		logging.Warn("Failed to browse for mDNS services",
			zap.String("service", service),
			zap.Error(err),
		)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if a, keep := entryAnnouncement(entry, filter); keep {
				listener.OnDiscovered(a)
			}
		}
	}
}

// Stop ends browsing.
func (t *MDNSTransport) Stop() error {
	return t.worker.stop()
}

// entryAnnouncement converts a service entry, applying the vendor filter.
func entryAnnouncement(entry *zeroconf.ServiceEntry, filter Filter) (Announcement, bool) {
	if entry == nil {
		return Announcement{}, false
	}

	host := strings.TrimSuffix(entry.HostName, ".")
	idents := append([]string{entry.Instance, host}, entry.Text...)
	if !filter.MatchesVendor(idents...) {
		return Announcement{}, false
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}

	return Announcement{
		Target:     host,
		IPAddress:  ip,
		DeviceName: instanceName(entry.Instance),
	}, true
}

// instanceName strips DNS-SD escaping from an instance label.
func instanceName(instance string) string {
	return strings.ReplaceAll(instance, `\`, "")
}

// errNoServices is returned when the transport has nothing to browse.
var errNoServices = errors.New("no mDNS service types configured")
