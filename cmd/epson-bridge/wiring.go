package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/eljam3239/flutter-epson/internal/bridge"
	"github.com/eljam3239/flutter-epson/internal/config"
	"github.com/eljam3239/flutter-epson/internal/discovery"
)

// Discovery override flags shared by serve and scan
var (
	windowFlag  time.Duration
	vendorFlag  string
	subnetFlags []string
	noMDNS      bool
	noProbe     bool
	icmpFlag    bool
)

func addDiscoveryFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&windowFlag, "window", 5*time.Second, "Discovery window")
	cmd.Flags().StringVar(&vendorFlag, "vendor", "epson", "Vendor filter (epson, any)")
	cmd.Flags().StringSliceVar(&subnetFlags, "subnet", nil, "CIDR to sweep for port 9100 (repeatable; default: local /24s)")
	cmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Disable mDNS browsing")
	cmd.Flags().BoolVar(&noProbe, "no-probe", false, "Disable the port sweep")
	cmd.Flags().BoolVar(&icmpFlag, "icmp", false, "Ping hosts before dialing during the sweep")
}

// applyDiscoveryFlags copies flags the user set onto d.
func applyDiscoveryFlags(cmd *cobra.Command, d *config.DiscoveryConfig) {
	flags := cmd.Flags()
	if flags.Changed("window") {
		d.WindowMillis = int(windowFlag / time.Millisecond)
	}
	if flags.Changed("vendor") {
		d.Vendor = vendorFlag
	}
	if flags.Changed("subnet") {
		d.Probe.Subnets = subnetFlags
	}
	if flags.Changed("no-mdns") {
		d.MDNS.Enabled = !noMDNS
	}
	if flags.Changed("no-probe") {
		d.Probe.Enabled = !noProbe
	}
	if flags.Changed("icmp") {
		d.Probe.ICMPPrecheck = icmpFlag
	}
}

// newTransport combines the enabled transports.
func newTransport(d config.DiscoveryConfig) (discovery.Transport, error) {
	var transports []discovery.Transport
	if d.MDNS.Enabled {
		transports = append(transports, discovery.NewMDNSTransport(discovery.MDNSOptions{
			ServiceTypes: d.MDNS.ServiceTypes,
			Domain:       d.MDNS.Domain,
		}))
	}
	if d.Probe.Enabled {
		transports = append(transports, discovery.NewProbeTransport(discovery.ProbeOptions{
			Port:         d.Probe.Port,
			DialTimeout:  d.Probe.DialTimeout(),
			Concurrency:  d.Probe.Concurrency,
			ICMPPrecheck: d.Probe.ICMPPrecheck,
			NameLookup:   d.Probe.NameLookup,
			Subnets:      d.Probe.Subnets,
		}))
	}

	switch len(transports) {
	case 0:
		return nil, errors.New("no discovery transport enabled (enable mdns or probe)")
	case 1:
		return transports[0], nil
	default:
		return discovery.NewMultiTransport(transports...), nil
	}
}

// newEngine builds the discovery engine described by d.
func newEngine(d config.DiscoveryConfig) (*discovery.Engine, error) {
	t, err := newTransport(d)
	if err != nil {
		return nil, err
	}
	policy := discovery.StopPolicy{
		Interval:    d.Stop.RetryInterval(),
		MaxAttempts: d.Stop.MaxAttempts,
	}
	return discovery.NewEngine(t, discovery.WithStopPolicy(policy)), nil
}

// newDispatcher builds the engine and a dispatcher using the process-wide
// connection state.
func newDispatcher(d config.DiscoveryConfig) (*bridge.Dispatcher, error) {
	vendor, err := discovery.ParseVendorFilter(d.Vendor)
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(d)
	if err != nil {
		return nil, err
	}
	return bridge.NewDispatcher(engine, bridge.Options{
		Window: d.Window(),
		Vendor: vendor,
	}), nil
}

// serverURL is the websocket URL a local client should use.
func serverURL(s config.ServerConfig) string {
	scheme := "ws"
	if s.TLSCert != "" {
		scheme = "wss"
	}
	host := s.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("%s://%s%s", scheme, config.ServerConfig{Host: host, Port: s.Port}.Addr(), s.Path)
}
