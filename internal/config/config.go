package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// CurrentVersion is the only schema version this build understands.
const CurrentVersion = 1

// Config is the whole configuration file.
type Config struct {
	Version   int             `yaml:"version"`
	LogLevel  string          `yaml:"log_level,omitempty"`
	Server    ServerConfig    `yaml:"server"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// ServerConfig controls the websocket RPC listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Path string `yaml:"path"` // websocket endpoint, e.g. "/rpc"

	// TLSCert and TLSKey enable wss:// when both are set
	TLSCert string `yaml:"tls_cert,omitempty"`
	TLSKey  string `yaml:"tls_key,omitempty"`
}

// DiscoveryConfig controls LAN printer discovery.
type DiscoveryConfig struct {
	WindowMillis int    `yaml:"window_ms"`
	Vendor       string `yaml:"vendor"` // "epson" or "any"

	MDNS  MDNSConfig  `yaml:"mdns"`
	Probe ProbeConfig `yaml:"probe"`
	Stop  StopConfig  `yaml:"stop"`
}

// MDNSConfig controls DNS-SD browsing.
type MDNSConfig struct {
	Enabled      bool     `yaml:"enabled"`
	ServiceTypes []string `yaml:"service_types"`
	Domain       string   `yaml:"domain"`
}

// ProbeConfig controls the raw-print port sweep.
type ProbeConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Port          int      `yaml:"port"`
	DialTimeoutMs int      `yaml:"dial_timeout_ms"`
	Concurrency   int      `yaml:"concurrency"`
	ICMPPrecheck  bool     `yaml:"icmp_precheck"`
	NameLookup    bool     `yaml:"name_lookup"`
	Subnets       []string `yaml:"subnets,omitempty"` // CIDRs; empty = local interfaces
}

// StopConfig controls how a busy transport stop is retried.
type StopConfig struct {
	RetryIntervalMs int    `yaml:"retry_interval_ms"`
	MaxAttempts     uint64 `yaml:"max_attempts"` // 0 = retry until settled
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Version:  CurrentVersion,
		LogLevel: "",
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8765,
			Path: "/rpc",
		},
		Discovery: DiscoveryConfig{
			WindowMillis: 5000,
			Vendor:       "epson",
			MDNS: MDNSConfig{
				Enabled:      true,
				ServiceTypes: []string{"_pdl-datastream._tcp", "_printer._tcp", "_ipp._tcp"},
				Domain:       "local.",
			},
			Probe: ProbeConfig{
				Enabled:       true,
				Port:          9100,
				DialTimeoutMs: 300,
				Concurrency:   64,
				ICMPPrecheck:  false,
				NameLookup:    true,
			},
			Stop: StopConfig{
				RetryIntervalMs: 10,
				MaxAttempts:     0,
			},
		},
	}
}

// Window returns the discovery window as a duration.
func (d DiscoveryConfig) Window() time.Duration {
	return time.Duration(d.WindowMillis) * time.Millisecond
}

// DialTimeout returns the probe dial timeout as a duration.
func (p ProbeConfig) DialTimeout() time.Duration {
	return time.Duration(p.DialTimeoutMs) * time.Millisecond
}

// RetryInterval returns the stop retry pause as a duration.
func (s StopConfig) RetryInterval() time.Duration {
	return time.Duration(s.RetryIntervalMs) * time.Millisecond
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", c.Version, CurrentVersion)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("server.tls_cert and server.tls_key must be set together")
	}
	if c.Server.Path == "" || c.Server.Path[0] != '/' {
		return fmt.Errorf("server.path must start with '/', got %q", c.Server.Path)
	}
	if c.Discovery.WindowMillis <= 0 {
		return fmt.Errorf("discovery.window_ms must be positive, got %d", c.Discovery.WindowMillis)
	}
	switch c.Discovery.Vendor {
	case "epson", "any":
	default:
		return fmt.Errorf("discovery.vendor must be \"epson\" or \"any\", got %q", c.Discovery.Vendor)
	}
	if c.Discovery.Probe.Enabled {
		if c.Discovery.Probe.Port <= 0 || c.Discovery.Probe.Port > 65535 {
			return fmt.Errorf("discovery.probe.port out of range: %d", c.Discovery.Probe.Port)
		}
		if c.Discovery.Probe.Concurrency <= 0 {
			return fmt.Errorf("discovery.probe.concurrency must be positive, got %d", c.Discovery.Probe.Concurrency)
		}
	}
	return nil
}
