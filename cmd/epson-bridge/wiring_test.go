package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eljam3239/flutter-epson/internal/config"
	"github.com/eljam3239/flutter-epson/internal/discovery"
	"github.com/eljam3239/flutter-epson/internal/ui"
)

func TestApplyDiscoveryFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addDiscoveryFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--window", "2s", "--vendor", "any", "--no-mdns", "--subnet", "10.0.0.0/24"}))

	d := config.Default().Discovery
	applyDiscoveryFlags(cmd, &d)

	assert.Equal(t, 2000, d.WindowMillis)
	assert.Equal(t, "any", d.Vendor)
	assert.False(t, d.MDNS.Enabled)
	assert.True(t, d.Probe.Enabled, "unset flags keep config values")
	assert.Equal(t, []string{"10.0.0.0/24"}, d.Probe.Subnets)
}

func TestNewTransport(t *testing.T) {
	d := config.Default().Discovery

	tr, err := newTransport(d)
	require.NoError(t, err)
	assert.IsType(t, &discovery.MultiTransport{}, tr)

	d.Probe.Enabled = false
	tr, err = newTransport(d)
	require.NoError(t, err)
	assert.IsType(t, &discovery.MDNSTransport{}, tr)

	d.MDNS.Enabled = false
	_, err = newTransport(d)
	assert.Error(t, err)
}

func TestNewDispatcher_RejectsUnknownVendor(t *testing.T) {
	d := config.Default().Discovery
	d.Vendor = "acme"
	_, err := newDispatcher(d)
	assert.Error(t, err)
}

func TestServerURL(t *testing.T) {
	tests := []struct {
		name string
		s    config.ServerConfig
		want string
	}{
		{"default", config.Default().Server, "ws://127.0.0.1:8765/rpc"},
		{"all interfaces", config.ServerConfig{Host: "0.0.0.0", Port: 9000, Path: "/rpc"}, "ws://127.0.0.1:9000/rpc"},
		{"tls", config.ServerConfig{Host: "bridge.local", Port: 443, Path: "/ws", TLSCert: "c.pem", TLSKey: "k.pem"}, "wss://bridge.local:443/ws"},
		{"ipv6", config.ServerConfig{Host: "::1", Port: 8765, Path: "/rpc"}, "ws://[::1]:8765/rpc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serverURL(tt.s))
		})
	}
}

func TestLoadConfig_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\nserver:\n  port: 9100\n"), 0600))

	c, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, c.Server.Port)

	require.NoError(t, os.WriteFile(path, []byte("version: 7\n"), 0600))
	_, err = loadConfig(path)
	assert.Error(t, err)
}

func TestReportFailure_PlainReturnsError(t *testing.T) {
	var buf bytes.Buffer
	err := errors.New("getStatus: UNIMPLEMENTED")

	got := reportFailure(ui.NewPrinter(&buf), "Command failed", err, nil)
	assert.Equal(t, err, got, "plain output leaves the error to main")
	assert.Empty(t, buf.String())
	assert.False(t, errors.Is(got, errReported))
}
