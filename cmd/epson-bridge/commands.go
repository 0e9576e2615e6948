package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eljam3239/flutter-epson/internal/config"
	"github.com/eljam3239/flutter-epson/internal/discovery"
	"github.com/eljam3239/flutter-epson/internal/server"
	"github.com/eljam3239/flutter-epson/internal/ui"
)

// Server flags
var (
	hostFlag string
	portFlag int
	pathFlag string
	certFlag string
	keyFlag  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the websocket bridge server",
	Long: `Start the bridge server. Host applications connect over websocket and
send one JSON envelope per command:

  {"id": 1, "method": "discoverPrinters", "args": {}}

Each command receives exactly one response with the same id. GET /healthz
reports whether a printer is connected and whether a scan is running.`,
	Example: `  # Serve on the configured address (default 127.0.0.1:8765/rpc)
  epson-bridge serve

  # Listen on all interfaces with a 3 second discovery window
  epson-bridge serve --host 0.0.0.0 --window 3s

  # Serve wss:// with your own certificate
  epson-bridge serve --cert cert.pem --key key.pem`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&hostFlag, "host", "127.0.0.1", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&portFlag, "port", 8765, "Listen port")
	serveCmd.Flags().StringVar(&pathFlag, "path", server.DefaultPath, "Websocket endpoint path")
	serveCmd.Flags().StringVar(&certFlag, "cert", "", "TLS certificate file (enables wss://)")
	serveCmd.Flags().StringVar(&keyFlag, "key", "", "TLS private key file")
	addDiscoveryFlags(serveCmd)
}

func applyServerFlags(cmd *cobra.Command, s *config.ServerConfig) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		s.Host = hostFlag
	}
	if flags.Changed("port") {
		s.Port = portFlag
	}
	if flags.Changed("path") {
		s.Path = pathFlag
	}
	if flags.Changed("cert") {
		s.TLSCert = certFlag
	}
	if flags.Changed("key") {
		s.TLSKey = keyFlag
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	applyServerFlags(cmd, &cfg.Server)
	applyDiscoveryFlags(cmd, &cfg.Discovery)
	if err := cfg.Validate(); err != nil {
		return err
	}

	dispatcher, err := newDispatcher(cfg.Discovery)
	if err != nil {
		return err
	}

	srv, err := server.New(&server.Config{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		Path:     cfg.Server.Path,
		CertPath: cfg.Server.TLSCert,
		KeyPath:  cfg.Server.TLSKey,
	}, dispatcher)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Listening on %s (Ctrl+C to stop)\n", serverURL(cfg.Server))
	return srv.Start()
}

var plainFlag bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the local network for printers",
	Long: `Run one discovery scan and print the printers found, one
"TCP:<host>:<name>" entry per line.

On a terminal an interactive view shows progress and printers as they
appear; press c to stop early. When stdout is not a terminal (or with
--plain) only the entries are printed.`,
	Example: `  # Default 5 second scan for Epson printers
  epson-bridge scan

  # Any vendor, 10 seconds, sweep a specific subnet only
  epson-bridge scan --vendor any --window 10s --no-mdns --subnet 192.168.1.0/24

  # Script-friendly output
  epson-bridge scan --plain`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&plainFlag, "plain", false, "Print entries only, without the interactive view")
	addDiscoveryFlags(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	applyDiscoveryFlags(cmd, &cfg.Discovery)
	if err := cfg.Validate(); err != nil {
		return err
	}

	vendor, err := discovery.ParseVendorFilter(cfg.Discovery.Vendor)
	if err != nil {
		return err
	}
	engine, err := newEngine(cfg.Discovery)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	window := cfg.Discovery.Window()
	scan, err := engine.StartScan(ctx, discovery.TCPPrinterFilter(vendor))
	if err != nil {
		return err
	}
	engine.StopAfter(scan, window, nil)

	printer := ui.NewPrinter(nil)
	if plainFlag || printer.Plain() {
		entries := scan.Wait()
		for _, e := range entries {
			fmt.Println(e)
		}
		return nil
	}

	printer.PrintHeader("Printer discovery", "epson-bridge scan", map[string]string{
		"Window": window.String(),
		"Vendor": vendor.String(),
	})
	entries, finished, err := ui.RunScanView(scan, window)
	if err != nil {
		return err
	}
	if !finished {
		entries = scan.Wait()
	}
	if err := scan.StartErr(); err != nil {
		return reportFailure(printer, "Discovery could not start", err, []string{
			"Check that this machine is on the printer's network",
			"Use --no-mdns or --no-probe to find the failing transport",
		})
	}
	printer.PrintScanResult(entries)
	return nil
}

// errReported is returned once a failure has already been shown.
var errReported = errors.New("failure already reported")

// reportFailure shows err in a failure box on a terminal and returns
// errReported. Plain printers leave reporting to main.
func reportFailure(p *ui.Printer, title string, err error, hints []string) error {
	if p.Plain() {
		return err
	}
	p.PrintFailure(title, err, hints)
	return errReported
}

var (
	urlFlag     string
	timeoutFlag time.Duration
)

var callCmd = &cobra.Command{
	Use:   "call <method> [json-args]",
	Short: "Send one command to a running bridge server",
	Long: `Connect to a running 'epson-bridge serve' and send a single command.
The response result is printed as JSON. Error and not-implemented responses
exit non-zero.`,
	Example: `  epson-bridge call getStatus
  epson-bridge call discoverPrinters --timeout 30s
  epson-bridge call connect '{"target": "TCP:192.168.1.20"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVar(&urlFlag, "url", "", "Server URL (default: from config)")
	callCmd.Flags().DurationVar(&timeoutFlag, "timeout", 30*time.Second, "Time to wait for the response")
}

func runCall(cmd *cobra.Command, args []string) error {
	url := urlFlag
	if url == "" {
		url = serverURL(cfg.Server)
	}

	var callArgs any
	if len(args) == 2 {
		raw := json.RawMessage(args[1])
		if !json.Valid(raw) {
			return fmt.Errorf("args must be valid JSON: %s", args[1])
		}
		callArgs = raw
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeoutFlag)
	defer cancel()

	client, err := server.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	resp, err := client.Call(ctx, args[0], callArgs)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("no response to %s within %s", args[0], timeoutFlag)
		}
		return err
	}

	out, err := json.MarshalIndent(resp.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := resp.Err(); err != nil {
		return reportFailure(ui.NewPrinter(nil), "Command failed", fmt.Errorf("%s: %w", args[0], err), nil)
	}
	fmt.Println(string(out))
	return nil
}

var forceFlag bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := targetConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !forceFlag {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Default().SaveFile(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := targetConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}

func targetConfigPath() (string, error) {
	if strings.TrimSpace(configPath) != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}
