// Epson-bridge exposes printer management commands to local applications.
//
// It discovers Epson receipt printers on the LAN (mDNS and a raw-print
// port sweep) and serves the bridge command set over a websocket so that a
// host application can call discoverPrinters, getStatus and friends.
//
// Usage:
//
//	epson-bridge [command] [flags]
//
// See 'epson-bridge --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eljam3239/flutter-epson/internal/config"
	"github.com/eljam3239/flutter-epson/internal/logging"
	"github.com/eljam3239/flutter-epson/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "epson-bridge",
	Short: "Epson printer bridge",
	Long: `A bridge between host applications and Epson receipt printers.

Discovers printers on the local network and serves the bridge command set
(discoverPrinters, getStatus, isConnected, ...) over a websocket.

Configuration is read from the config file (see 'epson-bridge config path');
command-line flags override file values.`,
	Version:       version.Full(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(configPath)
		if err != nil {
			return err
		}

		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		return logging.Initialize(level)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: OS config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		c, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		return c, nil
	}
	c, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return c, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("epson-bridge %s (commit: %s)\n", version.Version, version.Commit)
	},
}
