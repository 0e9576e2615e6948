// Package ui renders terminal output for the epson-bridge CLI.
//
// Two patterns are supported:
//
//   - ScanModel: an interactive Bubble Tea view of a running discovery
//     scan with a spinner, a progress bar over the scan window and the
//     printers found so far. "c" ends the scan early, "q" quits.
//   - Printer: "run once and exit" output (header and result boxes) for
//     non-interactive commands and for terminals that are not TTYs.
//
// # Logging Integration
//
// zap logging is silent unless EPSON_BRIDGE_LOG_LEVEL is set, so the
// curated UI output is not interleaved with log lines. Logs go to stderr.
package ui
