// Package logging provides structured logging for the printer bridge.
//
// The package wraps a process-wide zap logger with a handful of helpers for
// the events the bridge cares about: RPC connections, command routing and
// discovery announcements.
//
// # Log Levels
//
//   - Debug: raw RPC payloads, individual announcements, stop retries
//   - Info: connections, commands, scan start/finish
//   - Warn: dropped responses, transport start failures
//   - Error: server failures
//
// # Configuration
//
// Logging is silent until a level is supplied, either explicitly or through
// the EPSON_BRIDGE_LOG_LEVEL environment variable:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// All functions are safe for concurrent use.
package logging
