package logging

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	mu     sync.RWMutex
)

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent.
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "EPSON_BRIDGE_LOG_LEVEL"

// maxPayloadLog caps how much of an RPC payload is copied into a log line.
const maxPayloadLog = 512

// ParseLevel maps a level name onto a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Initialize creates the global logger with the specified level.
// If level is empty, EPSON_BRIDGE_LOG_LEVEL is consulted. If neither is set
// the logger is a no-op.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		SetLogger(zap.NewNop())
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	l, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	SetLogger(l)

	return nil
}

// SetLogger replaces the global logger. Tests use it to capture output.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// Named returns a child logger tagged with a component name.
func Named(component string) *zap.Logger {
	return GetLogger().With(zap.String("component", component))
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}

// LogConnection logs an RPC connection event
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogCommand logs the terminal outcome of a bridge command.
func LogCommand(id uint64, method string, outcome string) {
	Info("Command completed",
		zap.Uint64("id", id),
		zap.String("method", method),
		zap.String("outcome", outcome),
	)
}

// LogAnnouncement logs a device-found event and whether it was kept.
func LogAnnouncement(target, ip, name string, entry string, kept bool) {
	Debug("Discovery announcement",
		zap.String("target", target),
		zap.String("ip", ip),
		zap.String("name", name),
		zap.String("entry", entry),
		zap.Bool("kept", kept),
	)
}

// LogRPCMessage logs a raw envelope travelling over the RPC channel.
func LogRPCMessage(remoteAddr string, direction string, data []byte) {
	if !GetLogger().Core().Enabled(zapcore.DebugLevel) {
		return
	}
	Debug("RPC message",
		zap.String("remote_addr", remoteAddr),
		zap.String("direction", direction),
		zap.Int("length", len(data)),
		zap.String("content", truncate(data)),
	)
}

func truncate(data []byte) string {
	if len(data) > maxPayloadLog {
		return string(data[:maxPayloadLog]) + "..."
	}
	return string(data)
}

// Sync flushes any buffered log entries
func Sync() {
	_ = GetLogger().Sync()
}
