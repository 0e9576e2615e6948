package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) {
		t.Error("info should be disabled at warn level")
	}
	if !core.Enabled(zapcore.WarnLevel) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestLogCommand(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogCommand(7, "getStatus", "success")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "getStatus" {
		t.Errorf("method field = %v, want getStatus", fields["method"])
	}
	if fields["id"] != uint64(7) {
		t.Errorf("id field = %v, want 7", fields["id"])
	}
}

func TestLogRPCMessage_Truncates(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogRPCMessage("127.0.0.1:5000", "received", []byte(strings.Repeat("x", maxPayloadLog+10)))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}
	content, _ := entries[0].ContextMap()["content"].(string)
	if !strings.HasSuffix(content, "...") {
		t.Errorf("content should be truncated, got %d bytes", len(content))
	}
}
