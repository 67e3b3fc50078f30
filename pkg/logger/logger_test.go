package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogLevelFiltering(t *testing.T) {
	originalLogger := Logger
	t.Cleanup(func() {
		Logger = originalLogger
		SetLogLevel(INFO)
	})

	var buf bytes.Buffer
	Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	SetLogLevel(WARN)
	Info("info message should be filtered")
	Warn("warn message should appear")
	Error("error message should appear")

	output := buf.String()
	if strings.Contains(output, "info message should be filtered") {
		t.Fatalf("info message was logged at WARN level:\n%s", output)
	}
	if !strings.Contains(output, "warn message should appear") {
		t.Fatalf("warn message was not logged:\n%s", output)
	}
	if !strings.Contains(output, "error message should appear") {
		t.Fatalf("error message was not logged:\n%s", output)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    LogLevel
		wantErr bool
	}{
		{input: "debug", want: DEBUG},
		{input: " INFO ", want: INFO},
		{input: "warning", want: WARN},
		{input: "error", want: ERROR},
		{input: "loud", want: INFO, wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseLogLevel(tc.input)
		if (err != nil) != tc.wantErr {
			t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
		}
		if got != tc.want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestConfigureWritesToFile(t *testing.T) {
	originalLogger := Logger
	t.Cleanup(func() {
		Logger = originalLogger
		SetLogLevel(INFO)
	})

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	if err := Configure(Options{Level: "info", File: path, Format: "json"}); err != nil {
		t.Fatalf("Configure returned error: %v", err)
	}
	Info("written to file", "session_id", "abc")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"session_id":"abc"`) {
		t.Fatalf("expected json attribute in log file, got %s", data)
	}
}

func TestConfigureRejectsUnknownFormat(t *testing.T) {
	originalLogger := Logger
	t.Cleanup(func() {
		Logger = originalLogger
		SetLogLevel(INFO)
	})

	if err := Configure(Options{Format: "xml"}); err == nil {
		t.Fatal("expected an error for an unknown log format")
	}
	if Logger == nil {
		t.Fatal("expected a fallback logger to be installed")
	}
}
