package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tidyup/internal/config"
	"tidyup/internal/logging"
	"tidyup/internal/ops"
)

func TestNewFromConfigWritesAppendOnlyFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logPath := cfg.LogFilePath()
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(logPath, []byte("previous line\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	logger, err := logging.NewFromConfig(&cfg, io.Discard)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("organize finished", logging.Int("moved", 3))
	if err := logger.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.HasPrefix(text, "previous line\n") {
		t.Fatalf("expected existing content preserved, got %q", text)
	}
	if !strings.Contains(text, "INFO organize finished moved=3") {
		t.Fatalf("expected appended line, got %q", text)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")
	if !strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerRendersSubjectAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := ops.WithOperation(ops.WithRunID(context.Background(), "0123456789abcdef"), "organize")
	component := logging.NewComponentLogger(logger.Logger, "organizer")
	logging.WithContext(ctx, component).Info("moved file", logging.String("dest", "/tmp/a b"))

	line := buf.String()
	if !strings.Contains(line, "INFO [organize 01234567] organizer: moved file") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, `dest="/tmp/a b"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
	if strings.Contains(line, "run_id=") || strings.Contains(line, "component=") {
		t.Fatalf("subject fields should not repeat as attributes: %q", line)
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "debug", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json line %q: %v", buf.String(), err)
	}
	if record["msg"] != "json message" || record["level"] != "info" || record["k"] != "v" {
		t.Fatalf("unexpected record %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key in %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected info level filtering, got %q", buf.String())
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WarnWithContext(logger.Logger, "move failed", "move_failed", logging.Error(errors.New("denied")))
	line := buf.String()
	for _, want := range []string{"WARN", "event_type=move_failed", "error_hint=", "impact=", "error=denied"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestWithContextWithoutFieldsReturnsSameLogger(t *testing.T) {
	base := logging.NewNop()
	if got := logging.WithContext(context.Background(), base); got != base {
		t.Fatal("expected logger to be returned unchanged")
	}
}

func TestFormatSubject(t *testing.T) {
	cases := []struct{ op, run, want string }{
		{"undo", "", "undo"},
		{"", "abcdef0123", "abcdef01"},
		{"scan", "ab", "scan ab"},
		{"", "", ""},
	}
	for _, tc := range cases {
		if got := logging.FormatSubject(tc.op, tc.run); got != tc.want {
			t.Fatalf("FormatSubject(%q, %q) = %q, want %q", tc.op, tc.run, got, tc.want)
		}
	}
}
