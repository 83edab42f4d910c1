package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestLevelString(t *testing.T) {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		parsed, err := ParseLevel(LevelString(level))
		if err != nil || parsed != level {
			t.Errorf("round trip of %v gave %v, %v", level, parsed, err)
		}
	}
}

func TestShouldRedact(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"key", true},
		{"drbg_key", true},
		{"seed", true},
		{"SEED_WORDS", true},
		{"passphrase", true},
		{"secret", true},
		{"entropy", true},
		{"acmd", false},
		{"glen", false},
		{"offset", false},
		{"value", false},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			if got := shouldRedact(test.key); got != test.expected {
				t.Errorf("shouldRedact(%q) = %v, expected %v", test.key, got, test.expected)
			}
		})
	}
}

func TestJSONOutputRedacts(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Format = FormatJSON
	cfg.Output = "file"
	cfg.FilePath = filepath.Join(tmpDir, "csrng.log")

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("instantiated", "seed", "4835c677", "clen", 12)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(cfg.FilePath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &record); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if record["seed"] != "[REDACTED]" {
		t.Errorf("seed not redacted: %v", record["seed"])
	}
	if record["component"] != "csrngemu" {
		t.Errorf("expected component csrngemu, got %v", record["component"])
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, LevelInfo)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %s", buf.String())
	}

	logger.SetLevel(LevelDebug)
	child := logger.With("reg", "CMD_REQ")
	child.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("derived logger did not follow level change: %q", buf.String())
	}
	if logger.Level() != LevelDebug {
		t.Errorf("expected debug level, got %v", logger.Level())
	}
}

func TestFileRotator(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "trace.log")

	r, err := NewFileRotator(path, 1, 2)
	if err != nil {
		t.Fatalf("NewFileRotator failed: %v", err)
	}
	defer r.Close()

	chunk := bytes.Repeat([]byte("x"), 700*1024)
	for i := 0; i < 5; i++ {
		if _, err := r.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	backups, err := r.Backups()
	if err != nil {
		t.Fatalf("Backups failed: %v", err)
	}
	if len(backups) != 2 {
		t.Errorf("expected 2 backups, got %d: %v", len(backups), backups)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat current log: %v", err)
	}
	if info.Size() != int64(len(chunk)) {
		t.Errorf("expected current log to hold one chunk, got %d bytes", info.Size())
	}
}
