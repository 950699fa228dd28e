// SPDX-License-Identifier: EPL-2.0

package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_ConsoleJSON(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	l, err := New(Config{Level: InfoLevel, Console: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Debug("hidden")
	l.Info("composed", zap.String("op", "trim"))
	_ = l.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "composed" || entry["op"] != "trim" || entry["level"] != "info" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNew_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "audclip.log")
	l, err := New(Config{Level: DebugLevel, OutputPath: path, Console: new(bytes.Buffer)})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Debug("to file")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file = %q, want the debug entry", data)
	}
}

func TestLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level LogLevel
		want  string
	}{
		{DebugLevel, "debug"},
		{InfoLevel, "info"},
		{WarnLevel, "warn"},
		{ErrorLevel, "error"},
		{"", "info"},
		{"verbose", "info"},
	}

	for _, tt := range tests {
		if got := tt.level.zapLevel().String(); got != tt.want {
			t.Errorf("LogLevel(%q) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestL_DefaultsToNop(t *testing.T) {
	if L() == nil {
		t.Fatal("L() = nil")
	}
	Info("nothing happens")
}
