package lgr

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mdobak/go-xerrors"
)

func TestSetupWritesJSONWithStack(t *testing.T) {
	saved := Logger
	defer func() { Logger = saved }()

	file := filepath.Join(t.TempDir(), "frame_processor.log")
	closer := Setup(Options{Level: "debug", File: file, MaxSizeMB: 1})

	Logger.Debug("debug line")
	Logger.Error("frame failed", slog.Any("error", xerrors.New("boom")), slog.Int("frame", 7))
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(file)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, entry)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	entry := lines[1]
	if entry["msg"] != "frame failed" || entry["frame"] != float64(7) {
		t.Fatalf("unexpected entry %v", entry)
	}
	errAttr, ok := entry["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("error attribute not rendered as group: %v", entry["error"])
	}
	if msg, _ := errAttr["msg"].(string); !strings.Contains(msg, "boom") {
		t.Fatalf("error msg = %v", errAttr["msg"])
	}
	if trace, _ := errAttr["trace"].([]interface{}); len(trace) == 0 {
		t.Fatal("expected a stack trace")
	}
}

func TestSetupRespectsLevel(t *testing.T) {
	saved := Logger
	defer func() { Logger = saved }()

	file := filepath.Join(t.TempDir(), "frame_processor.log")
	closer := Setup(Options{Level: "warn", File: file, MaxSizeMB: 1})
	Logger.Info("dropped")
	Logger.Warn("kept")
	closer.Close()

	raw, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "dropped") || !strings.Contains(string(raw), "kept") {
		t.Fatalf("unexpected log content %q", raw)
	}
}

func TestSetupWithoutFile(t *testing.T) {
	saved := Logger
	defer func() { Logger = saved }()

	closer := Setup(Options{Level: "info"})
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
