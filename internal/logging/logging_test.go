package logging

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"DEBUG":   zapcore.DebugLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
	}
	for input, expected := range cases {
		got, err := parseLevel(input)
		if err != nil {
			t.Fatalf("level %q: %v", input, err)
		}
		if got != expected {
			t.Fatalf("level %q: expected %v got %v", input, expected, got)
		}
	}
	if _, err := parseLevel("loud"); !errors.Is(err, ErrInvalidLogLevel) {
		t.Fatalf("expected invalid level error, got %v", err)
	}
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}, ""); err == nil {
		t.Fatalf("expected error")
	}
	logger, err := New(Config{Level: "info", Format: "console", Output: "stderr"}, "")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	_ = logger.Sync()
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "training.log")
	logger, err := New(Config{Level: "warn", Output: path}, "")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("dropped")
	logger.Warn("kept", zap.String(FieldSessionID, "s1"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(raw, &record); err != nil {
		t.Fatalf("expected a single json record, got %q: %v", raw, err)
	}
	if record["msg"] != "kept" || record["level"] != "warn" {
		t.Fatalf("unexpected record %v", record)
	}
	if record[FieldService] != DefaultServiceName || record[FieldSessionID] != "s1" {
		t.Fatalf("missing fields in %v", record)
	}
}
