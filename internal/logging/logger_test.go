package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vodmill/internal/logging"
)

func TestNewJSONWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "vodmill.log")
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info("encode complete", logging.Int("renditions", 5))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %q", line)
	}
	if entry["msg"] != "encode complete" {
		t.Fatalf("msg = %v", entry["msg"])
	}
	if entry["level"] != "info" {
		t.Fatalf("level = %v", entry["level"])
	}
	if entry["renditions"] != float64(5) {
		t.Fatalf("renditions = %v", entry["renditions"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("entry missing ts: %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestDebugLevelFiltered(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "vodmill.log")
	logger, err := logging.New(logging.Options{
		Level:       "warn",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	logger.Info("suppressed")
	logger.Warn("kept")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(data), "suppressed") {
		t.Fatal("info entry leaked past warn level")
	}
	if !strings.Contains(string(data), "kept") {
		t.Fatal("warn entry missing")
	}
}

func TestComponentLoggerNilBase(t *testing.T) {
	logger := logging.NewComponentLogger(nil, "test")
	// Must not panic and must discard output.
	logger.Info("ignored")
}
