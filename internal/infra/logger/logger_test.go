package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"maestro-ai/internal/infra/config"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, closer, err := New(config.LoggerConfig{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	log.Info("hello", "component", "test")
	if err := closer(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"hello"`) {
		t.Errorf("log output missing message: %s", out)
	}
	if !strings.Contains(out, `"component":"test"`) {
		t.Errorf("log output missing attribute: %s", out)
	}
}

func TestNewLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, closer, err := New(config.LoggerConfig{Level: "warn", Format: "text", Output: path})
	if err != nil {
		t.Fatal(err)
	}

	log.Info("quiet")
	log.Warn("loud")
	closer()

	data, _ := os.ReadFile(path)
	out := string(data)
	if strings.Contains(out, "quiet") {
		t.Error("info line written despite warn level")
	}
	if !strings.Contains(out, "loud") {
		t.Error("warn line missing")
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic and must accept all levels.
	log := Discard()
	log.Debug("a")
	log.Error("b")
}
