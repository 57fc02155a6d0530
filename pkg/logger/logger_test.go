package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewLogger_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grader.log")
	log, err := NewLogger(Config{Level: "debug", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("execution finished")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"execution finished"`) {
		t.Errorf("log file = %s", data)
	}
}

func TestNewLogger_LevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grader.log")
	log, err := NewLogger(Config{Level: "warn", Format: "json", OutputPath: path})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hidden")
	log.Warn("shown")
	_ = log.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "hidden") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("warn line missing")
	}
}
