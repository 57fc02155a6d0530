package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Empty(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("timeout = %s", cfg.Timeout)
	}
	if cfg.Isolation != IsolationInProcess {
		t.Errorf("isolation = %q", cfg.Isolation)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grader.yaml")
	os.WriteFile(path, []byte("timeout: 3s\nisolation: subprocess\nseed: 7\nlog:\n  level: debug\n"), 0644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("timeout = %s", cfg.Timeout)
	}
	if cfg.Isolation != IsolationSubprocess {
		t.Errorf("isolation = %q", cfg.Isolation)
	}
	if cfg.Seed != 7 {
		t.Errorf("seed = %d", cfg.Seed)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	if cfg.Worker.MemoryMB != 512 {
		t.Errorf("worker defaults lost: %+v", cfg.Worker)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grader.yaml")
	os.WriteFile(path, []byte("timeout: 3s\nsandbox: docker\n"), 0644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GRADER_TIMEOUT":   "2",
		"GRADER_MAX_STEPS": "1000",
		"GRADER_LOG_LEVEL": "error",
	}
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("timeout = %s", cfg.Timeout)
	}
	if cfg.MaxSteps != 1000 {
		t.Errorf("max steps = %d", cfg.MaxSteps)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestApplyEnv_BadIsolation(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "GRADER_ISOLATION" {
			return "vm", true
		}
		return "", false
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	os.WriteFile(path, []byte("GRADER_TEST_DOTENV=yes\n"), 0644)
	t.Cleanup(func() { os.Unsetenv("GRADER_TEST_DOTENV") })

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	if os.Getenv("GRADER_TEST_DOTENV") != "yes" {
		t.Error(".env value not loaded")
	}
}
