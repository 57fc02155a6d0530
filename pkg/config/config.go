// Package config loads grader settings from a YAML file, a .env file and
// GRADER_* environment variables, in that order of precedence (last wins).
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/grader/pkg/logger"
)

// Isolation modes.
const (
	IsolationInProcess  = "inprocess"
	IsolationSubprocess = "subprocess"
)

// DefaultTimeout is the execution budget used when none is configured.
const DefaultTimeout = 10 * time.Second

// Config is the full grader configuration.
type Config struct {
	Timeout   time.Duration `yaml:"timeout"`
	Isolation string        `yaml:"isolation"`
	MaxSteps  uint64        `yaml:"max_steps"`
	Seed      int64         `yaml:"seed"`
	Log       logger.Config `yaml:"log"`
	Worker    WorkerConfig  `yaml:"worker"`
}

// WorkerConfig bounds the subprocess runner.
type WorkerConfig struct {
	MemoryMB   uint64 `yaml:"memory_mb" json:"memory_mb"`
	CPUSeconds uint64 `yaml:"cpu_seconds" json:"cpu_seconds"`
	Seccomp    bool   `yaml:"seccomp" json:"seccomp"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Timeout:   DefaultTimeout,
		Isolation: IsolationInProcess,
		Log:       logger.Config{Level: "warn", Format: "console"},
		Worker:    WorkerConfig{MemoryMB: 512, CPUSeconds: 30, Seccomp: true},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are ignored; malformed ones are reported.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays GRADER_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("GRADER_TIMEOUT"); ok && v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("GRADER_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v, ok := lookup("GRADER_ISOLATION"); ok && v != "" {
		c.Isolation = v
	}
	if v, ok := lookup("GRADER_MAX_STEPS"); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("GRADER_MAX_STEPS: %w", err)
		}
		c.MaxSteps = n
	}
	if v, ok := lookup("GRADER_SEED"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("GRADER_SEED: %w", err)
		}
		c.Seed = n
	}
	if v, ok := lookup("GRADER_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("GRADER_LOG_FORMAT"); ok && v != "" {
		c.Log.Format = v
	}
	return c.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	switch c.Isolation {
	case IsolationInProcess, IsolationSubprocess:
	default:
		return fmt.Errorf("isolation must be %q or %q, got %q", IsolationInProcess, IsolationSubprocess, c.Isolation)
	}
	return nil
}

// parseTimeout accepts a Go duration ("2s") or a bare number of seconds ("2").
func parseTimeout(s string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
