//go:build !linux

package sandbox

import "github.com/ormasoftchile/grader/pkg/config"

func applyLimits(config.WorkerConfig) error { return nil }
