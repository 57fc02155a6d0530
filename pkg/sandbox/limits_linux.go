//go:build linux

package sandbox

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ormasoftchile/grader/pkg/config"
)

// applyLimits caps the worker's address space and CPU time. Zero leaves a
// limit unchanged.
func applyLimits(limits config.WorkerConfig) error {
	if limits.MemoryMB > 0 {
		bytes := limits.MemoryMB << 20
		if err := unix.Setrlimit(unix.RLIMIT_AS, &unix.Rlimit{Cur: bytes, Max: bytes}); err != nil {
			return fmt.Errorf("set memory limit: %w", err)
		}
	}
	if limits.CPUSeconds > 0 {
		seconds := limits.CPUSeconds
		if err := unix.Setrlimit(unix.RLIMIT_CPU, &unix.Rlimit{Cur: seconds, Max: seconds}); err != nil {
			return fmt.Errorf("set cpu limit: %w", err)
		}
	}
	return nil
}
