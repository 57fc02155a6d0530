//go:build !linux || !cgo

package sandbox

// applySeccomp is a no-op where libseccomp is unavailable; rlimits and the
// process boundary still apply.
func applySeccomp() error { return nil }
