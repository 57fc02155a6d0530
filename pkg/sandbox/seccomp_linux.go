//go:build linux && cgo

package sandbox

import (
	"fmt"

	seccomp "github.com/seccomp/libseccomp-golang"
	"golang.org/x/sys/unix"
)

// deniedSyscalls are refused with EPERM once the filter is loaded. The Go
// runtime itself needs clone, mmap and friends, so the list only covers
// process spawning, networking and privilege changes.
var deniedSyscalls = []string{
	"execve", "execveat", "fork", "vfork",
	"socket", "connect", "bind", "listen", "accept", "accept4",
	"ptrace", "mount", "umount2", "chroot", "pivot_root",
	"setuid", "setgid", "reboot", "kexec_load",
}

func applySeccomp() error {
	filter, err := seccomp.NewFilter(seccomp.ActAllow)
	if err != nil {
		return fmt.Errorf("create seccomp filter: %w", err)
	}
	deny := seccomp.ActErrno.SetReturnCode(int16(unix.EPERM))
	for _, name := range deniedSyscalls {
		call, err := seccomp.GetSyscallFromName(name)
		if err != nil {
			continue
		}
		if err := filter.AddRule(call, deny); err != nil {
			return fmt.Errorf("add seccomp rule %s: %w", name, err)
		}
	}
	if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("set no new privs: %w", err)
	}
	if err := filter.Load(); err != nil {
		return fmt.Errorf("load seccomp filter: %w", err)
	}
	return nil
}
