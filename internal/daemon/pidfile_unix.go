//go:build !windows

package daemon

import "syscall"

// alive reports whether a process with the given pid exists.
// Signal 0 probes without delivering anything.
func alive(pid int) bool {
	return pid > 0 && syscall.Kill(pid, 0) == nil
}

func signalPID(pid int, sig syscall.Signal) error {
	return syscall.Kill(pid, sig)
}
