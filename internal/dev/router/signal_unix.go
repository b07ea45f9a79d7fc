//go:build linux || darwin

package router

import "golang.org/x/sys/unix"

// signalZero performs a non-blocking liveness probe the way a process
// supervisor conventionally does on POSIX systems: unix(2) kill with
// signal 0 delivers no signal but still reports ESRCH if the pid is gone.
func signalZero(pid int) bool {
	return unix.Kill(pid, 0) == nil
}
