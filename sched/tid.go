//go:build linux

package sched

import "golang.org/x/sys/unix"

// currentOSThread returns an identifier for the calling OS thread. Every
// worker goroutine pins itself to its OS thread with runtime.LockOSThread
// for its entire lifetime (see registry.bind), so the value returned here is
// stable for exactly as long as a worker's identity needs to be looked
// up. It is used purely as a lookup key into an explicitly populated
// table (registry.go) — never to derive a worker id by transforming the
// handle itself, per the design note against inferring identity from OS
// thread handles. Restricting this port to Linux costs no portability
// relative to the original, which already depends on POSIX sem_t.
func currentOSThread() int64 {
	return int64(unix.Gettid())
}
