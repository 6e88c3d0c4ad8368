//go:build linux

package shm

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// The futex words live inside MAP_SHARED mappings crossing process
// boundaries, so the private-flag variants must not be used here.

// Futex operation codes from the Linux ABI (<linux/futex.h>); x/sys/unix
// does not export them.
const (
	futexWait = 0 // FUTEX_WAIT
	futexWake = 1 // FUTEX_WAKE
)

// FutexWait blocks until the value at addr is observed different from val.
// Returns ErrWaitInterrupted when signal delivery interrupts the wait; the
// caller decides whether to retry or to treat it as a shutdown signal.
// Always re-check the logical condition after return: wakes may be spurious.
func FutexWait(addr *uint32, val uint32) error {
	// Re-check atomically before entering the syscall, closing the window
	// where a poster changes the word and wakes between our snapshot and
	// the futex entry.
	if atomic.LoadUint32(addr) != val {
		return nil
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWait),
		uintptr(val),
		0, // no timeout: waits are unbounded, teardown posts wake-ups
		0,
		0,
	)
	switch errno {
	case 0:
		return nil
	case unix.EAGAIN:
		// Word moved before we slept.
		return nil
	case unix.EINTR:
		return ErrWaitInterrupted
	default:
		return fmt.Errorf("futex wait: %w", errno)
	}
}

// FutexWake wakes up to n waiters blocked on addr.
func FutexWake(addr *uint32, n int) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWake),
		uintptr(n),
		0,
		0,
		0,
	)
	if errno != 0 {
		return fmt.Errorf("futex wake: %w", errno)
	}
	return nil
}
