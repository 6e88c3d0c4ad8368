//go:build !linux

package shm

// FutexWait is unsupported on this platform.
func FutexWait(addr *uint32, val uint32) error {
	return ErrPlatformUnsupported
}

// FutexWake is unsupported on this platform.
func FutexWake(addr *uint32, n int) error {
	return ErrPlatformUnsupported
}
