//go:build !linux

package shm

import "context"

// MapRegion is unsupported on this platform.
func MapRegion(ctx context.Context, opts MapOptions) (*Region, error) {
	return nil, ErrPlatformUnsupported
}

// UnmapRegion is a no-op on this platform.
func UnmapRegion(r *Region, unlink bool) bool {
	return true
}
