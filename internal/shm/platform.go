// Package shm contains platform-specific helpers for the shared memory region
// backing the coloring search ring and its semaphore set.
package shm

import (
	"errors"
	"path/filepath"
)

// Region represents a memory-mapped shared region backed by a named file
// under the shared memory mount.
type Region struct {
	Mem  []byte
	Path string
	Size int
	fd   int
}

// MapOptions defines options for mapping a shared region.
type MapOptions struct {
	// Name is the file name of the region under the shared memory mount.
	Name string
	// Size is the region size in bytes.
	Size int
	// Create indicates whether the region must be created (exclusive) or
	// opened as an already existing resource.
	Create bool
}

var (
	// ErrRegionExists is returned by a Create mapping when the named region
	// already exists in the system namespace.
	ErrRegionExists = errors.New("shared region already exists")
	// ErrRegionNotFound is returned by an attach mapping when the named
	// region does not exist.
	ErrRegionNotFound = errors.New("shared region not found")
	// ErrNotEnoughSpace is returned when the shared memory mount cannot hold
	// a region of the requested size.
	ErrNotEnoughSpace = errors.New("shared memory mount has not enough left space")
	// ErrPlatformUnsupported is returned on platforms without a shared
	// memory implementation.
	ErrPlatformUnsupported = errors.New("shared memory is not supported on this platform")
	// ErrWaitInterrupted is returned by a blocking futex wait that was
	// interrupted by signal delivery. Recoverable: callers retry the wait
	// unless they have independently decided to shut down.
	ErrWaitInterrupted = errors.New("blocking wait interrupted by signal")
)

const shmMount = "/dev/shm"

// RegionPath returns the backing file path for a named region.
func RegionPath(name string) string {
	return filepath.Join(shmMount, name)
}
