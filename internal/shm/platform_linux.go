//go:build linux

package shm

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sys/unix"
)

// MapRegion maps or creates a shared region (Linux implementation).
//
// Create mappings are exclusive: mapping fails with ErrRegionExists when the
// name is already present. Any failure after partial allocation rolls back
// whatever was already created, so the caller never sees partial success.
func MapRegion(ctx context.Context, opts MapOptions) (*Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Size <= 0 {
		return nil, fmt.Errorf("invalid region size %d", opts.Size)
	}
	path := RegionPath(opts.Name)

	if opts.Create {
		return createRegion(path, opts.Size)
	}
	return attachRegion(path, opts.Size)
}

func createRegion(path string, size int) (*Region, error) {
	if !canCreateOnShmMount(uint64(size)) {
		return nil, fmt.Errorf("%w: path %s size %d", ErrNotEnoughSpace, path, size)
	}
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0600)
	if err != nil {
		if err == unix.EEXIST {
			return nil, fmt.Errorf("%w: %s", ErrRegionExists, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	rollback := func() {
		_ = unix.Close(fd)
		_ = os.Remove(path)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		rollback()
		return nil, fmt.Errorf("ftruncate %s: %w", path, err)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		rollback()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	// ftruncate extends with zero bytes, but a recycled name may have been
	// truncated down and up again; clear explicitly.
	for i := range mem {
		mem[i] = 0
	}
	return &Region{Mem: mem, Path: path, Size: size, fd: fd}, nil
}

func attachRegion(path string, size int) (*Region, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0600)
	if err != nil {
		if err == unix.ENOENT {
			return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("fstat %s: %w", path, err)
	}
	if st.Size < int64(size) {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("region %s holds %d bytes, need %d", path, st.Size, size)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &Region{Mem: mem, Path: path, Size: size, fd: fd}, nil
}

// UnmapRegion unmaps and closes the region, unlinking the backing name when
// the caller owns the resource. Cleanup is best-effort: every step is
// attempted regardless of earlier failures, and the aggregate result is false
// if any step failed.
func UnmapRegion(r *Region, unlink bool) bool {
	if r == nil {
		return true
	}
	ok := true
	if r.Mem != nil {
		if err := unix.Munmap(r.Mem); err != nil {
			ok = false
		}
		r.Mem = nil
	}
	if r.fd > 0 {
		if err := unix.Close(r.fd); err != nil {
			ok = false
		}
		r.fd = -1
	}
	if unlink {
		if err := os.Remove(r.Path); err != nil {
			ok = false
		}
	}
	return ok
}

// canCreateOnShmMount reports whether the shared memory mount has room for
// one more region of the given size.
func canCreateOnShmMount(size uint64) bool {
	stat, err := disk.Usage(shmMount)
	if err != nil {
		// Stat failure is not a reason to refuse; creation will surface
		// the real error.
		return true
	}
	return stat.Free >= size
}
