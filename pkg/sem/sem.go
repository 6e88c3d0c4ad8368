// Package sem implements the named semaphore set synchronizing the coloring
// search ring: a free-slot counter, a used-slot counter and a writer mutex.
//
// The three counters live in one small named shared segment and block through
// futex waits, so unrelated processes attaching the same name share them.
package sem

import (
	"context"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/srediag/shm-3color/internal/shm"
)

// ErrInterrupted is returned by Wait when signal delivery interrupts the
// blocking wait. It is recoverable: the caller retries the same wait unless
// it has independently decided to shut down.
var ErrInterrupted = shm.ErrWaitInterrupted

const (
	setMagic = uint32(0x73656d33) // "sem3"

	magicOffset = 0
	freeOffset  = 8
	usedOffset  = 16
	mutexOffset = 24
	setSize     = 32
)

// Sem is one counting semaphore whose value word lives in shared memory.
type Sem struct {
	word *uint32
}

// Wait decrements the semaphore, blocking while its value is zero.
func (s *Sem) Wait() error {
	for {
		v := atomic.LoadUint32(s.word)
		if v > 0 {
			if atomic.CompareAndSwapUint32(s.word, v, v-1) {
				return nil
			}
			continue
		}
		if err := shm.FutexWait(s.word, 0); err != nil {
			return err
		}
		// Woken or spurious: re-check the value.
	}
}

// Post increments the semaphore and wakes one blocked waiter.
func (s *Sem) Post() error {
	atomic.AddUint32(s.word, 1)
	return shm.FutexWake(s.word, 1)
}

// Value returns the current counter value. Diagnostic only: the value may be
// stale by the time the caller looks at it.
func (s *Sem) Value() uint32 {
	return atomic.LoadUint32(s.word)
}

// Set bundles the three semaphores guarding the ring buffer.
type Set struct {
	// Free counts free data slots, Used counts unread data slots, Mutex
	// serializes producers' frame writes.
	Free  *Sem
	Used  *Sem
	Mutex *Sem

	region *shm.Region
	owner  bool
}

// CreateSet allocates the named semaphore segment and initializes the
// counters: free = freeInit, used = 0, mutex = 1. Fails if the name exists.
func CreateSet(ctx context.Context, name string, freeInit uint32) (*Set, error) {
	region, err := shm.MapRegion(ctx, shm.MapOptions{Name: name, Size: setSize, Create: true})
	if err != nil {
		return nil, fmt.Errorf("create semaphore set: %w", err)
	}
	s := newSet(region, true)
	atomic.StoreUint32(s.Free.word, freeInit)
	atomic.StoreUint32(s.Used.word, 0)
	atomic.StoreUint32(s.Mutex.word, 1)
	atomic.StoreUint32(s.magic(), setMagic)
	return s, nil
}

// AttachSet opens an already existing semaphore segment without touching the
// counter values.
func AttachSet(ctx context.Context, name string) (*Set, error) {
	region, err := shm.MapRegion(ctx, shm.MapOptions{Name: name, Size: setSize, Create: false})
	if err != nil {
		return nil, fmt.Errorf("attach semaphore set: %w", err)
	}
	s := newSet(region, false)
	if atomic.LoadUint32(s.magic()) != setMagic {
		shm.UnmapRegion(region, false)
		return nil, fmt.Errorf("attach semaphore set: %s is not a semaphore segment", region.Path)
	}
	return s, nil
}

func newSet(region *shm.Region, owner bool) *Set {
	base := unsafe.Pointer(&region.Mem[0])
	return &Set{
		Free:   &Sem{word: (*uint32)(unsafe.Pointer(uintptr(base) + freeOffset))},
		Used:   &Sem{word: (*uint32)(unsafe.Pointer(uintptr(base) + usedOffset))},
		Mutex:  &Sem{word: (*uint32)(unsafe.Pointer(uintptr(base) + mutexOffset))},
		region: region,
		owner:  owner,
	}
}

func (s *Set) magic() *uint32 {
	return (*uint32)(unsafe.Pointer(&s.region.Mem[magicOffset]))
}

// Destroy detaches the segment and, when this process created it, removes
// the name from the system namespace. Best-effort: returns false if any step
// failed, but no step is skipped.
func (s *Set) Destroy() bool {
	if s == nil || s.region == nil {
		return true
	}
	ok := shm.UnmapRegion(s.region, s.owner)
	s.region = nil
	s.Free, s.Used, s.Mutex = nil, nil, nil
	return ok
}
