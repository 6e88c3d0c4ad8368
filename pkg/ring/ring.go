// Package ring implements the fixed-capacity framed ring buffer shared by
// one aggregator process and any number of coloring worker processes.
//
// The buffer is a flat array of machine words inside a named shared memory
// region. Producers submit self-describing frames (a header word holding the
// payload length, then the payload words); the single consumer drains words
// in FIFO slot order. Three futex-backed semaphores synchronize access: free
// slots, used slots and a writer mutex held across one whole frame write.
package ring

import (
	"context"
	"fmt"
	"sync/atomic"
	"unsafe"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/srediag/shm-3color/internal/shm"
	"github.com/srediag/shm-3color/pkg/sem"
)

const (
	// DefaultCapacity is the ring's slot count in machine words.
	DefaultCapacity = 400
	// DefaultNamePrefix prefixes the named resources under the shared
	// memory mount.
	DefaultNamePrefix = "shm3c"

	ringMagic = uint32(0x726e6733) // "rng3"

	magicOffset    = 0
	capacityOffset = 4
	haltOffset     = 8
	writeIdxOffset = 16
	readIdxOffset  = 24
	headerSize     = 32
	wordSize       = 8
)

// Config holds ring creation and attachment parameters.
type Config struct {
	// NamePrefix names the shared resources: <prefix>_ring and <prefix>_sems.
	NamePrefix string
	// Capacity is the data slot count in words.
	Capacity uint32
	// Meter, when set, instruments word and frame counters.
	Meter metric.Meter
	// Tracer, when set, traces lifecycle operations.
	Tracer trace.Tracer
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.NamePrefix == "" {
		out.NamePrefix = DefaultNamePrefix
	}
	if out.Capacity == 0 {
		out.Capacity = DefaultCapacity
	}
	return out
}

func (c Config) ringName() string { return c.NamePrefix + "_ring" }
func (c Config) semsName() string { return c.NamePrefix + "_sems" }

// State is a diagnostic snapshot of the ring header and semaphore counters.
type State struct {
	Capacity uint32 `json:"capacity"`
	WriteIdx uint64 `json:"write_idx"`
	ReadIdx  uint64 `json:"read_idx"`
	Halt     bool   `json:"halt"`
	FreeSem  uint32 `json:"free_sem"`
	UsedSem  uint32 `json:"used_sem"`
	MutexSem uint32 `json:"mutex_sem"`
}

// Ring is one process's handle on the shared framed queue. The handle is
// constructed once per process and threaded through every operation; there
// is no ambient global state.
type Ring struct {
	cfg    Config
	region *shm.Region
	sems   *sem.Set
	owner  bool

	framesSubmitted metric.Int64Counter
	wordsWritten    metric.Int64Counter
	wordsRead       metric.Int64Counter
}

// Create allocates and initializes the named region and semaphore set. The
// caller becomes the sole owner of both resources. Partial failures roll
// back whatever was already created.
func Create(ctx context.Context, cfg Config) (*Ring, error) {
	cfg = cfg.withDefaults()
	ctx, end := startSpan(ctx, cfg.Tracer, "ring.Create")
	defer end()

	region, err := shm.MapRegion(ctx, shm.MapOptions{
		Name:   cfg.ringName(),
		Size:   regionSize(cfg.Capacity),
		Create: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ring region: %w", err)
	}
	sems, err := sem.CreateSet(ctx, cfg.semsName(), cfg.Capacity)
	if err != nil {
		shm.UnmapRegion(region, true)
		return nil, err
	}

	r := newRing(cfg, region, sems, true)
	atomic.StoreUint64(r.writeIdx(), 0)
	atomic.StoreUint64(r.readIdx(), 0)
	atomic.StoreUint32(r.halt(), 0)
	atomic.StoreUint32(r.capacityWord(), cfg.Capacity)
	atomic.StoreUint32(r.magic(), ringMagic)
	return r, nil
}

// Attach opens the already existing region and semaphore set without
// re-initializing any state. Workers attach; they never own the resources.
func Attach(ctx context.Context, cfg Config) (*Ring, error) {
	cfg = cfg.withDefaults()
	ctx, end := startSpan(ctx, cfg.Tracer, "ring.Attach")
	defer end()

	region, err := shm.MapRegion(ctx, shm.MapOptions{
		Name:   cfg.ringName(),
		Size:   regionSize(cfg.Capacity),
		Create: false,
	})
	if err != nil {
		return nil, fmt.Errorf("attach ring region: %w", err)
	}
	r := newRing(cfg, region, nil, false)
	if atomic.LoadUint32(r.magic()) != ringMagic {
		shm.UnmapRegion(region, false)
		return nil, fmt.Errorf("attach ring region: %s is not a ring segment", region.Path)
	}
	if got := atomic.LoadUint32(r.capacityWord()); got != cfg.Capacity {
		shm.UnmapRegion(region, false)
		return nil, fmt.Errorf("attach ring region: capacity mismatch, segment has %d, want %d", got, cfg.Capacity)
	}
	sems, err := sem.AttachSet(ctx, cfg.semsName())
	if err != nil {
		shm.UnmapRegion(region, false)
		return nil, err
	}
	r.sems = sems
	return r, nil
}

func newRing(cfg Config, region *shm.Region, sems *sem.Set, owner bool) *Ring {
	r := &Ring{cfg: cfg, region: region, sems: sems, owner: owner}
	if cfg.Meter != nil {
		r.framesSubmitted, _ = cfg.Meter.Int64Counter("ring_frames_submitted_total")
		r.wordsWritten, _ = cfg.Meter.Int64Counter("ring_words_written_total")
		r.wordsRead, _ = cfg.Meter.Int64Counter("ring_words_read_total")
	}
	return r
}

func regionSize(capacity uint32) int {
	return headerSize + wordSize*int(capacity)
}

func (r *Ring) magic() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.region.Mem[magicOffset]))
}

func (r *Ring) capacityWord() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.region.Mem[capacityOffset]))
}

func (r *Ring) halt() *uint32 {
	return (*uint32)(unsafe.Pointer(&r.region.Mem[haltOffset]))
}

func (r *Ring) writeIdx() *uint64 {
	return (*uint64)(unsafe.Pointer(&r.region.Mem[writeIdxOffset]))
}

func (r *Ring) readIdx() *uint64 {
	return (*uint64)(unsafe.Pointer(&r.region.Mem[readIdxOffset]))
}

func (r *Ring) word(i uint64) *int64 {
	return (*int64)(unsafe.Pointer(&r.region.Mem[headerSize+wordSize*int(i)]))
}

// Capacity returns the ring's slot count in words.
func (r *Ring) Capacity() uint32 {
	return r.cfg.Capacity
}

// Halted reports whether the halt flag has been raised.
func (r *Ring) Halted() bool {
	return atomic.LoadUint32(r.halt()) != 0
}

// Halt raises the halt flag and posts the used and free semaphores once
// each, so any process currently blocked on them observes the flag and
// unblocks rather than hanging.
func (r *Ring) Halt() {
	atomic.StoreUint32(r.halt(), 1)
	_ = r.sems.Used.Post()
	_ = r.sems.Free.Post()
}

// State returns a diagnostic snapshot of the ring.
func (r *Ring) State() State {
	return State{
		Capacity: atomic.LoadUint32(r.capacityWord()),
		WriteIdx: atomic.LoadUint64(r.writeIdx()),
		ReadIdx:  atomic.LoadUint64(r.readIdx()),
		Halt:     r.Halted(),
		FreeSem:  r.sems.Free.Value(),
		UsedSem:  r.sems.Used.Value(),
		MutexSem: r.sems.Mutex.Value(),
	}
}

// Detach unmaps the region and semaphore set without removing the named
// resources. Workers call this on exit.
func (r *Ring) Detach() bool {
	return r.teardown(false)
}

// Destroy detaches and removes the named resources from the system
// namespace. Only the creating process calls this. Best-effort: every step
// is attempted, the result is false if any failed.
func (r *Ring) Destroy() bool {
	return r.teardown(r.owner)
}

func (r *Ring) teardown(unlink bool) bool {
	_, end := startSpan(context.Background(), r.cfg.Tracer, "ring.teardown")
	defer end()

	ok := true
	if r.sems != nil {
		if !r.sems.Destroy() {
			ok = false
		}
		r.sems = nil
	}
	if r.region != nil {
		if !shm.UnmapRegion(r.region, unlink) {
			ok = false
		}
		r.region = nil
	}
	return ok
}

func startSpan(ctx context.Context, tracer trace.Tracer, name string) (context.Context, func()) {
	if tracer == nil {
		return ctx, func() {}
	}
	ctx, span := tracer.Start(ctx, name)
	return ctx, func() { span.End() }
}
