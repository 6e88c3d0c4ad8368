// Package generator runs the worker side of the coloring search: color the
// graph at random, count conflicting edges, and submit every candidate at or
// below the acceptance threshold to the shared ring.
package generator

import (
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/srediag/shm-3color/internal/logging"
	"github.com/srediag/shm-3color/internal/metrics"
	"github.com/srediag/shm-3color/pkg/graph"
)

// DefaultThreshold is the highest conflicting-edge count still worth
// submitting. Candidates above it are discarded locally.
const DefaultThreshold = 8

// FrameWriter is the narrow view of the shared ring a worker needs.
type FrameWriter interface {
	// SubmitFrame submits one candidate's conflicting edges. ok=false
	// without an error means the queue is halting.
	SubmitFrame(payload []int64) (bool, error)
	// Halted reports whether the aggregator has raised the halt flag.
	Halted() bool
}

// Options tunes the search loop.
type Options struct {
	// Threshold is the acceptance bound on conflicting edges.
	// Zero means DefaultThreshold.
	Threshold int
	// Workers is the number of concurrent search workers racing into the
	// same ring. Zero means 1.
	Workers int
	// Seed overrides the rand seed; zero derives one from clock and pid.
	Seed int64

	Log     *logging.Logger
	Metrics *metrics.Generator
}

func (o Options) withDefaults() Options {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano() ^ int64(os.Getpid())
	}
	if o.Log == nil {
		o.Log = logging.NewDefault()
	}
	return o
}

// Run searches until the ring halts or a submission fails. Each worker
// colors its own clone of the graph with its own rand stream. Returns nil
// when the loop ended because of a halt; halting workers exit silently.
func Run(w FrameWriter, g *graph.Graph, opts Options) error {
	opts = opts.withDefaults()

	if opts.Workers == 1 {
		return searchLoop(w, g, rand.New(rand.NewSource(opts.Seed)), opts)
	}

	pool, err := ants.NewPool(opts.Workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		clone := g.Clone()
		rng := rand.New(rand.NewSource(opts.Seed + int64(i)))
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := searchLoop(w, clone, rng, opts); err != nil {
				once.Do(func() { firstErr = err })
			}
		}); err != nil {
			wg.Done()
			once.Do(func() { firstErr = err })
		}
	}
	wg.Wait()
	return firstErr
}

func searchLoop(w FrameWriter, g *graph.Graph, rng *rand.Rand, opts Options) error {
	buf := make([]int64, 0, 2*len(g.Edges))
	for !w.Halted() {
		g.ColorRandomly(rng)
		buf = g.ConflictEdges(buf)
		if opts.Metrics != nil {
			inc(opts.Metrics.Candidates)
		}
		if len(buf) > 2*opts.Threshold {
			continue
		}

		ok, err := w.SubmitFrame(buf)
		if err != nil {
			if opts.Metrics != nil {
				inc(opts.Metrics.SubmitFailures)
			}
			opts.Log.Warn("frame submission failed", zap.Error(err))
			return err
		}
		if !ok {
			// Halt observed mid-frame: stop issuing new frames.
			return nil
		}
		if opts.Metrics != nil {
			inc(opts.Metrics.FramesSubmitted)
		}
	}
	return nil
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}
