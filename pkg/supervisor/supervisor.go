// Package supervisor runs the aggregator side of the coloring search: drain
// frames from the shared ring, track the best (lowest-cost) solution, report
// improvements, and drive shutdown.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"

	"github.com/srediag/shm-3color/internal/logging"
	"github.com/srediag/shm-3color/internal/metrics"
	"github.com/srediag/shm-3color/pkg/sem"
)

// FrameReader is the narrow view of the shared ring the aggregator needs.
// The aggregator is the single reader; frames are drained one word at a time.
type FrameReader interface {
	ReadWord() (int64, error)
	// Halt raises the shared halt flag and wakes blocked producers.
	Halt()
}

// Solution is one improved candidate: the conflicting edges to delete,
// interleaved a1,b1,a2,b2. A zero-deletion solution means the graph is
// 3-colorable as-is.
type Solution struct {
	Deletions int64
	Edges     []int64
}

// Options configures the aggregator.
type Options struct {
	Log     *logging.Logger
	Metrics *metrics.Supervisor
	// QueueDepth bounds the hand-off queue to the reporter goroutine.
	// Zero means 64.
	QueueDepth int64
	// Out receives the user-visible result lines. Nil means stdout.
	Out io.Writer
}

// errShutdown marks a read abandoned because shutdown was requested.
var errShutdown = errors.New("shutdown requested")

// terminal marker handed to the reporter when the drain loop ends.
const endOfRun = int64(-1)

// Supervisor owns the consumer loop state: the best solution seen and the
// per-cost observation counts.
type Supervisor struct {
	reader FrameReader
	log    *logging.Logger
	m      *metrics.Supervisor
	out    io.Writer
	depth  int64

	best  atomic.Int64
	stats cmap.ConcurrentMap[string, int64]
}

// New builds a Supervisor over an attached ring.
func New(reader FrameReader, opts Options) *Supervisor {
	if opts.Log == nil {
		opts.Log = logging.NewDefault()
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 64
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	s := &Supervisor{
		reader: reader,
		log:    opts.Log,
		m:      opts.Metrics,
		out:    opts.Out,
		depth:  opts.QueueDepth,
		stats:  cmap.New[int64](),
	}
	s.best.Store(-1)
	return s
}

// Best returns the lowest deletion count seen so far, -1 before any frame.
func (s *Supervisor) Best() int64 {
	return s.best.Load()
}

// Stats returns a snapshot of how many frames were observed per deletion
// count.
func (s *Supervisor) Stats() map[string]int64 {
	return s.stats.Items()
}

// Run drains frames until a zero-cost solution arrives, the context is
// canceled, or a non-transient read error occurs. In every case it raises
// the halt flag and posts wake-ups before returning, so no producer stays
// blocked; the caller then destroys the shared resources.
func (s *Supervisor) Run(ctx context.Context) error {
	q := newSolutionQueue(s.depth)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.report(q)
	}()

	runErr := s.drain(ctx, q)

	s.reader.Halt()
	_ = q.put(Solution{Deletions: endOfRun})
	wg.Wait()
	q.dispose()

	if runErr != nil {
		s.log.Error("aggregator loop failed", zap.Error(runErr))
	}
	return runErr
}

func (s *Supervisor) drain(ctx context.Context, q *solutionQueue) error {
	for {
		if ctx.Err() != nil {
			s.log.Info("stop requested, halting")
			return nil
		}

		header, err := s.readWord(ctx)
		if errors.Is(err, errShutdown) {
			s.log.Info("read interrupted, halting")
			return nil
		}
		if err != nil {
			return err
		}
		if header < 0 || header%2 != 0 {
			return fmt.Errorf("corrupt frame header %d", header)
		}
		if s.m != nil {
			s.m.FramesReceived.Inc()
		}
		s.observe(header / 2)

		deletions := header / 2
		best := s.best.Load()
		if best != -1 && deletions >= best {
			if err := s.drainPayload(ctx, header, nil); err != nil {
				if errors.Is(err, errShutdown) {
					return nil
				}
				return err
			}
			if s.m != nil {
				s.m.FramesSkipped.Inc()
			}
			continue
		}

		s.best.Store(deletions)
		if s.m != nil {
			s.m.FramesImproved.Inc()
			s.m.BestDeletions.Set(float64(deletions))
		}
		if deletions == 0 {
			// Perfect coloring: announce and stop reading further frames.
			_ = q.put(Solution{Deletions: 0})
			return nil
		}
		payload := make([]int64, 0, header)
		if err := s.drainPayload(ctx, header, &payload); err != nil {
			// Mid-frame shutdown leaves the stream misaligned, but the
			// queue is being torn down either way.
			if errors.Is(err, errShutdown) {
				return nil
			}
			return err
		}
		_ = q.put(Solution{Deletions: deletions, Edges: payload})
	}
}

// drainPayload consumes n payload words, buffering them only when out is
// non-nil. Skipping a worse solution drains without buffering.
func (s *Supervisor) drainPayload(ctx context.Context, n int64, out *[]int64) error {
	for i := int64(0); i < n; i++ {
		w, err := s.readWord(ctx)
		if err != nil {
			return err
		}
		if out != nil {
			*out = append(*out, w)
		}
	}
	return nil
}

// readWord performs one blocking read. An interrupted wait is retried once;
// if the retry is interrupted again, or shutdown was requested in between,
// the read is abandoned with errShutdown.
func (s *Supervisor) readWord(ctx context.Context) (int64, error) {
	var word int64
	op := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(errShutdown)
		}
		w, err := s.reader.ReadWord()
		if err != nil {
			if errors.Is(err, sem.ErrInterrupted) {
				return err
			}
			return backoff.Permanent(err)
		}
		word = w
		return nil
	}
	err := backoff.Retry(op, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1))
	if errors.Is(err, sem.ErrInterrupted) {
		// Retried once already: treat repeated interruption as a
		// shutdown signal.
		return 0, errShutdown
	}
	if err != nil {
		return 0, err
	}
	return word, nil
}

func (s *Supervisor) observe(deletions int64) {
	key := strconv.FormatInt(deletions, 10)
	s.stats.Upsert(key, 1, func(exist bool, inMap, delta int64) int64 {
		if exist {
			return inMap + delta
		}
		return delta
	})
}

func (s *Supervisor) report(q *solutionQueue) {
	for {
		sol, err := q.pop()
		if err != nil || sol.Deletions == endOfRun {
			return
		}
		if sol.Deletions == 0 {
			fmt.Fprintln(s.out, "The graph is 3-colorable!")
			s.log.Info("graph is 3-colorable")
			continue
		}
		fmt.Fprintf(s.out, "Solution with %d edges:%s\n", sol.Deletions, formatEdges(sol.Edges))
		s.log.Info("improved solution",
			zap.Int64("deletions", sol.Deletions),
			zap.Int("payload_words", len(sol.Edges)))
	}
}

// formatEdges renders interleaved endpoint ids as " a-b c-d".
func formatEdges(edges []int64) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	for i := 0; i+1 < len(edges); i += 2 {
		_, _ = fmt.Fprintf(buf, " %d-%d", edges[i], edges[i+1])
	}
	return buf.String()
}
