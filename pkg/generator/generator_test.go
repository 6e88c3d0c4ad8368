package generator

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shm-3color/pkg/graph"
)

// captureWriter records submitted frames and halts after a fixed number of
// candidate evaluations.
type captureWriter struct {
	mu        sync.Mutex
	frames    [][]int64
	polls     int
	haltAfter int
	submitErr error
}

func (w *captureWriter) SubmitFrame(payload []int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitErr != nil {
		return false, w.submitErr
	}
	w.frames = append(w.frames, append([]int64(nil), payload...))
	return true, nil
}

func (w *captureWriter) Halted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.polls++
	return w.polls > w.haltAfter
}

func (w *captureWriter) captured() [][]int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

func triangle(t *testing.T) *graph.Graph {
	t.Helper()
	g, err := graph.Parse([]string{"1-2", "2-3", "3-1"})
	require.NoError(t, err)
	return g
}

func TestRunSubmitsQualifyingCandidatesOnly(t *testing.T) {
	w := &captureWriter{haltAfter: 500}
	g := triangle(t)

	err := Run(w, g, Options{Threshold: 1, Seed: 7})
	require.NoError(t, err)

	frames := w.captured()
	assert.NotEmpty(t, frames)
	for _, f := range frames {
		assert.LessOrEqual(t, len(f), 2, "at most one conflicting edge may pass threshold 1")
		assert.Zero(t, len(f)%2, "payload must hold whole edges")
	}
}

func TestRunStopsOnHalt(t *testing.T) {
	// A self edge always conflicts, so with threshold 0 nothing ever
	// qualifies and only the halt flag ends the loop.
	g, err := graph.Parse([]string{"5-5"})
	require.NoError(t, err)

	w := &captureWriter{haltAfter: 50}
	require.NoError(t, Run(w, g, Options{Threshold: -1, Seed: 7}))
	assert.Empty(t, w.captured())
}

func TestRunStopsOnSubmitFailure(t *testing.T) {
	boom := errors.New("semaphore gone")
	w := &captureWriter{haltAfter: 1 << 20, submitErr: boom}

	err := Run(w, triangle(t), Options{Threshold: 3, Seed: 7})
	assert.ErrorIs(t, err, boom)
}

func TestRunWithWorkerPool(t *testing.T) {
	w := &captureWriter{haltAfter: 2000}
	g := triangle(t)

	err := Run(w, g, Options{Threshold: 3, Workers: 4, Seed: 7})
	require.NoError(t, err)

	frames := w.captured()
	assert.NotEmpty(t, frames)
	for _, f := range frames {
		assert.LessOrEqual(t, len(f), 6)
		assert.Zero(t, len(f)%2)
	}
}

func TestWorkerPoolPropagatesFailure(t *testing.T) {
	boom := errors.New("semaphore gone")
	w := &captureWriter{haltAfter: 1 << 20, submitErr: boom}

	err := Run(w, triangle(t), Options{Threshold: 3, Workers: 3, Seed: 7})
	assert.ErrorIs(t, err, boom)
}
