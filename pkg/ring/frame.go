package ring

import (
	"context"
	"fmt"
	"sync/atomic"
)

// SubmitFrame writes one frame (header word holding len(payload), then every
// payload word, once each) into the ring. The writer mutex is held for the
// whole frame, so concurrent producers never interleave their words.
//
// Returns (false, nil) when the halt flag was observed: the frame was
// aborted and the queue is being torn down. Returns a non-nil error when a
// blocking wait failed; nothing useful can be written after that.
func (r *Ring) SubmitFrame(payload []int64) (bool, error) {
	if err := r.sems.Mutex.Wait(); err != nil {
		// The mutex was never acquired, so nothing was written and
		// nothing must be released.
		return false, fmt.Errorf("acquire writer mutex: %w", err)
	}

	capacity := uint64(r.cfg.Capacity)
	total := 1 + len(payload)
	for i := 0; i < total; i++ {
		if r.Halted() {
			// A partial frame may be left behind; acceptable only
			// because the queue is about to be torn down.
			_ = r.sems.Mutex.Post()
			return false, nil
		}
		if err := r.sems.Free.Wait(); err != nil {
			_ = r.sems.Mutex.Post()
			return false, fmt.Errorf("wait for free slot: %w", err)
		}

		w := int64(len(payload))
		if i > 0 {
			w = payload[i-1]
		}
		idx := atomic.LoadUint64(r.writeIdx())
		atomic.StoreInt64(r.word(idx), w)
		atomic.StoreUint64(r.writeIdx(), (idx+1)%capacity)

		if err := r.sems.Used.Post(); err != nil {
			_ = r.sems.Mutex.Post()
			return false, fmt.Errorf("post used slot: %w", err)
		}
		if r.wordsWritten != nil {
			r.wordsWritten.Add(context.Background(), 1)
		}
	}

	if err := r.sems.Mutex.Post(); err != nil {
		return true, fmt.Errorf("release writer mutex: %w", err)
	}
	if r.framesSubmitted != nil {
		r.framesSubmitted.Add(context.Background(), 1)
	}
	return true, nil
}

// ReadWord consumes one word from the ring, blocking while it is empty.
// Single reader only; the read path takes no mutex.
func (r *Ring) ReadWord() (int64, error) {
	if err := r.sems.Used.Wait(); err != nil {
		return 0, fmt.Errorf("wait for used slot: %w", err)
	}
	idx := atomic.LoadUint64(r.readIdx())
	w := atomic.LoadInt64(r.word(idx))
	atomic.StoreUint64(r.readIdx(), (idx+1)%uint64(r.cfg.Capacity))
	if err := r.sems.Free.Post(); err != nil {
		return w, fmt.Errorf("post free slot: %w", err)
	}
	if r.wordsRead != nil {
		r.wordsRead.Add(context.Background(), 1)
	}
	return w, nil
}

// ReadPayload consumes n payload words. With drop set the words are
// discarded without buffering, which is how a worse solution is skipped
// cheaply.
func (r *Ring) ReadPayload(n int, drop bool) ([]int64, error) {
	var out []int64
	if !drop {
		out = make([]int64, 0, n)
	}
	for i := 0; i < n; i++ {
		w, err := r.ReadWord()
		if err != nil {
			return nil, err
		}
		if !drop {
			out = append(out, w)
		}
	}
	return out, nil
}

// ReadFrame consumes one whole frame: the header word, then its payload.
// With drop set the payload is discarded and nil is returned.
func (r *Ring) ReadFrame(drop bool) ([]int64, error) {
	header, err := r.ReadWord()
	if err != nil {
		return nil, err
	}
	if header < 0 || uint64(header) > uint64(r.cfg.Capacity) {
		return nil, fmt.Errorf("corrupt frame header %d", header)
	}
	return r.ReadPayload(int(header), drop)
}
