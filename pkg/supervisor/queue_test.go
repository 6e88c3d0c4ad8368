package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolutionQueueOrder(t *testing.T) {
	q := newSolutionQueue(8)
	require.NoError(t, q.put(Solution{Deletions: 3}))
	require.NoError(t, q.put(Solution{Deletions: 1, Edges: []int64{9, 8}}))

	s, err := q.pop()
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.Deletions)

	s, err = q.pop()
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Deletions)
	assert.Equal(t, []int64{9, 8}, s.Edges)
}

func TestSolutionQueueDisposeUnblocksPop(t *testing.T) {
	q := newSolutionQueue(8)
	done := make(chan error, 1)
	go func() {
		_, err := q.pop()
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.dispose()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("pop did not unblock after dispose")
	}
}
