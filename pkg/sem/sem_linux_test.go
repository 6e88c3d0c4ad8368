//go:build linux

package sem

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shm-3color/internal/shm"
)

var nameSeq atomic.Uint32

func testName() string {
	return fmt.Sprintf("semtest_%d_%d", os.Getpid(), nameSeq.Add(1))
}

func TestCreateAttachDestroy(t *testing.T) {
	name := testName()
	ctx := context.Background()

	owner, err := CreateSet(ctx, name, 5)
	require.NoError(t, err)

	assert.Equal(t, uint32(5), owner.Free.Value())
	assert.Equal(t, uint32(0), owner.Used.Value())
	assert.Equal(t, uint32(1), owner.Mutex.Value())

	attached, err := AttachSet(ctx, name)
	require.NoError(t, err)

	// The counters are shared: a wait through one handle is visible
	// through the other.
	require.NoError(t, attached.Free.Wait())
	assert.Equal(t, uint32(4), owner.Free.Value())
	require.NoError(t, attached.Used.Post())
	assert.Equal(t, uint32(1), owner.Used.Value())

	assert.True(t, attached.Destroy())
	_, err = os.Stat(shm.RegionPath(name))
	require.NoError(t, err, "non-owner destroy must not unlink")

	assert.True(t, owner.Destroy())
	_, err = os.Stat(shm.RegionPath(name))
	assert.True(t, os.IsNotExist(err), "owner destroy must unlink")
}

func TestCreateDuplicateFails(t *testing.T) {
	name := testName()
	owner, err := CreateSet(context.Background(), name, 1)
	require.NoError(t, err)
	defer owner.Destroy()

	_, err = CreateSet(context.Background(), name, 1)
	assert.ErrorIs(t, err, shm.ErrRegionExists)
}

func TestAttachMissingFails(t *testing.T) {
	_, err := AttachSet(context.Background(), testName())
	assert.ErrorIs(t, err, shm.ErrRegionNotFound)
}

func TestAttachRejectsForeignSegment(t *testing.T) {
	name := testName()
	region, err := shm.MapRegion(context.Background(), shm.MapOptions{Name: name, Size: 64, Create: true})
	require.NoError(t, err)
	defer shm.UnmapRegion(region, true)

	_, err = AttachSet(context.Background(), name)
	assert.Error(t, err)
}

func TestCountingSemantics(t *testing.T) {
	name := testName()
	set, err := CreateSet(context.Background(), name, 0)
	require.NoError(t, err)
	defer set.Destroy()

	for i := 0; i < 3; i++ {
		require.NoError(t, set.Used.Post())
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, set.Used.Wait())
	}
	assert.Equal(t, uint32(0), set.Used.Value())
}

func TestPostUnblocksWait(t *testing.T) {
	name := testName()
	set, err := CreateSet(context.Background(), name, 0)
	require.NoError(t, err)
	defer set.Destroy()

	done := make(chan error, 1)
	go func() {
		done <- set.Used.Wait()
	}()

	select {
	case <-done:
		t.Fatal("wait returned before post")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, set.Used.Post())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("post did not unblock the waiter")
	}
}
