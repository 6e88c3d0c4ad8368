package diag

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shm-3color/internal/metrics"
	"github.com/srediag/shm-3color/pkg/ring"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandlerEndpoints(t *testing.T) {
	m := metrics.NewSupervisor()
	m.FramesReceived.Inc()

	h := handler(Options{
		Registry: m.Registry,
		Ready:    func() error { return nil },
		RingState: func() ring.State {
			return ring.State{Capacity: 400, WriteIdx: 7, ReadIdx: 3, FreeSem: 396, UsedSem: 4, MutexSem: 1}
		},
		Stats: func() map[string]int64 { return map[string]int64{"2": 5} },
	})

	assert.Equal(t, http.StatusOK, get(t, h, "/live").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/ready").Code)

	rec := get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "shm3c_frames_received_total 1")

	rec = get(t, h, "/ring")
	require.Equal(t, http.StatusOK, rec.Code)
	var snapshot struct {
		Ring  ring.State       `json:"ring"`
		Stats map[string]int64 `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, uint32(400), snapshot.Ring.Capacity)
	assert.Equal(t, uint64(7), snapshot.Ring.WriteIdx)
	assert.Equal(t, int64(5), snapshot.Stats["2"])
}

func TestHandlerNotReady(t *testing.T) {
	h := handler(Options{
		Ready: func() error { return errors.New("ring detached") },
	})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready").Code)
}

func TestStartDisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, Start(Options{}))
	// Shutdown on a nil server must be a no-op.
	var s *Server
	s.Shutdown(nil)
}
