// Package diag exposes the supervisor's optional diagnostics endpoint:
// liveness/readiness, Prometheus metrics and a ring state snapshot.
package diag

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/srediag/shm-3color/internal/logging"
	"github.com/srediag/shm-3color/pkg/ring"
)

// Options configures the diagnostics server.
type Options struct {
	// Addr is the listen address. Empty disables the server.
	Addr     string
	Registry *prometheus.Registry
	// Ready reports whether the shared ring is attached and usable.
	Ready func() error
	// RingState snapshots the ring header for /ring.
	RingState func() ring.State
	// Stats snapshots per-cost observation counts for /ring.
	Stats func() map[string]int64
	Log   *logging.Logger
}

// Server is a running diagnostics endpoint.
type Server struct {
	srv *http.Server
	log *logging.Logger
}

// Start launches the diagnostics server. Returns nil when no address is
// configured.
func Start(opts Options) *Server {
	if opts.Addr == "" {
		return nil
	}
	if opts.Log == nil {
		opts.Log = logging.NewDefault()
	}

	s := &Server{
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler(opts),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: opts.Log,
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Warn("diagnostics server stopped", zap.Error(err))
		}
	}()
	opts.Log.Info("diagnostics server listening", zap.String("addr", opts.Addr))
	return s
}

func handler(opts Options) http.Handler {
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(200))
	if opts.Ready != nil {
		health.AddReadinessCheck("shared-ring", opts.Ready)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)
	if opts.Registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}
	if opts.RingState != nil {
		mux.HandleFunc("/ring", func(w http.ResponseWriter, _ *http.Request) {
			snapshot := struct {
				Ring  ring.State       `json:"ring"`
				Stats map[string]int64 `json:"stats,omitempty"`
			}{Ring: opts.RingState()}
			if opts.Stats != nil {
				snapshot.Stats = opts.Stats()
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(snapshot)
		})
	}
	return mux
}

// Shutdown stops the server, waiting up to the context deadline.
func (s *Server) Shutdown(ctx context.Context) {
	if s == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.log.Warn("diagnostics server shutdown", zap.Error(err))
	}
}
