// The supervisor owns the shared ring and semaphore set, drains candidate
// solutions submitted by generator processes, and reports every improvement
// until a zero-cost coloring arrives or it is interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/srediag/shm-3color/internal/config"
	"github.com/srediag/shm-3color/internal/diag"
	"github.com/srediag/shm-3color/internal/logging"
	"github.com/srediag/shm-3color/internal/metrics"
	"github.com/srediag/shm-3color/pkg/ring"
	"github.com/srediag/shm-3color/pkg/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) > 1 {
		fmt.Fprintln(os.Stderr, "supervisor takes no arguments")
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := ring.Create(ctx, ring.Config{
		NamePrefix: cfg.Ring.NamePrefix,
		Capacity:   cfg.Ring.Capacity,
	})
	if err != nil {
		log.Error("cannot create shared resources", zap.Error(err))
		return 1
	}
	log.Info("shared ring created",
		zap.String("prefix", cfg.Ring.NamePrefix),
		zap.Uint32("capacity", cfg.Ring.Capacity))

	m := metrics.NewSupervisor()
	sup := supervisor.New(r, supervisor.Options{Log: log, Metrics: m})

	diagSrv := diag.Start(diag.Options{
		Addr:      cfg.Diag.Addr,
		Registry:  m.Registry,
		Ready:     func() error { return nil },
		RingState: r.State,
		Stats:     sup.Stats,
		Log:       log,
	})

	runErr := sup.Run(ctx)

	if ctx.Err() != nil && sup.Best() != 0 {
		fmt.Printf("Search stopped; best solution so far has %d edges.\n", sup.Best())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	diagSrv.Shutdown(shutdownCtx)
	cancel()

	if !r.Destroy() {
		log.Warn("shared resource teardown was incomplete")
		return 1
	}
	if runErr != nil {
		return 1
	}
	return 0
}
