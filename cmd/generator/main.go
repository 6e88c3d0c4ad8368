// A generator attaches to the supervisor's shared ring and races to find
// low-cost 3-colorings of the graph given as "id-id" edge arguments.
// It exits silently with status success when told to halt.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/srediag/shm-3color/internal/config"
	"github.com/srediag/shm-3color/internal/logging"
	"github.com/srediag/shm-3color/internal/metrics"
	"github.com/srediag/shm-3color/internal/shm"
	"github.com/srediag/shm-3color/pkg/generator"
	"github.com/srediag/shm-3color/pkg/graph"
	"github.com/srediag/shm-3color/pkg/ring"
)

func main() {
	os.Exit(run())
}

func run() int {
	g, err := graph.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\nusage: generator ID-ID [ID-ID ...]\n", err)
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

	r, err := attach(ctx, cfg, log)
	if err != nil {
		log.Error("cannot attach shared resources", zap.Error(err))
		return 1
	}
	defer r.Detach()
	// The attach wait is the only part that honors the interrupt context;
	// once attached the search stops through the shared halt flag, and an
	// interrupt falls back to the default disposition.
	stop()

	err = generator.Run(r, g, generator.Options{
		Threshold: cfg.Generator.Threshold,
		Workers:   cfg.Generator.Workers,
		Log:       log,
		Metrics:   metrics.NewGenerator(),
	})
	if err != nil {
		return 1
	}
	// Told to halt: workers detach without destroying and exit silently.
	return 0
}

// attach connects to the supervisor's ring, waiting briefly for it to come
// up when the generator was started first.
func attach(ctx context.Context, cfg *config.Config, log *logging.Logger) (*ring.Ring, error) {
	var r *ring.Ring
	op := func() error {
		var err error
		r, err = ring.Attach(ctx, ring.Config{
			NamePrefix: cfg.Ring.NamePrefix,
			Capacity:   cfg.Ring.Capacity,
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, shm.ErrRegionNotFound) {
			log.Debug("shared ring not present yet, retrying", zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return r, nil
}
