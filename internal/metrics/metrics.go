// Package metrics defines the Prometheus collectors for both processes.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Supervisor holds the aggregator-side collectors.
type Supervisor struct {
	Registry *prometheus.Registry

	FramesReceived prometheus.Counter
	FramesImproved prometheus.Counter
	FramesSkipped  prometheus.Counter
	BestDeletions  prometheus.Gauge
}

// NewSupervisor builds the supervisor collectors on their own registry.
func NewSupervisor() *Supervisor {
	m := &Supervisor{
		Registry: prometheus.NewRegistry(),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shm3c_frames_received_total",
			Help: "Frames drained from the shared ring.",
		}),
		FramesImproved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shm3c_frames_improved_total",
			Help: "Frames that improved on the best known solution.",
		}),
		FramesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shm3c_frames_skipped_total",
			Help: "Frames discarded because a better solution was already known.",
		}),
		BestDeletions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shm3c_best_deletions",
			Help: "Edge count of the best solution seen so far.",
		}),
	}
	m.Registry.MustRegister(m.FramesReceived, m.FramesImproved, m.FramesSkipped, m.BestDeletions)
	return m
}

// Generator holds the worker-side collectors.
type Generator struct {
	Registry *prometheus.Registry

	Candidates      prometheus.Counter
	FramesSubmitted prometheus.Counter
	SubmitFailures  prometheus.Counter
}

// NewGenerator builds the generator collectors on their own registry.
func NewGenerator() *Generator {
	m := &Generator{
		Registry: prometheus.NewRegistry(),
		Candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shm3c_candidates_total",
			Help: "Random colorings evaluated.",
		}),
		FramesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shm3c_frames_submitted_total",
			Help: "Qualifying solutions submitted to the ring.",
		}),
		SubmitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shm3c_submit_failures_total",
			Help: "Submissions that failed on a semaphore error.",
		}),
	}
	m.Registry.MustRegister(m.Candidates, m.FramesSubmitted, m.SubmitFailures)
	return m
}
