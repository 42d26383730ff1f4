// Package worker runs background housekeeping next to the HTTP server.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// Sweep does one round of housekeeping and reports how many entries it removed.
type Sweep func(ctx context.Context) (int, error)

// Janitor runs its sweeps on a fixed interval until the context ends.
type Janitor struct {
	sweeps   map[string]Sweep
	logger   *slog.Logger
	interval time.Duration
}

// NewJanitor creates a janitor ticking every interval.
func NewJanitor(interval time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{sweeps: map[string]Sweep{}, logger: logger, interval: interval}
}

// Register adds a named sweep. Register before Start.
func (j *Janitor) Register(name string, s Sweep) {
	j.sweeps[name] = s
}

// Start begins the janitor loop. It blocks; run it in a goroutine.
func (j *Janitor) Start(ctx context.Context) {
	if j.interval <= 0 || len(j.sweeps) == 0 {
		return
	}
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("janitor started", slog.Duration("interval", j.interval), slog.Int("sweeps", len(j.sweeps)))

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce runs every sweep once. A failing sweep does not stop the others.
func (j *Janitor) RunOnce(ctx context.Context) {
	for name, sweep := range j.sweeps {
		removed, err := sweep(ctx)
		if err != nil {
			j.logger.Error("sweep failed", slog.String("sweep", name), slog.String("error", err.Error()))
			continue
		}
		if removed > 0 {
			j.logger.Debug("sweep finished", slog.String("sweep", name), slog.Int("removed", removed))
		}
	}
}
