// Package worker runs background jobs for the server process.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hyperengineering/quill/internal/registry"
)

// RegistryRunner rebuilds and writes the memory registry.
type RegistryRunner interface {
	Run(ctx context.Context) (*registry.Registry, error)
}

// RegistryRefreshWorker rebuilds the registry on a fixed interval.
type RegistryRefreshWorker struct {
	runner   RegistryRunner
	interval time.Duration
}

// NewRegistryRefreshWorker creates a worker with the given runner and interval.
func NewRegistryRefreshWorker(runner RegistryRunner, interval time.Duration) *RegistryRefreshWorker {
	return &RegistryRefreshWorker{
		runner:   runner,
		interval: interval,
	}
}

// Run refreshes immediately, then on every tick, until ctx is cancelled.
func (w *RegistryRefreshWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "registry-refresh",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "registry-refresh",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *RegistryRefreshWorker) refresh(ctx context.Context) {
	reg, err := w.runner.Run(ctx)
	if err != nil {
		// Shutdown interrupted the run
		if ctx.Err() != nil {
			return
		}
		level := slog.LevelWarn
		if errors.Is(err, registry.ErrMissingCredential) {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "registry refresh failed",
			"component", "worker",
			"action", "refresh_failed",
			"error", err,
		)
		return
	}

	slog.Info("registry refreshed",
		"component", "worker",
		"action", "refresh_completed",
		"entries", len(reg.Memories),
	)
}
