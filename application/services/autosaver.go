package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Autosaver periodically persists every dirty project. Saves are best
// effort; a failed save stays dirty and is retried on the next tick.
type Autosaver struct {
	registry *ProjectRegistry
	interval time.Duration
	logger   *zap.Logger
	stop     chan struct{}
	stopped  chan struct{}
}

// NewAutosaver creates an autosaver with the given flush interval
func NewAutosaver(registry *ProjectRegistry, interval time.Duration, logger *zap.Logger) *Autosaver {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Autosaver{
		registry: registry,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start launches the flush loop
func (a *Autosaver) Start() {
	go func() {
		defer close(a.stopped)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.registry.SaveDirty(context.Background())
			case <-a.stop:
				return
			}
		}
	}()
	a.logger.Info("autosaver started", zap.Duration("interval", a.interval))
}

// Stop halts the loop and runs one final flush
func (a *Autosaver) Stop(ctx context.Context) {
	close(a.stop)
	<-a.stopped
	a.registry.SaveDirty(ctx)
}
