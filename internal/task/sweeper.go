package task

import (
	"context"
	"log/slog"
	"time"
)

// SweeperConfig holds configuration for the periodic in-memory sweep.
type SweeperConfig struct {
	// Interval defines how often the sweep runs. If zero, defaults to
	// one minute.
	Interval time.Duration

	// StaleAfter defines how long a task may stay running before it is
	// force-failed with a timeout error.
	StaleAfter time.Duration

	// Retention defines how long terminal tasks stay in the table
	// before they are evicted.
	Retention time.Duration
}

// DefaultSweeperConfig returns a SweeperConfig with reasonable defaults.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:   time.Minute,
		StaleAfter: 5 * time.Minute,
		Retention:  10 * time.Minute,
	}
}

// Sweeper periodically force-fails stale running tasks and evicts
// terminal tasks past their retention window. It covers only the
// in-memory table; the durable stores are cleaned by the lifecycle
// hooks instead.
type Sweeper struct {
	registry *Registry
	config   SweeperConfig
	logger   *slog.Logger
}

// NewSweeper creates a sweeper for the given registry.
func NewSweeper(registry *Registry, config SweeperConfig, logger *slog.Logger) *Sweeper {
	if config.Interval == 0 {
		config.Interval = time.Minute
	}
	return &Sweeper{
		registry: registry,
		config:   config,
		logger:   logger.With("component", "task_sweeper"),
	}
}

// Run executes the sweep on the configured interval until ctx is
// cancelled. It blocks and is intended to run on its own goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) sweep() {
	failed := s.registry.SweepStale(s.config.StaleAfter)
	evicted := s.registry.EvictTerminal(s.config.Retention)
	if failed > 0 || evicted > 0 {
		s.logger.Info("sweep finished",
			"timed_out", failed,
			"evicted", evicted)
	}
}
