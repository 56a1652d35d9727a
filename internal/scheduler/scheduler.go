package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CycleFunc is invoked once per poll cycle.
type CycleFunc func(ctx context.Context) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
	// Immediate runs one cycle as soon as the loop starts instead of
	// waiting a full interval for the first tick.
	Immediate bool
}

// Scheduler drives fixed-interval execution of the poll cycle.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking the cycle function every interval until ctx is
// cancelled. A failed cycle is logged and the loop keeps going; the next
// tick is the retry.
func (s *Scheduler) Run(ctx context.Context, cycle CycleFunc) error {
	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if s.opts.Immediate {
		s.runCycle(ctx, cycle)
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx, cycle)
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context, cycle CycleFunc) {
	started := time.Now()
	s.logger.Debug().Msg("starting poll cycle")

	if err := cycle(ctx); err != nil {
		s.logger.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("poll cycle failed")
		return
	}

	s.logger.Debug().Dur("elapsed", time.Since(started)).Msg("poll cycle complete")
}
