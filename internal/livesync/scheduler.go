package livesync

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Runner runs one sync batch. *Engine implements it.
type Runner interface {
	Run(ctx context.Context, opts RunOptions) (*BatchResult, error)
}

// Scheduler triggers a full batch on a fixed interval, for deployments that
// do not call the HTTP trigger from an external cron.
type Scheduler struct {
	Runner   Runner
	Interval time.Duration
	Clock    clockwork.Clock
}

// Start runs batches until ctx is done. The first batch starts immediately.
// A batch that outlasts the interval delays the next tick instead of
// overlapping it.
func (s *Scheduler) Start(ctx context.Context) {
	clock := s.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	ticker := clock.NewTicker(s.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.Interval).Msg("sync scheduler started")
	for {
		if _, err := s.Runner.Run(ctx, RunOptions{}); err != nil {
			log.Error().Err(err).Msg("scheduled sync batch failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("sync scheduler stopped")
			return
		case <-ticker.Chan():
		}
	}
}
