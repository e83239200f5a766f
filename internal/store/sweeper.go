package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper periodically removes sessions older than the absolute session
// lifetime. This is the hard ceiling that collects abandoned and
// never-finalized sessions; code-level expiry is checked lazily on the
// submit path and does not delete anything.
type Sweeper struct {
	store    SessionStore
	interval time.Duration
	maxAge   time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func NewSweeper(store SessionStore, interval, maxAge time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run blocks, sweeping on every interval tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Session sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs a single cleanup pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	removed, err := s.store.DeleteOlderThan(ctx, s.now().Add(-s.maxAge))
	if err != nil {
		s.logger.Error().Err(err).Msg("Session sweep failed")
		return
	}
	for _, bookingID := range removed {
		s.logger.Info().
			Str("booking_id", bookingID).
			Msg("Cleaned up expired session")
	}
}
