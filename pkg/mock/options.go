package mock

import (
	"log/slog"
	"time"
)

// DefaultPhase is how long a submitted job stays in each non-terminal status.
const DefaultPhase = 2 * time.Second

// Option configures a Store.
type Option interface {
	apply(*Store)
}

type optionFunc func(*Store)

func (f optionFunc) apply(s *Store) { f(s) }

// WithPhase sets how long a submitted job spends QUEUED and then PROCESSING.
// Zero makes submitted jobs DONE immediately.
func WithPhase(d time.Duration) Option {
	return optionFunc(func(s *Store) {
		if d >= 0 {
			s.phase = d
		}
	})
}

// WithLatency delays every backend call, like a slow network.
func WithLatency(d time.Duration) Option {
	return optionFunc(func(s *Store) {
		s.latency = d
	})
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(s *Store) {
		if now != nil {
			s.now = now
		}
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(s *Store) {
		if l != nil {
			s.logger = l
		}
	})
}
