package poller

import (
	"log/slog"
	"time"

	"github.com/jdziat/compliscan/pkg/results"
)

// DefaultInterval is the time between status checks.
const DefaultInterval = 3 * time.Second

// Option configures a Poller.
type Option interface {
	apply(*Poller)
}

type optionFunc func(*Poller)

func (f optionFunc) apply(p *Poller) { f(p) }

// WithInterval sets the polling interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return optionFunc(func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	})
}

// WithPageSize sets the size of the first results page.
func WithPageSize(n int) Option {
	return optionFunc(func(p *Poller) {
		p.pageSize = n
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	})
}

// WithAccumulator shares an existing accumulator instead of creating one.
func WithAccumulator(acc *results.Accumulator) Option {
	return optionFunc(func(p *Poller) {
		p.acc = acc
	})
}
