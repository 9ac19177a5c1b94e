package results

import (
	"context"
	"log/slog"

	"github.com/jdziat/compliscan/pkg/core"
)

// PageHook is called after a page has been applied.
type PageHook func(ctx context.Context, jobID string, page *core.ResultPage)

// Option configures an Accumulator.
type Option interface {
	apply(*Accumulator)
}

type optionFunc func(*Accumulator)

func (f optionFunc) apply(a *Accumulator) { f(a) }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(a *Accumulator) {
		if l != nil {
			a.logger = l
		}
	})
}

// OnPage registers a hook that observes every applied page, e.g. to archive it.
func OnPage(fn PageHook) Option {
	return optionFunc(func(a *Accumulator) {
		if fn != nil {
			a.onPage = append(a.onPage, fn)
		}
	})
}
