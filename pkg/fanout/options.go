package fanout

import (
	"log/slog"
	"time"

	"github.com/jdziat/compliscan/pkg/poller"
	"github.com/jdziat/compliscan/pkg/security"
)

// DefaultConcurrency is how many jobs are polled at once.
const DefaultConcurrency = 4

// Option configures WatchAll.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	strategy     Strategy
	threshold    float64
	concurrency  int
	interval     time.Duration
	pageSize     int
	totalTimeout time.Duration
	loadAll      bool
	logger       *slog.Logger
}

func defaultConfig() *config {
	return &config{
		strategy:    StrategyCollectAll,
		threshold:   1.0,
		concurrency: DefaultConcurrency,
		interval:    poller.DefaultInterval,
		pageSize:    security.DefaultPageSize,
		logger:      slog.Default(),
	}
}

// FailFast stops every other watch on the first job that does not finish DONE.
func FailFast() Option {
	return optionFunc(func(c *config) {
		c.strategy = StrategyFailFast
	})
}

// CollectAll waits for every job and reports failures only through results.
func CollectAll() Option {
	return optionFunc(func(c *config) {
		c.strategy = StrategyCollectAll
	})
}

// Threshold succeeds if at least pct of the jobs finish DONE.
func Threshold(pct float64) Option {
	return optionFunc(func(c *config) {
		c.strategy = StrategyThreshold
		c.threshold = pct
	})
}

// WithConcurrency limits how many jobs are polled at once.
func WithConcurrency(n int) Option {
	return optionFunc(func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	})
}

// WithInterval sets the poll interval of every job.
func WithInterval(d time.Duration) Option {
	return optionFunc(func(c *config) {
		if d > 0 {
			c.interval = d
		}
	})
}

// WithPageSize sets the results page size.
func WithPageSize(n int) Option {
	return optionFunc(func(c *config) {
		c.pageSize = security.ClampPageSize(n)
	})
}

// WithTimeout bounds the whole watch.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.totalTimeout = d
	})
}

// LoadAll follows each DONE job's cursor to the last page.
func LoadAll() Option {
	return optionFunc(func(c *config) {
		c.loadAll = true
	})
}

// WithLogger sets the logger passed to each poller.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) {
		if l != nil {
			c.logger = l
		}
	})
}
