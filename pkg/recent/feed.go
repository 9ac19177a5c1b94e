package recent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/schedule"
	"github.com/jdziat/compliscan/pkg/security"
)

// FailureMessage is shown when the listing cannot be loaded and the error carries no text.
const FailureMessage = "Failed to load jobs"

// Option configures a Feed.
type Option interface {
	apply(*Feed)
}

type optionFunc func(*Feed)

func (fn optionFunc) apply(f *Feed) {
	fn(f)
}

// WithLimit sets the page size.
func WithLimit(n int) Option {
	return optionFunc(func(f *Feed) {
		f.limit = n
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(f *Feed) {
		if l != nil {
			f.logger = l
		}
	})
}

// Feed is the recent jobs listing, newest first.
type Feed struct {
	lister core.RecentJobsLister
	limit  int
	logger *slog.Logger

	mu          sync.Mutex
	jobs        []core.Job
	cursor      string
	loading     bool
	refreshedAt time.Time
}

// NewFeed creates an empty feed.
func NewFeed(lister core.RecentJobsLister, opts ...Option) *Feed {
	f := &Feed{
		lister: lister,
		limit:  security.DefaultRecentLimit,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(f)
	}
	if f.limit <= 0 {
		f.limit = security.DefaultRecentLimit
	}
	f.limit = security.ClampPageSize(f.limit)
	return f
}

// Refresh replaces the listing with the first page.
// On failure the current listing is kept.
func (f *Feed) Refresh(ctx context.Context) error {
	if !f.begin() {
		return core.ErrLoadInProgress
	}

	page, err := f.lister.GetRecentJobs(ctx, f.limit, "")
	if err == nil && page == nil {
		err = &core.DecodeError{What: "job page"}
	}
	if err != nil {
		f.end()
		f.logger.Error("failed to refresh recent jobs", "error", err)
		return err
	}

	f.mu.Lock()
	f.jobs = append([]core.Job(nil), page.Items...)
	f.cursor = page.Cursor()
	f.refreshedAt = time.Now()
	f.loading = false
	f.mu.Unlock()
	return nil
}

// LoadMore appends the next page. It is a no-op when there is no cursor.
func (f *Feed) LoadMore(ctx context.Context) error {
	f.mu.Lock()
	if f.loading {
		f.mu.Unlock()
		return core.ErrLoadInProgress
	}
	cursor := f.cursor
	if cursor == "" {
		f.mu.Unlock()
		return nil
	}
	f.loading = true
	f.mu.Unlock()

	page, err := f.lister.GetRecentJobs(ctx, f.limit, cursor)
	if err == nil && page == nil {
		err = &core.DecodeError{What: "job page"}
	}
	if err != nil {
		f.end()
		f.logger.Error("failed to load more recent jobs", "error", err)
		return err
	}

	f.mu.Lock()
	f.jobs = append(f.jobs, page.Items...)
	f.cursor = page.Cursor()
	f.loading = false
	f.mu.Unlock()
	return nil
}

// Jobs returns a copy of the listing.
func (f *Feed) Jobs() []core.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Job, len(f.jobs))
	for i := range f.jobs {
		out[i] = *f.jobs[i].Clone()
	}
	return out
}

// HasMore reports whether LoadMore can fetch another page.
func (f *Feed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor != ""
}

// RefreshedAt returns when the last successful refresh completed.
func (f *Feed) RefreshedAt() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshedAt
}

// Watch refreshes immediately and then on every time s yields, calling fn
// after each attempt. It blocks until ctx is done. Refresh errors are passed
// to fn and do not stop the watch.
func (f *Feed) Watch(ctx context.Context, s schedule.Schedule, fn func(jobs []core.Job, err error)) error {
	refresh := func(ctx context.Context) {
		err := f.Refresh(ctx)
		if ctx.Err() != nil {
			return
		}
		if fn != nil {
			fn(f.Jobs(), err)
		}
	}

	refresh(ctx)
	return schedule.Run(ctx, s, refresh)
}

func (f *Feed) begin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loading {
		return false
	}
	f.loading = true
	return true
}

func (f *Feed) end() {
	f.mu.Lock()
	f.loading = false
	f.mu.Unlock()
}
