package results

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/jobctx"
	"github.com/jdziat/compliscan/pkg/security"
)

// Accumulator builds the ordered list of result items across pages.
type Accumulator struct {
	backend core.ResultsGetter
	logger  *slog.Logger
	onPage  []PageHook

	mu      sync.Mutex
	jobID   string
	items   []core.ResultItem
	cursor  string
	loading bool
}

// NewAccumulator creates an empty accumulator reading from backend.
func NewAccumulator(backend core.ResultsGetter, opts ...Option) *Accumulator {
	a := &Accumulator{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(a)
	}
	return a
}

// LoadFirstPage replaces the accumulated items with the first page of jobID.
// On failure, or when ctx is done by the time the response arrives, the
// previous items and cursor are left untouched.
func (a *Accumulator) LoadFirstPage(ctx context.Context, jobID string, pageSize int) error {
	if err := security.ValidateJobID(jobID); err != nil {
		return err
	}
	ctx = jobctx.WithJobID(ctx, jobID)
	if !a.begin() {
		return core.ErrLoadInProgress
	}

	page, err := a.backend.GetResults(ctx, jobID, security.ClampPageSize(pageSize), "")
	if err == nil && page == nil {
		err = &core.DecodeError{What: "result page"}
	}
	if err != nil {
		a.end()
		a.logger.Error("failed to load first results page", "job_id", jobID, "error", err)
		return err
	}

	a.mu.Lock()
	if err := ctx.Err(); err != nil {
		a.loading = false
		a.mu.Unlock()
		return err
	}
	a.jobID = jobID
	a.items = append([]core.ResultItem(nil), page.Items...)
	a.cursor = page.Cursor()
	a.loading = false
	total := len(a.items)
	a.mu.Unlock()

	a.logger.Debug("loaded first results page", "job_id", jobID, "items", total, "has_more", page.Cursor() != "")
	a.callHooks(ctx, jobID, page)
	return nil
}

// LoadNextPage appends the page after the current cursor.
// It is a no-op without a network call when there is no cursor.
func (a *Accumulator) LoadNextPage(ctx context.Context, jobID string, pageSize int) error {
	if err := security.ValidateJobID(jobID); err != nil {
		return err
	}
	ctx = jobctx.WithJobID(ctx, jobID)

	a.mu.Lock()
	if a.loading {
		a.mu.Unlock()
		return core.ErrLoadInProgress
	}
	cursor := a.cursor
	if cursor == "" {
		a.mu.Unlock()
		return nil
	}
	a.loading = true
	a.mu.Unlock()

	page, err := a.backend.GetResults(ctx, jobID, security.ClampPageSize(pageSize), cursor)
	if err == nil && page == nil {
		err = &core.DecodeError{What: "result page"}
	}
	if err != nil {
		a.end()
		a.logger.Error("failed to load next results page", "job_id", jobID, "error", err)
		return err
	}

	a.mu.Lock()
	if err := ctx.Err(); err != nil {
		a.loading = false
		a.mu.Unlock()
		return err
	}
	a.items = append(a.items, page.Items...)
	a.cursor = page.Cursor()
	a.loading = false
	total := len(a.items)
	a.mu.Unlock()

	a.logger.Debug("loaded next results page", "job_id", jobID, "added", len(page.Items), "items", total)
	a.callHooks(ctx, jobID, page)
	return nil
}

// LoadAll follows the cursor chain until it ends.
func (a *Accumulator) LoadAll(ctx context.Context, jobID string, pageSize int) error {
	for a.HasMore() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.LoadNextPage(ctx, jobID, pageSize); err != nil {
			return err
		}
	}
	return nil
}

// Items returns a copy of the accumulated items in arrival order.
func (a *Accumulator) Items() []core.ResultItem {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.ResultItem(nil), a.items...)
}

// Cursor returns the continuation cursor, or "" when no more pages exist.
func (a *Accumulator) Cursor() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor
}

// HasMore reports whether a further page can be loaded.
func (a *Accumulator) HasMore() bool {
	return a.Cursor() != ""
}

// Len returns the number of accumulated items.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// JobID returns the job whose pages are accumulated.
func (a *Accumulator) JobID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.jobID
}

// Loading reports whether a page fetch is outstanding.
func (a *Accumulator) Loading() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loading
}

func (a *Accumulator) begin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.loading {
		return false
	}
	a.loading = true
	return true
}

func (a *Accumulator) end() {
	a.mu.Lock()
	a.loading = false
	a.mu.Unlock()
}

func (a *Accumulator) callHooks(ctx context.Context, jobID string, page *core.ResultPage) {
	for _, fn := range a.onPage {
		fn(ctx, jobID, page)
	}
}
