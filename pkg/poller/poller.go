package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/jobctx"
	"github.com/jdziat/compliscan/pkg/results"
	"github.com/jdziat/compliscan/pkg/security"
)

// State is the poller's lifecycle position.
type State string

const (
	StateInit              State = "INIT"
	StatePolling           State = "POLLING"
	StateFetchingFirstPage State = "FETCHING_FIRST_PAGE"
	StateSettledDone       State = "SETTLED_DONE"
	StateSettledFailed     State = "SETTLED_FAILED"
	StateSettledError      State = "SETTLED_ERROR"
	StateStopped           State = "STOPPED"
)

// IsFinal reports whether no further transition other than Stop can happen.
func (s State) IsFinal() bool {
	switch s {
	case StateSettledDone, StateSettledFailed, StateSettledError, StateStopped:
		return true
	}
	return false
}

// Poller tracks one job until it reaches a terminal status.
type Poller struct {
	backend  core.Backend
	jobID    string
	interval time.Duration
	pageSize int
	logger   *slog.Logger
	acc      *results.Accumulator

	mu      sync.Mutex
	state   State
	job     *core.Job
	err     error
	live    bool
	started bool
	cancel  context.CancelFunc

	stopOnce sync.Once
	done     chan struct{}

	subMu     sync.RWMutex
	eventSubs []chan core.Event
}

// New creates a poller for jobID. It returns an error wrapping
// core.ErrInvalidArgument when jobID is empty, and polling never starts.
func New(backend core.Backend, jobID string, opts ...Option) (*Poller, error) {
	if err := security.ValidateJobID(jobID); err != nil {
		return nil, err
	}

	p := &Poller{
		backend:  backend,
		jobID:    jobID,
		interval: DefaultInterval,
		pageSize: security.DefaultPageSize,
		logger:   slog.Default(),
		state:    StateInit,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt.apply(p)
	}
	p.pageSize = security.ClampPageSize(p.pageSize)
	if p.acc == nil {
		p.acc = results.NewAccumulator(backend, results.WithLogger(p.logger))
	}
	return p, nil
}

// Start launches the polling loop. The first status check happens immediately.
// Cancelling ctx has the same effect as Stop.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started || p.state != StateInit {
		p.mu.Unlock()
		return core.ErrPollerStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	p.started = true
	p.live = true
	p.cancel = cancel
	p.state = StatePolling
	p.mu.Unlock()

	p.logger.Debug("polling started", "job_id", p.jobID, "interval", p.interval)
	go p.run(jobctx.WithJobID(ctx, p.jobID))
	return nil
}

// Stop tears the poller down: the timer and any in-flight request are
// cancelled and late responses are ignored. Safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.live = false
		p.state = StateStopped
		cancel := p.cancel
		started := p.started
		p.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if !started {
			close(p.done)
		}
		p.logger.Debug("polling stopped", "job_id", p.jobID)
	})
}

// JobID returns the job being watched.
func (p *Poller) JobID() string {
	return p.jobID
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Snapshot returns a copy of the latest job observed, or nil before the first response.
func (p *Poller) Snapshot() *core.Job {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.job.Clone()
}

// Err returns the error that settled the poller, if any.
// A FAILED job yields *core.JobFailedError.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Results returns the accumulator that holds the job's result pages.
func (p *Poller) Results() *results.Accumulator {
	return p.acc
}

// Done is closed when the polling loop has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the loop exits or ctx is done, then returns Err.
func (p *Poller) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns a channel for receiving poller events.
// The caller must call Unsubscribe when done.
func (p *Poller) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	p.subMu.Lock()
	p.eventSubs = append(p.eventSubs, ch)
	p.subMu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events.
// The channel is not closed.
func (p *Poller) Unsubscribe(ch <-chan core.Event) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for i, sub := range p.eventSubs {
		if sub == ch {
			p.eventSubs = append(p.eventSubs[:i], p.eventSubs[i+1:]...)
			return
		}
	}
}

func (p *Poller) emit(e core.Event) {
	p.subMu.RLock()
	subs := make([]chan core.Event, len(p.eventSubs))
	copy(subs, p.eventSubs)
	p.subMu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			// Drop if full
		}
	}
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// The ticker buffers a single fire and drops the rest, so a slow request
	// skips ticks instead of queueing them.
	status, ok := p.tick(ctx)
	for ok && !status.IsTerminal() {
		select {
		case <-ctx.Done():
			p.Stop()
			return
		case <-ticker.C:
			status, ok = p.tick(ctx)
		}
	}
	if !ok {
		return
	}

	ticker.Stop()
	if status == core.StatusDone {
		p.fetchFirstPage(ctx)
	}
}

// tick performs one status check. ok is false once the poller has settled or
// been torn down.
func (p *Poller) tick(ctx context.Context) (core.JobStatus, bool) {
	job, err := p.backend.GetJob(ctx, p.jobID)
	if ctx.Err() != nil {
		p.Stop()
		return "", false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.live {
		return "", false
	}

	if err == nil && job == nil {
		err = &core.DecodeError{What: "job"}
	}
	if err != nil {
		p.logger.Error("job status request failed", "job_id", p.jobID, "error", err)
		p.settleLocked(StateSettledError, err)
		return "", false
	}

	p.job = job.Clone()
	p.logger.Debug("job status", "job_id", p.jobID, "status", job.Status)
	p.emit(&core.JobUpdated{Job: job.Clone(), Timestamp: time.Now()})

	switch job.Status {
	case core.StatusDone:
		p.state = StateFetchingFirstPage
	case core.StatusFailed:
		failure := core.NewJobFailedError(job)
		if failure.JobID == "" {
			failure.JobID = p.jobID
		}
		p.settleLocked(StateSettledFailed, failure)
		return job.Status, false
	}
	return job.Status, true
}

func (p *Poller) fetchFirstPage(ctx context.Context) {
	err := p.acc.LoadFirstPage(ctx, p.jobID, p.pageSize)
	if ctx.Err() != nil {
		p.Stop()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.live {
		return
	}
	if err != nil {
		p.settleLocked(StateSettledError, err)
		return
	}

	p.emit(&core.ResultsLoaded{
		JobID:     p.jobID,
		Added:     p.acc.Len(),
		Total:     p.acc.Len(),
		HasMore:   p.acc.HasMore(),
		Timestamp: time.Now(),
	})
	p.settleLocked(StateSettledDone, nil)
}

// settleLocked must be called with p.mu held.
func (p *Poller) settleLocked(state State, err error) {
	p.state = state
	p.err = err
	if err != nil {
		p.logger.Warn("job settled", "job_id", p.jobID, "state", state, "error", err)
	} else {
		p.logger.Info("job settled", "job_id", p.jobID, "state", state)
	}
	p.emit(&core.JobSettled{Job: p.job.Clone(), Err: err, Timestamp: time.Now()})
}
