// Package fanout watches several screening jobs at once.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jdziat/compliscan/pkg/core"
	"github.com/jdziat/compliscan/pkg/poller"
	"github.com/jdziat/compliscan/pkg/security"
)

// WatchAll polls every job until it settles, at most WithConcurrency at a
// time, and returns one Result per job in input order.
//
// With CollectAll (the default) failures are reported only in the results.
// FailFast cancels the remaining watches on the first failure and returns an
// *Error; Threshold returns an *Error when too few jobs finished DONE.
func WatchAll(ctx context.Context, backend core.Backend, jobIDs []string, opts ...Option) ([]Result, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	for _, id := range jobIDs {
		if err := security.ValidateJobID(id); err != nil {
			return nil, err
		}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(cfg)
	}

	if cfg.totalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.totalTimeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)

	results := make([]Result, len(jobIDs))
	for i, id := range jobIDs {
		g.Go(func() error {
			results[i] = watchOne(gctx, backend, i, id, cfg)
			if results[i].Err != nil && cfg.strategy == StrategyFailFast {
				return results[i].Err
			}
			return nil
		})
	}
	_ = g.Wait()

	var failures []Failure
	for _, r := range results {
		if r.Err != nil {
			failures = append(failures, Failure{Index: r.Index, JobID: r.JobID, Error: core.Message(r.Err)})
		}
	}
	if len(failures) == 0 {
		return results, nil
	}

	fanErr := &Error{
		TotalCount:  len(jobIDs),
		FailedCount: len(failures),
		Strategy:    cfg.strategy,
		Failures:    failures,
	}
	switch cfg.strategy {
	case StrategyFailFast:
		return results, fanErr
	case StrategyThreshold:
		ok := float64(len(jobIDs)-len(failures)) / float64(len(jobIDs))
		if ok < cfg.threshold {
			return results, fanErr
		}
	}
	return results, nil
}

func watchOne(ctx context.Context, backend core.Backend, index int, jobID string, cfg *config) Result {
	res := Result{Index: index, JobID: jobID}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	p, err := poller.New(backend, jobID,
		poller.WithInterval(cfg.interval),
		poller.WithPageSize(cfg.pageSize),
		poller.WithLogger(cfg.logger),
	)
	if err != nil {
		res.Err = err
		return res
	}
	if err := p.Start(ctx); err != nil {
		res.Err = err
		return res
	}
	<-p.Done()

	res.Job = p.Snapshot()
	if p.State() == poller.StateStopped {
		res.Err = ctx.Err()
		if res.Err == nil {
			res.Err = context.Canceled
		}
		return res
	}
	if err := p.Err(); err != nil {
		res.Err = err
		return res
	}

	acc := p.Results()
	if cfg.loadAll {
		if err := acc.LoadAll(ctx, jobID, cfg.pageSize); err != nil {
			res.Err = err
			return res
		}
	}
	res.Items = acc.Items()
	res.HasMore = acc.HasMore()
	return res
}
