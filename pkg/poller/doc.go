// Package poller watches a single screening job until it settles.
//
// A Poller fetches the job immediately and then on a fixed interval. When the
// job reaches DONE it stops polling and loads exactly one first page of
// results into its Accumulator; FAILED and request errors also stop polling.
// No request is retried.
//
// Ticks run one at a time on the poller's own goroutine. A timer fire that
// lands while a request is outstanding is dropped rather than queued. Stop
// cancels the in-flight request, and a response that arrives afterwards is
// discarded without touching the snapshot or emitting events.
//
// Basic usage:
//
//	p, err := poller.New(backend, jobID)
//	if err != nil {
//	    return err
//	}
//	if err := p.Start(ctx); err != nil {
//	    return err
//	}
//	defer p.Stop()
//	if err := p.Wait(ctx); err != nil {
//	    return err
//	}
//	items := p.Results().Items()
package poller
