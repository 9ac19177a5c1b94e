package core

import "context"

// JobGetter fetches a single job snapshot.
type JobGetter interface {
	GetJob(ctx context.Context, jobID string) (*Job, error)
}

// ResultsGetter fetches one page of results for a job.
// An empty lastKey requests the first page; limit <= 0 leaves the page size to the server.
type ResultsGetter interface {
	GetResults(ctx context.Context, jobID string, limit int, lastKey string) (*ResultPage, error)
}

// Backend is the strategy the poller and accumulator read from.
// It is selected once at composition time: the HTTP client for a real API,
// or the in-memory mock for development.
type Backend interface {
	JobGetter
	ResultsGetter
}

// RecentJobsLister lists recently submitted jobs, newest first.
type RecentJobsLister interface {
	GetRecentJobs(ctx context.Context, limit int, lastKey string) (*JobPage, error)
}
