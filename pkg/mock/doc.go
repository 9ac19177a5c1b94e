// Package mock provides an in-memory CompliScan backend for development and tests.
//
// Store implements core.Backend and core.RecentJobsLister directly, so a
// poller can run against it in-process. NewHandler exposes the same store
// over HTTP with the real API's routes, login and bearer auth, which lets
// the HTTP client be exercised end to end without a deployed backend.
//
// Jobs move QUEUED -> PROCESSING -> DONE as time passes. This is a fake: it
// scores uploaded names against a tiny fixed watchlist and nothing more.
package mock
