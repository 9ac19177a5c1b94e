// Package storage provides an optional local archive of job snapshots and
// result pages.
//
// This package includes:
//   - Archive: a GORM-backed store that records jobs and results as the
//     wire contract delivers them
//   - Open: opens SQLite or PostgreSQL by DSN with connection pooling
//
// Archive implements core.Backend and core.RecentJobsLister, so archived
// results can be replayed through the same accumulator offline.
//
// Most users should import the root package github.com/jdziat/compliscan
// which provides OpenArchive().
package storage
