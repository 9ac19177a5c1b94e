// Package schedule provides refresh schedules for the recent jobs feed.
//
// This package includes:
//   - Schedule interface for computing the next run time
//   - Every() for fixed-interval schedules
//   - Cron() for cron expression-based schedules
//   - Parse() which accepts either a Go duration or a cron expression
//   - Run() which drives a callback from a Schedule until cancelled
//
// Most users should import the root package github.com/jdziat/compliscan
// which re-exports these functions.
package schedule
