// Package core provides the fundamental types and interfaces for the compliscan client.
//
// This package contains:
//   - Job, ResultItem and page models matching the backend wire contract
//   - Backend interface selecting the real or mock strategy
//   - Event types emitted while a job is polled
//   - Error taxonomy shared by the client, poller and accumulator
//
// Most users should import the root package github.com/jdziat/compliscan
// instead of this package directly.
package core
