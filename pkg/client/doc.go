// Package client provides the authenticated HTTP client for the CompliScan API.
//
// The client normalizes every response the same way: 204 is a null success,
// bodies are parsed as JSON when possible and kept as raw text otherwise, and
// non-2xx statuses become *core.HTTPError with a human-readable message.
// Client implements core.Backend, so it can drive a poller or accumulator
// directly.
//
// Most users should import the root package github.com/jdziat/compliscan
// which re-exports NewClient and the option functions.
package client
