// Package security provides validation, sanitization, and limits for the compliscan client.
//
// This package includes:
//   - Job identifier validation before any network call
//   - Page size clamping for result and recent-job listings
//   - Message sanitization for text shown to the user
//
// Most users should import the root package github.com/jdziat/compliscan
// which re-exports these functions.
package security
