// Package security provides validation, sanitization, and limits for the compliscan client.
package security

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jdziat/compliscan/pkg/core"
)

// Limits
const (
	// MaxJobIDLength is the maximum length accepted for a job identifier
	MaxJobIDLength = 255

	// DefaultPageSize is the results page size requested after a job finishes
	DefaultPageSize = 100

	// MaxPageSize is the hard limit for a single page request
	MaxPageSize = 1000

	// DefaultRecentLimit is the page size of the recent jobs listing
	DefaultRecentLimit = 20

	// MaxMessageLength is the maximum length of a message shown to the user
	MaxMessageLength = 4096
)

// ValidateJobID checks a job identifier before it is sent anywhere.
// The identifier is opaque; only emptiness, length and control characters are rejected.
func ValidateJobID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: job id is required", core.ErrInvalidArgument)
	}
	if len(id) > MaxJobIDLength {
		return core.ErrJobIDTooLong
	}
	for _, r := range id {
		if r < 32 || r == 127 {
			return fmt.Errorf("%w: job id contains control characters", core.ErrInvalidArgument)
		}
	}
	return nil
}

// ClampPageSize ensures a page size is within limits.
// Non-positive values fall back to DefaultPageSize.
func ClampPageSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// SanitizeMessage strips control characters and truncates text before it is displayed.
func SanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}

	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}

	result := strings.TrimSpace(sanitized.String())

	if utf8.RuneCountInString(result) > MaxMessageLength {
		runes := []rune(result)
		result = string(runes[:MaxMessageLength-3]) + "..."
	}

	return result
}
