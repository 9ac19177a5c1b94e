package jobctx

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestJobIDFromContext(t *testing.T) {
	t.Run("returns job id when set in context", func(t *testing.T) {
		// Arrange
		ctx := WithJobID(context.Background(), "job-123")

		// Act
		id := JobIDFromContext(ctx)

		// Assert
		if id != "job-123" {
			t.Errorf("expected job ID %q, got %q", "job-123", id)
		}
	})

	t.Run("returns empty string when not set", func(t *testing.T) {
		if id := JobIDFromContext(context.Background()); id != "" {
			t.Errorf("expected empty job ID, got %q", id)
		}
	})
}

func TestRequestID(t *testing.T) {
	t.Run("uses the id from context", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-1")
		if got := RequestID(ctx); got != "req-1" {
			t.Errorf("expected %q, got %q", "req-1", got)
		}
	})

	t.Run("generates a fresh uuid otherwise", func(t *testing.T) {
		// Act
		a := RequestID(context.Background())
		b := RequestID(context.Background())

		// Assert
		if _, err := uuid.Parse(a); err != nil {
			t.Fatalf("expected a uuid, got %q: %v", a, err)
		}
		if a == b {
			t.Error("expected distinct ids")
		}
	})
}

func TestLogAttrs(t *testing.T) {
	if attrs := LogAttrs(context.Background()); len(attrs) != 0 {
		t.Errorf("expected no attrs, got %v", attrs)
	}

	attrs := LogAttrs(WithJobID(context.Background(), "job-9"))
	if len(attrs) != 2 || attrs[0] != "job_id" || attrs[1] != "job-9" {
		t.Errorf("unexpected attrs %v", attrs)
	}
}
