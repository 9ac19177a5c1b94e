package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdziat/compliscan/pkg/core"
)

// Schedule computes the next run time after from.
type Schedule interface {
	Next(from time.Time) time.Time
}

// everySchedule runs at fixed intervals.
type everySchedule struct {
	interval time.Duration
}

// Every creates a schedule that runs at fixed intervals.
func Every(d time.Duration) Schedule {
	return &everySchedule{interval: d}
}

func (s *everySchedule) Next(from time.Time) time.Time {
	return from.Add(s.interval)
}

func (s *everySchedule) String() string {
	return "every " + s.interval.String()
}

// cronSchedule wraps a cron expression.
type cronSchedule struct {
	expr     string
	schedule cron.Schedule
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Cron creates a schedule from a five-field cron expression or a descriptor
// such as "@hourly" or "@every 30s".
func Cron(expr string) (Schedule, error) {
	s, err := parser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid cron expression %q: %v", core.ErrInvalidArgument, expr, err)
	}
	return &cronSchedule{expr: expr, schedule: s}, nil
}

// MustCron is like Cron but panics on an invalid expression.
func MustCron(expr string) Schedule {
	s, err := Cron(expr)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *cronSchedule) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

func (s *cronSchedule) String() string {
	return s.expr
}

// Parse accepts a positive Go duration ("30s", "5m") or a cron expression.
func Parse(spec string) (Schedule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("%w: empty schedule", core.ErrInvalidArgument)
	}
	if d, err := time.ParseDuration(spec); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("%w: schedule interval must be positive", core.ErrInvalidArgument)
		}
		return Every(d), nil
	}
	return Cron(spec)
}

// Run calls fn at every time s yields until ctx is done. fn runs on the
// calling goroutine, so a slow call delays rather than overlaps the next one.
func Run(ctx context.Context, s Schedule, fn func(context.Context)) error {
	for {
		next := s.Next(time.Now())
		if next.IsZero() {
			return nil
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			fn(ctx)
		}
	}
}
