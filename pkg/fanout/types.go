package fanout

import (
	"fmt"

	"github.com/jdziat/compliscan/pkg/core"
)

// Strategy decides how WatchAll treats jobs that do not finish DONE.
type Strategy string

const (
	StrategyFailFast   Strategy = "fail_fast"
	StrategyCollectAll Strategy = "collect_all"
	StrategyThreshold  Strategy = "threshold"
)

// Result is the outcome of watching one job.
type Result struct {
	Index   int    // Position in the jobIDs slice
	JobID   string
	Job     *core.Job // Last snapshot observed, nil if none arrived
	Items   []core.ResultItem
	HasMore bool
	Err     error
}

// Error lists the jobs that did not finish DONE.
type Error struct {
	TotalCount  int
	FailedCount int
	Strategy    Strategy
	Failures    []Failure
}

func (e *Error) Error() string {
	return fmt.Sprintf("watch failed: %d/%d jobs did not finish", e.FailedCount, e.TotalCount)
}

// Failure describes one job that did not finish DONE.
type Failure struct {
	Index int
	JobID string
	Error string
}
