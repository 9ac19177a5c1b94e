package core

import "time"

// Event is the interface for all poller events.
type Event interface {
	eventMarker()
}

// JobUpdated is emitted for every job snapshot observed while polling.
type JobUpdated struct {
	Job       *Job
	Timestamp time.Time
}

func (*JobUpdated) eventMarker() {}

// ResultsLoaded is emitted when a results page has been applied.
type ResultsLoaded struct {
	JobID     string
	Added     int
	Total     int
	HasMore   bool
	Timestamp time.Time
}

func (*ResultsLoaded) eventMarker() {}

// JobSettled is emitted once when polling reaches a terminal state.
// Err is nil for a DONE job whose first page loaded.
type JobSettled struct {
	Job       *Job
	Err       error
	Timestamp time.Time
}

func (*JobSettled) eventMarker() {}
