package core

import (
	"errors"
	"fmt"
)

// DefaultFailureMessage is shown for a FAILED job that carries no error text.
const DefaultFailureMessage = "Processing failed"

// Validation and flow errors
var (
	ErrInvalidArgument = errors.New("compliscan: invalid argument")
	ErrJobIDTooLong    = fmt.Errorf("%w: job id too long", ErrInvalidArgument)
	ErrLoadInProgress  = errors.New("compliscan: a page load is already in progress")
	ErrPollerStarted   = errors.New("compliscan: poller already started")
)

// HTTPError is a non-2xx response from the backend.
// Message is already human-readable: it comes from the body's message or
// error field, the raw body text, or "HTTP <status>".
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// Unauthorized reports whether the backend rejected the credential.
func (e *HTTPError) Unauthorized() bool {
	return e.Status == 401 || e.Status == 403
}

// TransportError is a network-level failure where no response was received.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError means a response body could not be interpreted as the expected structure.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode %s: no structured data", e.What)
	}
	return fmt.Sprintf("decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// JobFailedError surfaces a job that reached the FAILED status.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return e.Message
}

// NewJobFailedError builds the failure for job, falling back to DefaultFailureMessage.
func NewJobFailedError(job *Job) *JobFailedError {
	msg := DefaultFailureMessage
	id := ""
	if job != nil {
		id = job.JobID
		if job.Error != "" {
			msg = job.Error
		}
	}
	return &JobFailedError{JobID: id, Message: msg}
}

// Message returns the user-visible text for err.
// HTTP and job failures are shown verbatim; transport failures show the
// underlying cause.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	var failed *JobFailedError
	if errors.As(err, &failed) {
		return failed.Message
	}
	var transport *TransportError
	if errors.As(err, &transport) && transport.Err != nil {
		return transport.Err.Error()
	}
	return err.Error()
}
