package gerrit

import "errors"

// Sentinel errors for callers to discriminate with errors.Is.
var (
	// ErrInvalidArgument marks bad caller input rejected before the
	// transport is contacted.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProtocol marks a malformed server response where well-formed
	// JSON was required.
	ErrProtocol = errors.New("malformed server response")

	// ErrQueueFull is returned when an event cannot be enqueued because
	// the queue is at capacity. It is recoverable: the caller may retry
	// after draining, or drop the event.
	ErrQueueFull = errors.New("queue is full")
)

// QueryError reports an error status returned by the server in the
// terminal record of a query response.
type QueryError struct {
	Message string
}

func (e *QueryError) Error() string {
	return "query error: " + e.Message
}

// EventError reports that raw event data could not become a queued event,
// either because the factory rejected it or because the queue was full.
// Unwrap exposes the underlying cause, so errors.Is(err, ErrQueueFull)
// distinguishes the two.
type EventError struct {
	Err error
}

func (e *EventError) Error() string {
	return "unable to add event: " + e.Err.Error()
}

func (e *EventError) Unwrap() error {
	return e.Err
}
