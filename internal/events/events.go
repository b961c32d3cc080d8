// Package events converts the JSON objects emitted by gerrit stream-events
// into typed event records.
//
// Each event line carries a "type" discriminator. Types with a registered
// decoder produce a concrete event struct; types without one produce an
// UnhandledEvent so that new server-side event types never break consumers.
package events

import "encoding/json"

// Event is one record from the gerrit event stream.
type Event interface {
	// EventType returns the wire-format discriminator, e.g. "change-merged".
	EventType() string
}

// base carries the fields shared by every typed event.
type base struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

func (b base) EventType() string { return b.Type }

// UnhandledEvent wraps an event whose type has no registered decoder.
type UnhandledEvent struct {
	base
}

// ErrorEvent reports a failure in the stream itself, injected by the
// stream reader when the remote connection dies. StreamID correlates the
// event with the log lines of the stream invocation that produced it.
type ErrorEvent struct {
	base
	Err      string `json:"error"`
	StreamID string `json:"streamId"`
}

// NewErrorEventJSON returns the wire form of an ErrorEvent for the given
// failure text, suitable for feeding back through the factory.
func NewErrorEventJSON(streamID, errText string) []byte {
	data, _ := json.Marshal(map[string]string{
		"type":     "error-event",
		"error":    errText,
		"streamId": streamID,
	})
	return data
}

// PatchsetCreatedEvent corresponds to "patchset-created".
type PatchsetCreatedEvent struct {
	base
	Change   *Change   `json:"change"`
	Patchset *Patchset `json:"patchSet"`
	Uploader *Account  `json:"uploader"`
}

// DraftPublishedEvent corresponds to "draft-published".
type DraftPublishedEvent struct {
	base
	Change   *Change   `json:"change"`
	Patchset *Patchset `json:"patchSet"`
	Uploader *Account  `json:"uploader"`
}

// CommentAddedEvent corresponds to "comment-added".
type CommentAddedEvent struct {
	base
	Change    *Change    `json:"change"`
	Patchset  *Patchset  `json:"patchSet"`
	Author    *Account   `json:"author"`
	Approvals []Approval `json:"approvals"`
	Comment   string     `json:"comment"`
}

// ChangeMergedEvent corresponds to "change-merged".
type ChangeMergedEvent struct {
	base
	Change    *Change   `json:"change"`
	Patchset  *Patchset `json:"patchSet"`
	Submitter *Account  `json:"submitter"`
}

// MergeFailedEvent corresponds to "merge-failed".
type MergeFailedEvent struct {
	base
	Change    *Change   `json:"change"`
	Patchset  *Patchset `json:"patchSet"`
	Submitter *Account  `json:"submitter"`
	Reason    string    `json:"reason"`
}

// ChangeAbandonedEvent corresponds to "change-abandoned". The patchset is
// optional: old servers omit it for abandons of the initial revision.
type ChangeAbandonedEvent struct {
	base
	Change    *Change   `json:"change"`
	Patchset  *Patchset `json:"patchSet"`
	Abandoner *Account  `json:"abandoner"`
	Reason    string    `json:"reason"`
}

// ChangeRestoredEvent corresponds to "change-restored".
type ChangeRestoredEvent struct {
	base
	Change   *Change   `json:"change"`
	Patchset *Patchset `json:"patchSet"`
	Restorer *Account  `json:"restorer"`
	Reason   string    `json:"reason"`
}

// RefUpdatedEvent corresponds to "ref-updated". Submitter is absent for
// server-initiated updates.
type RefUpdatedEvent struct {
	base
	RefUpdate *RefUpdate `json:"refUpdate"`
	Submitter *Account   `json:"submitter"`
}

// ReviewerAddedEvent corresponds to "reviewer-added".
type ReviewerAddedEvent struct {
	base
	Change   *Change   `json:"change"`
	Patchset *Patchset `json:"patchSet"`
	Reviewer *Account  `json:"reviewer"`
}

// TopicChangedEvent corresponds to "topic-changed".
type TopicChangedEvent struct {
	base
	Change   *Change  `json:"change"`
	Changer  *Account `json:"changer"`
	OldTopic string   `json:"oldTopic"`
}
