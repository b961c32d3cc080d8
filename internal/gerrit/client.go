// Package gerrit provides the client for driving a Gerrit code-review
// server over its SSH command interface: one-shot commands, JSON queries,
// and the stream-events feed buffered through a bounded in-process queue.
package gerrit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sonyxperiadev/gogerrit/internal/events"
)

// maxLineBytes bounds a single response line. Query records for changes
// with long commit messages routinely exceed bufio.Scanner's default.
const maxLineBytes = 1024 * 1024

// Session is the transport contract the client consumes. The SSH
// implementation lives in internal/ssh; tests substitute fakes.
type Session interface {
	// RunCommand executes one gerrit command and returns its output
	// handle. Closing the handle releases the remote invocation.
	RunCommand(ctx context.Context, command string) (io.ReadCloser, error)

	// OpenStream starts a long-running gerrit command and returns a
	// line-oriented handle. Close unblocks any in-flight ReadLine.
	OpenStream(ctx context.Context, command string) (StreamHandle, error)

	// RemoteVersion returns the server's version string.
	RemoteVersion(ctx context.Context) (string, error)

	// RemoteInfo returns the connected username and the server version.
	RemoteInfo(ctx context.Context) (string, string, error)
}

// StreamHandle is the readable side of one streaming invocation.
type StreamHandle interface {
	ReadLine() (string, error)
	Close() error
}

// Client is the single entry point for command execution, querying, and
// event stream control against one Gerrit server.
//
// Command and query execution may be called from multiple goroutines; the
// transport serializes request/response use. At most one event stream is
// active per client at any time.
type Client struct {
	session Session
	factory *events.Factory
	queue   *EventQueue
	logf    func(format string, args ...any)

	mu     sync.Mutex // guards stream
	stream *streamReader
}

// Option configures a Client.
type Option func(*Client)

// WithQueueCapacity sets the bounded event queue capacity.
func WithQueueCapacity(capacity int) Option {
	return func(c *Client) {
		c.queue = NewEventQueue(capacity)
	}
}

// WithFactory substitutes the event factory, e.g. one with extra event
// types registered.
func WithFactory(factory *events.Factory) Option {
	return func(c *Client) {
		c.factory = factory
	}
}

// WithLogf sets the diagnostic log hook. The client reports stream noise
// and dropped events through it; by default diagnostics are discarded.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(c *Client) {
		c.logf = logf
	}
}

// New returns a client over the given transport session.
func New(session Session, opts ...Option) *Client {
	c := &Client{
		session: session,
		factory: events.NewFactory(),
		queue:   NewEventQueue(DefaultQueueCapacity),
		logf:    func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Version returns the version of the connected Gerrit server.
func (c *Client) Version(ctx context.Context) (string, error) {
	return c.session.RemoteVersion(ctx)
}

// Info returns the connected username and server version.
func (c *Client) Info(ctx context.Context) (username, version string, err error) {
	return c.session.RemoteInfo(ctx)
}

// RunCommand executes one gerrit command and returns the raw output
// handle. The caller owns the handle and must close it.
func (c *Client) RunCommand(ctx context.Context, command string) (io.ReadCloser, error) {
	if err := validateArgument("command", command); err != nil {
		return nil, err
	}
	return c.session.RunCommand(ctx, command)
}

// queryLine distinguishes the records of a query response: the terminal
// status record carries "type", substantive change records carry
// "project". Pointers detect field presence rather than emptiness.
type queryLine struct {
	Type    *string `json:"type"`
	Message string  `json:"message"`
	Project *string `json:"project"`
}

// Query searches for changes matching term and returns them in the order
// the server sent them.
//
// The whole call fails on the first malformed line (ErrProtocol) or on an
// error status record (*QueryError); no partial results are returned.
// Lines that are neither error records nor change records are skipped, so
// new status-only records from future servers stay harmless.
func (c *Client) Query(ctx context.Context, term string) ([]events.Change, error) {
	if err := validateArgument("term", term); err != nil {
		return nil, err
	}

	command := fmt.Sprintf(
		"query --current-patch-set --all-approvals --format JSON --commit-message %s",
		quoteArg(term))
	out, err := c.session.RunCommand(ctx, command)
	if err != nil {
		return nil, err
	}
	defer out.Close()

	var results []events.Change
	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record queryLine
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
		}
		switch {
		case record.Type != nil && *record.Type == "error":
			return nil, &QueryError{Message: record.Message}
		case record.Project != nil:
			var change events.Change
			if err := json.Unmarshal([]byte(line), &change); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
			}
			results = append(results, change)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading query response: %w", err)
	}
	return results, nil
}

// StartEventStream starts the background event stream reader. Idempotent:
// if a stream is already active the call does nothing.
func (c *Client) StartEventStream(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil
	}
	handle, err := c.session.OpenStream(ctx, streamEventsCommand)
	if err != nil {
		return fmt.Errorf("starting event stream: %w", err)
	}
	reader := newStreamReader(c, handle)
	reader.start()
	c.stream = reader
	return nil
}

// StopEventStream stops the active stream, waits for the reader to fully
// terminate, and clears all buffered events. When StopEventStream returns
// the queue is quiescent. Idempotent: a no-op without an active stream.
func (c *Client) StopEventStream() {
	c.mu.Lock()
	reader := c.stream
	c.stream = nil
	c.mu.Unlock()

	if reader == nil {
		return
	}
	reader.stop()
	c.queue.Clear()
}

// GetEvent pops the next event. With block false an empty queue returns
// nil immediately and timeout is ignored. With block true a positive
// timeout bounds the wait, returning nil if no event arrives in time,
// while a timeout of zero or less waits indefinitely. There is no
// zero-duration bounded blocking wait; use block false for an immediate
// check.
func (c *Client) GetEvent(block bool, timeout time.Duration) events.Event {
	return c.queue.Get(block, timeout)
}

// PutEvent builds an event from raw JSON data and enqueues it. Both the
// stream reader and tests inject events through here. Factory rejection
// and a full queue surface as *EventError; the latter unwraps to
// ErrQueueFull and is recoverable.
func (c *Client) PutEvent(data []byte) error {
	event, err := c.factory.Create(data)
	if err != nil {
		return &EventError{Err: err}
	}
	if err := c.queue.TryPut(event); err != nil {
		return &EventError{Err: err}
	}
	return nil
}

// validateArgument rejects caller input the command line cannot carry:
// empty strings and embedded line breaks.
func validateArgument(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, name)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %s must be a single line", ErrInvalidArgument, name)
	}
	return nil
}
