package gerrit

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sonyxperiadev/gogerrit/internal/events"
)

// streamEventsCommand is the long-running remote invocation whose output
// is a continuous feed of JSON event lines.
const streamEventsCommand = "stream-events"

// Reader lifecycle. A reader is single-use: once stopped it is discarded
// and a new stream start builds a fresh reader over a fresh invocation.
const (
	readerIdle int32 = iota
	readerRunning
	readerStopping
	readerStopped
)

// streamReader pulls event lines from one stream-events invocation and
// forwards them to the client for enqueueing.
//
// Malformed JSON on a single line is noise: it is logged and the loop
// continues. A failed read is fatal: an error-event is injected into the
// queue and the reader stops. Interrupting a blocked read relies on
// closing the handle, not on the state flag, so stop unblocks promptly.
type streamReader struct {
	id     string
	client *Client
	handle StreamHandle

	state    atomic.Int32
	stopOnce sync.Once
	done     chan struct{}
}

func newStreamReader(client *Client, handle StreamHandle) *streamReader {
	return &streamReader{
		id:     uuid.NewString(),
		client: client,
		handle: handle,
		done:   make(chan struct{}),
	}
}

// start launches the read loop. Must be called exactly once.
func (r *streamReader) start() {
	r.state.Store(readerRunning)
	go r.run()
}

func (r *streamReader) run() {
	defer close(r.done)
	defer r.state.Store(readerStopped)

	r.client.logf("stream %s: started", r.id)
	for {
		line, err := r.handle.ReadLine()
		if err != nil {
			if r.state.Load() == readerStopping {
				return
			}
			r.fail(err)
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !json.Valid([]byte(line)) {
			r.client.logf("stream %s: skipping malformed event line", r.id)
			continue
		}
		if err := r.client.PutEvent([]byte(line)); err != nil {
			// Recoverable: a full queue or an undecodable event must not
			// kill the stream.
			r.client.logf("stream %s: dropping event: %v", r.id, err)
		}
	}
}

// fail reports a fatal read error both to the log and, in-band, to the
// event queue so consumers observe the stream's death.
func (r *streamReader) fail(err error) {
	message := err.Error()
	if errors.Is(err, io.EOF) {
		message = "remote server connection closed"
	}
	r.client.logf("stream %s: terminated: %s", r.id, message)

	data := events.NewErrorEventJSON(r.id, message)
	if putErr := r.client.PutEvent(data); putErr != nil {
		r.client.logf("stream %s: dropping error event: %v", r.id, putErr)
	}
}

// stop requests termination, force-closes the handle to unblock any
// in-flight read, and waits for the read loop to exit. Safe to call
// concurrently and more than once.
func (r *streamReader) stop() {
	r.stopOnce.Do(func() {
		r.state.CompareAndSwap(readerRunning, readerStopping)
		if err := r.handle.Close(); err != nil {
			r.client.logf("stream %s: close failed: %v", r.id, err)
		}
	})
	<-r.done
}
