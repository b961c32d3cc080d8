package gerrit

import (
	"sync"
	"time"

	"github.com/sonyxperiadev/gogerrit/internal/events"
)

// DefaultQueueCapacity is the event queue capacity used when no explicit
// capacity is configured.
const DefaultQueueCapacity = 1024

// EventQueue is a bounded, insertion-ordered buffer between the stream
// reader and event consumers.
//
// All methods are safe for concurrent use. TryPut never blocks: when the
// queue is at capacity the event is rejected with ErrQueueFull and the
// queue contents are untouched. Clear is atomic with respect to concurrent
// TryPut and Get calls.
type EventQueue struct {
	mu       sync.Mutex
	items    []events.Event
	capacity int

	// wake is closed and replaced on every successful put, waking all
	// blocked Get calls so they re-check the buffer.
	wake chan struct{}
}

// NewEventQueue returns an empty queue with the given capacity. Capacities
// below 1 fall back to DefaultQueueCapacity.
func NewEventQueue(capacity int) *EventQueue {
	if capacity < 1 {
		capacity = DefaultQueueCapacity
	}
	return &EventQueue{
		items:    make([]events.Event, 0, capacity),
		capacity: capacity,
		wake:     make(chan struct{}),
	}
}

// TryPut appends event to the queue, or fails with ErrQueueFull.
func (q *EventQueue) TryPut(event events.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		return ErrQueueFull
	}
	q.items = append(q.items, event)
	close(q.wake)
	q.wake = make(chan struct{})
	return nil
}

// Get pops the oldest event. With block false it returns nil immediately
// when the queue is empty. With block true it waits until an event arrives;
// a positive timeout bounds the wait, a timeout of zero or less waits
// indefinitely. Returns nil when the wait ends without an event.
func (q *EventQueue) Get(block bool, timeout time.Duration) events.Event {
	var expired <-chan time.Time
	if block && timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			event := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return event
		}
		if !block {
			q.mu.Unlock()
			return nil
		}
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-expired:
			// One last check: an event may have arrived in the same
			// instant the timer fired.
			q.mu.Lock()
			var event events.Event
			if len(q.items) > 0 {
				event = q.items[0]
				q.items = q.items[1:]
			}
			q.mu.Unlock()
			return event
		}
	}
}

// Clear discards all buffered events.
func (q *EventQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}

// Len returns the number of buffered events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the fixed capacity.
func (q *EventQueue) Cap() int {
	return q.capacity
}
