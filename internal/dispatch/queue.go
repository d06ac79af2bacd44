package dispatch

import (
	"sync"

	"github.com/roach88/joincode/internal/bot"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeCommand is a slash command invocation.
	EventTypeCommand EventType = iota + 1
	// EventTypeComponent is a button press.
	EventTypeComponent
)

func (t EventType) String() string {
	switch t {
	case EventTypeCommand:
		return "command"
	case EventTypeComponent:
		return "component"
	default:
		return "unknown"
	}
}

// ReplyFunc delivers a handler response back to the platform.
type ReplyFunc func(bot.Response) error

// Event wraps an inbound interaction and the way to answer it.
type Event struct {
	Type      EventType
	Command   *bot.CommandInvocation
	Component *bot.ComponentInteraction
	Reply     ReplyFunc
}

// eventQueue is a thread-safe unbounded FIFO queue for events.
//
// The gateway enqueues from its own goroutines while the Dispatcher's Run
// loop dequeues. A buffered signal channel lets Run wait on the queue and
// ctx.Done() in the same select.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Coalesce: one pending signal is enough to wake Run.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	// Drop the reference so the reply closure can be collected.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available.
// It is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops further enqueues and wakes any waiter.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
