package state

import (
	"sync"

	"github.com/alexsears/tentOS/pkg/hass"
)

// eventQueue is an unbounded FIFO between the client read loop and the
// worker. push never blocks.
type eventQueue struct {
	mu     sync.Mutex
	items  []hass.StateChangedEvent
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{signal: make(chan struct{}, 1)}
}

// push appends ev and returns the queue depth.
func (q *eventQueue) push(ev hass.StateChangedEvent) int {
	q.mu.Lock()
	q.items = append(q.items, ev)
	n := len(q.items)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return n
}

func (q *eventQueue) pop() (hass.StateChangedEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return hass.StateChangedEvent{}, false
	}
	ev := q.items[0]
	q.items[0] = hass.StateChangedEvent{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return ev, true
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *eventQueue) ready() <-chan struct{} {
	return q.signal
}
