package engine

import "github.com/teslashibe/go-reachy-face/pkg/convstate"

// eventQueue is the bounded inbound session event queue. Producers push from
// any goroutine under the engine mutex; the tick loop drains it at the top
// of each tick.
//
// Overflow policy: the oldest non-critical event is evicted first. Faults
// and tts_finished are never dropped; losing either would strand the
// conversation state machine.
type eventQueue struct {
	limit   int
	items   []convstate.Event
	dropped uint64
}

func newEventQueue(limit int) *eventQueue {
	if limit <= 0 {
		limit = 64
	}
	return &eventQueue{limit: limit}
}

// push enqueues ev, evicting if needed. Returns false only when a
// non-critical event had to be rejected outright.
func (q *eventQueue) push(ev convstate.Event) bool {
	if len(q.items) < q.limit {
		q.items = append(q.items, ev)
		return true
	}

	for i, e := range q.items {
		if !e.Critical() {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.items = append(q.items, ev)
			q.dropped++
			return true
		}
	}

	// Queue is all critical events. Critical arrivals still get in; the
	// queue grows past its bound rather than lose them.
	if ev.Critical() {
		q.items = append(q.items, ev)
		return true
	}

	q.dropped++
	return false
}

// drain removes and returns all queued events in arrival order.
func (q *eventQueue) drain() []convstate.Event {
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *eventQueue) len() int {
	return len(q.items)
}
