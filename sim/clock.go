package sim

import (
	"container/heap"
	"fmt"
)

// eventHeap implements heap.Interface with deterministic ordering.
// Order by: time → insertion sequence.
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].Seq < h[j].Seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(Event)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Clock is the simulated clock. It owns the pending event set and only
// advances by dequeuing the earliest pending event, so it never moves backward.
//
// Thread-safety: NOT thread-safe. Each run owns its own Clock.
type Clock struct {
	now    float64
	seq    uint64
	events eventHeap
}

// NewClock creates a Clock whose Now() is start until the first dispatch.
func NewClock(start float64) *Clock {
	c := &Clock{now: start}
	heap.Init(&c.events)
	return c
}

// Now returns the time of the most recently dispatched event.
func (c *Clock) Now() float64 {
	return c.now
}

// Len returns the number of pending events.
func (c *Clock) Len() int {
	return c.events.Len()
}

// Schedule stamps the event with the next insertion sequence and adds it to
// the pending set. Returns the stamped event. Scheduling before Now() is an
// invariant violation.
func (c *Clock) Schedule(e Event) (Event, error) {
	if e.Time < c.now {
		return e, &InvariantViolation{
			Time:      c.now,
			Kind:      e.Kind,
			PatientID: e.PatientID(),
			Detail:    fmt.Sprintf("event at %.3f scheduled behind clock", e.Time),
			Err:       ErrPastEvent,
		}
	}
	c.seq++
	e.Seq = c.seq
	heap.Push(&c.events, e)
	return e, nil
}

// Next removes the earliest pending event and advances the clock to its time.
// Returns false when no events are pending.
func (c *Clock) Next() (Event, bool) {
	if c.events.Len() == 0 {
		return Event{}, false
	}
	e := heap.Pop(&c.events).(Event)
	c.now = e.Time
	return e, true
}

// Peek returns the earliest pending event without removing it.
func (c *Clock) Peek() (Event, bool) {
	if c.events.Len() == 0 {
		return Event{}, false
	}
	return c.events[0], true
}
