// eventqueue.go - Min-priority event queue for the discrete-event scheduler

package ga144

import "container/heap"

// EventType distinguishes a node advance from a serial bit edge (§3).
type EventType uint8

const (
	EventNode EventType = iota
	EventSerial
)

// Event is one scheduled occurrence: a node due to execute its next
// instruction, or a serial bit-schedule edge due to fire.
type Event struct {
	Time    float64
	Type    EventType
	Payload uint16

	seq   uint64
	index int
}

// eventQueueCapacity is the ≈1024 bound from spec.md §4.3.
const eventQueueCapacity = 1024

// epsilonNS nudges an arrival whose time exactly matches an existing event,
// giving every event a distinct time and therefore a total order.
const epsilonNS = 0.001

// eventHeap is the container/heap.Interface implementation backing
// EventQueue. Lower Time sorts first; equal times (which EventQueue's
// Insert never actually produces, see below) break ties by seq.
type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	e := x.(*Event)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// EventQueue is a bounded min-heap of Events ordered by Time, with a
// deterministic tie-break for events that arrive at exactly the same
// simulated time (§4.3): the new arrival is nudged forward by epsilonNS
// until its time is distinct from every pending event's, so the dequeued
// time sequence is strictly increasing within any group of ties.
type EventQueue struct {
	h       eventHeap
	nextSeq uint64
	pending map[float64]int
}

// NewEventQueue returns an empty queue pre-sized to eventQueueCapacity.
func NewEventQueue() *EventQueue {
	q := &EventQueue{
		h:       make(eventHeap, 0, eventQueueCapacity),
		pending: make(map[float64]int, eventQueueCapacity),
	}
	heap.Init(&q.h)
	return q
}

// Len reports the number of pending events.
func (q *EventQueue) Len() int { return q.h.Len() }

// Insert adds an event at t, nudging it forward by epsilonNS while t
// collides with a pending event's time, and returns ErrQueueOverflow if
// the queue is at capacity.
func (q *EventQueue) Insert(t float64, typ EventType, payload uint16) error {
	if q.h.Len() >= eventQueueCapacity {
		return ErrQueueOverflow{Capacity: eventQueueCapacity}
	}
	for q.pending[t] > 0 {
		t += epsilonNS
	}
	q.pending[t]++
	e := &Event{Time: t, Type: typ, Payload: payload, seq: q.nextSeq}
	q.nextSeq++
	heap.Push(&q.h, e)
	return nil
}

// PeekTime returns the time of the soonest pending event and true, or
// (0, false) if the queue is empty.
func (q *EventQueue) PeekTime() (float64, bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	return q.h[0].Time, true
}

// Dequeue removes and returns the soonest pending event.
func (q *EventQueue) Dequeue() (Event, bool) {
	if q.h.Len() == 0 {
		return Event{}, false
	}
	e := heap.Pop(&q.h).(*Event)
	q.release(e.Time)
	return *e, true
}

func (q *EventQueue) release(t float64) {
	if q.pending[t] <= 1 {
		delete(q.pending, t)
	} else {
		q.pending[t]--
	}
}

// RemoveAllMatching deletes every pending event of the given type and
// payload, used when a node suspends to cancel its pending wake (§4.3).
func (q *EventQueue) RemoveAllMatching(typ EventType, payload uint16) {
	kept := q.h[:0]
	for _, e := range q.h {
		if e.Type == typ && e.Payload == payload {
			q.release(e.Time)
			continue
		}
		kept = append(kept, e)
	}
	q.h = kept
	heap.Init(&q.h)
}
