package player

import (
	"sync"
	"time"
)

// Queue holds one room's pending tracks. Many producers push concurrently,
// but exactly one scheduler goroutine pops, so a single-slot wake channel is
// enough to unpark the consumer. Once closed a queue stays closed.
type Queue struct {
	mu     sync.Mutex
	items  []*Track
	wake   chan struct{}
	closed bool
}

// NewQueue returns an empty open queue.
func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Push appends a track and wakes the consumer if it is blocked in PopWait.
// It returns ErrQueueClosed once the queue has shut down.
func (q *Queue) Push(t *Track) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, t)
	q.mu.Unlock()
	q.signal()
	return nil
}

// PopWait removes and returns the head track, blocking until one is
// available, the queue closes (ErrQueueClosed) or timeout elapses
// (ErrPopTimeout). A push that lands before the timer fires is always
// delivered: the queue is re-checked under the lock after the timer wins
// the select.
func (q *Queue) PopWait(timeout time.Duration) (*Track, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return t, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-timer.C:
			q.mu.Lock()
			if len(q.items) > 0 {
				t := q.items[0]
				q.items = q.items[1:]
				q.mu.Unlock()
				return t, nil
			}
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return nil, ErrQueueClosed
			}
			return nil, ErrPopTimeout
		}
	}
}

// SnapshotAndClear atomically drains the queue and returns what it held.
// It works on a closed queue so terminal paths can release leftovers.
func (q *Queue) SnapshotAndClear() []*Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Snapshot returns a copy of the queue contents in order.
func (q *Queue) Snapshot() []*Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Track, len(q.items))
	copy(out, q.items)
	return out
}

// Transform replaces the queue contents with fn(contents) in one critical
// section, so concurrent pushes, pops and closes never observe a half
// rewritten queue. fn must return the slice to keep and must not retain its
// argument. Transform reports the lengths before and after.
func (q *Queue) Transform(fn func([]*Track) []*Track) (before, after int, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, 0, ErrQueueClosed
	}
	before = len(q.items)
	q.items = fn(q.items)
	return before, len(q.items), nil
}

// CloseIfEmpty closes the queue only when it holds no tracks and reports
// whether the queue is now closed. This is the idle teardown decision: a
// push that won the race keeps the queue open and the consumer keeps going.
func (q *Queue) CloseIfEmpty() bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return true
	}
	if len(q.items) > 0 {
		q.mu.Unlock()
		return false
	}
	q.closed = true
	q.mu.Unlock()
	q.signal()
	return true
}

// Close shuts the queue down and wakes the consumer. Pushes fail with
// ErrQueueClosed from then on. Closing twice is a no-op.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Len reports how many tracks are queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
