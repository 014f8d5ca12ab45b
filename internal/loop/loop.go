// Package loop is the hand-off between producer goroutines and the single
// goroutine that owns display state.
//
// Functions posted from any goroutine run one at a time, in post order, on
// whichever goroutine calls RunPending. In the terminal UI that is the
// Bubble Tea update loop; Loop provides a standalone goroutine for headless
// use and tests.
package loop

import (
	"context"
	"sync"
)

// Scheduler accepts work for the UI-owning goroutine
type Scheduler interface {
	Post(fn func())
}

// Queue is an unbounded FIFO of posted functions
type Queue struct {
	mu     sync.Mutex
	fns    []func()
	wake   func()
	closed bool
}

// NewQueue creates a queue. wake is called, outside the lock, each time the
// queue goes from empty to non-empty; it must not block.
func NewQueue(wake func()) *Queue {
	return &Queue{wake: wake}
}

// SetWake replaces the wake function. Used when the consumer is created
// after the queue.
func (q *Queue) SetWake(wake func()) {
	q.mu.Lock()
	q.wake = wake
	pending := len(q.fns) > 0
	q.mu.Unlock()

	if pending && wake != nil {
		wake()
	}
}

// Post appends fn. Safe from any goroutine. Posting to a closed queue is a no-op.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	wasEmpty := len(q.fns) == 0
	q.fns = append(q.fns, fn)
	wake := q.wake
	q.mu.Unlock()

	if wasEmpty && wake != nil {
		wake()
	}
}

// RunPending runs everything queued so far, including work posted by the
// functions themselves, and returns how many ran.
func (q *Queue) RunPending() int {
	ran := 0
	for {
		q.mu.Lock()
		batch := q.fns
		q.fns = nil
		q.mu.Unlock()

		if len(batch) == 0 {
			return ran
		}
		for _, fn := range batch {
			fn()
			ran++
		}
	}
}

// Len reports how many functions are waiting
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

// Close drops pending work and rejects further posts
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.fns = nil
	q.mu.Unlock()
}

// Loop runs a Queue on its own goroutine
type Loop struct {
	*Queue
	signal chan struct{}
}

// New creates a loop; call Run to start consuming
func New() *Loop {
	l := &Loop{signal: make(chan struct{}, 1)}
	l.Queue = NewQueue(func() {
		select {
		case l.signal <- struct{}{}:
		default:
		}
	})
	return l
}

// Run drains posted work until ctx is done
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.signal:
		}
	}
}

// Sync posts a marker and waits until everything posted before it has run
func (l *Loop) Sync(ctx context.Context) error {
	done := make(chan struct{})
	l.Post(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
