// Package queue serializes mutating work so that at most one unit runs at a time.
package queue

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned for work submitted after Close.
var ErrClosed = errors.New("queue closed")

type job struct {
	fn       func() error
	queuedAt time.Time
	done     chan error
}

// Queue runs submitted units one at a time in submission order.
// A unit that fails or panics does not affect the units behind it.
type Queue struct {
	jobs    chan job
	quit    chan struct{}
	stopped chan struct{}
	pending atomic.Int64

	mu     sync.RWMutex
	closed bool

	// OnWait, if set, is called with the time each unit spent queued before it started.
	OnWait func(time.Duration)
}

// New starts the worker goroutine.
func New() *Queue {
	q := &Queue{
		jobs:    make(chan job),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *Queue) loop() {
	defer close(q.stopped)
	for {
		select {
		case j := <-q.jobs:
			if q.OnWait != nil {
				q.OnWait(time.Since(j.queuedAt))
			}
			j.done <- runSafe(j.fn)
			q.pending.Add(-1)
		case <-q.quit:
			return
		}
	}
}

func runSafe(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queued task panicked: %v", r)
		}
	}()
	return fn()
}

// Do submits fn and blocks until it has settled, returning its error.
func (q *Queue) Do(fn func() error) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrClosed
	}
	q.pending.Add(1)
	j := job{fn: fn, queuedAt: time.Now(), done: make(chan error, 1)}
	// Close waits for the write lock, so the worker is still running here.
	q.jobs <- j
	q.mu.RUnlock()
	return <-j.done
}

// Run is Do for units that produce a value.
func Run[T any](q *Queue, fn func() (T, error)) (T, error) {
	var out T
	err := q.Do(func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Pending returns the number of units queued or running.
func (q *Queue) Pending() int {
	return int(q.pending.Load())
}

// Close rejects new work and stops the worker once everything already
// submitted has been handed to it.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.quit)
	<-q.stopped
}
