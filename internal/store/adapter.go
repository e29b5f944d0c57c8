package store

import (
	"context"
	"errors"
)

// ErrClosed is returned when an operation is submitted after Close.
var ErrClosed = errors.New("store: worker closed")

type job struct {
	fn   func() error
	done chan error
}

// worker executes submitted operations one at a time, in submission order,
// on a single goroutine. The database connection is not safe for concurrent
// direct use; funneling every operation through one queue is what keeps
// cursor state and transaction boundaries from interleaving.
type worker struct {
	jobs chan job
	quit chan struct{}
}

func newWorker() *worker {
	w := &worker{
		jobs: make(chan job),
		quit: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *worker) loop() {
	for {
		select {
		case j := <-w.jobs:
			j.done <- j.fn()
		case <-w.quit:
			return
		}
	}
}

// submit runs fn on the worker goroutine and waits for its result. Errors
// from fn propagate unchanged; no retry, no interpretation. If ctx is
// cancelled while waiting, submit returns early but the operation still
// runs to completion on the worker.
func (w *worker) submit(ctx context.Context, fn func() error) error {
	j := job{fn: fn, done: make(chan error, 1)}
	select {
	case w.jobs <- j:
	case <-w.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops the worker. Operations already accepted finish first;
// submit must not be called afterwards.
func (w *worker) close() {
	close(w.quit)
}
