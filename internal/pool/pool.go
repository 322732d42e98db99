/*
Package pool provides a bounded worker pool with a per-run barrier.

Pool is created for a single iteration pass and must be closed when the
pass ends. Run dispatches a set of indexed tasks and blocks until all of
them are completed or one of them fails. The pool never processes two runs
at the same time unless Run is called concurrently by the caller.
*/
package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned when Run is called on closed pool.
var ErrClosed = errors.New("pool is closed")

// TaskError is returned by Run when one of the tasks failed.
type TaskError struct {
	Index int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d: %v", e.Index, e.Err)
}

// Unwrap returns the task failure.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// Logger is used to report pool lifecycle.
type Logger interface {
	Debug(...interface{})
}

type silentLogger struct{}

func (silentLogger) Debug(...interface{}) {}

// Pool is a fixed set of worker goroutines.
type Pool struct {
	workers int
	tasks   chan task
	group   errgroup.Group
	log     Logger

	m      sync.RWMutex
	closed bool
}

// task is a single indexed call of run function.
type task struct {
	index int
	fn    func(int) error
	*barrier
}

// barrier tracks completion of a single Run.
type barrier struct {
	remaining atomic.Int64
	done      chan struct{}
	failOnce  sync.Once
	failed    chan struct{}
	err       error
}

func newBarrier(n int) *barrier {
	b := barrier{
		done:   make(chan struct{}),
		failed: make(chan struct{}),
	}
	b.remaining.Store(int64(n))
	return &b
}

func (b *barrier) fail(err error) {
	b.failOnce.Do(func() {
		b.err = err
		close(b.failed)
	})
}

func (b *barrier) isFailed() bool {
	select {
	case <-b.failed:
		return true
	default:
		return false
	}
}

// complete marks n tasks as finished.
func (b *barrier) complete(n int) {
	if b.remaining.Add(-int64(n)) == 0 {
		close(b.done)
	}
}

// New starts a pool with provided number of workers. If workers is not
// positive, GOMAXPROCS workers are started.
func New(workers int, logger Logger) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = silentLogger{}
	}
	p := Pool{
		workers: workers,
		tasks:   make(chan task),
		log:     logger,
	}
	for i := 0; i < workers; i++ {
		p.group.Go(p.work)
	}
	p.log.Debug(fmt.Sprintf("pool started with %d workers", workers))
	return &p
}

// Workers returns number of workers in the pool.
func (p *Pool) Workers() int {
	return p.workers
}

func (p *Pool) work() error {
	for t := range p.tasks {
		// results of failed run are discarded anyway
		if !t.isFailed() {
			if err := call(t.fn, t.index); err != nil {
				t.fail(&TaskError{Index: t.index, Err: err})
			}
		}
		t.complete(1)
	}
	return nil
}

// call executes the task function and recovers panic.
func call(fn func(int) error, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(i)
}

// Run dispatches n tasks and blocks until all of them are completed. If
// any task fails, Run returns *TaskError without waiting for the rest.
// Tasks that were not started before the failure are skipped.
func (p *Pool) Run(ctx context.Context, n int, fn func(int) error) error {
	p.m.RLock()
	defer p.m.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if n == 0 {
		return nil
	}

	b := newBarrier(n)
	for i := 0; i < n; i++ {
		select {
		case p.tasks <- task{index: i, fn: fn, barrier: b}:
		case <-b.failed:
			b.complete(n - i)
			return b.err
		case <-ctx.Done():
			b.fail(ctx.Err())
			b.complete(n - i)
			return ctx.Err()
		}
	}

	select {
	case <-b.done:
		// failure of the last task closes both channels
		if b.isFailed() {
			return b.err
		}
		return nil
	case <-b.failed:
		return b.err
	case <-ctx.Done():
		b.fail(ctx.Err())
		return ctx.Err()
	}
}

// Close stops accepting tasks and waits for all workers to return.
// Dispatched tasks are finished before Close returns. It's safe to call
// Close multiple times.
func (p *Pool) Close() {
	p.m.Lock()
	if p.closed {
		p.m.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.m.Unlock()
	_ = p.group.Wait()
	p.log.Debug("pool closed")
}
