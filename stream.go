package augment

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"pipelined.dev/augment/batch"
	"pipelined.dev/augment/internal/pool"
	"pipelined.dev/augment/metric"
)

// Logger is a global interface for stream loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
}

// Stream pulls values from the source, accumulates them into batches and
// augments every value of the batch concurrently before the batch is
// released.
//
// Stream doesn't hold workers between iterations. Every call of Batches
// starts a new Pass with its own worker pool, the pool is stopped when
// iteration is over. Only one pass can be active at a time.
type Stream struct {
	uid     string
	name    string
	source  batch.Source[Value]
	batcher *batch.Batcher[Value]
	workers int
	chain   Chain
	order   batch.Order
	log     Logger
	metered bool
	meter   metric.ResetFunc

	active atomic.Bool
}

// defaultMetricName groups metrics of unnamed streams.
const defaultMetricName = "stream"

// newUID returns new unique id value.
func newUID() string {
	return xid.New().String()
}

// New creates a new stream and applies provided options. Batch size must
// be positive.
func New(src batch.Source[Value], batchSize int, options ...Option) (*Stream, error) {
	if batchSize <= 0 {
		return nil, &ConfigError{
			Field:  "batch size",
			Value:  batchSize,
			Reason: "must be positive",
		}
	}
	if src == nil {
		return nil, &ConfigError{
			Field:  "source",
			Value:  src,
			Reason: "must be provided",
		}
	}
	s := &Stream{
		uid:    newUID(),
		source: src,
		chain:  NewChain(),
		order:  batch.Sequential(),
		log:    defaultLogger,
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	b, err := batch.NewBatcher[Value](batchSize, s.order)
	if err != nil {
		return nil, &ConfigError{
			Field:  "batch size",
			Value:  batchSize,
			Reason: err.Error(),
		}
	}
	s.batcher = b
	if s.metered {
		name := s.name
		if name == "" {
			name = defaultMetricName
		}
		s.meter = metric.Meter(name)
	}
	return s, nil
}

// BatchSize returns capacity of batches.
func (s *Stream) BatchSize() int {
	return s.batcher.Size()
}

// Chain returns augments applied by the stream.
func (s *Stream) Chain() Chain {
	return s.chain
}

// Begin starts a new pass and its worker pool. The pass must be closed
// when it's not needed anymore.
func (s *Stream) Begin() (*Pass, error) {
	if !s.active.CompareAndSwap(false, true) {
		return nil, &PoolLifecycleError{Op: "begin pass", Err: ErrActive}
	}
	p := &Pass{
		id:     uuid.NewString(),
		stream: s,
		pool:   pool.New(s.workers, s.log),
	}
	if s.meter != nil {
		p.measure = s.meter()
	}
	s.log.Debug(fmt.Sprintf("%v: pass %v started with %d workers", s, p.id, p.pool.Workers()))
	return p, nil
}

// Batches returns a sequence of augmented batches. Every batch is yielded
// only after all its values are augmented. The worker pool is stopped on
// every exit path: source end, consumer break, error or context
// cancellation. Errors are yielded after the pool is stopped.
func (s *Stream) Batches(ctx context.Context) iter.Seq2[[]Value, error] {
	return func(yield func([]Value, error) bool) {
		p, err := s.Begin()
		if err != nil {
			yield(nil, err)
			return
		}
		defer p.Close()

		for b, err := range s.batcher.Batches(ctx, s.source, p) {
			if err != nil {
				p.Close()
				s.log.Info(fmt.Sprintf("%v: pass %v failed: %v", s, p.id, err))
				yield(nil, err)
				return
			}
			if !yield(b, nil) {
				return
			}
		}
	}
}

// Collect drains the stream and returns all batches.
func (s *Stream) Collect(ctx context.Context) ([][]Value, error) {
	var batches [][]Value
	for b, err := range s.Batches(ctx) {
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// String returns stream name and id.
func (s *Stream) String() string {
	if s.name == "" {
		return s.uid
	}
	return fmt.Sprintf("%v %v", s.name, s.uid)
}

// Pass is a single iteration over the stream. It owns the worker pool
// which is used to augment all batches of this iteration.
type Pass struct {
	id      string
	stream  *Stream
	pool    *pool.Pool
	measure metric.MeasureFunc

	m       sync.Mutex
	closed  bool
	applies atomic.Bool
}

// ID returns unique id of the pass.
func (p *Pass) ID() string {
	return p.id
}

// ApplyAugmentsThreaded dispatches one task per slot to the worker pool
// and blocks until all tasks are done or one of them fails. Augmented
// values are written back into the same slots. If any slot failed, slots
// content is undefined.
func (p *Pass) ApplyAugmentsThreaded(ctx context.Context, slots []Value) error {
	const op = "apply augments"
	if !p.applies.CompareAndSwap(false, true) {
		return &PoolLifecycleError{Op: op, Err: ErrActive}
	}
	defer p.applies.Store(false)

	p.m.Lock()
	closed := p.closed
	p.m.Unlock()
	if closed {
		return &PoolLifecycleError{Op: op, Err: ErrNotActive}
	}

	chain := p.stream.chain
	err := p.pool.Run(ctx, len(slots), func(i int) error {
		v, err := chain.Apply(slots[i])
		if err != nil {
			return err
		}
		slots[i] = v
		return nil
	})
	var taskErr *pool.TaskError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &taskErr):
		return &WorkerTaskError{Slot: taskErr.Index, Err: taskErr.Err}
	case errors.Is(err, pool.ErrClosed):
		return &PoolLifecycleError{Op: op, Err: ErrNotActive}
	}
	return err
}

// BufferFull augments all occupied slots of the buffer. It implements
// batch.Hook, so the batch is released only after this call returns.
func (p *Pass) BufferFull(ctx context.Context, b *batch.Buffer[Value]) error {
	start := time.Now()
	if err := p.ApplyAugmentsThreaded(ctx, b.Slots()); err != nil {
		return err
	}
	elapsed := time.Since(start)
	if p.measure != nil {
		p.measure(int64(b.Len()), elapsed)
	}
	p.stream.log.Debug(fmt.Sprintf("%v: pass %v augmented %d values in %v", p.stream, p.id, b.Len(), elapsed))
	return nil
}

// Close stops the worker pool and waits for all workers to return. It's
// safe to call Close multiple times.
func (p *Pass) Close() {
	p.m.Lock()
	defer p.m.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.pool.Close()
	p.stream.active.Store(false)
	p.stream.log.Debug(fmt.Sprintf("%v: pass %v closed", p.stream, p.id))
}

type silentLogger struct{}

func (silentLogger) Debug(args ...interface{}) {}

func (silentLogger) Info(args ...interface{}) {}

var defaultLogger silentLogger
