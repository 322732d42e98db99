/*
Package batch accumulates values from a source into fixed-capacity buffers
and releases them downstream as batches.

Batcher drives the fill loop. Every value pulled from the Source is put
into the next free slot of the current Buffer. When the buffer reaches its
capacity, or the source is exhausted with a partial buffer, the Order
permutes the occupied slots and the Hook is invoked exactly once. Only
after the hook returns without error is the batch released to the
consumer and a fresh buffer started.

The hook is allowed to mutate slots in place. It must not retain the
buffer after it returns.
*/
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
)

// ErrInvalidSize is returned when batcher is created with non-positive size.
var ErrInvalidSize = errors.New("batch size must be positive")

type (
	// Source produces values for batches. Implementations should return
	// io.EOF when no more values are available. Unbounded sources never
	// return io.EOF.
	Source[T any] interface {
		Next(context.Context) (T, error)
	}

	// SourceFunc is an adapter to use ordinary functions as Source.
	SourceFunc[T any] func(context.Context) (T, error)

	// Hook is called once per completed or final partial batch, before the
	// batch is released.
	Hook[T any] interface {
		BufferFull(context.Context, *Buffer[T]) error
	}

	// HookFunc is an adapter to use ordinary functions as Hook.
	HookFunc[T any] func(context.Context, *Buffer[T]) error
)

// Next calls fn.
func (fn SourceFunc[T]) Next(ctx context.Context) (T, error) {
	return fn(ctx)
}

// BufferFull calls fn. Nil function is a no-op.
func (fn HookFunc[T]) BufferFull(ctx context.Context, b *Buffer[T]) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, b)
}

// Batcher splits source values into batches of fixed size.
type Batcher[T any] struct {
	size  int
	order Order
}

// NewBatcher returns a batcher for provided size. If order is nil,
// sequential order is used.
func NewBatcher[T any](size int, order Order) (*Batcher[T], error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if order == nil {
		order = Sequential()
	}
	return &Batcher[T]{
		size:  size,
		order: order,
	}, nil
}

// Size returns capacity of every batch.
func (b *Batcher[T]) Size() int {
	return b.size
}

// Batches returns a single-use sequence of batches. Every full batch has
// Size values, the last one can be shorter. If source, hook or context
// fail, the error is yielded with nil batch and the sequence stops. The
// batch which caused hook failure is never yielded.
func (b *Batcher[T]) Batches(ctx context.Context, src Source[T], hook Hook[T]) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		buf := NewBuffer[T](b.size)
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			v, err := src.Next(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(nil, fmt.Errorf("error pulling source: %w", err))
					return
				}
				// flush the remainder
				if buf.Len() > 0 {
					if out, err := b.flush(ctx, buf, hook); err != nil {
						yield(nil, err)
					} else {
						yield(out, nil)
					}
				}
				return
			}

			buf.Put(v)
			if !buf.Full() {
				continue
			}
			out, err := b.flush(ctx, buf, hook)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(out, nil) {
				return
			}
			buf = NewBuffer[T](b.size)
		}
	}
}

// flush assigns slot order, calls the hook and releases the slots.
func (b *Batcher[T]) flush(ctx context.Context, buf *Buffer[T], hook Hook[T]) ([]T, error) {
	buf.permute(b.order.Permute(buf.Len()))
	if hook != nil {
		if err := hook.BufferFull(ctx, buf); err != nil {
			return nil, err
		}
	}
	return buf.release(), nil
}
