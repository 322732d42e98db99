// Package source provides sources of values for augment streams.
package source

import (
	"context"
	"errors"
	"io"

	"github.com/go-audio/audio"

	"pipelined.dev/augment"
	"pipelined.dev/augment/batch"
)

var (
	// ErrInvalidFrameSize is returned if frame size is not positive.
	ErrInvalidFrameSize = errors.New("frame size must be positive")
	// ErrNilBuffer is returned if audio buffer is not provided.
	ErrNilBuffer = errors.New("audio buffer is nil")
)

// Slice returns a source over values. Values are returned as is, the
// slice is not copied.
func Slice(values []augment.Value) batch.Source[augment.Value] {
	var i int
	return batch.SourceFunc[augment.Value](func(context.Context) (augment.Value, error) {
		if i >= len(values) {
			return augment.Value{}, io.EOF
		}
		i++
		return values[i-1], nil
	})
}

// Arrays returns a source of single values.
func Arrays(arrays ...augment.Array) batch.Source[augment.Value] {
	values := make([]augment.Value, 0, len(arrays))
	for _, a := range arrays {
		values = append(values, augment.SingleValue(a))
	}
	return Slice(values)
}

// Func returns a source which calls fn for every value. The fn should
// return io.EOF when there are no more values.
func Func(fn func() (augment.Value, error)) batch.Source[augment.Value] {
	return batch.SourceFunc[augment.Value](func(ctx context.Context) (augment.Value, error) {
		if err := ctx.Err(); err != nil {
			return augment.Value{}, err
		}
		return fn()
	})
}

// Limit returns a source which stops after n values.
func Limit(src batch.Source[augment.Value], n int) batch.Source[augment.Value] {
	var pulled int
	return batch.SourceFunc[augment.Value](func(ctx context.Context) (augment.Value, error) {
		if pulled >= n {
			return augment.Value{}, io.EOF
		}
		pulled++
		return src.Next(ctx)
	})
}

// Frames returns a source which splits interleaved audio buffer into
// frames of provided size. Every value carries one array per channel.
// Mono buffers result into single values, multichannel into tuples. The
// last frame can be shorter.
func Frames(buf *audio.FloatBuffer, frameSize int) (batch.Source[augment.Value], error) {
	if frameSize <= 0 {
		return nil, ErrInvalidFrameSize
	}
	if buf == nil {
		return nil, ErrNilBuffer
	}
	numChannels := 1
	if buf.Format != nil && buf.Format.NumChannels > 0 {
		numChannels = buf.Format.NumChannels
	}
	numFrames := len(buf.Data) / numChannels
	var pos int
	return batch.SourceFunc[augment.Value](func(context.Context) (augment.Value, error) {
		if pos >= numFrames {
			return augment.Value{}, io.EOF
		}
		size := frameSize
		if left := numFrames - pos; left < size {
			size = left
		}
		arrays := make([]augment.Array, numChannels)
		for c := range arrays {
			arrays[c] = make(augment.Array, size)
			for i := range arrays[c] {
				arrays[c][i] = buf.Data[(pos+i)*numChannels+c]
			}
		}
		pos += size
		if numChannels == 1 {
			return augment.SingleValue(arrays[0]), nil
		}
		return augment.TupleValue(arrays...), nil
	}), nil
}
