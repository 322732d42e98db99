package source_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipelined.dev/augment"
	"pipelined.dev/augment/batch"
	"pipelined.dev/augment/source"
)

func drain(t *testing.T, src batch.Source[augment.Value]) []augment.Value {
	t.Helper()
	var values []augment.Value
	for {
		v, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return values
		}
		require.NoError(t, err)
		values = append(values, v)
	}
}

func TestArrays(t *testing.T) {
	values := drain(t, source.Arrays(augment.Array{1}, augment.Array{2}))
	assert.Equal(t, []augment.Value{
		augment.SingleValue(augment.Array{1}),
		augment.SingleValue(augment.Array{2}),
	}, values)
}

func TestFunc(t *testing.T) {
	var n float64
	src := source.Func(func() (augment.Value, error) {
		n++
		return augment.SingleValue(augment.Array{n}), nil
	})
	values := drain(t, source.Limit(src, 3))
	assert.Len(t, values, 3)
	assert.Equal(t, augment.Array{3}, values[2].Array())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrames(t *testing.T) {
	tests := []struct {
		description string
		buf         *audio.FloatBuffer
		frameSize   int
		expected    []augment.Value
	}{
		{
			description: "stereo",
			buf: &audio.FloatBuffer{
				Format: &audio.Format{NumChannels: 2, SampleRate: 44100},
				Data:   []float64{1, 11, 2, 12, 3, 13},
			},
			frameSize: 2,
			expected: []augment.Value{
				augment.TupleValue(augment.Array{1, 2}, augment.Array{11, 12}),
				augment.TupleValue(augment.Array{3}, augment.Array{13}),
			},
		},
		{
			description: "mono",
			buf: &audio.FloatBuffer{
				Format: &audio.Format{NumChannels: 1, SampleRate: 44100},
				Data:   []float64{1, 2, 3, 4},
			},
			frameSize: 2,
			expected: []augment.Value{
				augment.SingleValue(augment.Array{1, 2}),
				augment.SingleValue(augment.Array{3, 4}),
			},
		},
		{
			description: "no format",
			buf: &audio.FloatBuffer{
				Data: []float64{5},
			},
			frameSize: 4,
			expected: []augment.Value{
				augment.SingleValue(augment.Array{5}),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			src, err := source.Frames(test.buf, test.frameSize)
			require.NoError(t, err)
			assert.Equal(t, test.expected, drain(t, src))
		})
	}

	_, err := source.Frames(&audio.FloatBuffer{}, 0)
	assert.ErrorIs(t, err, source.ErrInvalidFrameSize)

	src, err := source.Frames(nil, 2)
	assert.Nil(t, src)
	assert.ErrorIs(t, err, source.ErrNilBuffer)
}
