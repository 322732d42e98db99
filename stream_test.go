package augment_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/augment"
	"pipelined.dev/augment/batch"
	"pipelined.dev/augment/metric"
	"pipelined.dev/augment/source"
	"pipelined.dev/augment/transform"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sequence returns single values 0..n-1.
func sequence(n int) []augment.Value {
	values := make([]augment.Value, n)
	for i := range values {
		values[i] = augment.SingleValue(augment.Array{float64(i)})
	}
	return values
}

func arrays(batches [][]augment.Value) [][]augment.Array {
	out := make([][]augment.Array, 0, len(batches))
	for _, b := range batches {
		arrays := make([]augment.Array, 0, len(b))
		for _, v := range b {
			arrays = append(arrays, v.Array())
		}
		out = append(out, arrays)
	}
	return out
}

func TestNew(t *testing.T) {
	src := source.Arrays(augment.Array{1})
	tests := []struct {
		description string
		batchSize   int
		options     []augment.Option
		field       string
	}{
		{description: "zero batch size", batchSize: 0, field: "batch size"},
		{description: "negative batch size", batchSize: -3, field: "batch size"},
		{
			description: "negative workers",
			batchSize:   1,
			options:     []augment.Option{augment.WithWorkers(-1)},
			field:       "workers",
		},
		{
			description: "nil augment",
			batchSize:   1,
			options:     []augment.Option{augment.WithAugments(augment.Augment{Name: "nil"})},
			field:       "augment",
		},
		{
			description: "nil chain augment",
			batchSize:   1,
			options: []augment.Option{
				augment.WithChain(augment.NewChain(transform.Identity(), augment.Augment{Name: "nil"})),
			},
			field: "augment",
		},
		{
			description: "ok",
			batchSize:   4,
			options: []augment.Option{
				augment.WithWorkers(2),
				augment.WithAugments(transform.Scale(2)),
				augment.WithName("ok"),
			},
		},
	}
	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			s, err := augment.New(src, test.batchSize, test.options...)
			if test.field == "" {
				require.NoError(t, err)
				assert.Equal(t, test.batchSize, s.BatchSize())
				return
			}
			var cfgErr *augment.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, test.field, cfgErr.Field)
			assert.Nil(t, s)
		})
	}
}

func TestEndToEnd(t *testing.T) {
	s, err := augment.New(
		source.Arrays(augment.Array{1}, augment.Array{2}, augment.Array{3}, augment.Array{4}),
		2,
		augment.WithAugments(transform.Scale(2)),
		augment.WithWorkers(2),
		augment.WithOrder(batch.Sequential()),
	)
	require.NoError(t, err)

	batches, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]augment.Array{{{2}, {4}}, {{6}, {8}}}, arrays(batches))
}

func TestBatchSizing(t *testing.T) {
	tests := []struct {
		length    int
		batchSize int
	}{
		{length: 0, batchSize: 3},
		{length: 9, batchSize: 3},
		{length: 10, batchSize: 3},
		{length: 7, batchSize: 16},
		{length: 100, batchSize: 7},
	}
	for _, test := range tests {
		s, err := augment.New(
			source.Slice(sequence(test.length)),
			test.batchSize,
			augment.WithAugments(transform.Offset(1)),
			augment.WithWorkers(4),
		)
		require.NoError(t, err)
		batches, err := s.Collect(context.Background())
		require.NoError(t, err)

		var total int
		for k, b := range batches {
			if k < len(batches)-1 || test.length%test.batchSize == 0 {
				assert.Len(t, b, test.batchSize)
			} else {
				assert.Len(t, b, test.length%test.batchSize)
			}
			// sequential order fidelity
			for i, v := range b {
				assert.Equal(t, augment.Array{float64(k*test.batchSize+i) + 1}, v.Array())
			}
			total += len(b)
		}
		assert.Equal(t, test.length, total)
	}
}

func TestDeterminism(t *testing.T) {
	run := func(workers int, order batch.Order) [][]augment.Value {
		values := make([]augment.Value, 50)
		for i := range values {
			values[i] = augment.TupleValue(augment.Array{float64(i)}, augment.Array{float64(-i), 1})
		}
		s, err := augment.New(
			source.Slice(values),
			8,
			augment.WithAugments(transform.Swap(), transform.Scale(3), transform.Offset(-1)),
			augment.WithWorkers(workers),
			augment.WithOrder(order),
		)
		require.NoError(t, err)
		batches, err := s.Collect(context.Background())
		require.NoError(t, err)
		return batches
	}
	assert.Equal(t, run(1, batch.Sequential()), run(8, batch.Sequential()))
	assert.Equal(t, run(1, batch.Shuffled(11)), run(8, batch.Shuffled(11)))
}

func TestNoPartialRelease(t *testing.T) {
	s, err := augment.New(
		source.Slice(sequence(20)),
		4,
		augment.WithAugments(transform.Identity(), failing(9)),
		augment.WithWorkers(3),
	)
	require.NoError(t, err)

	var released [][]augment.Value
	var failure error
	for b, err := range s.Batches(context.Background()) {
		if err != nil {
			failure = err
			continue
		}
		released = append(released, b)
	}

	// batches 0..3 and 4..7 are released, 8..11 failed
	assert.Len(t, released, 2)
	for _, b := range released {
		for _, v := range b {
			assert.NotEqual(t, augment.Array{9}, v.Array())
		}
	}
	var taskErr *augment.WorkerTaskError
	require.ErrorAs(t, failure, &taskErr)
	assert.Equal(t, 1, taskErr.Slot)
	var chainErr *augment.ChainApplicationError
	require.ErrorAs(t, failure, &chainErr)
	assert.Equal(t, 1, chainErr.Stage)
	assert.ErrorIs(t, failure, errMock)

	// collect reports the same failure
	s, err = augment.New(source.Slice(sequence(20)), 4, augment.WithAugments(failing(9)))
	require.NoError(t, err)
	batches, err := s.Collect(context.Background())
	assert.Nil(t, batches)
	assert.ErrorIs(t, err, errMock)
}

func TestEarlyBreak(t *testing.T) {
	var pulled int
	src := source.Func(func() (augment.Value, error) {
		pulled++
		return augment.SingleValue(augment.Array{float64(pulled)}), nil
	})
	s, err := augment.New(src, 5, augment.WithAugments(transform.Scale(2)), augment.WithWorkers(4))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		var n int
		for b, err := range s.Batches(context.Background()) {
			require.NoError(t, err)
			assert.Len(t, b, 5)
			n++
			if n == 3 {
				break
			}
		}
		assert.Equal(t, 3, n)
	}
	// unbounded source is pulled only for released batches
	assert.Equal(t, 30, pulled)
}

func TestContextCancel(t *testing.T) {
	src := source.Func(func() (augment.Value, error) {
		return augment.SingleValue(augment.Array{1}), nil
	})
	s, err := augment.New(src, 2, augment.WithAugments(transform.Identity()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var (
		released int
		failure  error
	)
	for _, err := range s.Batches(ctx) {
		if err != nil {
			failure = err
			break
		}
		released++
		if released == 3 {
			cancel()
		}
	}
	assert.Equal(t, 3, released)
	assert.ErrorIs(t, failure, context.Canceled)
}

func TestTeardownBeforeError(t *testing.T) {
	var (
		started  = make(chan struct{})
		finished atomic.Bool
	)
	// slot 0 fails while slot 1 is still running
	racing := augment.Augment{
		Name: "racing",
		Fn: func(arrays ...augment.Array) ([]augment.Array, error) {
			if arrays[0][0] == 0 {
				<-started
				return nil, errMock
			}
			close(started)
			time.Sleep(20 * time.Millisecond)
			finished.Store(true)
			return arrays, nil
		},
	}
	s, err := augment.New(source.Slice(sequence(2)), 2, augment.WithAugments(racing), augment.WithWorkers(2))
	require.NoError(t, err)

	var failures int
	for b, err := range s.Batches(context.Background()) {
		require.Error(t, err)
		assert.Nil(t, b)
		assert.ErrorIs(t, err, errMock)
		assert.True(t, finished.Load(), "workers must be stopped before error is reported")
		failures++
	}
	assert.Equal(t, 1, failures)
}

func TestSourceError(t *testing.T) {
	var n int
	src := source.Func(func() (augment.Value, error) {
		n++
		if n > 3 {
			return augment.Value{}, io.ErrUnexpectedEOF
		}
		return augment.SingleValue(augment.Array{1}), nil
	})
	s, err := augment.New(src, 2)
	require.NoError(t, err)
	batches, err := s.Collect(context.Background())
	assert.Nil(t, batches)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestPassLifecycle(t *testing.T) {
	s, err := augment.New(source.Slice(sequence(4)), 2, augment.WithAugments(transform.Scale(2)))
	require.NoError(t, err)

	p, err := s.Begin()
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID())

	// second pass while the first one is active
	_, err = s.Begin()
	var lifecycleErr *augment.PoolLifecycleError
	require.ErrorAs(t, err, &lifecycleErr)
	assert.ErrorIs(t, err, augment.ErrActive)
	for _, err := range s.Batches(context.Background()) {
		assert.ErrorIs(t, err, augment.ErrActive)
	}

	slots := sequence(3)
	require.NoError(t, p.ApplyAugmentsThreaded(context.Background(), slots))
	assert.Equal(t, augment.Array{4}, slots[2].Array())

	buf := batch.NewBuffer[augment.Value](2)
	buf.Put(augment.SingleValue(augment.Array{5}))
	require.NoError(t, p.BufferFull(context.Background(), buf))
	assert.Equal(t, augment.Array{10}, buf.Slots()[0].Array())

	p.Close()
	p.Close()
	err = p.ApplyAugmentsThreaded(context.Background(), sequence(1))
	assert.ErrorIs(t, err, augment.ErrNotActive)
	require.ErrorAs(t, err, &lifecycleErr)

	// stream can be iterated again after the pass is closed
	batches, err := s.Collect(context.Background())
	require.NoError(t, err)
	assert.Len(t, batches, 2)
}

func TestConcurrentApply(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	blocking := augment.Augment{
		Name: "blocking",
		Fn: func(arrays ...augment.Array) ([]augment.Array, error) {
			once.Do(func() { close(started) })
			<-release
			return arrays, nil
		},
	}
	s, err := augment.New(source.Slice(nil), 1, augment.WithAugments(blocking), augment.WithWorkers(1))
	require.NoError(t, err)
	p, err := s.Begin()
	require.NoError(t, err)
	defer p.Close()

	errc := make(chan error, 1)
	go func() {
		errc <- p.ApplyAugmentsThreaded(context.Background(), sequence(2))
	}()
	<-started
	err = p.ApplyAugmentsThreaded(context.Background(), sequence(1))
	assert.ErrorIs(t, err, augment.ErrActive)
	close(release)
	assert.NoError(t, <-errc)
}

func TestMetricAndLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.DebugLevel)

	s, err := augment.New(
		source.Slice(sequence(10)),
		4,
		augment.WithName("metered"),
		augment.WithMetric(),
		augment.WithLogger(logger),
		augment.WithAugments(transform.Identity()),
	)
	require.NoError(t, err)
	_, err = s.Collect(context.Background())
	require.NoError(t, err)

	values := metric.Get("metered")
	assert.Equal(t, "3", values[metric.BatchCounter])
	assert.Equal(t, "10", values[metric.ItemCounter])
	assert.Equal(t, "1", values[metric.StreamCounter])
	assert.Contains(t, buf.String(), "started with")
	assert.Contains(t, buf.String(), "closed")
}

func TestSlowAugmentsKeepOrder(t *testing.T) {
	// later slots finish first
	slow := augment.Augment{
		Name: "slow",
		Fn: func(arrays ...augment.Array) ([]augment.Array, error) {
			time.Sleep(time.Duration(10-int(arrays[0][0])%10) * time.Millisecond)
			return arrays, nil
		},
	}
	s, err := augment.New(source.Slice(sequence(10)), 10, augment.WithAugments(slow), augment.WithWorkers(10))
	require.NoError(t, err)
	batches, err := s.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 1)
	for i, v := range batches[0] {
		assert.Equal(t, augment.Array{float64(i)}, v.Array())
	}
}
