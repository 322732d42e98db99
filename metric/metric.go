// Package metric exposes stream counters with expvar.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const streamsLabel = "augment.streams"

const (
	// BatchCounter measures number of released batches.
	BatchCounter = "Batches"
	// ItemCounter measures number of augmented values.
	ItemCounter = "Items"
	// LatencyCounter measures latency between batches.
	LatencyCounter = "Latency"
	// DurationCounter measures total time spent in augmentation barriers.
	DurationCounter = "Duration"
	// StreamCounter counts number of metered streams.
	StreamCounter = "Streams"
)

var (
	streams = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		BatchCounter,
		ItemCounter,
		LatencyCounter,
		DurationCounter,
		StreamCounter,
	}
)

// Get metrics values for provided stream name.
func Get(name string) map[string]string {
	return getCounters(name)
}

// GetAll returns counters for all measured streams.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	streams.Lock()
	defer streams.Unlock()
	for name := range streams.m {
		m[name] = getCounters(name)
	}
	return m
}

func getCounters(name string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(name, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// ResetFunc returns new Measure closure. This closure is needed to postpone metrics
// capture until pass is actually started.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when batch is augmented.
type MeasureFunc func(items int64, elapsed time.Duration)

// Meter creates new meter closure to capture stream counters.
func Meter(name string) ResetFunc {
	metric := streams.get(name)
	metric.streams.Add(1)
	return func() MeasureFunc {
		calledAt := time.Now()
		return func(items int64, elapsed time.Duration) {
			metric.latency.set(time.Since(calledAt))
			metric.batches.Add(1)
			metric.items.Add(items)
			metric.duration.add(elapsed)
			calledAt = time.Now()
		}
	}
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(name string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[name]; ok {
		// return existing metric if available
		return metric
	}
	// create new metric
	metric := newMetric(name)
	m.m[name] = metric
	return metric
}

type metric struct {
	streams  *expvar.Int
	batches  *expvar.Int
	items    *expvar.Int
	latency  *duration
	duration *duration
}

func newMetric(name string) metric {
	m := metric{
		streams:  expvar.NewInt(key(name, StreamCounter)),
		batches:  expvar.NewInt(key(name, BatchCounter)),
		items:    expvar.NewInt(key(name, ItemCounter)),
		latency:  &duration{},
		duration: &duration{},
	}
	expvar.Publish(key(name, LatencyCounter), m.latency)
	expvar.Publish(key(name, DurationCounter), m.duration)
	return m
}

func key(name, counter string) string {
	return fmt.Sprintf("%s.%s.%s", streamsLabel, name, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
