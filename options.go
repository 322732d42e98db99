package augment

import "pipelined.dev/augment/batch"

// Option provides a way to set functional parameters to stream.
type Option func(s *Stream) error

// WithWorkers sets number of workers used to augment each batch. Zero
// means GOMAXPROCS workers.
func WithWorkers(n int) Option {
	return func(s *Stream) error {
		if n < 0 {
			return &ConfigError{
				Field:  "workers",
				Value:  n,
				Reason: "must not be negative",
			}
		}
		s.workers = n
		return nil
	}
}

// WithAugments appends augments to the stream chain.
func WithAugments(augments ...Augment) Option {
	return func(s *Stream) error {
		if err := validateAugments(augments); err != nil {
			return err
		}
		s.chain = s.chain.Append(augments...)
		return nil
	}
}

// WithChain replaces the stream chain.
func WithChain(c Chain) Option {
	return func(s *Stream) error {
		if err := validateAugments(c.augments); err != nil {
			return err
		}
		s.chain = c
		return nil
	}
}

func validateAugments(augments []Augment) error {
	for i := range augments {
		if augments[i].Fn == nil {
			return &ConfigError{
				Field:  "augment",
				Value:  i,
				Reason: "function must be provided",
			}
		}
	}
	return nil
}

// WithOrder sets order of values within every batch. Sequential order is
// used by default.
func WithOrder(o batch.Order) Option {
	return func(s *Stream) error {
		s.order = o
		return nil
	}
}

// WithLogger sets logger to stream. If this option is not provided, silent
// logger is used.
func WithLogger(logger Logger) Option {
	return func(s *Stream) error {
		if logger != nil {
			s.log = logger
		}
		return nil
	}
}

// WithName sets name to stream.
func WithName(n string) Option {
	return func(s *Stream) error {
		s.name = n
		return nil
	}
}

// WithMetric enables expvar metrics for this stream. Metrics are grouped
// by stream name.
func WithMetric() Option {
	return func(s *Stream) error {
		s.metered = true
		return nil
	}
}
