package augment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"pipelined.dev/augment/batch"
)

type (
	// AugmentFunc transforms a tuple of arrays into a new tuple.
	AugmentFunc func(arrays ...Array) ([]Array, error)

	// Augment is a single stage of the chain. Arity is the number of arrays
	// the stage expects. Zero arity accepts any number of arrays.
	Augment struct {
		Name  string
		Arity int
		Fn    AugmentFunc
	}

	// Chain is an ordered sequence of augments. Zero value is an empty
	// chain.
	Chain struct {
		augments []Augment
	}
)

// NewChain returns chain of provided augments. The augments slice is
// copied.
func NewChain(augments ...Augment) Chain {
	return Chain{
		augments: append(make([]Augment, 0, len(augments)), augments...),
	}
}

// Len returns number of augments in the chain.
func (c Chain) Len() int {
	return len(c.augments)
}

// Append returns a new chain with augments added to the end.
func (c Chain) Append(augments ...Augment) Chain {
	return NewChain(append(append(make([]Augment, 0, len(c.augments)+len(augments)), c.augments...), augments...)...)
}

// Apply applies augments to the value in declared order. Output of every
// augment is passed as input of the next one. Single value results into
// the first array of the last augment output.
func (c Chain) Apply(v Value) (Value, error) {
	if len(c.augments) == 0 {
		return v, nil
	}
	arrays := v.Arrays
	if v.Shape == Single && len(arrays) > 1 {
		arrays = arrays[:1]
	}
	for i, aug := range c.augments {
		if aug.Arity != 0 && aug.Arity != len(arrays) {
			// blame the stage which produced the arrays
			producer := max(i-1, 0)
			return Value{}, &ChainApplicationError{
				Stage:     producer,
				Name:      c.augments[producer].Name,
				Expecting: i,
				Want:      aug.Arity,
				Got:       len(arrays),
			}
		}
		if aug.Fn == nil {
			return Value{}, &ChainApplicationError{
				Stage:     i,
				Name:      aug.Name,
				Expecting: i,
				Err:       ErrNoFunc,
			}
		}
		out, err := aug.Fn(arrays...)
		if err != nil {
			return Value{}, &ChainApplicationError{
				Stage:     i,
				Name:      aug.Name,
				Expecting: i,
				Err:       err,
			}
		}
		arrays = out
	}

	if v.Shape == Single {
		if len(arrays) == 0 {
			last := len(c.augments) - 1
			return Value{}, &ChainApplicationError{
				Stage:     last,
				Name:      c.augments[last].Name,
				Expecting: -1,
				Want:      1,
				Got:       0,
			}
		}
		return SingleValue(arrays[0]), nil
	}
	return TupleValue(arrays...), nil
}

// Generate returns a sequence of exactly one augmented value.
func (c Chain) Generate(v Value) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		yield(c.Apply(v))
	}
}

// Stream applies the chain to every value of the source one by one. The
// sequence stops at the end of the source or at the first error.
func (c Chain) Stream(ctx context.Context, src batch.Source[Value]) iter.Seq2[Value, error] {
	return func(yield func(Value, error) bool) {
		for {
			v, err := src.Next(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(Value{}, fmt.Errorf("error pulling source: %w", err))
				}
				return
			}
			for out, err := range c.Generate(v) {
				if !yield(out, err) || err != nil {
					return
				}
			}
		}
	}
}
