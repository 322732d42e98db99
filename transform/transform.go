// Package transform provides simple augments. All of them allocate new
// arrays and never modify their input.
package transform

import (
	"errors"
	"fmt"

	"pipelined.dev/augment"
)

// ErrLengthMismatch is returned when arrays of a tuple must have the same
// length but they don't.
var ErrLengthMismatch = errors.New("arrays length mismatch")

// Identity returns input as is.
func Identity() augment.Augment {
	return augment.Augment{
		Name: "identity",
		Fn: func(arrays ...augment.Array) ([]augment.Array, error) {
			return arrays, nil
		},
	}
}

// Scale multiplies every element of every array by factor.
func Scale(factor float64) augment.Augment {
	return augment.Augment{
		Name: fmt.Sprintf("scale(%v)", factor),
		Fn: each(func(v float64) float64 {
			return v * factor
		}),
	}
}

// Offset adds delta to every element of every array.
func Offset(delta float64) augment.Augment {
	return augment.Augment{
		Name: fmt.Sprintf("offset(%v)", delta),
		Fn: each(func(v float64) float64 {
			return v + delta
		}),
	}
}

// Clip limits every element of every array to [low, high].
func Clip(low, high float64) augment.Augment {
	return augment.Augment{
		Name: fmt.Sprintf("clip(%v, %v)", low, high),
		Fn: each(func(v float64) float64 {
			switch {
			case v < low:
				return low
			case v > high:
				return high
			}
			return v
		}),
	}
}

// Swap exchanges two arrays of a pair.
func Swap() augment.Augment {
	return augment.Augment{
		Name:  "swap",
		Arity: 2,
		Fn: func(arrays ...augment.Array) ([]augment.Array, error) {
			return []augment.Array{arrays[1], arrays[0]}, nil
		},
	}
}

// Mix adds arrays of the tuple element-wise and returns a single array.
func Mix() augment.Augment {
	return augment.Augment{
		Name: "mix",
		Fn: func(arrays ...augment.Array) ([]augment.Array, error) {
			if len(arrays) == 0 {
				return nil, nil
			}
			out := make(augment.Array, len(arrays[0]))
			for _, a := range arrays {
				if len(a) != len(out) {
					return nil, ErrLengthMismatch
				}
				for i := range a {
					out[i] += a[i]
				}
			}
			return []augment.Array{out}, nil
		},
	}
}

// each applies fn to every element of every array.
func each(fn func(float64) float64) augment.AugmentFunc {
	return func(arrays ...augment.Array) ([]augment.Array, error) {
		out := make([]augment.Array, len(arrays))
		for i, a := range arrays {
			out[i] = make(augment.Array, len(a))
			for j := range a {
				out[i][j] = fn(a[j])
			}
		}
		return out, nil
	}
}
