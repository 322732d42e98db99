package augment

import "fmt"

// Array is a numeric array processed by augments.
type Array []float64

// Shape identifies how the value was passed at the call site.
type Shape int

const (
	// Single is a value of one bare array.
	Single Shape = iota
	// Tuple is a value of any number of arrays.
	Tuple
)

func (s Shape) String() string {
	switch s {
	case Single:
		return "single"
	case Tuple:
		return "tuple"
	}
	return "unknown"
}

// Value is a unit of data flowing through the stream. Single values always
// carry exactly one array.
type Value struct {
	Shape  Shape
	Arrays []Array
}

// SingleValue wraps one array.
func SingleValue(a Array) Value {
	return Value{
		Shape:  Single,
		Arrays: []Array{a},
	}
}

// TupleValue wraps a tuple of arrays.
func TupleValue(arrays ...Array) Value {
	return Value{
		Shape:  Tuple,
		Arrays: arrays,
	}
}

// Array returns the first array of the value. It returns nil if value is
// empty.
func (v Value) Array() Array {
	if len(v.Arrays) == 0 {
		return nil
	}
	return v.Arrays[0]
}

// Arity returns number of arrays in the value.
func (v Value) Arity() int {
	return len(v.Arrays)
}

func (v Value) String() string {
	if v.Shape == Single {
		return fmt.Sprint(v.Array())
	}
	return fmt.Sprint(v.Arrays)
}
