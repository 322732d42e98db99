package augment

import (
	"errors"
	"fmt"
)

var (
	// ErrNotActive is matched by PoolLifecycleError when pass is used
	// after it was closed.
	ErrNotActive = errors.New("pass is not active")
	// ErrActive is matched by PoolLifecycleError when a new pass is
	// started while another one is still running.
	ErrActive = errors.New("pass is already active")
	// ErrNoFunc is matched by ChainApplicationError when the augment has
	// no function.
	ErrNoFunc = errors.New("augment function is not provided")
)

// ConfigError is returned if stream is constructed with invalid
// parameters.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// ChainApplicationError is returned when augment chain cannot be applied.
// Stage is the index of the augment that failed. If Err is nil, the arity
// did not match: Stage produced Got arrays while the stage at Expecting
// index expects Want. Expecting equals Stage if the chain input has the
// wrong arity and it is negative if a single value cannot be restored
// from the output of the last stage.
type ChainApplicationError struct {
	Stage     int
	Name      string
	Expecting int
	Want      int
	Got       int
	Err       error
}

func (e *ChainApplicationError) Error() string {
	stage := fmt.Sprintf("augment %d", e.Stage)
	if e.Name != "" {
		stage = fmt.Sprintf("augment %d (%s)", e.Stage, e.Name)
	}
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", stage, e.Err)
	case e.Expecting == e.Stage:
		return fmt.Sprintf("%s: expects %d arrays, got %d", stage, e.Want, e.Got)
	case e.Expecting < 0:
		return fmt.Sprintf("%s: returned %d arrays, single value expects %d", stage, e.Got, e.Want)
	}
	return fmt.Sprintf("%s: returned %d arrays, augment %d expects %d", stage, e.Got, e.Expecting, e.Want)
}

// Unwrap returns the augment failure.
func (e *ChainApplicationError) Unwrap() error {
	return e.Err
}

// WorkerTaskError is returned if augmentation of the buffer slot failed.
type WorkerTaskError struct {
	Slot int
	Err  error
}

func (e *WorkerTaskError) Error() string {
	return fmt.Sprintf("error augmenting slot %d: %v", e.Slot, e.Err)
}

// Unwrap returns the slot failure.
func (e *WorkerTaskError) Unwrap() error {
	return e.Err
}

// PoolLifecycleError is returned if stream is used outside of an active
// pass or a pass is started twice at the same time.
type PoolLifecycleError struct {
	Op  string
	Err error
}

func (e *PoolLifecycleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the lifecycle sentinel.
func (e *PoolLifecycleError) Unwrap() error {
	return e.Err
}
