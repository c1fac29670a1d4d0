// Package result provides a success/failure container used to propagate remote
// failures as values instead of returning them through the error channel.
package result

import (
	"errors"
	"fmt"
)

// Result holds either the data of a successful operation or the error value of a failed one.
// Exactly one branch is populated; check Success before reading Data or Err.
type Result[T, E any] struct {
	success bool
	data    T
	err     E
}

// Succeed builds the success variant.
func Succeed[T, E any](data T) Result[T, E] {
	return Result[T, E]{success: true, data: data}
}

// Fail builds the failure variant.
func Fail[T, E any](err E) Result[T, E] {
	return Result[T, E]{err: err}
}

// Success reports whether the result carries data.
func (r Result[T, E]) Success() bool {
	return r.success
}

// Data returns the success value, or the zero value for a failure.
func (r Result[T, E]) Data() T {
	return r.data
}

// Err returns the failure value, or the zero value for a success.
func (r Result[T, E]) Err() E {
	return r.err
}

// Get returns both branches plus the discriminator.
func (r Result[T, E]) Get() (T, E, bool) {
	return r.data, r.err, r.success
}

// String renders the populated branch.
func (r Result[T, E]) String() string {
	if r.success {
		return fmt.Sprintf("Success(%v)", r.data)
	}
	return fmt.Sprintf("Failure(%v)", r.err)
}

// Fault carries a failure value that does not implement error.
type Fault[E any] struct {
	Value E
}

// Error implements the error interface.
func (f *Fault[E]) Error() string {
	return fmt.Sprintf("result failure: %v", f.Value)
}

// Unwrap converts a failure into an error. When E implements error the value is
// returned as-is, otherwise it is wrapped in a *Fault.
func Unwrap[T, E any](r Result[T, E]) (T, error) {
	if r.success {
		return r.data, nil
	}
	return r.data, asError(r.err)
}

// MustUnwrap returns the data or panics with the failure converted by Unwrap.
func MustUnwrap[T, E any](r Result[T, E]) T {
	data, err := Unwrap(r)
	if err != nil {
		panic(err)
	}
	return data
}

// FaultValue recovers the failure value from an error produced by Unwrap.
func FaultValue[E any](err error) (E, bool) {
	var zero E
	if err == nil {
		return zero, false
	}
	if v, ok := any(err).(E); ok {
		return v, true
	}
	var fault *Fault[E]
	if errors.As(err, &fault) {
		return fault.Value, true
	}
	return zero, false
}

// Attempt runs fn and converts its error into a failure using parse.
func Attempt[T, E any](fn func() (T, error), parse func(error) E) Result[T, E] {
	data, err := fn()
	if err != nil {
		return Fail[T](parse(err))
	}
	return Succeed[T, E](data)
}

func asError[E any](v E) error {
	if err, ok := any(v).(error); ok && err != nil {
		return err
	}
	return &Fault[E]{Value: v}
}
