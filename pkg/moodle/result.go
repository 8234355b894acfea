package moodle

// Unit is the payload of operations that only succeed or fail.
type Unit struct{}

// Result is either a success carrying a value or a failure carrying an *Error,
// never both.
type Result[T any] struct {
	value T
	err   *Error
}

func Success[T any](value T) Result[T] {
	return Result[T]{value: value}
}

func Failure[T any](err *Error) Result[T] {
	if err == nil {
		err = newError(KIND_INTERNAL, "failure without an error", nil)
	}
	return Result[T]{err: err}
}

func (r Result[T]) Ok() bool {
	return r.err == nil
}

// Value is the zero value of T on failure.
func (r Result[T]) Value() T {
	return r.value
}

// Failure is nil on success.
func (r Result[T]) Failure() *Error {
	return r.err
}

// Err returns the failure as an error, it is a true nil on success.
func (r Result[T]) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.Err()
}
