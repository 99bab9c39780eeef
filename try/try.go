// Package try carries a value and an error as a single unit, so results can be
// passed through channels and futures without splitting them apart.
package try

// Try holds the outcome of a computation: a value on success, an error on failure.
type Try[A any] struct {
	Value A
	Error error
}

// Of builds a Try from a conventional (value, error) pair.
func Of[A any](value A, err error) Try[A] {
	if err != nil {
		var zero A

		return Try[A]{Value: zero, Error: err}
	}

	return Try[A]{Value: value}
}

func (t Try[A]) IsSuccess() bool {
	return t.Error == nil
}

func (t Try[A]) IsFailure() bool {
	return t.Error != nil
}

// Get unpacks the Try. The value is always the zero value on failure.
func (t Try[A]) Get() (A, error) { //nolint:ireturn
	if t.IsFailure() {
		var zero A

		return zero, t.Error
	}

	return t.Value, nil
}

func (t Try[A]) GetOrElse(defaultValue A) A { //nolint:ireturn
	if t.IsSuccess() {
		return t.Value
	}

	return defaultValue
}

// Map applies f to a successful value. Failures pass through untouched.
func Map[A, B any](t Try[A], f func(A) (B, error)) Try[B] {
	if t.IsFailure() {
		return Try[B]{Error: t.Error}
	}

	return Of(f(t.Value))
}
