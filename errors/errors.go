package errors

import "errors"

// ErrPanicRecovery marks errors that were produced from a recovered panic.
var ErrPanicRecovery = errors.New("recovered from panic")

// Collection accumulates errors from several independent operations and
// reports them as one. It is not safe for concurrent use.
type Collection struct {
	errors []error
}

// Add appends err. Nil errors are ignored.
func (c *Collection) Add(err error) {
	if err != nil {
		c.errors = append(c.errors, err)
	}
}

// HasError reports whether any non-nil error was added.
func (c *Collection) HasError() bool {
	return len(c.errors) > 0
}

// GetError returns nil, the only error, or all of them joined.
func (c *Collection) GetError() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	default:
		return errors.Join(c.errors...)
	}
}
