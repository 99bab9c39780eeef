package utils //nolint:revive // utils is an appropriate package name for utility functions

import (
	"fmt"

	"github.com/amp-labs/amp-fsm/errors"
)

// GetPanicRecoveryError turns a value obtained from recover() into an error
// wrapping errors.ErrPanicRecovery. A nil value yields nil. When stack is
// non-nil it is appended to the message.
func GetPanicRecoveryError(recovered any, stack []byte) error {
	if recovered == nil {
		return nil
	}

	var err error

	if cause, ok := recovered.(error); ok {
		err = fmt.Errorf("%w: %w", errors.ErrPanicRecovery, cause)
	} else {
		err = fmt.Errorf("%w: %v", errors.ErrPanicRecovery, recovered)
	}

	if stack != nil {
		return fmt.Errorf("%w\nstack trace:\n%s", err, string(stack))
	}

	return err
}
