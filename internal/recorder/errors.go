package recorder

import (
	"errors"
	"fmt"
)

// StateError reports an operation invoked outside its legal states, such as
// saving twice without re-entering Start.
type StateError struct {
	Op   string
	From State
}

func (e StateError) Error() string {
	return fmt.Sprintf("cannot %s from %s", e.Op, e.From)
}

// IsStateError checks if error is StateError
func IsStateError(err error) bool {
	var se StateError
	return errors.As(err, &se)
}
