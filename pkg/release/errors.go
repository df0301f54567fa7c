package release

import (
	"fmt"
)

// StageError reports the stage at which a release stopped
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("release stopped at stage %q: %v", e.Stage, e.Err)
}

// Unwrap the cause
func (e *StageError) Unwrap() error {
	return e.Err
}
