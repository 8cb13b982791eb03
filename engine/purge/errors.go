package purge

import (
	"errors"
	"fmt"
)

// ErrPartialPurge is returned when fail_on_error is set and at least one
// deletion failed.
var ErrPartialPurge = errors.New("some files could not be deleted")

// ListError reports that the target directory could not be listed. No
// deletion is attempted in that case.
type ListError struct {
	Dir string
	Err error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("failed to list %s: %v", e.Dir, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}
