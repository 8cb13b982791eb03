package helpers

import (
	"errors"
	"fmt"
)

// ErrReported marks errors whose diagnostic was already written to stderr.
var ErrReported = errors.New("error already reported")

// ReportedError wraps an error the command already printed, so main only
// sets the exit status.
type ReportedError struct {
	Cause error
}

func (e *ReportedError) Error() string {
	return e.Cause.Error()
}

func (e *ReportedError) Is(target error) bool {
	return target == ErrReported
}

func (e *ReportedError) Unwrap() error {
	return e.Cause
}

// NewReportedError wraps cause as already reported.
func NewReportedError(cause error) error {
	if cause == nil {
		return nil
	}
	return &ReportedError{Cause: cause}
}

// UsageError reports an invalid combination of flags or arguments.
type UsageError struct {
	Flag   string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("invalid --%s: %s", e.Flag, e.Reason)
}

func NewUsageError(flag, reason string) error {
	return &UsageError{Flag: flag, Reason: reason}
}
