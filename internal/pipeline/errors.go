package pipeline

import "errors"

var (
	// ErrUnsafeID is returned when a row id cannot be used as a file name.
	ErrUnsafeID = errors.New("document id is not a safe file name")

	// ErrRowsUnavailable is returned when the database rows could not be listed at all.
	ErrRowsUnavailable = errors.New("database rows unavailable")
)

// StepError reports which pipeline step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}
