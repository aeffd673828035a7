package dispatch

import "errors"

// executorFailureError wraps an opaque backend failure with the model that
// produced it, for 500 mapping.
type executorFailureError struct {
	model string
	err   error
}

func (e executorFailureError) Error() string {
	return "executor failure for " + e.model + ": " + e.err.Error()
}

func (e executorFailureError) Unwrap() error { return e.err }

func ErrExecutorFailure(model string, err error) error {
	return executorFailureError{model: model, err: err}
}

// IsExecutorFailure reports whether err came out of the execution backend.
func IsExecutorFailure(err error) bool {
	var e executorFailureError
	return errors.As(err, &e)
}
