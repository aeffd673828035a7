package registry

import "errors"

// notFoundError signals an unknown model/version for 404 mapping.
type notFoundError struct{ name, version string }

func (e notFoundError) Error() string {
	if e.version == "" {
		return "model not found: " + e.name
	}
	return "model not found: " + e.name + "/" + e.version
}

func ErrNotFound(name, version string) error { return notFoundError{name: name, version: version} }

// IsNotFound reports whether err indicates a missing model/version.
func IsNotFound(err error) bool {
	var e notFoundError
	return errors.As(err, &e)
}

// notReadyError signals a model that exists but cannot serve right now.
type notReadyError struct {
	name, version string
	state         State
}

func (e notReadyError) Error() string {
	return "model not ready: " + e.name + "/" + e.version + " is " + string(e.state)
}

func ErrNotReady(name, version string, state State) error {
	return notReadyError{name: name, version: version, state: state}
}

// IsNotReady reports whether err indicates a known but non-READY model.
func IsNotReady(err error) bool {
	var e notReadyError
	return errors.As(err, &e)
}

// conflictError signals a concurrent control-plane operation on the same key.
type conflictError struct {
	name, version string
	op            State
}

func (e conflictError) Error() string {
	return "conflicting operation on " + e.name + "/" + e.version + ": " + string(e.op) + " already in flight"
}

func ErrConflict(name, version string, op State) error {
	return conflictError{name: name, version: version, op: op}
}

// IsConflict reports whether err indicates a rejected concurrent operation.
func IsConflict(err error) bool {
	var e conflictError
	return errors.As(err, &e)
}

// unavailableError signals a transient condition the caller may retry.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err is safe to retry.
func IsUnavailable(err error) bool {
	var e unavailableError
	return errors.As(err, &e)
}
