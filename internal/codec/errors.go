package codec

import "errors"

// invalidArgumentError attributes a decode or validation failure to the
// tensor or parameter that caused it, for 400 mapping.
type invalidArgumentError struct {
	name string
	msg  string
}

func (e invalidArgumentError) Error() string {
	if e.name == "" {
		return e.msg
	}
	return e.name + ": " + e.msg
}

// ErrInvalidArgument constructs an invalidArgumentError for name.
func ErrInvalidArgument(name, msg string) error {
	return invalidArgumentError{name: name, msg: msg}
}

// IsInvalidArgument reports whether err is (or wraps) a codec validation failure.
func IsInvalidArgument(err error) bool {
	var e invalidArgumentError
	return errors.As(err, &e)
}
