package pgerr

import "errors"

// WithPosition decorates err with a 1-based byte offset into the
// originating query string, as carried by the ErrorResponse 'P' field.
func WithPosition(err error, position int32) error {
	if err == nil {
		return nil
	}

	return &withPosition{cause: err, position: position}
}

// GetPosition returns the position embedded in err, and whether one was
// present at all (0 is a valid, if unusual, position).
func GetPosition(err error) (int32, bool) {
	if p, ok := err.(*withPosition); ok {
		return p.position, true
	}

	if n := errors.Unwrap(err); n != nil {
		return GetPosition(n)
	}

	return 0, false
}

type withPosition struct {
	cause    error
	position int32
}

func (w *withPosition) Error() string { return w.cause.Error() }
func (w *withPosition) Unwrap() error { return w.cause }
