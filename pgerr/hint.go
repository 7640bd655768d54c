package pgerr

import "errors"

// WithHint decorates err with a Postgres error hint.
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}

	return &withHint{cause: err, hint: hint}
}

// GetHint returns the hint embedded in err, or "" if none is present.
func GetHint(err error) string {
	if h, ok := err.(*withHint); ok {
		return h.hint
	}

	if n := errors.Unwrap(err); n != nil {
		return GetHint(n)
	}

	return ""
}

type withHint struct {
	cause error
	hint  string
}

func (w *withHint) Error() string { return w.cause.Error() }
func (w *withHint) Unwrap() error { return w.cause }
