package pgerr

import "errors"

// WithDetail decorates err with a Postgres error detail string.
func WithDetail(err error, detail string) error {
	if err == nil {
		return nil
	}

	return &withDetail{cause: err, detail: detail}
}

// GetDetail returns the detail embedded in err, or "" if none is present.
func GetDetail(err error) string {
	if h, ok := err.(*withDetail); ok {
		return h.detail
	}

	if n := errors.Unwrap(err); n != nil {
		return GetDetail(n)
	}

	return ""
}

type withDetail struct {
	cause  error
	detail string
}

func (w *withDetail) Error() string { return w.cause.Error() }
func (w *withDetail) Unwrap() error { return w.cause }
