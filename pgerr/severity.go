package pgerr

import "errors"

// WithSeverity decorates err with a Postgres error severity.
func WithSeverity(err error, severity Severity) error {
	if err == nil {
		return nil
	}

	return &withSeverity{cause: err, severity: severity}
}

// GetSeverity returns the severity embedded in err.
func GetSeverity(err error) Severity {
	if c, ok := err.(*withSeverity); ok {
		return c.severity
	}

	if n := errors.Unwrap(err); n != nil {
		if inner := GetSeverity(n); inner != "" {
			return inner
		}
	}

	return ""
}

// DefaultSeverity returns severity, or LevelError if severity is empty.
func DefaultSeverity(severity Severity) Severity {
	if severity == "" {
		return LevelError
	}

	return severity
}

type withSeverity struct {
	cause    error
	severity Severity
}

func (w *withSeverity) Error() string { return w.cause.Error() }
func (w *withSeverity) Unwrap() error { return w.cause }
