package pgerr

import "errors"

// Kind classifies an error by where it originated relative to the
// connection: it determines how a caller should react (retry the dial,
// abandon the scope, rewrite the query, fix local usage).
type Kind string

const (
	// ConnectionError covers dial failures, TLS negotiation failures and
	// I/O errors on an already-established connection.
	ConnectionError Kind = "connection"
	// DatabaseError wraps an ErrorResponse the backend sent back for a
	// query or command; it always carries a SQLSTATE code.
	DatabaseError Kind = "database"
	// QueryError covers client-detected problems with a query before it
	// ever reaches the wire: a nil Scope, a result requested out of
	// bounds, too many bind parameters.
	QueryError Kind = "query"
	// ClientError covers misuse of the library itself: calling an
	// operation from the wrong FSM state, using a closed connection.
	ClientError Kind = "client"
)

// WithKind decorates err with a Kind.
func WithKind(err error, kind Kind) error {
	if err == nil {
		return nil
	}

	return &withKind{cause: err, kind: kind}
}

// GetKind returns the Kind embedded in err, or "" if none is present.
func GetKind(err error) Kind {
	var w *withKind
	if errors.As(err, &w) {
		return w.kind
	}

	return ""
}

type withKind struct {
	cause error
	kind  Kind
}

func (w *withKind) Error() string { return w.cause.Error() }
func (w *withKind) Unwrap() error { return w.cause }
