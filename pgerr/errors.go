// Package pgerr implements the error taxonomy surfaced to callers of
// pgasync: every error returned by the package can be inspected for a
// Kind, and database-originated errors additionally carry a SQLSTATE
// code, severity, and the optional detail/hint/position/constraint
// fields the backend sent along with it.
package pgerr

import "pgasync/codes"

// DBError is the flattened, read-only view of an error the backend raised
// for a query or command. It mirrors the fields of a Postgres
// ErrorResponse. See
// https://www.postgresql.org/docs/current/protocol-error-fields.html.
type DBError struct {
	Kind           Kind
	Code           codes.Code
	Severity       Severity
	Message        string
	Detail         string
	Hint           string
	Position       int32
	HasPosition    bool
	ConstraintName string
}

func (e DBError) Error() string {
	if e.Code != "" && e.Code != codes.Uncategorized {
		return string(e.Code) + ": " + e.Message
	}

	return e.Message
}

// Flatten collapses a decorated error chain into a DBError, filling in
// defaults for any field that was never attached.
func Flatten(err error) DBError {
	if err == nil {
		return DBError{
			Kind:     ClientError,
			Code:     codes.Internal,
			Message:  "nil error flattened",
			Severity: LevelFatal,
		}
	}

	position, hasPosition := GetPosition(err)
	kind := GetKind(err)
	if kind == "" {
		kind = DatabaseError
	}

	return DBError{
		Kind:           kind,
		Code:           GetCode(err),
		Message:        err.Error(),
		Detail:         GetDetail(err),
		Hint:           GetHint(err),
		Severity:       DefaultSeverity(GetSeverity(err)),
		Position:       position,
		HasPosition:    hasPosition,
		ConstraintName: GetConstraintName(err),
	}
}

// Connection wraps err as a ConnectionError.
func Connection(err error) error {
	if err == nil {
		return nil
	}

	return WithKind(err, ConnectionError)
}

// Query wraps err as a QueryError.
func Query(err error) error {
	if err == nil {
		return nil
	}

	return WithKind(err, QueryError)
}

// Client wraps err as a ClientError.
func Client(err error) error {
	if err == nil {
		return nil
	}

	return WithKind(err, ClientError)
}
