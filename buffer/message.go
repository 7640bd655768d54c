package buffer

import "math"

// ErrFieldType identifies a single field within an ErrorResponse or
// NoticeResponse message body sent by the backend.
type ErrFieldType byte

// http://www.postgresql.org/docs/current/static/protocol-error-fields.html
const (
	ErrFieldSeverity       ErrFieldType = 'S'
	ErrFieldSQLState       ErrFieldType = 'C'
	ErrFieldMsgPrimary     ErrFieldType = 'M'
	ErrFieldDetail         ErrFieldType = 'D'
	ErrFieldHint           ErrFieldType = 'H'
	ErrFieldPosition       ErrFieldType = 'P'
	ErrFieldSrcFile        ErrFieldType = 'F'
	ErrFieldSrcLine        ErrFieldType = 'L'
	ErrFieldSrcFunction    ErrFieldType = 'R'
	ErrFieldConstraintName ErrFieldType = 'n'
)

// DescribeType selects between the two sub-commands of a Describe message.
type DescribeType byte

const (
	// DescribeStatement describes a prepared statement.
	DescribeStatement DescribeType = 'S'
	// DescribePortal describes a bound portal.
	DescribePortal DescribeType = 'P'
)

// FormatCode selects the wire representation of a parameter or result
// column.
type FormatCode int16

const (
	FormatText   FormatCode = 0
	FormatBinary FormatCode = 1
)

// MaxPreparedStatementArgs is the maximum number of arguments a prepared
// statement can have when bound via the Postgres wire protocol. This is not
// documented by Postgres, but is a consequence of the fact that a 16-bit
// integer in the wire format is used to indicate the number of values to bind
// during prepared statement execution.
const MaxPreparedStatementArgs = math.MaxUint16
