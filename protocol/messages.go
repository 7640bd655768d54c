// Package protocol implements the typed encode/decode layer for the
// PostgreSQL frontend/backend wire protocol on top of buffer and wiremsg:
// it turns Go values into frontend message bytes, and backend message
// bytes into Go values. The connection FSM is the only caller.
package protocol

import (
	"pgasync/wiremsg"

	"github.com/lib/pq/oid"
)

// FieldDescription is a single column's metadata from a RowDescription
// message.
type FieldDescription struct {
	Name         string
	TableOID     uint32
	ColumnAttrNo int16
	TypeOID      oid.Oid
	TypeSize     int16
	TypeModifier int32
	Format       int16
}

// RowDescription is the decoded backend RowDescription message.
type RowDescription struct {
	Fields []FieldDescription
}

// DataRow is the decoded backend DataRow message: one value per column,
// nil meaning SQL NULL.
type DataRow struct {
	Values [][]byte
}

// CommandComplete carries the server's tag for a finished statement, e.g.
// "SELECT 3" or "INSERT 0 1".
type CommandComplete struct {
	Tag string
}

// ReadyForQuery carries the transaction-status byte that follows every
// completed command cycle.
type ReadyForQuery struct {
	Status wiremsg.TransactionStatus
}

// BackendKeyData lets a future CancelRequest identify this session.
type BackendKeyData struct {
	ProcessID int32
	SecretKey int32
}

// ParameterStatus is a single runtime parameter the server reports, either
// at startup or whenever it changes (e.g. "TimeZone").
type ParameterStatus struct {
	Name  string
	Value string
}

// ParameterDescription lists the parameter type OIDs the server inferred
// for a prepared statement.
type ParameterDescription struct {
	OIDs []oid.Oid
}

// Auth is the decoded body of an AuthenticationXxx message.
type Auth struct {
	Type wiremsg.AuthType
	Salt [4]byte // only set for AuthMD5Password
}

// NotificationResponse carries an asynchronous LISTEN/NOTIFY payload.
type NotificationResponse struct {
	BackendPID int32
	Channel    string
	Payload    string
}
