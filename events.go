package pgasync

import (
	"pgasync/pgerr"
	"pgasync/protocol"
)

// event is the sealed set of things the FSM's run loop reacts to: both
// application-issued (begin, execute, commit, rollback, terminate) and
// network-received (authentication, row description, ...).
type event interface {
	isEvent()
}

// Application-issued events.

type evBegin struct {
	onReady func(*Scope, error)
}

type evExecute struct {
	query *Query
}

type evExecutePrepared struct {
	query *Query
}

type evCommit struct {
	onDone func(error)
}

type evRollback struct {
	onDone func(error)
}

type evTerminate struct{}

func (evBegin) isEvent()            {}
func (evExecute) isEvent()          {}
func (evExecutePrepared) isEvent()  {}
func (evCommit) isEvent()           {}
func (evRollback) isEvent()         {}
func (evTerminate) isEvent()        {}

// Network-received events; each wraps the decoded message body.

type evAuth struct{ body protocol.Auth }
type evParameterStatus struct{ body protocol.ParameterStatus }
type evBackendKeyData struct{ body protocol.BackendKeyData }
type evReadyForQuery struct{ body protocol.ReadyForQuery }
type evRowDescription struct{ body protocol.RowDescription }
type evDataRow struct{ body protocol.DataRow }
type evCommandComplete struct{ body protocol.CommandComplete }
type evEmptyQuery struct{}
type evErrorResponse struct{ body pgerr.DBError }
type evNoticeResponse struct{ body pgerr.DBError }
type evNotificationResponse struct{ body protocol.NotificationResponse }
type evParseComplete struct{}
type evBindComplete struct{}
type evCloseComplete struct{}
type evNoData struct{}
type evParameterDescription struct{ body protocol.ParameterDescription }
type evPortalSuspended struct{}
type evTransportError struct{ err error }

func (evAuth) isEvent()                 {}
func (evParameterStatus) isEvent()      {}
func (evBackendKeyData) isEvent()       {}
func (evReadyForQuery) isEvent()        {}
func (evRowDescription) isEvent()       {}
func (evDataRow) isEvent()              {}
func (evCommandComplete) isEvent()      {}
func (evEmptyQuery) isEvent()           {}
func (evErrorResponse) isEvent()        {}
func (evNoticeResponse) isEvent()       {}
func (evNotificationResponse) isEvent() {}
func (evParseComplete) isEvent()        {}
func (evBindComplete) isEvent()         {}
func (evCloseComplete) isEvent()        {}
func (evNoData) isEvent()               {}
func (evParameterDescription) isEvent() {}
func (evPortalSuspended) isEvent()      {}
func (evTransportError) isEvent()       {}

// deferrable reports whether an event must be queued rather than acted on
// immediately when the FSM cannot currently accept it (spec's deferred-
// event discipline: terminate, commit, rollback, begin, and a new execute
// all defer; network events never do — they are only ever produced in
// response to something the FSM already sent).
func deferrable(ev event) bool {
	switch ev.(type) {
	case evTerminate, evCommit, evRollback, evExecute, evExecutePrepared, evBegin:
		return true
	default:
		return false
	}
}
