package pgasync

import (
	"fmt"

	"pgasync/buffer"
	"pgasync/protocol"
	"pgasync/wiremsg"
)

// readLoop owns the transport's read side: it blocks on one message at a
// time, decodes it, and posts the result to the FSM goroutine. It is the
// only goroutine that calls c.reader's Get*/Read* methods.
func (c *Conn) readLoop() {
	for {
		typ, _, err := c.reader.ReadTypedMsg()
		if err != nil {
			c.postNetworkEvent(evTransportError{err: err})
			return
		}

		ev, err := decodeEvent(c.reader, typ)
		if err != nil {
			c.postNetworkEvent(evTransportError{err: err})
			return
		}

		if !c.postNetworkEvent(ev) {
			return
		}
	}
}

// postNetworkEvent posts ev and reports whether the loop should continue
// reading; it returns false once the connection has shut down.
func (c *Conn) postNetworkEvent(ev event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// decodeEvent parses one backend message body, already sitting in r.Msg,
// into the matching network event.
func decodeEvent(r *buffer.Reader, typ wiremsg.Backend) (event, error) {
	switch typ {
	case wiremsg.BackendAuth:
		body, err := protocol.DecodeAuth(r)
		if err != nil {
			return nil, err
		}
		return evAuth{body}, nil

	case wiremsg.BackendParameterStatus:
		body, err := protocol.DecodeParameterStatus(r)
		if err != nil {
			return nil, err
		}
		return evParameterStatus{body}, nil

	case wiremsg.BackendBackendKeyData:
		body, err := protocol.DecodeBackendKeyData(r)
		if err != nil {
			return nil, err
		}
		return evBackendKeyData{body}, nil

	case wiremsg.BackendReady:
		body, err := protocol.DecodeReadyForQuery(r)
		if err != nil {
			return nil, err
		}
		return evReadyForQuery{body}, nil

	case wiremsg.BackendRowDescription:
		body, err := protocol.DecodeRowDescription(r)
		if err != nil {
			return nil, err
		}
		return evRowDescription{body}, nil

	case wiremsg.BackendDataRow:
		body, err := protocol.DecodeDataRow(r)
		if err != nil {
			return nil, err
		}
		return evDataRow{body}, nil

	case wiremsg.BackendCommandComplete:
		body, err := protocol.DecodeCommandComplete(r)
		if err != nil {
			return nil, err
		}
		return evCommandComplete{body}, nil

	case wiremsg.BackendEmptyQuery:
		return evEmptyQuery{}, nil

	case wiremsg.BackendErrorResponse:
		body, err := protocol.DecodeErrorFields(r)
		if err != nil {
			return nil, err
		}
		return evErrorResponse{body}, nil

	case wiremsg.BackendNoticeResponse:
		body, err := protocol.DecodeErrorFields(r)
		if err != nil {
			return nil, err
		}
		return evNoticeResponse{body}, nil

	case wiremsg.BackendNotificationResponse:
		body, err := protocol.DecodeNotificationResponse(r)
		if err != nil {
			return nil, err
		}
		return evNotificationResponse{body}, nil

	case wiremsg.BackendParseComplete:
		return evParseComplete{}, nil

	case wiremsg.BackendBindComplete:
		return evBindComplete{}, nil

	case wiremsg.BackendCloseComplete:
		return evCloseComplete{}, nil

	case wiremsg.BackendNoData:
		return evNoData{}, nil

	case wiremsg.BackendParameterDescription:
		body, err := protocol.DecodeParameterDescription(r)
		if err != nil {
			return nil, err
		}
		return evParameterDescription{body}, nil

	case wiremsg.BackendPortalSuspended:
		return evPortalSuspended{}, nil

	default:
		return nil, fmt.Errorf("pgasync: unexpected backend message type %q", byte(typ))
	}
}
