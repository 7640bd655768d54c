package pgasync

import (
	"errors"
	"fmt"

	"pgasync/pgerr"
	"pgasync/protocol"
	"pgasync/wiremsg"
)

// handle is the FSM's single entry point: every event, application- or
// network-issued, passes through here before anything else touches
// connection state.
func (c *Conn) handle(ev event) {
	switch e := ev.(type) {
	case evTransportError:
		c.failTransport(e.err)
		return
	case evParameterStatus:
		c.params[e.body.Name] = e.body.Value
		return
	case evBackendKeyData:
		c.backendKeyData = e.body
		return
	case evNoticeResponse:
		if c.onNotice != nil {
			c.onNotice(e.body)
		}
		return
	case evNotificationResponse:
		if c.onNotification != nil {
			c.onNotification(e.body.Channel, e.body.Payload)
		}
		return
	}

	if c.state == stateTerminated {
		return
	}

	if c.busy() && deferrable(ev) {
		c.deferredQueue = append(c.deferredQueue, ev)
		return
	}

	c.step(ev)
}

// step dispatches an event that has already cleared the deferred-queue
// check, by top-level state and then by nested phase.
func (c *Conn) step(ev event) {
	if c.state == stateTerminated {
		return
	}

	if c.state == stateConnecting {
		c.stepConnecting(ev)
		return
	}

	switch c.phase {
	case phaseNone, phaseTxIdle:
		c.stepReady(ev)
	case phaseTxStarting:
		c.stepTxStarting(ev)
	case phaseTxExiting:
		c.stepTxExiting(ev)
	case phaseSimpleWaiting, phaseSimpleFetchData:
		c.stepSimpleQuery(ev)
	case phaseExtParse, phaseExtDescribe, phaseExtBind, phaseExtExec, phaseExtSync:
		c.stepExtendedQuery(ev)
	}
}

// drainDeferred replays queued events in arrival order for as long as the
// FSM remains able to accept one.
func (c *Conn) drainDeferred() {
	for len(c.deferredQueue) > 0 && c.state != stateTerminated && !c.busy() {
		ev := c.deferredQueue[0]
		c.deferredQueue = c.deferredQueue[1:]
		c.step(ev)
	}
}

// stepConnecting handles the startup handshake: authentication requests
// and the terminal ReadyForQuery/ErrorResponse.
func (c *Conn) stepConnecting(ev event) {
	switch e := ev.(type) {
	case evAuth:
		c.handleAuth(e.body)
	case evReadyForQuery:
		c.txStatus = e.body.Status
		c.readyFired = true
		c.transition(stateIdle, "ready_for_query")
		c.phase = phaseNone
		if c.onReady != nil {
			c.onReady(nil)
		}
		c.drainDeferred()
	case evErrorResponse:
		c.readyFired = true
		dberr := e.body
		c.transition(stateTerminated, "startup_error")
		c.phase = phaseNone
		_ = c.transport.Close()
		if c.onReady != nil {
			c.onReady(dberr)
		}
	default:
		// Anything else here is a protocol violation; ignored rather than
		// panicking, since the worst outcome is a handshake that never
		// completes (observable to the caller as OnReady never firing).
	}
}

func (c *Conn) handleAuth(body protocol.Auth) {
	switch body.Type {
	case wiremsg.AuthOK:
		c.phase = phaseConnectingAuth
	case wiremsg.AuthCleartextPassword:
		msg, err := protocol.EncodePasswordMessage(c.logger, c.authPassword)
		if err != nil {
			c.failTransport(err)
			return
		}
		if err := c.send(msg); err != nil {
			c.failTransport(err)
			return
		}
		c.phase = phaseConnectingAuth
	case wiremsg.AuthMD5Password:
		digest := md5Password(c.authUser, c.authPassword, body.Salt)
		msg, err := protocol.EncodePasswordMessage(c.logger, digest)
		if err != nil {
			c.failTransport(err)
			return
		}
		if err := c.send(msg); err != nil {
			c.failTransport(err)
			return
		}
		c.phase = phaseConnectingAuth
	default:
		c.failTransport(fmt.Errorf("pgasync: unsupported authentication method %d", body.Type))
	}
}

// stepReady handles an accepting state: idle (phaseNone) or
// idle_in_tx (phaseTxIdle under stateTransaction).
func (c *Conn) stepReady(ev event) {
	switch e := ev.(type) {
	case evBegin:
		c.startBegin(e.onReady)
	case evExecute:
		c.runExecute(e.query, false)
	case evExecutePrepared:
		c.runExecute(e.query, true)
	case evCommit:
		c.startExit("COMMIT", e.onDone)
	case evRollback:
		c.startExit("ROLLBACK", e.onDone)
	case evTerminate:
		c.doTerminate()
	default:
	}
}

// runExecute dispatches a freshly-accepted execute, wrapping it in an
// implicit transaction first when the connection is idle and
// AutoCommit(false) was configured.
func (c *Conn) runExecute(q *Query, prepared bool) {
	if c.state == stateIdle && !c.autoCommit {
		c.startImplicitTx(q, prepared)
		return
	}

	if prepared {
		c.startExtendedQuery(q)
	} else {
		c.startSimpleQuery(q)
	}
}

// startImplicitTx opens a transaction, runs q inside it, and commits or
// rolls back once q finishes, all without the caller ever seeing a Scope.
func (c *Conn) startImplicitTx(q *Query, prepared bool) {
	onResult := q.OnResult
	onError := q.OnError

	wrapped := &Query{
		SQL:       q.SQL,
		ParamOIDs: q.ParamOIDs,
		Values:    q.Values,
		OnResult: func(result *Result, complete bool) {
			if onResult != nil {
				onResult(result, complete)
			}
			if complete {
				c.startExit("COMMIT", func(error) {})
			}
		},
		OnError: func(err error) {
			rollback := evRollback{onDone: func(error) {}}
			if c.busy() {
				// The failed query's ReadyForQuery is still to come; queue
				// the ROLLBACK ahead of anything else deferred so it is
				// sent as soon as the connection is idle_in_tx again.
				c.deferredQueue = append([]event{rollback}, c.deferredQueue...)
			} else {
				c.startExit("ROLLBACK", rollback.onDone)
			}
			if onError != nil {
				onError(err)
			}
		},
	}

	c.startBegin(func(scope *Scope, err error) {
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if prepared {
			c.startExtendedQuery(wrapped)
		} else {
			c.startSimpleQuery(wrapped)
		}
	})
}

func (c *Conn) startBegin(onReady func(*Scope, error)) {
	if c.state != stateIdle {
		if onReady != nil {
			onReady(nil, pgerr.Client(errors.New("pgasync: Begin called while a transaction is already open")))
		}
		return
	}

	msg, err := protocol.EncodeQuery(c.logger, "BEGIN")
	if err != nil {
		c.failTransport(err)
		return
	}
	if err := c.send(msg); err != nil {
		c.failTransport(err)
		return
	}

	c.beginCallback = onReady
	c.transition(stateTransaction, "begin")
	c.phase = phaseTxStarting
}

func (c *Conn) stepTxStarting(ev event) {
	switch e := ev.(type) {
	case evReadyForQuery:
		c.txStatus = e.body.Status
		cb := c.beginCallback
		c.beginCallback = nil

		if e.body.Status == wiremsg.TxBlock {
			c.phase = phaseTxIdle
			if cb != nil {
				cb(&Scope{conn: c}, nil)
			}
		} else {
			c.transition(stateIdle, "begin_failed")
			c.phase = phaseNone
			if cb != nil {
				cb(nil, pgerr.Connection(fmt.Errorf("pgasync: BEGIN left the connection %s", e.body.Status)))
			}
		}
		c.drainDeferred()
	case evErrorResponse:
		cb := c.beginCallback
		c.beginCallback = nil
		c.transition(stateIdle, "begin_error")
		c.phase = phaseNone
		if cb != nil {
			cb(nil, e.body)
		}
	case evCommandComplete, evEmptyQuery:
		// The BEGIN command tag itself; ReadyForQuery finishes the step.
	default:
	}
}

func (c *Conn) startExit(cmd string, onDone func(error)) {
	if c.state != stateTransaction || c.phase != phaseTxIdle {
		if onDone != nil {
			onDone(pgerr.Client(fmt.Errorf("pgasync: %s called outside an open transaction", cmd)))
		}
		return
	}

	msg, err := protocol.EncodeQuery(c.logger, cmd)
	if err != nil {
		c.failTransport(err)
		return
	}
	if err := c.send(msg); err != nil {
		c.failTransport(err)
		return
	}

	c.exitCallback = onDone
	c.exitErr = nil
	c.phase = phaseTxExiting
}

func (c *Conn) stepTxExiting(ev event) {
	switch e := ev.(type) {
	case evReadyForQuery:
		c.txStatus = e.body.Status
		cb := c.exitCallback
		err := c.exitErr
		c.exitCallback = nil
		c.exitErr = nil

		if e.body.Status == wiremsg.TxIdle {
			c.transition(stateIdle, "exit")
			c.phase = phaseNone
		} else {
			// Server stayed in a transaction block; reflect that rather
			// than pretending the exit succeeded.
			c.phase = phaseTxIdle
		}

		if cb != nil {
			cb(err)
		}
		c.drainDeferred()
	case evErrorResponse:
		c.exitErr = e.body
	case evCommandComplete, evEmptyQuery:
	default:
	}
}

func (c *Conn) doTerminate() {
	msg, err := protocol.EncodeTerminate(c.logger)
	if err == nil {
		_ = c.send(msg)
	}

	c.failCurrent(pgerr.Client(errClosed))
	for _, ev := range c.deferredQueue {
		c.failDeferred(ev, pgerr.Client(errClosed))
	}
	c.deferredQueue = nil

	c.transition(stateTerminated, "terminate")
	c.phase = phaseNone
	_ = c.transport.Close()
}

// failTransport is the connection-level failure path: a read or write
// error, or a decode failure, means the wire is no longer trustworthy, so
// the connection is torn down and everything in flight or queued fails
// with the same wrapped error.
func (c *Conn) failTransport(err error) {
	if c.state == stateTerminated {
		return
	}

	wrapped := pgerr.Connection(err)

	if !c.readyFired {
		c.readyFired = true
		c.transition(stateTerminated, "transport_error")
		c.phase = phaseNone
		_ = c.transport.Close()
		if c.onReady != nil {
			c.onReady(wrapped)
		}
		return
	}

	c.failCurrent(wrapped)
	for _, ev := range c.deferredQueue {
		c.failDeferred(ev, wrapped)
	}
	c.deferredQueue = nil

	c.transition(stateTerminated, "transport_error")
	c.phase = phaseNone
	_ = c.transport.Close()

	if c.onConnectionError != nil {
		c.onConnectionError(wrapped)
	}
}

// failCurrent fails whichever operation is currently in flight, if any.
func (c *Conn) failCurrent(err error) {
	if q := c.currentQuery; q != nil {
		c.currentQuery = nil
		if q.OnError != nil {
			q.OnError(err)
		}
	}

	if cb := c.beginCallback; cb != nil {
		c.beginCallback = nil
		cb(nil, err)
	}

	if cb := c.exitCallback; cb != nil {
		c.exitCallback = nil
		cb(err)
	}
}

func (c *Conn) failDeferred(ev event, err error) {
	switch e := ev.(type) {
	case evBegin:
		if e.onReady != nil {
			e.onReady(nil, err)
		}
	case evCommit:
		if e.onDone != nil {
			e.onDone(err)
		}
	case evRollback:
		if e.onDone != nil {
			e.onDone(err)
		}
	case evExecute:
		if e.query.OnError != nil {
			e.query.OnError(err)
		}
	case evExecutePrepared:
		if e.query.OnError != nil {
			e.query.OnError(err)
		}
	case evTerminate:
	}
}
