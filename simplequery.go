package pgasync

import (
	"time"

	"pgasync/pgerr"
	"pgasync/protocol"
)

// startSimpleQuery sends q.SQL as a Query message and enters the
// simple_query sub-state, regardless of whether the connection is idle
// (autocommit) or inside an open transaction.
func (c *Conn) startSimpleQuery(q *Query) {
	msg, err := protocol.EncodeQuery(c.logger, q.SQL)
	if err != nil {
		if q.OnError != nil {
			q.OnError(pgerr.Client(err))
		}
		return
	}

	if err := c.send(msg); err != nil {
		c.failTransport(err)
		return
	}

	c.currentQuery = q
	c.currentResult = nil
	c.bufferedResult = nil
	c.queryStart = time.Now()
	c.phase = phaseSimpleWaiting
}

// stepSimpleQuery drives one simple-query round trip. A query string may
// carry several ';'-separated statements, each producing its own
// RowDescription?/DataRow*/CommandComplete triple; since there is no way
// to know a triple is the last one until ReadyForQuery arrives, every
// finished triple is held one step behind and flushed to the result
// callback with complete=false once the next one starts, or complete=true
// once ReadyForQuery confirms there is no next one.
func (c *Conn) stepSimpleQuery(ev event) {
	switch e := ev.(type) {
	case evRowDescription:
		c.flushSimpleResult(false)
		c.currentResult = NewResult(e.body.Fields)
		c.phase = phaseSimpleFetchData
	case evDataRow:
		if c.currentResult != nil {
			c.currentResult.AppendRow(e.body.Values)
		}
	case evCommandComplete:
		c.flushSimpleResult(false)
		if c.currentResult == nil {
			c.currentResult = NewResult(nil)
		}
		c.bufferedResult = c.currentResult
		c.currentResult = nil
		c.phase = phaseSimpleWaiting
	case evEmptyQuery:
		c.flushSimpleResult(false)
		c.bufferedResult = NewResult(nil)
		c.currentResult = nil
		c.phase = phaseSimpleWaiting
	case evErrorResponse:
		q := c.currentQuery
		c.currentQuery = nil
		c.currentResult = nil
		c.bufferedResult = nil
		c.recordQueryDuration("simple")
		if q != nil && q.OnError != nil {
			q.OnError(e.body)
		}
		// Stay in the current simple_query phase (waiting or fetch_data):
		// the backend always finishes an ErrorResponse with a
		// ReadyForQuery, status E or I.
	case evReadyForQuery:
		c.txStatus = e.body.Status
		q := c.currentQuery
		result := c.bufferedResult
		c.bufferedResult = nil
		c.currentQuery = nil
		c.currentResult = nil

		// The phase/state transition happens before the terminal callback
		// fires, so a callback that reentrantly calls Commit/Rollback (the
		// AutoCommit(false) path) sees a connection that is already ready
		// to accept it.
		if c.state == stateTransaction {
			c.phase = phaseTxIdle
		} else {
			c.phase = phaseNone
		}

		if result != nil {
			c.recordQueryDuration("simple")
		}
		if result != nil && q != nil && q.OnResult != nil {
			q.OnResult(result, true)
		}

		c.drainDeferred()
	default:
	}
}

func (c *Conn) flushSimpleResult(complete bool) {
	if c.bufferedResult == nil {
		return
	}

	result := c.bufferedResult
	c.bufferedResult = nil
	if c.currentQuery != nil && c.currentQuery.OnResult != nil {
		c.currentQuery.OnResult(result, complete)
	}
}
