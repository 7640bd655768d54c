package pgasync

import (
	"time"

	"pgasync/buffer"
	"pgasync/pgerr"
	"pgasync/protocol"
)

// startExtendedQuery runs q through the Parse/Bind/Describe/Execute/Sync
// pipeline, skipping straight to Bind+Execute+Sync when q.SQL is already
// cached under a live (non-stale) statement name.
func (c *Conn) startExtendedQuery(q *Query) {
	entry, hit := c.cache.Get(q.SQL)
	cacheable := hit && !entry.Stale()

	if c.metrics != nil {
		if cacheable {
			c.metrics.CacheHit()
		} else {
			c.metrics.CacheMiss()
		}
	}

	if cacheable {
		c.extSQL = q.SQL
		c.extStatementName = entry.Name
		c.extParamOIDs = entry.ParamOIDs
		c.extRowDesc = entry.RowDescription

		if err := c.sendBindExecSync(q, entry.Name); err != nil {
			return
		}

		c.currentQuery = q
		c.currentResult = nil
		c.bufferedResult = nil
		c.queryStart = time.Now()
		c.phase = phaseExtBind
		return
	}

	name := c.cache.StatementName(q.SQL)
	paramOIDs := make([]uint32, len(q.ParamOIDs))
	for i, o := range q.ParamOIDs {
		paramOIDs[i] = uint32(o)
	}

	parseMsg, err := protocol.EncodeParse(c.logger, name, q.SQL, paramOIDs)
	if err != nil {
		if q.OnError != nil {
			q.OnError(pgerr.Client(err))
		}
		return
	}

	describeMsg, err := protocol.EncodeDescribe(c.logger, buffer.DescribeStatement, name)
	if err != nil {
		if q.OnError != nil {
			q.OnError(pgerr.Client(err))
		}
		return
	}

	flushMsg, err := protocol.EncodeFlush(c.logger)
	if err != nil {
		if q.OnError != nil {
			q.OnError(pgerr.Client(err))
		}
		return
	}

	if err := c.send(parseMsg, describeMsg, flushMsg); err != nil {
		c.failTransport(err)
		return
	}

	c.extSQL = q.SQL
	c.extStatementName = name
	c.extParamOIDs = q.ParamOIDs
	c.extRowDesc = nil
	c.currentQuery = q
	c.currentResult = nil
	c.bufferedResult = nil
	c.queryStart = time.Now()
	c.phase = phaseExtParse
}

// sendBindExecSync binds stmtName to the unnamed portal with q's values
// and sends Execute and Sync in the same write. Every bind parameter and
// every result column travels as text; this client carries no typed
// binary decoders.
func (c *Conn) sendBindExecSync(q *Query, stmtName string) error {
	params := make([]protocol.BindParam, len(q.Values))
	for i, v := range q.Values {
		params[i] = protocol.BindParam{Value: v, Format: buffer.FormatText}
	}

	bindMsg, err := protocol.EncodeBind(c.logger, "", stmtName, params, buffer.FormatText)
	if err != nil {
		if q.OnError != nil {
			q.OnError(pgerr.Client(err))
		}
		return err
	}

	execMsg, err := protocol.EncodeExecute(c.logger, "", 0)
	if err != nil {
		if q.OnError != nil {
			q.OnError(pgerr.Client(err))
		}
		return err
	}

	syncMsg, err := protocol.EncodeSync(c.logger)
	if err != nil {
		if q.OnError != nil {
			q.OnError(pgerr.Client(err))
		}
		return err
	}

	if err := c.send(bindMsg, execMsg, syncMsg); err != nil {
		c.failTransport(err)
		return err
	}

	return nil
}

func (c *Conn) stepExtendedQuery(ev event) {
	switch e := ev.(type) {
	case evParseComplete:
		c.phase = phaseExtDescribe
	case evParameterDescription:
		c.extParamOIDs = e.body.OIDs
	case evRowDescription:
		c.extRowDesc = e.body.Fields
		c.cache.Put(c.extSQL, &StatementEntry{Name: c.extStatementName, ParamOIDs: c.extParamOIDs, RowDescription: c.extRowDesc})
		if err := c.sendBindExecSync(c.currentQuery, c.extStatementName); err != nil {
			return
		}
		c.phase = phaseExtBind
	case evNoData:
		c.extRowDesc = nil
		c.cache.Put(c.extSQL, &StatementEntry{Name: c.extStatementName, ParamOIDs: c.extParamOIDs, RowDescription: nil})
		if err := c.sendBindExecSync(c.currentQuery, c.extStatementName); err != nil {
			return
		}
		c.phase = phaseExtBind
	case evBindComplete:
		c.currentResult = NewResult(c.extRowDesc)
		c.phase = phaseExtExec
	case evDataRow:
		if c.currentResult != nil {
			c.currentResult.AppendRow(e.body.Values)
		}
	case evCommandComplete:
		c.finishExtResult()
	case evEmptyQuery:
		c.bufferedResult = NewResult(nil)
		c.currentResult = nil
		c.phase = phaseExtSync
	case evPortalSuspended:
		// Execute always requests all rows (maxRows 0); a real server
		// should never suspend a portal on this client. Handled like
		// CommandComplete in case one ever does.
		c.finishExtResult()
	case evErrorResponse:
		c.failExtendedQuery(e.body)
	case evReadyForQuery:
		c.txStatus = e.body.Status
		q := c.currentQuery
		result := c.bufferedResult
		c.bufferedResult = nil
		c.currentQuery = nil
		c.currentResult = nil
		c.extSQL = ""
		c.extStatementName = ""
		c.extParamOIDs = nil
		c.extRowDesc = nil

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
			c.recordQueryDuration("prepared")
		}
		if result != nil && q != nil && q.OnResult != nil {
			q.OnResult(result, true)
		}

		c.drainDeferred()
	default:
	}
}

func (c *Conn) finishExtResult() {
	if c.currentResult == nil {
		c.currentResult = NewResult(c.extRowDesc)
	}
	c.bufferedResult = c.currentResult
	c.currentResult = nil
	c.phase = phaseExtSync
}

func (c *Conn) failExtendedQuery(dberr pgerr.DBError) {
	q := c.currentQuery
	c.currentQuery = nil
	c.currentResult = nil
	c.bufferedResult = nil
	c.recordQueryDuration("prepared")
	if q != nil && q.OnError != nil {
		q.OnError(dberr)
	}

	if c.phase == phaseExtParse || c.phase == phaseExtDescribe {
		// Bind+Execute+Sync, which carries Sync, was never sent for this
		// attempt; the cache-miss path only sent Parse/Describe/Flush.
		// Emit Sync now so the backend resynchronises.
		if msg, err := protocol.EncodeSync(c.logger); err == nil {
			_ = c.send(msg)
		}
	}

	c.phase = phaseExtSync
}
