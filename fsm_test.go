package pgasync

import (
	"bytes"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"pgasync/buffer"
	"pgasync/protocol"
	"pgasync/wiremsg"

	"github.com/lib/pq/oid"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

// fakeBackend drives the server side of a net.Pipe-connected test Conn: it
// reads every frontend message the Conn sends and lets the test script
// canned backend messages back, the way original_source/'s fsm test
// fixture drives the FSM under test over a dummy transport.
type fakeBackend struct {
	t    *testing.T
	conn net.Conn
	reqs chan frontendMsg
}

type frontendMsg struct {
	tag  wiremsg.Frontend
	body []byte
}

func newFakeBackend(t *testing.T, conn net.Conn) *fakeBackend {
	t.Helper()
	b := &fakeBackend{t: t, conn: conn, reqs: make(chan frontendMsg, 64)}
	go b.readLoop()
	return b
}

func (b *fakeBackend) readLoop() {
	first := true
	for {
		if first {
			first = false
			lenBuf := make([]byte, 4)
			if _, err := io.ReadFull(b.conn, lenBuf); err != nil {
				close(b.reqs)
				return
			}
			length := binary.BigEndian.Uint32(lenBuf)
			body := make([]byte, int(length)-4)
			if len(body) > 0 {
				if _, err := io.ReadFull(b.conn, body); err != nil {
					close(b.reqs)
					return
				}
			}
			b.reqs <- frontendMsg{tag: wiremsg.FrontendStartup, body: body}
			continue
		}

		header := make([]byte, 5)
		if _, err := io.ReadFull(b.conn, header); err != nil {
			close(b.reqs)
			return
		}
		tag := wiremsg.Frontend(header[0])
		length := binary.BigEndian.Uint32(header[1:5])
		body := make([]byte, int(length)-4)
		if len(body) > 0 {
			if _, err := io.ReadFull(b.conn, body); err != nil {
				close(b.reqs)
				return
			}
		}
		b.reqs <- frontendMsg{tag: tag, body: body}
	}
}

// next waits for the next frontend message, failing the test if none
// arrives in time.
func (b *fakeBackend) next(t *testing.T) frontendMsg {
	t.Helper()
	select {
	case m, ok := <-b.reqs:
		if !ok {
			t.Fatal("fakeBackend: connection closed while waiting for a frontend message")
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("fakeBackend: timed out waiting for a frontend message")
		return frontendMsg{}
	}
}

func (b *fakeBackend) send(tag wiremsg.Backend, body []byte) {
	b.t.Helper()
	frame := make([]byte, 0, 5+len(body))
	frame = append(frame, byte(tag))
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(4+len(body)))
	frame = append(frame, lenBuf...)
	frame = append(frame, body...)
	if _, err := b.conn.Write(frame); err != nil {
		b.t.Fatalf("fakeBackend: write: %v", err)
	}
}

func cString(s string) []byte {
	return append([]byte(s), 0)
}

func (b *fakeBackend) authOK() {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, uint32(wiremsg.AuthOK))
	b.send(wiremsg.BackendAuth, body)
}

func (b *fakeBackend) authMD5(salt [4]byte) {
	body := make([]byte, 8)
	binary.BigEndian.PutUint32(body[:4], uint32(wiremsg.AuthMD5Password))
	copy(body[4:], salt[:])
	b.send(wiremsg.BackendAuth, body)
}

func (b *fakeBackend) parameterStatus(name, value string) {
	var buf bytes.Buffer
	buf.Write(cString(name))
	buf.Write(cString(value))
	b.send(wiremsg.BackendParameterStatus, buf.Bytes())
}

func (b *fakeBackend) backendKeyData(pid, secret int32) {
	body := make([]byte, 8)
	binary.BigEndian.PutUint32(body[:4], uint32(pid))
	binary.BigEndian.PutUint32(body[4:], uint32(secret))
	b.send(wiremsg.BackendBackendKeyData, body)
}

func (b *fakeBackend) readyForQuery(status wiremsg.TransactionStatus) {
	b.send(wiremsg.BackendReady, []byte{byte(status)})
}

func (b *fakeBackend) rowDescription(names ...string) {
	var buf bytes.Buffer
	count := make([]byte, 2)
	binary.BigEndian.PutUint16(count, uint16(len(names)))
	buf.Write(count)
	for _, name := range names {
		buf.Write(cString(name))
		writeUint32(&buf, 0)                  // table OID
		writeInt16(&buf, 0)                   // column attr no
		writeUint32(&buf, uint32(oid.T_text))  // type OID
		writeInt16(&buf, -1)                  // type size
		writeInt32(&buf, -1)                  // type modifier
		writeInt16(&buf, 0)                   // format: text
	}
	b.send(wiremsg.BackendRowDescription, buf.Bytes())
}

func (b *fakeBackend) dataRow(values ...string) {
	var buf bytes.Buffer
	count := make([]byte, 2)
	binary.BigEndian.PutUint16(count, uint16(len(values)))
	buf.Write(count)
	for _, v := range values {
		writeInt32(&buf, int32(len(v)))
		buf.WriteString(v)
	}
	b.send(wiremsg.BackendDataRow, buf.Bytes())
}

func (b *fakeBackend) commandComplete(tag string) {
	b.send(wiremsg.BackendCommandComplete, cString(tag))
}

func (b *fakeBackend) emptyQuery() {
	b.send(wiremsg.BackendEmptyQuery, nil)
}

func (b *fakeBackend) parseComplete()   { b.send(wiremsg.BackendParseComplete, nil) }
func (b *fakeBackend) bindComplete()    { b.send(wiremsg.BackendBindComplete, nil) }
func (b *fakeBackend) noData()          { b.send(wiremsg.BackendNoData, nil) }
func (b *fakeBackend) portalSuspended() { b.send(wiremsg.BackendPortalSuspended, nil) }

func (b *fakeBackend) errorResponse(code, message string) {
	var buf bytes.Buffer
	buf.WriteByte('S')
	buf.Write(cString("ERROR"))
	buf.WriteByte('C')
	buf.Write(cString(code))
	buf.WriteByte('M')
	buf.Write(cString(message))
	buf.WriteByte(0)
	b.send(wiremsg.BackendErrorResponse, buf.Bytes())
}

func writeInt16(buf *bytes.Buffer, v int16) {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	buf.Write(b)
}

func writeInt32(buf *bytes.Buffer, v int32) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	buf.Write(b)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	buf.Write(b)
}

// newTestConn wires a Conn directly to one end of a net.Pipe, bypassing
// Dial's network dialer, and returns the fake backend driving the other
// end. The Conn starts in the same state Dial leaves it in right after
// writing the StartupMessage.
func newTestConn(t *testing.T, opts ...Option) (*Conn, *fakeBackend) {
	t.Helper()

	cfg := &ConnConfig{
		Alias:    "test",
		Schema:   SchemaTCP,
		User:     "user",
		Password: "pass",
		Database: "db",
	}

	allOpts := append([]Option{Logger(slogt.New(t))}, opts...)
	c := newConn(cfg, allOpts...)

	clientSide, serverSide := net.Pipe()
	c.transport = clientSide
	c.reader = buffer.NewReader(c.logger, clientSide, 0)
	c.state = stateConnecting
	c.phase = phaseConnectingStartup
	c.authUser = cfg.User
	c.authPassword = cfg.Password

	msg, err := protocol.EncodeStartupMessage(c.logger, map[string]string{"user": cfg.User, "database": cfg.Database})
	require.NoError(t, err)

	backend := newFakeBackend(t, serverSide)

	go func() {
		_, _ = clientSide.Write(msg)
	}()
	go c.readLoop()
	go c.run()

	t.Cleanup(func() {
		_ = clientSide.Close()
		_ = serverSide.Close()
	})

	return c, backend
}

// handshake drives a test Conn through AuthenticationOK and the startup
// ParameterStatus/BackendKeyData/ReadyForQuery sequence, leaving it idle.
func handshake(t *testing.T, backend *fakeBackend) {
	t.Helper()
	backend.next(t) // StartupMessage
	backend.authOK()
	backend.parameterStatus("server_version", "16.0")
	backend.backendKeyData(1234, 5678)
	backend.readyForQuery(wiremsg.TxIdle)
}

func TestConnHandshakeAndSimpleQuery(t *testing.T) {
	c, backend := newTestConn(t)

	ready := make(chan error, 1)
	c.onReady = func(err error) { ready <- err }

	handshake(t, backend)
	require.NoError(t, <-ready)

	type rowResult struct {
		result   *Result
		complete bool
	}
	results := make(chan rowResult, 4)
	errs := make(chan error, 1)

	c.Execute(NewSimpleQuery("SELECT name FROM users",
		func(result *Result, complete bool) { results <- rowResult{result, complete} },
		func(err error) { errs <- err },
	))

	req := backend.next(t)
	require.Equal(t, wiremsg.FrontendQuery, req.tag)

	backend.rowDescription("name")
	backend.dataRow("alice")
	backend.dataRow("bob")
	backend.commandComplete("SELECT 2")
	backend.readyForQuery(wiremsg.TxIdle)

	select {
	case r := <-results:
		require.True(t, r.complete)
		require.Equal(t, 2, r.result.RowCount())
		v, null, err := r.result.Value(0, 0)
		require.NoError(t, err)
		require.False(t, null)
		require.Equal(t, "alice", string(v))
	case err := <-errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for query result")
	}
}

func TestConnSimpleQueryErrorEntersFailedTransaction(t *testing.T) {
	c, backend := newTestConn(t)
	ready := make(chan error, 1)
	c.onReady = func(err error) { ready <- err }
	handshake(t, backend)
	require.NoError(t, <-ready)

	begun := make(chan error, 1)
	c.Begin(func(scope *Scope, err error) { begun <- err })
	req := backend.next(t)
	require.Equal(t, wiremsg.FrontendQuery, req.tag)
	backend.commandComplete("BEGIN")
	backend.readyForQuery(wiremsg.TxBlock)
	require.NoError(t, <-begun)

	errs := make(chan error, 1)
	c.Execute(NewSimpleQuery("SELECT 1/0",
		func(*Result, bool) {},
		func(err error) { errs <- err },
	))
	req = backend.next(t)
	require.Equal(t, wiremsg.FrontendQuery, req.tag)
	backend.errorResponse("22012", "division by zero")
	backend.readyForQuery(wiremsg.TxFailed)

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for query error")
	}

	require.True(t, c.InTransaction())
}

func TestConnDeferredTerminateWaitsForInFlightQuery(t *testing.T) {
	c, backend := newTestConn(t)
	ready := make(chan error, 1)
	c.onReady = func(err error) { ready <- err }
	handshake(t, backend)
	require.NoError(t, <-ready)

	begun := make(chan error, 1)
	c.Begin(func(scope *Scope, err error) { begun <- err })
	backend.next(t)
	backend.commandComplete("BEGIN")
	backend.readyForQuery(wiremsg.TxBlock)
	require.NoError(t, <-begun)

	done := make(chan bool, 1)
	c.Execute(NewSimpleQuery("UPDATE users SET active = true",
		func(result *Result, complete bool) {
			if complete {
				done <- true
			}
		},
		func(err error) { t.Fatalf("unexpected error: %v", err) },
	))

	req := backend.next(t)
	require.Equal(t, wiremsg.FrontendQuery, req.tag)

	// Terminate is issued while the query above is still in flight; it must
	// be deferred until that query's ReadyForQuery drains the queue.
	c.Terminate()

	backend.commandComplete("UPDATE 1")
	backend.readyForQuery(wiremsg.TxBlock)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the in-flight query to finish")
	}

	// Terminate, having been deferred, now drains and the connection closes.
	req = backend.next(t)
	require.Equal(t, wiremsg.FrontendTerminate, req.tag)
}

func TestConnExtendedQueryCachesPreparedStatement(t *testing.T) {
	c, backend := newTestConn(t)
	ready := make(chan error, 1)
	c.onReady = func(err error) { ready <- err }
	handshake(t, backend)
	require.NoError(t, <-ready)

	const sql = "SELECT * FROM users WHERE id = $1"

	runOnce := func() {
		results := make(chan bool, 1)
		c.Execute(NewPreparedQuery(sql, []oid.Oid{oid.T_int4}, [][]byte{[]byte("1")},
			func(result *Result, complete bool) {
				if complete {
					results <- true
				}
			},
			func(err error) { t.Fatalf("unexpected error: %v", err) },
		))

		req := backend.next(t)
		require.Equal(t, wiremsg.FrontendParse, req.tag)
		req = backend.next(t)
		require.Equal(t, wiremsg.FrontendDescribe, req.tag)
		req = backend.next(t)
		require.Equal(t, wiremsg.FrontendFlush, req.tag)

		backend.parseComplete()
		backend.rowDescription("id")
		req = backend.next(t)
		require.Equal(t, wiremsg.FrontendBind, req.tag)
		req = backend.next(t)
		require.Equal(t, wiremsg.FrontendExecute, req.tag)
		req = backend.next(t)
		require.Equal(t, wiremsg.FrontendSync, req.tag)

		backend.bindComplete()
		backend.dataRow("1")
		backend.commandComplete("SELECT 1")
		backend.readyForQuery(wiremsg.TxIdle)

		select {
		case <-results:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for prepared query result")
		}
	}

	runOnce()
	_, hit := c.cache.Get(sql)
	require.True(t, hit)

	// Second run against the same SQL must skip Parse/Describe/Flush
	// entirely and go straight to Bind/Execute/Sync.
	results := make(chan bool, 1)
	c.Execute(NewPreparedQuery(sql, []oid.Oid{oid.T_int4}, [][]byte{[]byte("2")},
		func(result *Result, complete bool) {
			if complete {
				results <- true
			}
		},
		func(err error) { t.Fatalf("unexpected error: %v", err) },
	))

	req := backend.next(t)
	require.Equal(t, wiremsg.FrontendBind, req.tag)
	req = backend.next(t)
	require.Equal(t, wiremsg.FrontendExecute, req.tag)
	req = backend.next(t)
	require.Equal(t, wiremsg.FrontendSync, req.tag)

	backend.bindComplete()
	backend.dataRow("2")
	backend.commandComplete("SELECT 1")
	backend.readyForQuery(wiremsg.TxIdle)

	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cached prepared query result")
	}
}

func TestConnHandshakeWithMD5Auth(t *testing.T) {
	c, backend := newTestConn(t)
	ready := make(chan error, 1)
	c.onReady = func(err error) { ready <- err }

	backend.next(t) // StartupMessage
	backend.authMD5([4]byte{0xAA, 0xBB, 0xCC, 0xDD})

	req := backend.next(t)
	require.Equal(t, wiremsg.FrontendPassword, req.tag)

	backend.authOK()
	backend.parameterStatus("server_version", "16.0")
	backend.backendKeyData(42, 99)
	backend.readyForQuery(wiremsg.TxIdle)

	require.NoError(t, <-ready)
}

func TestConnExtendedQueryNoDataBranch(t *testing.T) {
	c, backend := newTestConn(t)
	ready := make(chan error, 1)
	c.onReady = func(err error) { ready <- err }
	handshake(t, backend)
	require.NoError(t, <-ready)

	done := make(chan bool, 1)
	c.Execute(NewPreparedQuery("UPDATE users SET active = true WHERE id = $1",
		[]oid.Oid{oid.T_int4}, [][]byte{[]byte("1")},
		func(result *Result, complete bool) {
			if complete {
				require.Equal(t, 0, result.RowCount())
				done <- true
			}
		},
		func(err error) { t.Fatalf("unexpected error: %v", err) },
	))

	req := backend.next(t)
	require.Equal(t, wiremsg.FrontendParse, req.tag)
	req = backend.next(t)
	require.Equal(t, wiremsg.FrontendDescribe, req.tag)
	req = backend.next(t)
	require.Equal(t, wiremsg.FrontendFlush, req.tag)

	backend.parseComplete()
	backend.noData()

	req = backend.next(t)
	require.Equal(t, wiremsg.FrontendBind, req.tag)
	req = backend.next(t)
	require.Equal(t, wiremsg.FrontendExecute, req.tag)
	req = backend.next(t)
	require.Equal(t, wiremsg.FrontendSync, req.tag)

	backend.bindComplete()
	backend.commandComplete("UPDATE 1")
	backend.readyForQuery(wiremsg.TxIdle)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for no-data prepared query result")
	}
}

func TestConnAutoCommitFalseWrapsExecuteInImplicitTransaction(t *testing.T) {
	c, backend := newTestConn(t, AutoCommit(false))
	ready := make(chan error, 1)
	c.onReady = func(err error) { ready <- err }
	handshake(t, backend)
	require.NoError(t, <-ready)

	done := make(chan bool, 1)
	c.Execute(NewSimpleQuery("UPDATE users SET active = true",
		func(result *Result, complete bool) {
			if complete {
				done <- true
			}
		},
		func(err error) { t.Fatalf("unexpected error: %v", err) },
	))

	req := backend.next(t)
	require.Equal(t, wiremsg.FrontendQuery, req.tag) // BEGIN
	backend.commandComplete("BEGIN")
	backend.readyForQuery(wiremsg.TxBlock)

	req = backend.next(t)
	require.Equal(t, wiremsg.FrontendQuery, req.tag) // UPDATE
	backend.commandComplete("UPDATE 3")
	backend.readyForQuery(wiremsg.TxBlock)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for implicit-transaction result")
	}

	// The reentrant OnResult callback must have already issued COMMIT by
	// the time this goroutine gets to check the wire.
	req = backend.next(t)
	require.Equal(t, wiremsg.FrontendQuery, req.tag) // COMMIT
	backend.commandComplete("COMMIT")
	backend.readyForQuery(wiremsg.TxIdle)

	require.False(t, c.InTransaction())
}
