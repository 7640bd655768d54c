package pgasync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pgasync/buffer"
	"pgasync/internal/pgmetrics"
	"pgasync/pgerr"
	"pgasync/protocol"
	"pgasync/transport"
	"pgasync/wiremsg"

	"github.com/lib/pq/oid"
)

// errClosed is returned to any call made against a connection whose FSM
// goroutine has already exited.
var errClosed = errors.New("pgasync: connection closed")

// Conn is a single asynchronous connection to a PostgreSQL backend. All
// protocol state lives behind one goroutine (run); every exported method
// only ever communicates with it by posting an event and returning
// immediately. Results, errors and transaction readiness are delivered
// back through the callbacks supplied to Begin/Execute/Commit/Rollback,
// invoked from that same goroutine.
type Conn struct {
	config        *ConnConfig
	logger        *slog.Logger
	startupParams map[string]string
	autoCommit    bool

	onConnectionError func(error)
	onNotice          func(DBNotice)
	onNotification    func(channel, payload string)
	onReady           func(error)
	metrics           *pgmetrics.Collector

	transport transport.Transport
	reader    *buffer.Reader

	cache *StatementCache

	state state
	phase phase

	deferredQueue []event

	// Authentication, stashed from ConnConfig at Dial and cleared once the
	// handshake finishes.
	authUser     string
	authPassword string

	// In-flight statement, valid for the duration of exactly one
	// simple_query or extended_query round trip.
	currentQuery   *Query
	currentResult  *Result
	bufferedResult *Result
	queryStart     time.Time

	extSQL           string
	extStatementName string
	extParamOIDs     []oid.Oid
	extRowDesc       []protocol.FieldDescription

	beginCallback func(*Scope, error)
	exitCallback  func(error)
	exitErr       error
	readyFired    bool

	backendKeyData protocol.BackendKeyData
	params         map[string]string
	txStatus       wiremsg.TransactionStatus

	events chan event
	done   chan struct{}
}

// newConn applies defaults and every Option, but does not dial anything.
func newConn(cfg *ConnConfig, opts ...Option) *Conn {
	c := &Conn{
		config:        cfg,
		logger:        slog.Default(),
		startupParams: map[string]string{},
		autoCommit:    true,
		cache:         NewStatementCache(),
		params:        map[string]string{},
		events:        make(chan event, 64),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Dial opens a transport to cfg's address, sends the StartupMessage, and
// starts the connection's goroutines. It returns as soon as the transport
// is established and the StartupMessage is written; the handshake itself
// (authentication, ReadyForQuery) completes asynchronously and is
// reported through the OnReady and OnConnectionError options.
func Dial(ctx context.Context, cfg *ConnConfig, opts ...Option) (*Conn, error) {
	c := newConn(cfg, opts...)

	var (
		tp  transport.Transport
		err error
	)
	if cfg.Schema == SchemaSocket {
		tp, err = transport.DialUnix(ctx, cfg.Address())
	} else {
		tp, err = transport.DialTCP(ctx, cfg.Address())
	}
	if err != nil {
		return nil, pgerr.Connection(err)
	}

	c.transport = tp
	c.reader = buffer.NewReader(c.logger, tp, 0)
	c.state = stateConnecting
	c.phase = phaseConnectingStartup
	c.authUser = cfg.User
	c.authPassword = cfg.Password

	params := map[string]string{"user": cfg.User, "database": cfg.Database}
	for k, v := range cfg.StartupParams {
		params[k] = v
	}
	for k, v := range c.startupParams {
		params[k] = v
	}

	msg, err := protocol.EncodeStartupMessage(c.logger, params)
	if err != nil {
		_ = tp.Close()
		return nil, pgerr.Client(err)
	}

	if _, err := tp.Write(msg); err != nil {
		_ = tp.Close()
		return nil, pgerr.Connection(err)
	}

	go c.readLoop()
	go c.run()

	return c, nil
}

// run is the FSM's single goroutine: every state mutation, every write to
// the transport and every callback invocation happens here.
func (c *Conn) run() {
	defer close(c.done)

	for ev := range c.events {
		c.handle(ev)
		if c.state == stateTerminated {
			return
		}
	}
}

// dispatch posts ev to the FSM goroutine, or runs onClosed synchronously
// if the connection has already shut down.
func (c *Conn) dispatch(ev event, onClosed func()) {
	select {
	case c.events <- ev:
	case <-c.done:
		onClosed()
	}
}

// Begin requests a new transaction. onReady is called exactly once, from
// the FSM goroutine, with either a usable Scope or the error that
// prevented one.
func (c *Conn) Begin(onReady func(*Scope, error)) {
	c.dispatch(evBegin{onReady: onReady}, func() {
		onReady(nil, pgerr.Client(errClosed))
	})
}

// Execute runs q. From idle it runs as a standalone, autocommit statement
// outside any transaction block (or, if AutoCommit(false) was set, opens an
// implicit transaction first — see the AutoCommit option); while a
// transaction is open, as when called through a Scope, it runs inside it.
func (c *Conn) Execute(q *Query) {
	var ev event
	if q.IsPrepared() {
		ev = evExecutePrepared{query: q}
	} else {
		ev = evExecute{query: q}
	}

	c.dispatch(ev, func() {
		if q.OnError != nil {
			q.OnError(pgerr.Client(errClosed))
		}
	})
}

// Terminate sends Terminate and closes the connection. Any operation
// still queued ahead of it runs first; any operation queued behind it
// fails with a connection-closed error.
func (c *Conn) Terminate() {
	c.dispatch(evTerminate{}, func() {})
}

func (c *Conn) commit(onDone func(error)) {
	c.dispatch(evCommit{onDone: onDone}, func() {
		onDone(pgerr.Client(errClosed))
	})
}

func (c *Conn) rollback(onDone func(error)) {
	c.dispatch(evRollback{onDone: onDone}, func() {
		onDone(pgerr.Client(errClosed))
	})
}

// InTransaction reports whether the connection currently has an explicit
// transaction block open. Like BackendKeyData, it is only meaningful when
// called from one of the connection's own callbacks (OnResult, OnReady,
// OnDone, OnError), since those run on the FSM goroutine; calling it from
// an unrelated goroutine races with the FSM.
func (c *Conn) InTransaction() bool {
	return c.state == stateTransaction
}

// BackendKeyData returns the process ID and secret key the backend
// assigned at startup, for a future CancelRequest. See InTransaction for
// the same goroutine caveat.
func (c *Conn) BackendKeyData() protocol.BackendKeyData {
	return c.backendKeyData
}

// send concatenates frames into a single Write call, so that the
// transport never observes a partially interleaved message even when a
// step sends more than one frame at a time (e.g. Parse+Describe+Flush).
func (c *Conn) send(frames ...[]byte) error {
	total := 0
	for _, f := range frames {
		total += len(f)
	}

	buf := make([]byte, 0, total)
	for _, f := range frames {
		buf = append(buf, f...)
	}

	_, err := c.transport.Write(buf)
	return err
}

// recordQueryDuration reports how long the in-flight query took, measured
// from the matching startSimpleQuery/startExtendedQuery call. A no-op
// without a configured Metrics collector.
func (c *Conn) recordQueryDuration(kind string) {
	if c.metrics == nil || c.queryStart.IsZero() {
		return
	}
	c.metrics.ObserveQuery(kind, time.Since(c.queryStart).Seconds())
	c.queryStart = time.Time{}
}

func (c *Conn) transition(to state, ev string) {
	if c.metrics != nil {
		c.metrics.Transition(c.state.String(), to.String(), ev)
	}
	c.state = to
}
