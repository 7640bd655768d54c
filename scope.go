package pgasync

import (
	"log/slog"
	"sync/atomic"

	"github.com/lib/pq/oid"
)

// Scope represents one open transaction block: every Execute issued
// through it runs inside that transaction, ending with exactly one
// Commit or Rollback.
type Scope struct {
	conn   *Conn
	exited atomic.Bool
}

// Execute runs sql as a simple-query statement inside the scope's
// transaction.
func (s *Scope) Execute(sql string, onResult OnResult, onError OnError) {
	s.conn.Execute(NewSimpleQuery(sql, onResult, onError))
}

// ExecutePrepared runs sql as a prepared statement inside the scope's
// transaction, using the cache the way a top-level Conn.Execute does.
func (s *Scope) ExecutePrepared(sql string, paramOIDs []oid.Oid, values [][]byte, onResult OnResult, onError OnError) {
	s.conn.Execute(NewPreparedQuery(sql, paramOIDs, values, onResult, onError))
}

// Commit ends the scope with a COMMIT. onDone is called exactly once.
func (s *Scope) Commit(onDone func(error)) {
	s.exited.Store(true)
	s.conn.commit(onDone)
}

// Rollback ends the scope with a ROLLBACK. onDone is called exactly once.
func (s *Scope) Rollback(onDone func(error)) {
	s.exited.Store(true)
	s.conn.rollback(onDone)
}

// InTransaction reports whether the scope's transaction is still open.
// See Conn.InTransaction for the goroutine caveat.
func (s *Scope) InTransaction() bool {
	return s.conn.InTransaction()
}

// Close is the scope's safety net, standing in for the destructor-driven
// implicit rollback of the implementation this package is modeled on: a
// Scope never explicitly committed or rolled back is rolled back here,
// with a warning logged, since reaching Close in that state almost always
// means the caller forgot rather than meant it.
func (s *Scope) Close() error {
	if s.exited.Swap(true) {
		return nil
	}

	s.conn.logger.Warn("scope closed without explicit commit or rollback; rolling back",
		slog.String("alias", s.conn.config.Alias))
	s.conn.rollback(func(error) {})
	return nil
}
