package pgasync

import (
	"log/slog"

	"pgasync/internal/pgmetrics"
)

// Option configures a Conn at construction time.
type Option func(*Conn)

// Logger overrides the default slog logger used for protocol-level
// tracing.
func Logger(logger *slog.Logger) Option {
	return func(c *Conn) {
		c.logger = logger
	}
}

// StartupParam adds a key/value pair sent in the StartupMessage, in
// addition to "user" and "database" which are always derived from the
// ConnConfig (e.g. client_encoding, application_name).
func StartupParam(key, value string) Option {
	return func(c *Conn) {
		c.startupParams[key] = value
	}
}

// AutoCommit controls what an idle-state Execute does when called
// directly on a Conn rather than through a Scope: with AutoCommit(true)
// (the default) the statement runs as a standalone simple- or extended-
// query outside any transaction block; with AutoCommit(false) the
// connection wraps it in an implicit BEGIN ... COMMIT (or ROLLBACK, on
// OnError), transparently, without ever handing the caller a Scope. This
// resolves the open question in favor of never requiring the caller to
// remember to close a transaction they never explicitly opened.
func AutoCommit(enabled bool) Option {
	return func(c *Conn) {
		c.autoCommit = enabled
	}
}

// OnReady registers the callback invoked once, from the FSM goroutine,
// when the startup handshake finishes: nil on success (the connection is
// now idle and ready for Begin/Execute), or the error that failed it.
func OnReady(fn func(error)) Option {
	return func(c *Conn) {
		c.onReady = fn
	}
}

// OnConnectionError registers the callback invoked once when an
// established connection fails (a transport read/write or decode error),
// after the in-flight operation and every deferred one have received the
// error through their own callbacks. A failure before the startup
// handshake completes, including an ErrorResponse during startup, is
// reported through OnReady instead.
func OnConnectionError(fn func(error)) Option {
	return func(c *Conn) {
		c.onConnectionError = fn
	}
}

// OnNotice registers the callback invoked for every NoticeResponse the
// backend sends (non-error severities: WARNING, NOTICE, DEBUG, INFO, LOG).
func OnNotice(fn func(notice DBNotice)) Option {
	return func(c *Conn) {
		c.onNotice = fn
	}
}

// OnNotification registers the callback invoked for every asynchronous
// LISTEN/NOTIFY NotificationResponse the backend sends.
func OnNotification(fn func(channel, payload string)) Option {
	return func(c *Conn) {
		c.onNotification = fn
	}
}

// Metrics registers a pgmetrics.Collector the connection reports FSM
// transitions and query durations to. Metrics collection is opt-in: a nil
// collector (the default) means zero overhead and zero global state.
func Metrics(collector *pgmetrics.Collector) Option {
	return func(c *Conn) {
		c.metrics = collector
	}
}
