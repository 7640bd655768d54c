package pgasync

import (
	"crypto/sha256"
	"encoding/hex"

	"pgasync/protocol"

	"github.com/lib/pq/oid"
)

// StatementEntry is what the cache stores for one previously-parsed
// query: the server-assigned statement name, the parameter OIDs observed
// at first Parse, and the row description collected from the matching
// Describe.
type StatementEntry struct {
	Name           string
	ParamOIDs      []oid.Oid
	RowDescription []protocol.FieldDescription

	stale bool
}

// Stale reports whether MarkStale has flagged this entry. A flagged entry
// is kept rather than removed (its statement name and parameter OIDs are
// still correct on the server); only its RowDescription is in doubt. Conn
// never re-Describes a cached statement and never calls MarkStale itself,
// so the entries it creates are never flagged.
func (e *StatementEntry) Stale() bool {
	return e.stale
}

// StatementCache memoises prepared statements for a single connection,
// keyed by the exact query text. It is invalidated wholesale on
// connection reset; there is no eviction otherwise — the application
// controls growth by how many distinct query texts it executes.
//
// StatementCache is owned by exactly one Conn and touched only from that
// connection's own goroutine; it needs no internal locking.
type StatementCache struct {
	entries map[string]*StatementEntry
}

// NewStatementCache constructs an empty cache.
func NewStatementCache() *StatementCache {
	return &StatementCache{entries: make(map[string]*StatementEntry)}
}

// Get returns the cached entry for sql, if any.
func (c *StatementCache) Get(sql string) (*StatementEntry, bool) {
	e, ok := c.entries[sql]
	return e, ok
}

// Put inserts or replaces the cache entry for sql.
func (c *StatementCache) Put(sql string, entry *StatementEntry) {
	c.entries[sql] = entry
}

// MarkStale flags sql's cached entry as stale, if present, without
// removing it.
func (c *StatementCache) MarkStale(sql string) {
	if e, ok := c.entries[sql]; ok {
		e.stale = true
	}
}

// Clear drops every cached entry, used on connection reset.
func (c *StatementCache) Clear() {
	c.entries = make(map[string]*StatementEntry)
}

// StatementName deterministically derives a server-assigned statement
// name from sql: a short hex digest, prefixed so it can't collide with
// hand-named statements and so server logs make it recognizable as
// library-issued.
func (c *StatementCache) StatementName(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return "pgasync_" + hex.EncodeToString(sum[:8])
}
