package pgasync

import (
	"github.com/lib/pq/oid"
)

// OnResult is invoked once per statement with that statement's rows, after
// its CommandComplete/EmptyQueryResponse. complete is false for every
// statement of a multi-statement query string except the last, and true
// on the final call, made once ReadyForQuery ends the query. A query that
// fails ends through OnError instead, with no complete=true call.
type OnResult func(result *Result, complete bool)

// OnError is invoked at most once, in place of a terminal OnResult call,
// if the statement fails.
type OnError func(err error)

// Query is a request to run SQL on a connection, either as a simple-query
// string or, if ParamOIDs is non-nil, as an extended-query prepared
// statement bound with Values.
type Query struct {
	SQL       string
	ParamOIDs []oid.Oid
	Values    [][]byte // wire-format bytes per parameter; nil entry means SQL NULL

	OnResult OnResult
	OnError  OnError
}

// IsPrepared reports whether this query should run through the extended-
// query (Parse/Bind/Describe/Execute/Sync) pipeline.
func (q *Query) IsPrepared() bool {
	return q.ParamOIDs != nil
}

// NewSimpleQuery builds a simple-query request.
func NewSimpleQuery(sql string, onResult OnResult, onError OnError) *Query {
	return &Query{SQL: sql, OnResult: onResult, OnError: onError}
}

// NewPreparedQuery builds an extended-query request. values[i] is the
// wire-format bytes for paramOIDs[i]; a nil entry encodes SQL NULL.
func NewPreparedQuery(sql string, paramOIDs []oid.Oid, values [][]byte, onResult OnResult, onError OnError) *Query {
	return &Query{
		SQL:       sql,
		ParamOIDs: paramOIDs,
		Values:    values,
		OnResult:  onResult,
		OnError:   onError,
	}
}
