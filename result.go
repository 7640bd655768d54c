package pgasync

import (
	"errors"
	"fmt"

	"pgasync/pgerr"
	"pgasync/protocol"
)

// ErrRowOutOfRange is returned when a row index is outside [0, RowCount()).
var ErrRowOutOfRange = errors.New("row index out of range")

// ErrColumnOutOfRange is returned when a column index is outside
// [0, len(Fields())).
var ErrColumnOutOfRange = errors.New("column index out of range")

type cell struct {
	offset int
	length int
	null   bool
}

// Result holds one field description and the rows fetched for it so far.
// It never reorders or deduplicates rows, and is thread-confined to the
// connection's own goroutine until handed to the caller's result
// callback. Values are sliced out of a single append-only backing buffer
// (data) rather than copied per datum, mirroring the original
// implementation's buffer_bounds accessor: callers that need the raw
// offset/length pair (for a future zero-copy typed-value layer) can get
// it via Bounds instead of a copied []byte.
type Result struct {
	fields []protocol.FieldDescription
	data   []byte
	rows   [][]cell
}

// NewResult constructs a Result for the given field description.
func NewResult(fields []protocol.FieldDescription) *Result {
	return &Result{fields: fields}
}

// Fields returns the column metadata for this result set.
func (r *Result) Fields() []protocol.FieldDescription {
	return r.fields
}

// RowCount returns the number of rows appended so far.
func (r *Result) RowCount() int {
	return len(r.rows)
}

// AppendRow stores one DataRow's values, copying them once into the
// backing buffer.
func (r *Result) AppendRow(values [][]byte) {
	cells := make([]cell, len(values))
	for i, v := range values {
		if v == nil {
			cells[i] = cell{null: true}
			continue
		}

		offset := len(r.data)
		r.data = append(r.data, v...)
		cells[i] = cell{offset: offset, length: len(v)}
	}

	r.rows = append(r.rows, cells)
}

// Value returns the bytes and null flag for (row, col). An out-of-range
// index returns a wrapped ErrRowOutOfRange/ErrColumnOutOfRange rather
// than panicking or silently returning a zero value.
func (r *Result) Value(row, col int) ([]byte, bool, error) {
	if row < 0 || row >= len(r.rows) {
		return nil, false, pgerr.Query(fmt.Errorf("row %d: %w", row, ErrRowOutOfRange))
	}

	cells := r.rows[row]
	if col < 0 || col >= len(cells) {
		return nil, false, pgerr.Query(fmt.Errorf("column %d: %w", col, ErrColumnOutOfRange))
	}

	c := cells[col]
	if c.null {
		return nil, true, nil
	}

	return r.data[c.offset : c.offset+c.length], false, nil
}

// Bounds returns the raw (offset, length) of (row, col)'s bytes within
// the result's backing buffer, without copying. A null value has length
// 0; callers must still check the null flag via Value to tell it apart
// from an empty string.
func (r *Result) Bounds(row, col int) (offset, length int, err error) {
	if row < 0 || row >= len(r.rows) {
		return 0, 0, pgerr.Query(fmt.Errorf("row %d: %w", row, ErrRowOutOfRange))
	}

	cells := r.rows[row]
	if col < 0 || col >= len(cells) {
		return 0, 0, pgerr.Query(fmt.Errorf("column %d: %w", col, ErrColumnOutOfRange))
	}

	c := cells[col]
	return c.offset, c.length, nil
}
