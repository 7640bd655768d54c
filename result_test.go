package pgasync

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pgasync/protocol"
)

func TestResultAppendAndValue(t *testing.T) {
	res := NewResult([]protocol.FieldDescription{{Name: "id"}, {Name: "name"}})
	res.AppendRow([][]byte{[]byte("1"), []byte("alice")})
	res.AppendRow([][]byte{[]byte("2"), nil})

	assert.Equal(t, 2, res.RowCount())

	v, null, err := res.Value(0, 1)
	assert.NoError(t, err)
	assert.False(t, null)
	assert.Equal(t, "alice", string(v))

	_, null, err = res.Value(1, 1)
	assert.NoError(t, err)
	assert.True(t, null)
}

func TestResultOutOfRange(t *testing.T) {
	res := NewResult([]protocol.FieldDescription{{Name: "id"}})
	res.AppendRow([][]byte{[]byte("1")})

	_, _, err := res.Value(5, 0)
	assert.ErrorIs(t, err, ErrRowOutOfRange)

	_, _, err = res.Value(0, 5)
	assert.ErrorIs(t, err, ErrColumnOutOfRange)
}

func TestResultBounds(t *testing.T) {
	res := NewResult([]protocol.FieldDescription{{Name: "id"}})
	res.AppendRow([][]byte{[]byte("42")})

	offset, length, err := res.Bounds(0, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 2, length)
}
