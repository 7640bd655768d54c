package buffer

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"pgasync/wiremsg"
)

func TestReaderReadTypedMsg(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(slog.Default(), &buf)
	w.Start(wiremsg.FrontendQuery)
	w.AddString("select 1")
	w.AddNullTerminate()
	assert.NoError(t, w.End())

	r := NewReader(slog.Default(), &buf, 0)
	typ, _, err := r.ReadTypedMsg()
	assert.NoError(t, err)
	assert.Equal(t, wiremsg.Backend(wiremsg.FrontendQuery), typ)

	s, err := r.GetString()
	assert.NoError(t, err)
	assert.Equal(t, "select 1", s)
}

func TestReaderGetBytesNullValue(t *testing.T) {
	r := &Reader{Msg: []byte{}}
	v, err := r.GetBytes(-1)
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestReaderInsufficientData(t *testing.T) {
	r := &Reader{Msg: []byte{0x01}}
	_, err := r.GetUint32()
	assert.ErrorIs(t, err, ErrInsufficientData)
}
