package buffer

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"pgasync/wiremsg"
)

func TestWriterTaggedMessage(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(slog.Default(), &buf)

	w.Start(wiremsg.FrontendQuery)
	w.AddString("select 1")
	w.AddNullTerminate()
	assert.NoError(t, w.End())

	out := buf.Bytes()
	assert.Equal(t, byte(wiremsg.FrontendQuery), out[0])

	length := binary.BigEndian.Uint32(out[1:5])
	assert.EqualValues(t, len(out)-1, length)
}

func TestWriterUntypedMessage(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(slog.Default(), &buf)

	w.StartUntyped()
	w.AddInt32(int32(wiremsg.Version30))
	assert.NoError(t, w.End())

	out := buf.Bytes()
	length := binary.BigEndian.Uint32(out[0:4])
	assert.EqualValues(t, len(out), length)
}
