package protocol

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"pgasync/buffer"
	"pgasync/wiremsg"
)

func decodeOne(t *testing.T, frame []byte) (wiremsg.Backend, *buffer.Reader) {
	t.Helper()
	r := buffer.NewReader(slog.Default(), bytes.NewReader(frame), 0)
	typ, _, err := r.ReadTypedMsg()
	assert.NoError(t, err)
	return typ, r
}

func TestEncodeQueryRoundTrip(t *testing.T) {
	frame, err := EncodeQuery(slog.Default(), "select 1")
	assert.NoError(t, err)

	typ, r := decodeOne(t, frame)
	assert.Equal(t, wiremsg.Backend(wiremsg.FrontendQuery), typ)

	sql, err := r.GetString()
	assert.NoError(t, err)
	assert.Equal(t, "select 1", sql)
}

func TestEncodeParseRoundTrip(t *testing.T) {
	frame, err := EncodeParse(slog.Default(), "stmt1", "select $1", []uint32{23})
	assert.NoError(t, err)

	typ, r := decodeOne(t, frame)
	assert.Equal(t, wiremsg.Backend(wiremsg.FrontendParse), typ)

	name, err := r.GetString()
	assert.NoError(t, err)
	assert.Equal(t, "stmt1", name)

	sql, err := r.GetString()
	assert.NoError(t, err)
	assert.Equal(t, "select $1", sql)

	count, err := r.GetInt16()
	assert.NoError(t, err)
	assert.EqualValues(t, 1, count)

	paramOID, err := r.GetUint32()
	assert.NoError(t, err)
	assert.EqualValues(t, 23, paramOID)
}

func TestEncodeBindRoundTrip(t *testing.T) {
	params := []BindParam{
		{Value: []byte("100500"), Format: buffer.FormatText},
		{Value: nil, Format: buffer.FormatText},
	}

	frame, err := EncodeBind(slog.Default(), "", "stmt1", params, buffer.FormatBinary)
	assert.NoError(t, err)

	typ, r := decodeOne(t, frame)
	assert.Equal(t, wiremsg.Backend(wiremsg.FrontendBind), typ)

	portal, err := r.GetString()
	assert.NoError(t, err)
	assert.Equal(t, "", portal)

	stmt, err := r.GetString()
	assert.NoError(t, err)
	assert.Equal(t, "stmt1", stmt)

	formatCount, err := r.GetInt16()
	assert.NoError(t, err)
	assert.EqualValues(t, 2, formatCount)
}

func TestEncodeStartupMessageRoundTrip(t *testing.T) {
	frame, err := EncodeStartupMessage(slog.Default(), map[string]string{
		"user":     "u",
		"database": "d",
	})
	assert.NoError(t, err)

	r := buffer.NewReader(slog.Default(), bytes.NewReader(frame), 0)
	n, err := r.ReadUntypedMsg()
	assert.NoError(t, err)
	assert.Greater(t, n, 0)

	version, err := r.GetInt32()
	assert.NoError(t, err)
	assert.EqualValues(t, wiremsg.Version30, version)

	key, err := r.GetString()
	assert.NoError(t, err)
	assert.Equal(t, "database", key) // "database" sorts before "user"
}

func TestDecodeReadyForQuery(t *testing.T) {
	var sink bytes.Buffer
	w := buffer.NewWriter(slog.Default(), &sink)
	w.Start(wiremsg.Frontend(wiremsg.BackendReady))
	w.AddByte('T')
	assert.NoError(t, w.End())

	_, r := decodeOne(t, sink.Bytes())
	rfq, err := DecodeReadyForQuery(r)
	assert.NoError(t, err)
	assert.Equal(t, wiremsg.TxBlock, rfq.Status)
}

func TestDecodeRowDescriptionAndDataRow(t *testing.T) {
	var sink bytes.Buffer
	w := buffer.NewWriter(slog.Default(), &sink)
	w.Start(wiremsg.Frontend(wiremsg.BackendRowDescription))
	w.AddInt16(1)
	w.AddString("id")
	w.AddNullTerminate()
	w.AddInt32(0)
	w.AddInt16(1)
	w.AddInt32(23)
	w.AddInt16(4)
	w.AddInt32(-1)
	w.AddInt16(0)
	assert.NoError(t, w.End())

	_, r := decodeOne(t, sink.Bytes())
	desc, err := DecodeRowDescription(r)
	assert.NoError(t, err)
	assert.Len(t, desc.Fields, 1)
	assert.Equal(t, "id", desc.Fields[0].Name)

	sink.Reset()
	w2 := buffer.NewWriter(slog.Default(), &sink)
	w2.Start(wiremsg.Frontend(wiremsg.BackendDataRow))
	w2.AddInt16(1)
	w2.AddInt32(1)
	w2.AddString("5")
	assert.NoError(t, w2.End())

	_, r2 := decodeOne(t, sink.Bytes())
	row, err := DecodeDataRow(r2)
	assert.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("5")}, row.Values)
}

func TestDecodeErrorFields(t *testing.T) {
	var sink bytes.Buffer
	w := buffer.NewWriter(slog.Default(), &sink)
	w.Start(wiremsg.Frontend(wiremsg.BackendErrorResponse))
	w.AddByte('S')
	w.AddString("ERROR")
	w.AddNullTerminate()
	w.AddByte('C')
	w.AddString("42P01")
	w.AddNullTerminate()
	w.AddByte('M')
	w.AddString(`relation "missing" does not exist`)
	w.AddNullTerminate()
	w.AddByte(0)
	assert.NoError(t, w.End())

	_, r := decodeOne(t, sink.Bytes())
	dberr, err := DecodeErrorFields(r)
	assert.NoError(t, err)
	assert.EqualValues(t, "42P01", dberr.Code)
	assert.Contains(t, dberr.Message, "does not exist")
}
