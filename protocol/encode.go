package protocol

import (
	"bytes"
	"log/slog"
	"sort"

	"pgasync/buffer"
	"pgasync/wiremsg"
)

// frame runs build against a fresh Writer backed by an in-memory sink and
// returns the finished bytes. Every Encode* function is a thin,
// stateless wrapper around this: given a tag and typed fields, produce a
// byte buffer, per the message codec's encode contract.
func frame(logger *slog.Logger, typed bool, tag wiremsg.Frontend, build func(w *buffer.Writer)) ([]byte, error) {
	var sink bytes.Buffer
	w := buffer.NewWriter(logger, &sink)

	if typed {
		w.Start(tag)
	} else {
		w.StartUntyped()
	}

	build(w)

	if err := w.End(); err != nil {
		return nil, err
	}

	return sink.Bytes(), nil
}

// EncodeStartupMessage builds the untagged StartupMessage: protocol
// version, then NUL-terminated key/value pairs, then a trailing NUL. Keys
// are sorted so encoding is deterministic (useful for the round-trip
// test and for reproducible logs).
func EncodeStartupMessage(logger *slog.Logger, params map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return frame(logger, false, 0, func(w *buffer.Writer) {
		w.AddInt32(int32(wiremsg.Version30))
		for _, k := range keys {
			w.AddString(k)
			w.AddNullTerminate()
			w.AddString(params[k])
			w.AddNullTerminate()
		}
		w.AddNullTerminate()
	})
}

// EncodePasswordMessage builds a PasswordMessage. password is sent as-is:
// the caller passes either the cleartext password or the already-hashed
// "md5"-prefixed hex digest, depending on which Authentication* request
// was received.
func EncodePasswordMessage(logger *slog.Logger, password string) ([]byte, error) {
	return frame(logger, true, wiremsg.FrontendPassword, func(w *buffer.Writer) {
		w.AddString(password)
		w.AddNullTerminate()
	})
}

// EncodeQuery builds a simple-query protocol Query message.
func EncodeQuery(logger *slog.Logger, sql string) ([]byte, error) {
	return frame(logger, true, wiremsg.FrontendQuery, func(w *buffer.Writer) {
		w.AddString(sql)
		w.AddNullTerminate()
	})
}

// EncodeParse builds the extended-query Parse message. An empty name
// targets the unnamed prepared statement.
func EncodeParse(logger *slog.Logger, name, sql string, paramOIDs []uint32) ([]byte, error) {
	return frame(logger, true, wiremsg.FrontendParse, func(w *buffer.Writer) {
		w.AddString(name)
		w.AddNullTerminate()
		w.AddString(sql)
		w.AddNullTerminate()
		w.AddInt16(int16(len(paramOIDs)))
		for _, o := range paramOIDs {
			w.AddInt32(int32(o))
		}
	})
}

// BindParam is a single bind parameter: Value nil means SQL NULL.
type BindParam struct {
	Value  []byte
	Format buffer.FormatCode
}

// EncodeBind builds the extended-query Bind message, binding statement
// name to portal with the given parameters. resultFormat applies to every
// result column; this client always requests text format, since it has
// no typed binary decoders.
func EncodeBind(logger *slog.Logger, portal, statement string, params []BindParam, resultFormat buffer.FormatCode) ([]byte, error) {
	return frame(logger, true, wiremsg.FrontendBind, func(w *buffer.Writer) {
		w.AddString(portal)
		w.AddNullTerminate()
		w.AddString(statement)
		w.AddNullTerminate()

		w.AddInt16(int16(len(params)))
		for _, p := range params {
			w.AddInt16(int16(p.Format))
		}

		w.AddInt16(int16(len(params)))
		for _, p := range params {
			if p.Value == nil {
				w.AddInt32(-1)
				continue
			}
			w.AddInt32(int32(len(p.Value)))
			w.AddBytes(p.Value)
		}

		w.AddInt16(1)
		w.AddInt16(int16(resultFormat))
	})
}

// EncodeDescribe builds a Describe message for either a statement or a
// portal, selected by kind.
func EncodeDescribe(logger *slog.Logger, kind buffer.DescribeType, name string) ([]byte, error) {
	return frame(logger, true, wiremsg.FrontendDescribe, func(w *buffer.Writer) {
		w.AddByte(byte(kind))
		w.AddString(name)
		w.AddNullTerminate()
	})
}

// EncodeExecute builds an Execute message. maxRows of 0 requests all rows.
func EncodeExecute(logger *slog.Logger, portal string, maxRows int32) ([]byte, error) {
	return frame(logger, true, wiremsg.FrontendExecute, func(w *buffer.Writer) {
		w.AddString(portal)
		w.AddNullTerminate()
		w.AddInt32(maxRows)
	})
}

// EncodeSync builds a Sync message, the extended-query pipeline's
// resynchronisation point.
func EncodeSync(logger *slog.Logger) ([]byte, error) {
	return frame(logger, true, wiremsg.FrontendSync, func(w *buffer.Writer) {})
}

// EncodeFlush builds a Flush message, requesting the server send any
// pending output without waiting for Sync.
func EncodeFlush(logger *slog.Logger) ([]byte, error) {
	return frame(logger, true, wiremsg.FrontendFlush, func(w *buffer.Writer) {})
}

// EncodeClose builds a Close message for either a statement or a portal.
func EncodeClose(logger *slog.Logger, kind buffer.DescribeType, name string) ([]byte, error) {
	return frame(logger, true, wiremsg.FrontendClose, func(w *buffer.Writer) {
		w.AddByte(byte(kind))
		w.AddString(name)
		w.AddNullTerminate()
	})
}

// EncodeTerminate builds a Terminate message.
func EncodeTerminate(logger *slog.Logger) ([]byte, error) {
	return frame(logger, true, wiremsg.FrontendTerminate, func(w *buffer.Writer) {})
}
