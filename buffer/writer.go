package buffer

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"

	"pgasync/wiremsg"
)

// Writer provides a convenient way to build messages this client sends to
// the backend over the Postgres wire protocol.
type Writer struct {
	io.Writer
	logger *slog.Logger
	frame  bytes.Buffer
	putbuf [64]byte // buffer used to construct messages which could be written to the writer frame buffer
	typed  bool     // whether the current frame carries a leading tag byte
	err    error
}

// NewWriter constructs a new Postgres buffered message writer for the given io.Writer.
func NewWriter(logger *slog.Logger, writer io.Writer) *Writer {
	return &Writer{
		logger: logger,
		Writer: writer,
	}
}

// Start resets the buffer writer and starts a new tagged message with the
// given frontend message type. The message type (byte) and reserved message
// length bytes (int32) are written to the underlying bytes buffer.
func (writer *Writer) Start(t wiremsg.Frontend) {
	writer.Reset()
	writer.typed = true
	writer.putbuf[0] = byte(t)
	writer.frame.Write(writer.putbuf[:5]) // message type + message length
}

// StartUntyped resets the buffer writer and starts a new untagged message.
// StartupMessage, SSLRequest and CancelRequest are the only frontend
// messages that carry no leading tag byte.
func (writer *Writer) StartUntyped() {
	writer.Reset()
	writer.typed = false
	writer.frame.Write(writer.putbuf[:4]) // reserved message length
}

// AddByte writes the given byte to the writer frame. Bytes written to the
// frame could be read at any stage to interact with a Postgres server. Errors
// thrown while writing to the writer could be read by calling writer.Error()
func (writer *Writer) AddByte(b byte) {
	if writer.err != nil {
		return
	}

	writer.err = writer.frame.WriteByte(b)
}

// AddInt16 writes the given int16 to the writer frame.
func (writer *Writer) AddInt16(i int16) (size int) {
	if writer.err != nil {
		return size
	}

	x := make([]byte, 2)
	binary.BigEndian.PutUint16(x, uint16(i))
	size, writer.err = writer.frame.Write(x)
	return size
}

// AddInt32 writes the given int32 to the writer frame.
func (writer *Writer) AddInt32(i int32) (size int) {
	if writer.err != nil {
		return size
	}

	x := make([]byte, 4)
	binary.BigEndian.PutUint32(x, uint32(i))
	size, writer.err = writer.frame.Write(x)
	return size
}

// AddBytes writes the given bytes to the writer frame.
func (writer *Writer) AddBytes(b []byte) (size int) {
	if writer.err != nil {
		return size
	}

	size, writer.err = writer.frame.Write(b)
	return size
}

// AddString writes the given string to the writer frame.
func (writer *Writer) AddString(s string) (size int) {
	if writer.err != nil {
		return size
	}

	size, writer.err = writer.frame.WriteString(s)
	return size
}

// AddNullTerminate writes a null terminate symbol to the end of the given data frame.
func (writer *Writer) AddNullTerminate() {
	if writer.err != nil {
		return
	}

	writer.err = writer.frame.WriteByte(0)
}

func (writer *Writer) Error() error {
	return writer.err
}

// Bytes returns the written bytes to the active data frame.
func (writer *Writer) Bytes() []byte {
	return writer.frame.Bytes()
}

// Reset resets the data frame to be empty.
func (writer *Writer) Reset() {
	writer.frame.Reset()
	writer.err = nil
}

// End finalizes the prepared message, patching in its length prefix, and
// writes it to the underlying io.Writer. The protocol package's Encode*
// functions call it against an in-memory buffer; Conn then writes the
// finished bytes to the transport itself.
func (writer *Writer) End() error {
	defer writer.Reset()
	if writer.Error() != nil {
		return writer.Error()
	}

	frame := writer.frame.Bytes()

	if writer.typed {
		length := uint32(writer.frame.Len() - 1) // total length minus the message type byte
		binary.BigEndian.PutUint32(frame[1:5], length)
		writer.logger.Debug("-> writing message", slog.String("type", wiremsg.Frontend(frame[0]).String()))
	} else {
		length := uint32(writer.frame.Len())
		binary.BigEndian.PutUint32(frame[0:4], length)
		writer.logger.Debug("-> writing untagged message")
	}

	_, err := writer.Write(frame)
	return err
}

// EncodeBoolean returns a string value ("on"/"off") representing the given boolean value.
func EncodeBoolean(value bool) string {
	if value {
		return "on"
	}

	return "off"
}
