package buffer

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrMissingNulTerminator is returned when no NUL terminator is found while
// reading a message field as a C string.
var ErrMissingNulTerminator = errors.New("NUL terminator not found")

// ErrInsufficientData is returned when a message field is requested but the
// current message body does not hold enough bytes to satisfy it. This can
// only happen on a malformed frame — by the time a message body is decoded,
// ReadUntypedMsg has already read exactly the length its header announced.
var ErrInsufficientData = errors.New("insufficient data")

// NewInsufficientData wraps ErrInsufficientData with the number of bytes
// that were actually available.
func NewInsufficientData(available int) error {
	return fmt.Errorf("length: %d %w", available, ErrInsufficientData)
}

// ErrMessageSizeExceeded is the sentinel compared against with errors.Is;
// match MessageSizeExceeded by type, not value, since the concrete instance
// always carries message-specific Size/Max fields.
var ErrMessageSizeExceeded = MessageSizeExceeded{Message: "maximum message size exceeded"}

// MessageSizeExceeded indicates that a frame announced a length beyond the
// reader's configured maximum.
type MessageSizeExceeded struct {
	Message string
	Size    int
	Max     int
}

func (err MessageSizeExceeded) Error() string {
	return err.Message
}

func (err MessageSizeExceeded) Is(target error) bool {
	return reflect.TypeOf(target) == reflect.TypeOf(err)
}

// NewMessageSizeExceeded constructs a MessageSizeExceeded error for the
// given limits.
func NewMessageSizeExceeded(max, size int) error {
	return MessageSizeExceeded{
		Message: fmt.Sprintf("message size %d exceeds maximum allowed message size %d", size, max),
		Size:    size,
		Max:     max,
	}
}

// UnwrapMessageSizeExceeded attempts to unwrap err as MessageSizeExceeded.
func UnwrapMessageSizeExceeded(err error) (result MessageSizeExceeded, _ bool) {
	return result, errors.As(err, &result)
}
