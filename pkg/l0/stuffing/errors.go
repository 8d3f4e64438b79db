package stuffing

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEscape indicates a malformed escape sequence. The partial
	// message has been dropped.
	ErrInvalidEscape = errors.New("invalid escape")
	// ErrBufferTooSmall indicates the message doesn't fit in the decoder
	// buffer. The partial message has been dropped.
	ErrBufferTooSmall = errors.New("buffer too small")
	// ErrEndOfInput indicates the byte source is exhausted.
	ErrEndOfInput = errors.New("end of input")
)

// FrameError wraps a recoverable framing error with the byte which
// caused it. Decoder.Ingest reports the same in Result without
// allocating.
type FrameError struct {
	Err  error
	Byte byte
}

// Error implements error.
func (e *FrameError) Error() string {
	return fmt.Sprintf("%v: byte %#02x", e.Err, e.Byte)
}

// Unwrap returns the underlying sentinel error.
func (e *FrameError) Unwrap() error {
	return e.Err
}
