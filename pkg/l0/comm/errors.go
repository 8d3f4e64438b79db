package comm

import (
	"errors"
	"fmt"
)

// ErrNoReadWriter indicates the Link has nothing to read from or write to.
var ErrNoReadWriter = errors.New("no read writer")

// MessageSizeError is returned by Send when the payload can't fit in the
// decoder buffer of the peer.
type MessageSizeError struct {
	Size  int
	Limit int
}

// Error implements error.
func (e *MessageSizeError) Error() string {
	return fmt.Sprintf("message size %d exceeds limit %d", e.Size, e.Limit)
}
