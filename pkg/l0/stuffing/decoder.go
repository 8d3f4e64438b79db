package stuffing

import "io"

// State is the state of a Decoder.
type State int

const (
	// WaitingForStart discards everything until a START.
	WaitingForStart State = iota
	// InsideMessage collects payload bytes until END.
	InsideMessage
	// InsideMessageEscaping expects the escaped byte after ESCAPE.
	InsideMessageEscaping
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case WaitingForStart:
		return "WaitingForStart"
	case InsideMessage:
		return "InsideMessage"
	case InsideMessageEscaping:
		return "InsideMessageEscaping"
	}
	return "Unknown"
}

// Result is the outcome of ingesting one byte.
// If Ready is set, Message holds a complete payload.
// If Err is set, it is ErrInvalidEscape or ErrBufferTooSmall, Byte is
// the offending byte and the partial message was dropped.
// Otherwise more bytes are needed.
type Result struct {
	State   State
	Ready   bool
	Message []byte
	Err     error
	Byte    byte
}

// Decoder reassembles payloads from framed bytes. It never writes beyond
// the buffer it is created with, and a returned Message aliases that
// buffer: it is only valid until the next call to Ingest.
type Decoder struct {
	buf    []byte
	cursor int
	state  State
}

// NewDecoder creates a Decoder assembling messages in buf. The maximum
// payload length is len(buf).
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// State gets the current state.
func (d *Decoder) State() State {
	return d.state
}

// Cap returns the maximum payload length.
func (d *Decoder) Cap() int {
	return len(d.buf)
}

// Reset drops any partial message and waits for the next START.
func (d *Decoder) Reset() {
	d.state, d.cursor = WaitingForStart, 0
}

// Ingest consumes one byte.
func (d *Decoder) Ingest(b byte) (r Result) {
	if b == StartByte {
		// START resynchronizes from any state.
		d.state, d.cursor = InsideMessage, 0
		r.State = d.state
		return
	}
	switch d.state {
	case InsideMessage:
		switch b {
		case EndByte:
			r.Ready, r.Message = true, d.buf[:d.cursor]
			d.Reset()
		case EscapeByte:
			d.state = InsideMessageEscaping
		default:
			r.Err = d.put(b)
		}
		if r.Err != nil {
			r.Byte = b
		}
	case InsideMessageEscaping:
		// END and ESCAPE never decode to a control byte.
		if o := b ^ escapeMask; IsControl(o) {
			d.state = InsideMessage
			r.Err = d.put(o)
		} else {
			r.Err = d.fail(ErrInvalidEscape)
		}
		if r.Err != nil {
			r.Byte = b
		}
	}
	r.State = d.state
	return
}

func (d *Decoder) put(b byte) error {
	if d.cursor >= len(d.buf) {
		return d.fail(ErrBufferTooSmall)
	}
	d.buf[d.cursor] = b
	d.cursor++
	return nil
}

func (d *Decoder) fail(err error) error {
	d.Reset()
	return err
}

// ReadMessage reads from r until a complete message is decoded.
// Recoverable framing errors are returned as soon as they happen and the
// decoder is ready for the next frame, so callers may simply call again.
// Framing errors are wrapped in *FrameError.
// io.EOF from r is reported as ErrEndOfInput.
func ReadMessage(r io.ByteReader, d *Decoder) ([]byte, error) {
	for {
		b, err := r.ReadByte()
		if err == io.EOF {
			return nil, ErrEndOfInput
		}
		if err != nil {
			return nil, err
		}
		if res := d.Ingest(b); res.Err != nil {
			return nil, &FrameError{Err: res.Err, Byte: res.Byte}
		} else if res.Ready {
			return res.Message, nil
		}
	}
}
