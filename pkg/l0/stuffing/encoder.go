package stuffing

import "io"

// Control bytes.
const (
	StartByte  byte = 0x02
	EndByte    byte = 0x03
	EscapeByte byte = 0x04
)

// escapeMask is XOR-ed with a control byte to escape it.
const escapeMask byte = 0xff

// IsControl checks if b must be escaped inside a frame.
func IsControl(b byte) bool {
	return b == StartByte || b == EndByte || b == EscapeByte
}

type encodeState int

const (
	encodeBegin   encodeState = iota // START not yet emitted
	encodeData                       // emitting payload bytes
	encodeEscaped                    // ESCAPE emitted, escaped byte pending
	encodeDone                       // END emitted
)

// Encoder lazily generates the framed bytes of a payload, one byte per
// Next call. The zero value encodes an empty payload.
type Encoder struct {
	payload []byte
	pos     int
	pending byte
	state   encodeState
}

// Encode creates an Encoder for payload. Each call produces an
// independent sequence; payload must not change while it's in use.
func Encode(payload []byte) Encoder {
	return Encoder{payload: payload}
}

// Reset restarts the sequence from the beginning.
func (e *Encoder) Reset() {
	e.pos, e.pending, e.state = 0, 0, encodeBegin
}

// Next returns the next byte on the wire. ok is false once the sequence
// has ended.
func (e *Encoder) Next() (b byte, ok bool) {
	switch e.state {
	case encodeBegin:
		e.state = encodeData
		return StartByte, true
	case encodeData:
		if e.pos >= len(e.payload) {
			e.state = encodeDone
			return EndByte, true
		}
		b = e.payload[e.pos]
		e.pos++
		if IsControl(b) {
			e.pending, e.state = b, encodeEscaped
			return EscapeByte, true
		}
		return b, true
	case encodeEscaped:
		e.state = encodeData
		return escapeMask ^ e.pending, true
	}
	return 0, false
}

// EncodedLen returns the number of bytes Encode(payload) produces.
func EncodedLen(payload []byte) int {
	n := len(payload) + 2
	for _, b := range payload {
		if IsControl(b) {
			n++
		}
	}
	return n
}

// AppendFrame appends the framed payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	enc := Encode(payload)
	for b, ok := enc.Next(); ok; b, ok = enc.Next() {
		dst = append(dst, b)
	}
	return dst
}

// WriteFrame writes the framed payload to w in fixed size chunks.
func WriteFrame(w io.Writer, payload []byte) (n int, err error) {
	var chunk [64]byte
	var l, written int
	enc := Encode(payload)
	for b, ok := enc.Next(); ok; b, ok = enc.Next() {
		chunk[l] = b
		if l++; l < len(chunk) {
			continue
		}
		written, err = w.Write(chunk[:l])
		if n += written; err != nil {
			return
		}
		l = 0
	}
	if l > 0 {
		written, err = w.Write(chunk[:l])
		n += written
	}
	return
}
