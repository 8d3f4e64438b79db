package stuffing

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type decodeStep struct {
	in     []byte
	state  State
	ready  bool
	msg    []byte
	err    error
	errSet bool
}

type decodeStepBuilder struct {
	steps []decodeStep
}

func decodeSteps() *decodeStepBuilder {
	return &decodeStepBuilder{}
}

func (b *decodeStepBuilder) feed(state State, in ...byte) *decodeStepBuilder {
	b.steps = append(b.steps, decodeStep{in: in, state: state})
	return b
}

func (b *decodeStepBuilder) waiting(in ...byte) *decodeStepBuilder {
	return b.feed(WaitingForStart, in...)
}

func (b *decodeStepBuilder) inside(in ...byte) *decodeStepBuilder {
	return b.feed(InsideMessage, in...)
}

func (b *decodeStepBuilder) message(data ...byte) *decodeStepBuilder {
	s := &b.steps[len(b.steps)-1]
	s.ready, s.msg, s.state = true, data, WaitingForStart
	return b
}

func (b *decodeStepBuilder) fails(err error) *decodeStepBuilder {
	s := &b.steps[len(b.steps)-1]
	s.err, s.errSet, s.state = err, true, WaitingForStart
	return b
}

func (b *decodeStepBuilder) build() []decodeStep {
	return b.steps
}

func TestDecoder(t *testing.T) {
	testCases := []struct {
		name  string
		size  int
		steps []decodeStep
	}{
		{
			name: "literal vector",
			size: 128,
			steps: decodeSteps().
				inside(0x02, 0x00, 0x01, 0x04, 0xfd, 0x04, 0xfc, 0x04, 0xfb, 0x05, 0x06, 0x03).
				message(0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06).
				build(),
		},
		{
			name: "empty message",
			size: 4,
			steps: decodeSteps().
				inside(StartByte, EndByte).message().
				build(),
		},
		{
			name: "noise before start",
			size: 8,
			steps: decodeSteps().
				waiting(0x00, EndByte, EscapeByte, 0xff, 0x10).
				inside(StartByte, 0x01, EndByte).message(0x01).
				build(),
		},
		{
			name: "start resyncs inside message",
			size: 8,
			steps: decodeSteps().
				inside(StartByte, 0x01, 0x12, StartByte, 0x09, EndByte).message(0x09).
				build(),
		},
		{
			name: "start resyncs while escaping",
			size: 8,
			steps: decodeSteps().
				feed(InsideMessageEscaping, StartByte, 0x01, EscapeByte).
				inside(StartByte, 0x07, EndByte).message(0x07).
				build(),
		},
		{
			name: "invalid escaped value",
			size: 8,
			steps: decodeSteps().
				feed(InsideMessageEscaping, 0x02, 0x04).
				feed(WaitingForStart, 0x10).fails(ErrInvalidEscape).
				waiting(0x03).
				inside(0x02, 0x05, 0x03).message(0x05).
				build(),
		},
		{
			name: "end while escaping",
			size: 8,
			steps: decodeSteps().
				feed(InsideMessageEscaping, StartByte, 0x01, EscapeByte).
				waiting(EndByte).fails(ErrInvalidEscape).
				inside(StartByte, 0x01, EndByte).message(0x01).
				build(),
		},
		{
			name: "double escape",
			size: 8,
			steps: decodeSteps().
				feed(InsideMessageEscaping, StartByte, EscapeByte).
				waiting(EscapeByte).fails(ErrInvalidEscape).
				waiting(0xfb, EndByte).
				inside(StartByte, EscapeByte, 0xfb, EndByte).message(EscapeByte).
				build(),
		},
		{
			name: "oversized frame",
			size: 4,
			steps: decodeSteps().
				inside(StartByte, 0x10, 0x11, 0x12, 0x13).
				waiting(0x14).fails(ErrBufferTooSmall).
				waiting(0x15, 0x16, EndByte).
				inside(StartByte, 0x10, 0x11, 0x12, 0x13, EndByte).message(0x10, 0x11, 0x12, 0x13).
				build(),
		},
		{
			name: "oversized frame with escapes in the tail",
			size: 2,
			steps: decodeSteps().
				inside(StartByte, 0x10, 0x11).
				waiting(0x12).fails(ErrBufferTooSmall).
				// an escaped START in the dropped tail doesn't resync.
				waiting(EscapeByte, 0xfd, EscapeByte, 0xfc, 0x13, EndByte).
				inside(StartByte, EscapeByte, 0xfd, 0x10, EndByte).message(StartByte, 0x10).
				build(),
		},
		{
			name: "oversized escaped byte",
			size: 1,
			steps: decodeSteps().
				feed(InsideMessageEscaping, StartByte, 1, EscapeByte).
				waiting(0xfd).fails(ErrBufferTooSmall).
				inside(StartByte, EscapeByte, 0xfd, EndByte).message(StartByte).
				build(),
		},
		{
			name: "zero capacity",
			size: 0,
			steps: decodeSteps().
				inside(StartByte, EndByte).message().
				inside(StartByte).
				waiting(1).fails(ErrBufferTooSmall).
				build(),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewDecoder(make([]byte, tc.size))
			require.Equal(t, tc.size, d.Cap())
			for n, s := range tc.steps {
				var r Result
				for i, b := range s.in {
					r = d.Ingest(b)
					if i+1 < len(s.in) {
						require.NoErrorf(t, r.Err, "steps[%d][%d] unexpected err", n, i)
						require.Falsef(t, r.Ready, "steps[%d][%d] unexpected message", n, i)
					}
				}
				require.Equalf(t, s.state, r.State, "steps[%d] state mismatch", n)
				require.Equalf(t, s.state, d.State(), "steps[%d] decoder state mismatch", n)
				require.Equalf(t, s.ready, r.Ready, "steps[%d] ready mismatch", n)
				if s.ready {
					if len(s.msg) == 0 {
						require.Emptyf(t, r.Message, "steps[%d] message not empty", n)
					} else {
						require.Equalf(t, s.msg, r.Message, "steps[%d] message mismatch", n)
					}
				}
				if s.errSet {
					require.Truef(t, errors.Is(r.Err, s.err), "steps[%d] expect %v, got %v", n, s.err, r.Err)
				} else {
					require.NoErrorf(t, r.Err, "steps[%d] unexpected err", n)
				}
			}
		})
	}
}

func TestErrorByte(t *testing.T) {
	d := NewDecoder(make([]byte, 1))
	d.Ingest(StartByte)
	d.Ingest(EscapeByte)
	r := d.Ingest(0x10)
	require.Equal(t, ErrInvalidEscape, r.Err)
	require.Equal(t, byte(0x10), r.Byte)

	d.Ingest(StartByte)
	d.Ingest(0x20)
	r = d.Ingest(0x21)
	require.Equal(t, ErrBufferTooSmall, r.Err)
	require.Equal(t, byte(0x21), r.Byte)

	_, err := ReadMessage(bytes.NewReader([]byte{StartByte, EscapeByte, 0x10}), d)
	var fe *FrameError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, ErrInvalidEscape, fe.Err)
	require.Equal(t, byte(0x10), fe.Byte)
	require.Equal(t, "invalid escape: byte 0x10", fe.Error())
}

func TestDecoderNoAlloc(t *testing.T) {
	var stream []byte
	stream = append(stream, 0xff, 0x00)
	stream = AppendFrame(stream, []byte{0x01, StartByte, EndByte, EscapeByte})
	// invalid escape.
	stream = append(stream, StartByte, 0x05, EscapeByte, 0x10, EndByte)
	// overflow.
	stream = AppendFrame(stream, make([]byte, 20))
	// double escape.
	stream = append(stream, StartByte, EscapeByte, EscapeByte)
	stream = AppendFrame(stream, nil)

	d := NewDecoder(make([]byte, 8))
	var frames, errs int
	allocs := testing.AllocsPerRun(100, func() {
		frames, errs = 0, 0
		for _, b := range stream {
			r := d.Ingest(b)
			if r.Err != nil {
				errs++
			} else if r.Ready {
				frames++
			}
		}
	})
	require.Equal(t, float64(0), allocs)
	require.Equal(t, 2, frames)
	require.Equal(t, 3, errs)
}

func TestDecoderReset(t *testing.T) {
	d := NewDecoder(make([]byte, 4))
	d.Ingest(StartByte)
	d.Ingest(1)
	d.Reset()
	require.Equal(t, WaitingForStart, d.State())
	r := d.Ingest(EndByte)
	require.False(t, r.Ready)
}

func TestRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	buf := make([]byte, 256)
	d := NewDecoder(buf)
	payloads := [][]byte{nil, {}, {StartByte}, {EndByte, EndByte}, {EscapeByte}}
	for i := 0; i < 300; i++ {
		p := make([]byte, rnd.Intn(len(buf)+1))
		rnd.Read(p)
		payloads = append(payloads, p)
	}
	for n, p := range payloads {
		msg, err := ReadMessage(bytes.NewReader(AppendFrame(nil, p)), d)
		require.NoErrorf(t, err, "payload[%d]", n)
		if len(p) == 0 {
			require.Emptyf(t, msg, "payload[%d]", n)
		} else {
			require.Equalf(t, p, msg, "payload[%d]", n)
		}
	}
}

func TestResync(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	frameA, frameB := []byte{0x10, StartByte, 0x20}, []byte{EndByte, 0x30}
	for i := 0; i < 100; i++ {
		noise := make([]byte, rnd.Intn(32))
		for n := range noise {
			// anything but START.
			if noise[n] = byte(rnd.Intn(255)); noise[n] >= StartByte {
				noise[n]++
			}
		}
		var stream []byte
		stream = append(stream, noise...)
		stream = AppendFrame(stream, frameA)
		stream = AppendFrame(stream, frameB)

		d := NewDecoder(make([]byte, 16))
		r := bufio.NewReader(bytes.NewReader(stream))
		var msgs [][]byte
		for {
			msg, err := ReadMessage(r, d)
			if err == ErrEndOfInput {
				break
			}
			if err != nil {
				// recovered, noise may look like a broken frame.
				continue
			}
			msgs = append(msgs, append([]byte(nil), msg...))
		}
		require.Equalf(t, [][]byte{frameA, frameB}, msgs, "noise %x", noise)
	}
}

func TestBoundsSafety(t *testing.T) {
	const guard = 0xaa
	rnd := rand.New(rand.NewSource(11))
	backing := make([]byte, 24)
	for i := range backing {
		backing[i] = guard
	}
	d := NewDecoder(backing[8:16:16])
	stream := make([]byte, 20000)
	for i := range stream {
		// bias towards control bytes to reach every transition.
		if rnd.Intn(4) == 0 {
			stream[i] = byte(StartByte + byte(rnd.Intn(3)))
		} else {
			stream[i] = byte(rnd.Intn(256))
		}
	}
	for _, b := range stream {
		r := d.Ingest(b)
		require.True(t, len(r.Message) <= 8)
	}
	for i := 0; i < 8; i++ {
		require.Equal(t, byte(guard), backing[i])
		require.Equal(t, byte(guard), backing[16+i])
	}
}

func TestReadMessage(t *testing.T) {
	d := NewDecoder(make([]byte, 8))
	stream := []byte{0x02, 0x04, 0x10, 0x03, 0x02, 0x01, 0x04, 0xfb, 0x03, 0x02, 0x01}
	r := bytes.NewReader(stream)

	_, err := ReadMessage(r, d)
	require.True(t, errors.Is(err, ErrInvalidEscape))

	msg, err := ReadMessage(r, d)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, EscapeByte}, msg)

	_, err = ReadMessage(r, d)
	require.Equal(t, ErrEndOfInput, err)
	require.Equal(t, InsideMessage, d.State())
}

type errByteReader struct{}

func (errByteReader) ReadByte() (byte, error) {
	return 0, io.ErrClosedPipe
}

func TestReadMessageReadError(t *testing.T) {
	_, err := ReadMessage(errByteReader{}, NewDecoder(nil))
	require.Equal(t, io.ErrClosedPipe, err)
}
