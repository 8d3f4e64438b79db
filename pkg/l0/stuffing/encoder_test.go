package stuffing

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(enc *Encoder) (out []byte) {
	for b, ok := enc.Next(); ok; b, ok = enc.Next() {
		out = append(out, b)
	}
	return
}

func TestEncode(t *testing.T) {
	testCases := []struct {
		name   string
		in     []byte
		expect []byte
	}{
		{"empty", nil, []byte{StartByte, EndByte}},
		{"plain", []byte{0x00, 0x01, 0x05, 0xff}, []byte{0x02, 0x00, 0x01, 0x05, 0xff, 0x03}},
		{"control bytes", []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
			[]byte{0x02, 0x00, 0x01, 0x04, 0xfd, 0x04, 0xfc, 0x04, 0xfb, 0x05, 0x06, 0x03}},
		{"only escapes", []byte{0x04, 0x04}, []byte{0x02, 0x04, 0xfb, 0x04, 0xfb, 0x03}},
		{"escaped values", []byte{0xfb, 0xfc, 0xfd}, []byte{0x02, 0xfb, 0xfc, 0xfd, 0x03}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			enc := Encode(tc.in)
			require.Equal(t, tc.expect, collect(&enc))
			require.Equal(t, tc.expect, AppendFrame(nil, tc.in))
			require.Equal(t, len(tc.expect), EncodedLen(tc.in))
			var buf bytes.Buffer
			n, err := WriteFrame(&buf, tc.in)
			require.NoError(t, err)
			require.Equal(t, len(tc.expect), n)
			require.Equal(t, tc.expect, buf.Bytes())
		})
	}
}

func TestEncoderExhausted(t *testing.T) {
	enc := Encode([]byte{1})
	require.Len(t, collect(&enc), 3)
	for i := 0; i < 3; i++ {
		_, ok := enc.Next()
		require.False(t, ok)
	}
	var zero Encoder
	require.Equal(t, []byte{StartByte, EndByte}, collect(&zero))
}

func TestEncoderIndependentAndRestartable(t *testing.T) {
	payload := []byte{0x02, 0x10, 0x03}
	a, b := Encode(payload), Encode(payload)
	first, _ := a.Next()
	require.Equal(t, StartByte, first)
	// b is not affected by a.
	require.Equal(t, AppendFrame(nil, payload), collect(&b))
	rest := collect(&a)
	require.Equal(t, AppendFrame(nil, payload)[1:], rest)
	a.Reset()
	require.Equal(t, AppendFrame(nil, payload), collect(&a))
}

func TestEncodeStructure(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		payload := make([]byte, rnd.Intn(64))
		rnd.Read(payload)
		out := AppendFrame(nil, payload)
		require.Equal(t, StartByte, out[0])
		require.Equal(t, EndByte, out[len(out)-1])
		inner := out[1 : len(out)-1]
		for n := 0; n < len(inner); n++ {
			require.NotEqualf(t, StartByte, inner[n], "case %d byte %d", i, n)
			require.NotEqualf(t, EndByte, inner[n], "case %d byte %d", i, n)
			if inner[n] == EscapeByte {
				require.True(t, n+1 < len(inner), "dangling escape")
				require.True(t, IsControl(inner[n+1]^0xff))
				n++
			}
		}
	}
}

type failingWriter struct {
	limit int
	n     int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.limit {
		written := w.limit - w.n
		w.n = w.limit
		return written, errors.New("short write")
	}
	w.n += len(p)
	return len(p), nil
}

func TestWriteFrameLarge(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01, 0x02}, 100)
	var buf bytes.Buffer
	n, err := WriteFrame(&buf, payload)
	require.NoError(t, err)
	require.Equal(t, 302, n)
	require.Equal(t, AppendFrame(nil, payload), buf.Bytes())

	w := &failingWriter{limit: 70}
	n, err = WriteFrame(w, payload)
	require.Error(t, err)
	require.Equal(t, 70, n)
}

func TestEncoderNoAlloc(t *testing.T) {
	payload := []byte{0x00, StartByte, EndByte, EscapeByte, 0xff}
	var n int
	allocs := testing.AllocsPerRun(100, func() {
		n = 0
		enc := Encode(payload)
		for _, ok := enc.Next(); ok; _, ok = enc.Next() {
			n++
		}
	})
	require.Equal(t, float64(0), allocs)
	require.Equal(t, EncodedLen(payload), n)
}
