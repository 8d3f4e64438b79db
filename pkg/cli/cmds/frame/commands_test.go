package frame

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/imulink/pkg/l0/stuffing"
	"github.com/robotalks/imulink/pkg/l1/msgs"
)

func TestParseHex(t *testing.T) {
	b, err := ParseHex([]string{"00", "01,02", "0x03:4", "0506"})
	require.NoError(t, err)
	require.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6}, b)

	b, err = ParseHex(nil)
	require.NoError(t, err)
	require.Empty(t, b)

	_, err = ParseHex([]string{"zz"})
	require.Error(t, err)
}

func TestFormatHex(t *testing.T) {
	require.Equal(t, "02 00 04 fd 03", FormatHex([]byte{2, 0, 4, 0xfd, 3}))
	require.Equal(t, "", FormatHex(nil))
}

func TestDecodeStream(t *testing.T) {
	data, err := ParseHex([]string{"ff 02 00 01 04 fd 04 fc 04 fb 05 06 03 02 04 10 03 02 07"})
	require.NoError(t, err)
	res, state := DecodeStream(data, 128)
	require.Len(t, res, 2)
	require.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6}, res[0].Message)
	require.Contains(t, res[1].Err, "invalid escape")
	require.Equal(t, stuffing.InsideMessage, state)
}

func TestParseEvent(t *testing.T) {
	e, err := ParseEvent([]string{"newdata", "0.5", "-1", "0", "24.5"})
	require.NoError(t, err)
	require.Equal(t, msgs.NewData(0.5, -1, 0, 24.5), e)

	e, err = ParseEvent([]string{"ButtonTwo"})
	require.NoError(t, err)
	require.Equal(t, msgs.KindButtonTwo, e.Kind)

	_, err = ParseEvent(nil)
	require.Error(t, err)
	_, err = ParseEvent([]string{"jump"})
	require.Error(t, err)
	_, err = ParseEvent([]string{"newdata", "x"})
	require.Error(t, err)
	_, err = ParseEvent([]string{"newdata", "1", "2", "3", "4", "5"})
	require.Error(t, err)
}
