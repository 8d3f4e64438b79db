package frame

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/imulink/pkg/cli/sh"
	l0 "github.com/robotalks/imulink/pkg/l0/comm"
	"github.com/robotalks/imulink/pkg/l0/stuffing"
	"github.com/robotalks/imulink/pkg/l1/msgs"
)

func isSeparator(r rune) bool {
	return r == ',' || r == ':' || unicode.IsSpace(r)
}

// ParseHex parses bytes in hex, separated or not, e.g. "02 0a" or "020a".
func ParseHex(args []string) ([]byte, error) {
	var out []byte
	for _, arg := range args {
		for _, item := range strings.FieldsFunc(arg, isSeparator) {
			item = strings.TrimPrefix(strings.ToLower(item), "0x")
			if len(item)%2 != 0 {
				item = "0" + item
			}
			b, err := hex.DecodeString(item)
			if err != nil {
				return nil, fmt.Errorf("invalid hex %q", item)
			}
			out = append(out, b...)
		}
	}
	return out, nil
}

// FormatHex formats bytes as space separated hex.
func FormatHex(b []byte) string {
	items := make([]string, len(b))
	for n, v := range b {
		items[n] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(items, " ")
}

// Decoded is a message or a dropped frame in a decoded stream.
type Decoded struct {
	Message []byte `json:"message,omitempty"`
	Err     string `json:"error,omitempty"`
}

// DecodeStream runs a Decoder over data. Messages are copied.
func DecodeStream(data []byte, size int) (res []Decoded, state stuffing.State) {
	d := stuffing.NewDecoder(make([]byte, size))
	for _, b := range data {
		r := d.Ingest(b)
		switch {
		case r.Err != nil:
			res = append(res, Decoded{Err: r.Err.Error()})
		case r.Ready:
			msg := make([]byte, len(r.Message))
			copy(msg, r.Message)
			res = append(res, Decoded{Message: msg})
		}
	}
	return res, d.State()
}

// ParseEvent parses KIND [X Y Z TEMPERATURE].
func ParseEvent(args []string) (*msgs.Event, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("KIND required")
	}
	kind, err := msgs.ParseKind(args[0])
	if err != nil {
		return nil, err
	}
	e := msgs.New(kind)
	fields := []*float32{&e.X, &e.Y, &e.Z, &e.Temperature}
	if len(args)-1 > len(fields) {
		return nil, fmt.Errorf("too many values")
	}
	for n, arg := range args[1:] {
		val, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %v", arg, err)
		}
		*fields[n] = float32(val)
	}
	return e, nil
}

var (
	// EncodeCmd frames a payload.
	EncodeCmd = ishell.Cmd{
		Name:    "encode",
		Aliases: []string{"enc"},
		Help:    "HEX...",
		Func: func(c *ishell.Context) {
			payload, err := ParseHex(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			frame := stuffing.AppendFrame(nil, payload)
			sh.ShellFrom(c).Print(c, frame, func() string { return FormatHex(frame) })
		},
	}

	// DecodeCmd decodes a byte stream into messages.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"dec"},
		Help:    "HEX...",
		Func: func(c *ishell.Context) {
			data, err := ParseHex(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			res, state := DecodeStream(data, l0.DefaultMaxMessageSize)
			sh.ShellFrom(c).Print(c, res, func() string {
				lines := make([]string, 0, len(res)+1)
				for _, r := range res {
					if r.Err != "" {
						lines = append(lines, "dropped: "+r.Err)
						continue
					}
					line := "message: " + FormatHex(r.Message)
					if e, err := msgs.Decode(r.Message); err == nil {
						line += " (" + sh.FormatEvent(e, false) + ")"
					}
					lines = append(lines, line)
				}
				return strings.Join(append(lines, "state: "+state.String()), "\n")
			})
		},
	}

	// EventCmd encodes an event and prints the frame.
	EventCmd = ishell.Cmd{
		Name:    "event",
		Aliases: []string{"ev"},
		Help:    "KIND [X Y Z TEMPERATURE]",
		Func: func(c *ishell.Context) {
			e, err := ParseEvent(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			payload, err := msgs.Encode(e)
			if err != nil {
				c.Err(err)
				return
			}
			frame := stuffing.AppendFrame(nil, payload)
			sh.ShellFrom(c).Print(c, frame, func() string {
				return fmt.Sprintf("payload: %s\nframe:   %s", FormatHex(payload), FormatHex(frame))
			})
		},
	}
)

func init() {
	sh.AddCmds(
		&EncodeCmd,
		&DecodeCmd,
		&EventCmd,
	)
}
