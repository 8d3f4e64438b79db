package msgs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang/protobuf/proto"
)

// Kind identifies the event.
type Kind int32

// Event kinds, in the order the firmware declares them.
const (
	KindUnknown Kind = iota
	KindConnected
	KindHardwareFailure
	KindNewData
	KindCalibrationStarted
	KindCalibrationEnded
	KindButtonOne
	KindButtonTwo
)

var kindNames = map[Kind]string{
	KindConnected:          "Connected",
	KindHardwareFailure:    "HardwareFailure",
	KindNewData:            "NewData",
	KindCalibrationStarted: "CalibrationStarted",
	KindCalibrationEnded:   "CalibrationEnded",
	KindButtonOne:          "ButtonOne",
	KindButtonTwo:          "ButtonTwo",
}

// ErrUnknownKind indicates an event kind not in the schema.
type ErrUnknownKind struct {
	Kind string
}

// Error implements error.
func (e *ErrUnknownKind) Error() string {
	return fmt.Sprintf("unknown event kind: %s", e.Kind)
}

// ErrEmptyEvent indicates a nil event is being encoded.
var ErrEmptyEvent = errors.New("empty event")

// IsValid checks if k is a known kind.
func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int32(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.IsValid() {
		return nil, &ErrUnknownKind{Kind: k.String()}
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind parses the name of a kind, case insensitive.
func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if strings.EqualFold(kindName, name) {
			return kind, nil
		}
	}
	return KindUnknown, &ErrUnknownKind{Kind: name}
}

// Kinds lists all valid kinds in order.
func Kinds() []Kind {
	return []Kind{
		KindConnected,
		KindHardwareFailure,
		KindNewData,
		KindCalibrationStarted,
		KindCalibrationEnded,
		KindButtonOne,
		KindButtonTwo,
	}
}

// Event is a single report from the controller.
// X, Y, Z (acceleration in g) and Temperature (celsius) are only
// meaningful for KindNewData.
type Event struct {
	Kind        Kind    `protobuf:"varint,1,opt,name=kind,proto3" json:"kind"`
	X           float32 `protobuf:"fixed32,2,opt,name=x,proto3" json:"x,omitempty"`
	Y           float32 `protobuf:"fixed32,3,opt,name=y,proto3" json:"y,omitempty"`
	Z           float32 `protobuf:"fixed32,4,opt,name=z,proto3" json:"z,omitempty"`
	Temperature float32 `protobuf:"fixed32,5,opt,name=temperature,proto3" json:"temperature,omitempty"`
}

// Reset implements proto.Message.
func (m *Event) Reset() { *m = Event{} }

// String implements proto.Message.
func (m *Event) String() string { return proto.CompactTextString(m) }

// ProtoMessage implements proto.Message.
func (*Event) ProtoMessage() {}

// Text formats the event for humans, with the sample data for NewData.
func (m *Event) Text() string {
	if m.Kind == KindNewData {
		return fmt.Sprintf("%s x=%.3f y=%.3f z=%.3f t=%.2f", m.Kind, m.X, m.Y, m.Z, m.Temperature)
	}
	return m.Kind.String()
}

// New creates an event without sample data.
func New(kind Kind) *Event {
	return &Event{Kind: kind}
}

// NewData creates a KindNewData event.
func NewData(x, y, z, temperature float32) *Event {
	return &Event{Kind: KindNewData, X: x, Y: y, Z: z, Temperature: temperature}
}

// Encode encodes the event into a payload.
func Encode(e *Event) ([]byte, error) {
	if e == nil {
		return nil, ErrEmptyEvent
	}
	if !e.Kind.IsValid() {
		return nil, &ErrUnknownKind{Kind: e.Kind.String()}
	}
	return proto.Marshal(e)
}

// Decode decodes a payload into an event.
func Decode(payload []byte) (*Event, error) {
	var e Event
	if err := proto.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	if !e.Kind.IsValid() {
		return nil, &ErrUnknownKind{Kind: e.Kind.String()}
	}
	return &e, nil
}
