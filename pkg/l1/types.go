package l1

import (
	"context"

	"github.com/robotalks/imulink/pkg/l1/msgs"
)

// DeviceRef is a reference to a sensor controller.
type DeviceRef struct {
	// Type is device type (board model).
	Type string
	// ID is unique ID of the device.
	ID string
}

// Name retrieves the name from ref.
func (r DeviceRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates DeviceRef is valid.
func (r DeviceRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// DeviceMeta provides metadata for a sensor controller.
type DeviceMeta struct {
	Description string            `json:"description,omitempty"`
	Port        string            `json:"port,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// DeviceInfo provides information of a sensor controller.
type DeviceInfo struct {
	Ref  DeviceRef
	Meta DeviceMeta
}

// EventHandler consumes events reported by a device.
type EventHandler interface {
	HandleEvent(context.Context, *msgs.Event) error
}

// HandleEventFunc is func form of EventHandler.
type HandleEventFunc func(context.Context, *msgs.Event) error

// HandleEvent implements EventHandler.
func (f HandleEventFunc) HandleEvent(ctx context.Context, e *msgs.Event) error {
	return f(ctx, e)
}
