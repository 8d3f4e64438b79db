package comm

import (
	"context"

	"github.com/golang/glog"

	fx "github.com/robotalks/imulink/pkg/framework"
	"github.com/robotalks/imulink/pkg/l1"
	"github.com/robotalks/imulink/pkg/l1/msgs"
)

// Forwarder re-encodes events once and writes them to every PacketWriter.
type Forwarder struct {
	Writers []PacketWriter
}

// Add adds more writers.
func (f *Forwarder) Add(writers ...PacketWriter) *Forwarder {
	f.Writers = append(f.Writers, writers...)
	return f
}

// HandleEvent implements l1.EventHandler.
func (f *Forwarder) HandleEvent(ctx context.Context, e *msgs.Event) error {
	pkt, err := msgs.Encode(e)
	if err != nil {
		return err
	}
	var errs fx.AggregatedError
	for _, w := range f.Writers {
		errs.Add(w.WritePacket(pkt))
	}
	return errs.Aggregate()
}

// EventMux dispatches events to multiple handlers.
type EventMux struct {
	Handlers []l1.EventHandler
	// Tolerant logs handler errors instead of returning them.
	Tolerant bool
}

// Add adds more handlers.
func (m *EventMux) Add(handlers ...l1.EventHandler) *EventMux {
	m.Handlers = append(m.Handlers, handlers...)
	return m
}

// HandleEvent implements l1.EventHandler.
func (m *EventMux) HandleEvent(ctx context.Context, e *msgs.Event) error {
	var errs fx.AggregatedError
	for _, h := range m.Handlers {
		errs.Add(h.HandleEvent(ctx, e))
	}
	err := errs.Aggregate()
	if err != nil && m.Tolerant {
		glog.Errorf("handle event %s: %v", e.Kind, err)
		return nil
	}
	return err
}

// LogEvents is an EventHandler which logs every event.
var LogEvents = l1.HandleEventFunc(func(ctx context.Context, e *msgs.Event) error {
	glog.Info(e.Text())
	return nil
})
