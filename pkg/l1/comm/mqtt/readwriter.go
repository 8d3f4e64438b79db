package mqtt

import (
	"context"

	"github.com/robotalks/imulink/pkg/l1"
	"github.com/robotalks/imulink/pkg/l1/comm"
)

// Topic suffixes under the device name.
const (
	TopicEvents = "events"
	TopicMeta   = "meta"
)

// ReadWriter implements PacketReadWriter on MQTT topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh chan []byte
	done     chan struct{}
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{Queue: q, packetCh: make(chan []byte, 16), done: make(chan struct{})}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForPublisher publishes events of the device, used by the host:
// PubTopic = type/id/events
func (p *ReadWriter) ForPublisher(ref l1.DeviceRef) *ReadWriter {
	return p.WithTopics("", ref.Name()+"/"+TopicEvents)
}

// ForSubscriber receives events of the device, used by monitors:
// SubTopic = type/id/events
func (p *ReadWriter) ForSubscriber(ref l1.DeviceRef) *ReadWriter {
	return p.WithTopics(ref.Name()+"/"+TopicEvents, "")
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, comm.ErrClosed
	}
}

// WritePacket implements PacketWriter. Nothing is published when
// PubTopic is empty.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if p.PubTopic == "" {
		return nil
	}
	token := p.Queue.Pub(p.PubTopic, pkt)
	token.Wait()
	return token.Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	// packetCh is never closed as paho may still be dispatching.
	defer close(p.done)
	if p.SubTopic == "" {
		<-ctx.Done()
		return ctx.Err()
	}
	sub := p.Queue.Sub(p.SubTopic, Handler(func(_ string, payload []byte) {
		select {
		case p.packetCh <- payload:
		case <-ctx.Done():
		}
	}))
	defer sub.Close()
	<-ctx.Done()
	return ctx.Err()
}
