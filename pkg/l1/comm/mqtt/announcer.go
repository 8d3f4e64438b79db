package mqtt

import (
	"context"
	"encoding/json"

	"github.com/robotalks/imulink/pkg/l1"
)

// Announcer keeps a retained meta message of the device on the broker
// while the host is connected, and publishes device events.
type Announcer struct {
	Queue  *Queue
	Info   l1.DeviceInfo
	Events *ReadWriter

	metaJSON []byte
}

// NewAnnouncer creates an Announcer.
func NewAnnouncer(brokerURL string, info l1.DeviceInfo) (*Announcer, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	metaTopic := topicPrefix + info.Ref.Name() + "/" + TopicMeta
	// broker clears the meta if the host dies.
	opts.SetBinaryWill(metaTopic, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("imulink:" + info.Ref.Name())
	}
	a := &Announcer{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
	}
	a.Queue.OnConnect = func(*Queue) { a.publishMeta(a.metaJSON) }
	a.Events = NewPacketReadWriter(a.Queue).ForPublisher(info.Ref)
	return a, nil
}

// WritePacket implements PacketWriter.
func (a *Announcer) WritePacket(pkt []byte) error {
	return a.Events.WritePacket(pkt)
}

// Run implements Runnable.
func (a *Announcer) Run(ctx context.Context) error {
	token := a.Queue.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}
	<-ctx.Done()
	a.publishMeta(nil).Wait()
	a.Queue.Close()
	return ctx.Err()
}

func (a *Announcer) publishMeta(meta []byte) interface{ Wait() bool } {
	return a.Queue.PubWith(a.Info.Ref.Name()+"/"+TopicMeta, meta, 1, true)
}
