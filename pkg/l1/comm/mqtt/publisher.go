package mqtt

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/robotalks/imulink/pkg/l1"
	"github.com/robotalks/imulink/pkg/l1/msgs"
)

// Publisher publishes decoded events in JSON to
// type/id/events/<kind>, for consumers which don't speak protobuf.
type Publisher struct {
	Queue *Queue
	Ref   l1.DeviceRef
}

// NewPublisher creates a Publisher.
func NewPublisher(q *Queue, ref l1.DeviceRef) *Publisher {
	return &Publisher{Queue: q, Ref: ref}
}

// TopicFor returns the topic of the event kind.
func (p *Publisher) TopicFor(kind msgs.Kind) string {
	return p.Ref.Name() + "/" + TopicEvents + "/" + strings.ToLower(kind.String())
}

// HandleEvent implements l1.EventHandler.
func (p *Publisher) HandleEvent(_ context.Context, e *msgs.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	token := p.Queue.Pub(p.TopicFor(e.Kind), payload)
	token.Wait()
	return token.Error()
}
