package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/imulink/pkg/l1"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// DeviceInfoFromMeta parses a retained meta message.
// ok is false if the message doesn't announce a device.
func DeviceInfoFromMeta(topic string, payload []byte) (info l1.DeviceInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[2] != TopicMeta || len(payload) == 0 {
		return
	}
	info.Ref = l1.DeviceRef{Type: items[0], ID: items[1]}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.Warningf("%s: invalid meta: %v", topic, err)
	}
	return info, info.Ref.IsValid()
}

// Discover collects announced devices until timeout.
func Discover(ctx context.Context, q *Queue, timeout time.Duration) (res []l1.DeviceInfo, err error) {
	resCh := make(chan l1.DeviceInfo, 1)
	sub := q.Sub("+/+/"+TopicMeta, Handler(func(topic string, payload []byte) {
		if info, ok := DeviceInfoFromMeta(topic, payload); ok {
			select {
			case resCh <- info:
			case <-time.After(time.Second):
			}
		}
	}))
	defer sub.Close()

	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timer.C:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}
