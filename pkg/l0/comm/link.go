package comm

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/imulink/pkg/l0/stuffing"
)

// DefaultMaxMessageSize matches the message buffer of the firmware.
const DefaultMaxMessageSize = 128

// PacketHandler is called when a packet is received.
// The payload is only valid during the call.
type PacketHandler interface {
	HandlePacket(context.Context, []byte)
}

// HandlePacketFunc is func type of PacketHandler.
type HandlePacketFunc func(context.Context, []byte)

// HandlePacket implements PacketHandler.
func (f HandlePacketFunc) HandlePacket(ctx context.Context, payload []byte) {
	f(ctx, payload)
}

// ErrorNotifier is called when a frame is dropped.
type ErrorNotifier interface {
	FrameDropped(context.Context, error)
}

// FrameDroppedFunc is func type of ErrorNotifier.
type FrameDroppedFunc func(context.Context, error)

// FrameDropped implements ErrorNotifier.
func (f FrameDroppedFunc) FrameDropped(ctx context.Context, err error) {
	f(ctx, err)
}

// Link sends/receives framed packets.
type Link struct {
	ReadWriter     io.ReadWriter
	Handler        PacketHandler
	Notifier       ErrorNotifier
	Metrics        *Metrics
	MaxMessageSize int
	ReadTimeout    bool // set to true if ReadWriter already supports timeout with Read

	sendLock sync.Mutex
}

// NewLink creates a Link.
func NewLink(rw io.ReadWriter) *Link {
	return &Link{
		ReadWriter:     rw,
		MaxMessageSize: DefaultMaxMessageSize,
	}
}

// Send sends a packet in one frame.
func (l *Link) Send(payload []byte) error {
	if l.ReadWriter == nil {
		return ErrNoReadWriter
	}
	if l.MaxMessageSize > 0 && len(payload) > l.MaxMessageSize {
		return &MessageSizeError{Size: len(payload), Limit: l.MaxMessageSize}
	}
	l.sendLock.Lock()
	defer l.sendLock.Unlock()
	n, err := stuffing.WriteFrame(l.ReadWriter, payload)
	if err != nil {
		return err
	}
	l.Metrics.sent(n)
	glog.V(4).Infof("SND %d bytes, %d on wire", len(payload), n)
	return nil
}

// Run receives packets until the context is canceled or input ends.
// It returns stuffing.ErrEndOfInput when the ReadWriter reaches EOF.
func (l *Link) Run(ctx context.Context) error {
	if l.ReadWriter == nil {
		return ErrNoReadWriter
	}
	size := l.MaxMessageSize
	if size <= 0 {
		size = DefaultMaxMessageSize
	}
	decoder := stuffing.NewDecoder(make([]byte, size))

	if l.ReadTimeout {
		buf := make([]byte, size)
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			n, err := l.ReadWriter.Read(buf)
			if n > 0 {
				l.ingest(ctx, decoder, buf[:n])
			}
			if err != nil && !os.IsTimeout(err) {
				return readError(err)
			}
		}
	}

	chunkCh, errCh := make(chan []byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go l.readLoop(subCtx, size, chunkCh, errCh)
	for {
		select {
		case chunk := <-chunkCh:
			l.ingest(ctx, decoder, chunk)
		case err := <-errCh:
			return readError(err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Link) readLoop(ctx context.Context, size int, chunkCh chan []byte, errCh chan error) {
	for {
		buf := make([]byte, size)
		n, err := l.ReadWriter.Read(buf)
		if n > 0 {
			select {
			case chunkCh <- buf[:n]:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errCh <- err
			return
		}
	}
}

func (l *Link) ingest(ctx context.Context, decoder *stuffing.Decoder, chunk []byte) {
	var frames int
	for _, b := range chunk {
		r := decoder.Ingest(b)
		if r.Err != nil {
			glog.V(2).Infof("frame dropped: %v at byte %#02x", r.Err, r.Byte)
			l.Metrics.frameError(r.Err)
			if n := l.Notifier; n != nil {
				n.FrameDropped(ctx, r.Err)
			}
			continue
		}
		if !r.Ready {
			continue
		}
		frames++
		glog.V(4).Infof("RCV %d bytes", len(r.Message))
		if h := l.Handler; h != nil {
			h.HandlePacket(ctx, r.Message)
		}
	}
	l.Metrics.received(len(chunk), frames)
}

func readError(err error) error {
	if err == io.EOF {
		return stuffing.ErrEndOfInput
	}
	return err
}
