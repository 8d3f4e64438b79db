package comm

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/imulink/pkg/framework"
	"github.com/robotalks/imulink/pkg/l1"
	"github.com/robotalks/imulink/pkg/l1/msgs"
)

// Pipe carries events over a packet transport.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    l1.EventHandler

	sendLock sync.Mutex
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw}
}

// SendEvent encodes and sends an event.
func (p *Pipe) SendEvent(e *msgs.Event) error {
	pkt, err := msgs.Encode(e)
	if err != nil {
		return err
	}
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	return p.ReadWriter.WritePacket(pkt)
}

// HandleEvent implements l1.EventHandler so a Pipe can be the sink of
// another Pipe.
func (p *Pipe) HandleEvent(ctx context.Context, e *msgs.Event) error {
	return p.SendEvent(e)
}

// Run implements Runnable. If the ReadWriter is also a Runnable, it's run
// alongside and stopped when the Pipe stops.
func (p *Pipe) Run(ctx context.Context) error {
	defer p.Close()
	runner := fx.NewRunnerWith(ctx)
	if runnable, ok := p.ReadWriter.(fx.Runnable); ok {
		runner.Go(fx.NamedRun("transport", runnable))
	}
	rctx := runner.Context()
	err := fx.RunWithContextCancel(rctx, func() { p.Close() }, func() error {
		return p.receive(rctx)
	})
	runner.Stop()
	// the transport knows better why packets stopped.
	if rerr := runner.Wait(); rerr != nil {
		err = rerr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *Pipe) receive(ctx context.Context) error {
	for {
		pkt, err := p.ReadWriter.ReadPacket()
		if err != nil {
			return err
		}
		e, err := msgs.Decode(pkt)
		if err != nil {
			glog.Warningf("drop undecodable packet (%d bytes): %v", len(pkt), err)
			continue
		}
		glog.V(3).Infof("event %s", e)
		if h := p.Handler; h != nil {
			if err = h.HandleEvent(ctx, e); err != nil {
				return err
			}
		}
	}
}

// Close implements Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
