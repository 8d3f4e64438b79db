package stuffed

import (
	"context"
	"io"

	l0 "github.com/robotalks/imulink/pkg/l0/comm"
	"github.com/robotalks/imulink/pkg/l1/comm"
)

// ReadWriter implements PacketReadWriter over a byte stream, each packet
// in one byte stuffed frame. Frames are received by Run, which can only
// be called once.
type ReadWriter struct {
	Link *l0.Link

	packetCh chan []byte
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return WithLink(l0.NewLink(s))
}

// WithLink creates a ReadWriter using an existing Link.
// The Handler of the Link is replaced.
func WithLink(link *l0.Link) *ReadWriter {
	p := &ReadWriter{Link: link, packetCh: make(chan []byte, 8)}
	link.Handler = l0.HandlePacketFunc(p.handlePacket)
	return p
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	pkt, ok := <-p.packetCh
	if !ok {
		return nil, comm.ErrClosed
	}
	return pkt, nil
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return p.Link.Send(pkt)
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	defer close(p.packetCh)
	return p.Link.Run(ctx)
}

// Close closes the underlying stream if it's an io.Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.Link.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (p *ReadWriter) handlePacket(ctx context.Context, payload []byte) {
	pkt := make([]byte, len(payload))
	copy(pkt, payload)
	select {
	case p.packetCh <- pkt:
	case <-ctx.Done():
	}
}
