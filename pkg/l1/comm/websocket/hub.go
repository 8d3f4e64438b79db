package websocket

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// Hub accepts websocket clients and broadcasts packets to all of them.
type Hub struct {
	lock    sync.RWMutex
	clients map[*ReadWriter]chan []byte
}

// clientQueueSize is the number of packets buffered per client.
// Packets are dropped for a client falling behind.
const clientQueueSize = 32

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*ReadWriter]chan []byte)}
}

// Handler returns the http.Handler serving websocket clients.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

// ServeHTTP implements http.Handler.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Handler().ServeHTTP(w, r)
}

// NumClients returns the number of connected clients.
func (h *Hub) NumClients() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.clients)
}

// WritePacket implements PacketWriter.
func (h *Hub) WritePacket(pkt []byte) error {
	h.lock.RLock()
	defer h.lock.RUnlock()
	for rw, ch := range h.clients {
		select {
		case ch <- pkt:
		default:
			glog.Warningf("websocket %s: queue full, packet dropped", rw.remote())
		}
	}
	return nil
}

func (h *Hub) serve(conn *websocket.Conn) {
	rw := New(conn)
	ch := make(chan []byte, clientQueueSize)
	h.lock.Lock()
	h.clients[rw] = ch
	h.lock.Unlock()
	glog.V(1).Infof("websocket %s: connected", rw.remote())

	defer func() {
		h.lock.Lock()
		delete(h.clients, rw)
		h.lock.Unlock()
		rw.Close()
		glog.V(1).Infof("websocket %s: disconnected", rw.remote())
	}()

	// Clients are not expected to send anything, reading only
	// detects the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, err := rw.ReadPacket(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case pkt := <-ch:
			if err := rw.WritePacket(pkt); err != nil {
				glog.V(1).Infof("websocket %s: %v", rw.remote(), err)
				return
			}
		case <-closed:
			return
		}
	}
}

func (p *ReadWriter) remote() string {
	if req := (*websocket.Conn)(p).Request(); req != nil {
		return req.RemoteAddr
	}
	return "?"
}
