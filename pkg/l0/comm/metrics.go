package comm

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/imulink/pkg/l0/stuffing"
)

// Metrics counts link activity.
type Metrics struct {
	FramesIn    prometheus.Counter
	FramesOut   prometheus.Counter
	BytesIn     prometheus.Counter
	BytesOut    prometheus.Counter
	FrameErrors *prometheus.CounterVec
}

// Error reasons used as label values of FrameErrors.
const (
	ReasonInvalidEscape  = "invalid_escape"
	ReasonBufferTooSmall = "buffer_too_small"
	ReasonOther          = "other"
)

// NewMetrics creates Metrics and registers them with reg if not nil.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		FramesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_received_total",
			Help:      "Number of complete frames received.",
		}),
		FramesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frames_sent_total",
			Help:      "Number of frames sent.",
		}),
		BytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "bytes_received_total",
			Help:      "Number of raw bytes received.",
		}),
		BytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "bytes_sent_total",
			Help:      "Number of raw bytes sent.",
		}),
		FrameErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "link",
			Name:      "frame_errors_total",
			Help:      "Number of dropped frames by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.FramesIn, m.FramesOut, m.BytesIn, m.BytesOut, m.FrameErrors)
	}
	return m
}

// ErrorReason maps a framing error to its label value.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, stuffing.ErrInvalidEscape):
		return ReasonInvalidEscape
	case errors.Is(err, stuffing.ErrBufferTooSmall):
		return ReasonBufferTooSmall
	}
	return ReasonOther
}

func (m *Metrics) frameError(err error) {
	if m != nil {
		m.FrameErrors.WithLabelValues(ErrorReason(err)).Inc()
	}
}

func (m *Metrics) received(n int, frames int) {
	if m != nil {
		m.BytesIn.Add(float64(n))
		m.FramesIn.Add(float64(frames))
	}
}

func (m *Metrics) sent(n int) {
	if m != nil {
		m.BytesOut.Add(float64(n))
		m.FramesOut.Inc()
	}
}
