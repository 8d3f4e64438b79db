package sim

import (
	"bytes"
	"context"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/imulink/pkg/l0/stuffing"
	"github.com/robotalks/imulink/pkg/l1"
	"github.com/robotalks/imulink/pkg/l1/comm"
	"github.com/robotalks/imulink/pkg/l1/comm/stuffed"
	"github.com/robotalks/imulink/pkg/l1/msgs"
)

type eventRecorder struct {
	lock   sync.Mutex
	events []*msgs.Event
}

func (r *eventRecorder) HandleEvent(ctx context.Context, e *msgs.Event) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) kinds() (kinds []msgs.Kind) {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, e := range r.events {
		kinds = append(kinds, e.Kind)
	}
	return
}

func TestParseScript(t *testing.T) {
	kinds, err := ParseScript(" 1, cal,ButtonTwo,,FAIL")
	require.NoError(t, err)
	require.Equal(t, []msgs.Kind{
		msgs.KindButtonOne,
		msgs.KindCalibrationStarted,
		msgs.KindCalibrationEnded,
		msgs.KindButtonTwo,
		msgs.KindHardwareFailure,
	}, kinds)

	kinds, err = ParseScript("")
	require.NoError(t, err)
	require.Empty(t, kinds)

	_, err = ParseScript("1,bogus")
	require.Error(t, err)
}

func TestSample(t *testing.T) {
	d := NewDevice()
	e := d.Sample(0)
	require.Equal(t, msgs.KindNewData, e.Kind)
	require.Equal(t, float32(0), e.Y)
	require.Equal(t, float32(1), e.Z)
	require.InDelta(t, DefaultTemperature, e.Temperature, 1e-6)
	for n := 0; n < 100; n++ {
		e = d.Sample(n)
		g := math.Sqrt(float64(e.X*e.X + e.Y*e.Y + e.Z*e.Z))
		require.InDelta(t, 1, g, 1e-5)
	}
}

func TestDeviceRunScript(t *testing.T) {
	var rec eventRecorder
	d := NewDevice()
	d.Sink = &rec
	d.SampleInterval = time.Millisecond
	d.Samples = 5
	d.Script = []msgs.Kind{msgs.KindButtonOne, msgs.KindHardwareFailure, msgs.KindButtonTwo}
	require.NoError(t, d.Run(context.Background()))
	require.Equal(t, []msgs.Kind{
		msgs.KindConnected,
		msgs.KindButtonOne,
		msgs.KindNewData,
		msgs.KindHardwareFailure,
	}, rec.kinds())
}

func TestDeviceCancel(t *testing.T) {
	d := NewDevice()
	d.SampleInterval = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, context.Canceled, d.Run(ctx))
}

func TestDeviceToHost(t *testing.T) {
	r, w := io.Pipe()
	devicePipe := comm.NewPipe(stuffed.New(struct {
		io.Reader
		io.Writer
	}{Reader: bytes.NewReader(nil), Writer: w}))
	host := comm.NewPipe(stuffed.New(struct {
		io.Reader
		io.Writer
	}{Reader: r, Writer: io.Discard}))
	var rec eventRecorder
	host.Handler = &rec

	errCh := make(chan error, 1)
	go func() { errCh <- host.Run(context.Background()) }()

	conf := NewConfig()
	conf.SampleInterval = time.Millisecond
	conf.Samples = 3
	conf.Script = "1,cal"
	d, err := conf.NewDevice()
	require.NoError(t, err)
	d.Sink = devicePipe
	require.NoError(t, d.Run(context.Background()))
	w.Close()

	select {
	case err := <-errCh:
		require.Equal(t, stuffing.ErrEndOfInput, err)
	case <-time.After(time.Second):
		t.Fatal("host not stopped")
	}
	require.Equal(t, []msgs.Kind{
		msgs.KindConnected,
		msgs.KindButtonOne,
		msgs.KindNewData,
		msgs.KindCalibrationStarted,
		msgs.KindNewData,
		msgs.KindCalibrationEnded,
		msgs.KindNewData,
	}, rec.kinds())
	rec.lock.Lock()
	defer rec.lock.Unlock()
	require.Equal(t, d.Sample(2), rec.events[6])
}

var _ l1.EventHandler = (*eventRecorder)(nil)
