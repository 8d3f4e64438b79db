// Package sim simulates the sensor controller.
package sim

import (
	"context"
	"math"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/imulink/pkg/l1"
	"github.com/robotalks/imulink/pkg/l1/msgs"
)

// Device emits the events a real controller would: Connected on start,
// then one NewData per SampleInterval. Script events are emitted one per
// sample, before it. HardwareFailure stops the device like the firmware
// does.
type Device struct {
	Sink           l1.EventHandler
	SampleInterval time.Duration
	Samples        int
	Script         []msgs.Kind
	TiltPeriod     time.Duration
	Temperature    float64
}

// NewDevice creates a Device with defaults.
func NewDevice() *Device {
	return &Device{
		SampleInterval: DefaultSampleInterval,
		TiltPeriod:     DefaultTiltPeriod,
		Temperature:    DefaultTemperature,
	}
}

// Sample computes the n-th sample: the board slowly tilts around the
// X axis while gravity stays 1g.
func (d *Device) Sample(n int) *msgs.Event {
	var phase float64
	if d.TiltPeriod > 0 {
		elapsed := time.Duration(n) * d.SampleInterval
		phase = 2 * math.Pi * float64(elapsed) / float64(d.TiltPeriod)
	}
	tilt := math.Pi / 6 * math.Sin(phase)
	return msgs.NewData(
		0,
		float32(math.Sin(tilt)),
		float32(math.Cos(tilt)),
		float32(d.Temperature+0.5*math.Sin(phase/8)),
	)
}

// Run implements Runnable.
func (d *Device) Run(ctx context.Context) error {
	if err := d.emit(ctx, msgs.New(msgs.KindConnected)); err != nil {
		return err
	}
	interval := d.SampleInterval
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	script := d.Script
	for n := 0; d.Samples <= 0 || n < d.Samples; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if len(script) > 0 {
			kind := script[0]
			script = script[1:]
			if err := d.emit(ctx, msgs.New(kind)); err != nil {
				return err
			}
			if kind == msgs.KindHardwareFailure {
				glog.Warning("simulated hardware failure, device stopped")
				return nil
			}
		}
		if err := d.emit(ctx, d.Sample(n)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) emit(ctx context.Context, e *msgs.Event) error {
	glog.V(3).Infof("emit %s", e)
	if d.Sink == nil {
		return nil
	}
	return d.Sink.HandleEvent(ctx, e)
}
