package sim

import (
	"flag"
	"time"
)

// Config defines the behavior of the simulated device.
type Config struct {
	// SampleInterval is the period of NewData events.
	SampleInterval time.Duration
	// Samples stops the device after so many samples, 0 means forever.
	Samples int
	// Script lists events injected before samples, one per sample.
	Script string
	// TiltPeriod is the period of the simulated tilt motion.
	TiltPeriod time.Duration
	// Temperature is the base temperature in celsius.
	Temperature float64
}

// Defaults
const (
	DefaultSampleInterval = 100 * time.Millisecond
	DefaultTiltPeriod     = 4 * time.Second
	DefaultTemperature    = 24.0
)

var defaultConfig = Config{
	SampleInterval: DefaultSampleInterval,
	TiltPeriod:     DefaultTiltPeriod,
	Temperature:    DefaultTemperature,
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.SampleInterval, "sample-interval", defaultConfig.SampleInterval, "Interval between sensor samples.")
	flag.IntVar(&defaultConfig.Samples, "samples", defaultConfig.Samples, "Stop after so many samples, 0 means forever.")
	flag.StringVar(&defaultConfig.Script, "script", defaultConfig.Script, "Comma separated events to inject, e.g. 1,2,cal,fail.")
	flag.DurationVar(&defaultConfig.TiltPeriod, "tilt-period", defaultConfig.TiltPeriod, "Period of simulated tilt motion.")
	flag.Float64Var(&defaultConfig.Temperature, "temperature", defaultConfig.Temperature, "Base temperature (celsius).")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates the default configuration.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewDevice creates the Device.
func (c *Config) NewDevice() (*Device, error) {
	script, err := ParseScript(c.Script)
	if err != nil {
		return nil, err
	}
	d := NewDevice()
	d.SampleInterval = c.SampleInterval
	d.Samples = c.Samples
	d.Script = script
	d.TiltPeriod = c.TiltPeriod
	d.Temperature = c.Temperature
	return d, nil
}
