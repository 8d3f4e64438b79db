package env

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/imulink/pkg/l1"
)

// Defaults
const (
	DefaultDeviceType = "imu"
	DefaultBaud       = 115200
	DefaultMQTTURL    = "mqtt://localhost:1883/imulink/"
)

// Config provides common options to setup the host side of a device.
type Config struct {
	Info l1.DeviceInfo

	// Port is where the device is attached, one of
	//   /dev/ttyXXX          serial port
	//   tcp://host:port      connect to a TCP endpoint
	//   listen://host:port   accept one TCP connection
	//   -                    stdin/stdout
	Port string
	Baud int
	// ReadTimeout of the serial port, 0 blocks.
	ReadTimeout time.Duration
	// MaxMessageSize must not exceed the buffer size of the device.
	MaxMessageSize int

	// MQTTBrokerURL specifies the MQTT broker to use, empty disables MQTT.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// ListenAddr serves /metrics and /events (websocket), empty disables.
	ListenAddr string
}

var defaultConfig = Config{
	Info: l1.DeviceInfo{
		Ref: l1.DeviceRef{Type: DefaultDeviceType},
	},
	Baud: DefaultBaud,
}

var configFile string

// fallbackID is used when the machine id is not available.
const fallbackID = "local"

func init() {
	if err := defaultConfig.LoadEnv(os.Getenv); err != nil {
		log.Fatalln(err)
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&configFile, "config", configFile, "TOML config file, overrides flags.")
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Device type.")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Device ID, defaults to one derived from the machine id.")
	flag.StringVar(&defaultConfig.Info.Meta.Description, "desc", defaultConfig.Info.Meta.Description, "Device description.")
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port, tcp://host:port, listen://host:port or - for stdio.")
	flag.IntVar(&defaultConfig.Baud, "baud", defaultConfig.Baud, "Serial port baud rate.")
	flag.DurationVar(&defaultConfig.ReadTimeout, "read-timeout", defaultConfig.ReadTimeout, "Serial port read timeout.")
	flag.IntVar(&defaultConfig.MaxMessageSize, "max-message-size", defaultConfig.MaxMessageSize, "Max message size, 0 uses the default.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty disables MQTT.")
	flag.StringVar(&defaultConfig.ListenAddr, "listen", defaultConfig.ListenAddr, "HTTP address for metrics and websocket events.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations, and loads
// the config file if specified by flag. It should be called after
// flag.Parse.
func NewConfig() (*Config, error) {
	conf := defaultConfig
	if conf.Info.Ref.ID == "" {
		conf.Info.Ref.ID = MachineID(fallbackID)
	}
	if configFile != "" {
		if err := conf.LoadFile(configFile); err != nil {
			return nil, err
		}
	}
	conf.Info.Meta.Port = conf.Port
	return &conf, nil
}

// MustNewConfig creates the Config and fails on error.
func MustNewConfig() *Config {
	conf, err := NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

// LoadEnv overrides with IMU_* environment variables.
func (c *Config) LoadEnv(getenv func(string) string) error {
	if val := getenv("IMU_DEVICE_TYPE"); val != "" {
		c.Info.Ref.Type = val
	}
	if val := getenv("IMU_DEVICE_ID"); val != "" {
		c.Info.Ref.ID = val
	}
	if val := getenv("IMU_PORT"); val != "" {
		c.Port = val
	}
	if val := getenv("IMU_BAUD"); val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid IMU_BAUD %q: %v", val, err)
		}
		c.Baud = baud
	}
	if val := getenv("IMU_MQTT_URL"); val != "" {
		c.MQTTBrokerURL = val
	}
	if val := getenv("IMU_LISTEN"); val != "" {
		c.ListenAddr = val
	}
	return nil
}

type fileConfig struct {
	Type           string            `toml:"type"`
	ID             string            `toml:"id"`
	Description    string            `toml:"description"`
	Labels         map[string]string `toml:"labels"`
	Port           string            `toml:"port"`
	Baud           int               `toml:"baud"`
	ReadTimeout    string            `toml:"read_timeout"`
	MaxMessageSize int               `toml:"max_message_size"`
	MQTT           string            `toml:"mqtt"`
	Listen         string            `toml:"listen"`
}

// LoadFile overrides with keys defined in a TOML file.
func (c *Config) LoadFile(path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	if meta.IsDefined("type") {
		c.Info.Ref.Type = strings.TrimSpace(raw.Type)
	}
	if meta.IsDefined("id") {
		c.Info.Ref.ID = strings.TrimSpace(raw.ID)
	}
	if meta.IsDefined("description") {
		c.Info.Meta.Description = raw.Description
	}
	if meta.IsDefined("labels") {
		c.Info.Meta.Labels = raw.Labels
	}
	if meta.IsDefined("port") {
		c.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		c.Baud = raw.Baud
	}
	if meta.IsDefined("read_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ReadTimeout))
		if err != nil {
			return fmt.Errorf("parse read_timeout: %w", err)
		}
		c.ReadTimeout = d
	}
	if meta.IsDefined("max_message_size") {
		c.MaxMessageSize = raw.MaxMessageSize
	}
	if meta.IsDefined("mqtt") {
		c.MQTTBrokerURL = strings.TrimSpace(raw.MQTT)
	}
	if meta.IsDefined("listen") {
		c.ListenAddr = strings.TrimSpace(raw.Listen)
	}
	return c.Validate()
}

// Validate checks the config.
func (c *Config) Validate() error {
	if !c.Info.Ref.IsValid() {
		return fmt.Errorf("device type and id must be specified")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	if c.MaxMessageSize < 0 {
		return fmt.Errorf("invalid max message size %d", c.MaxMessageSize)
	}
	return nil
}
