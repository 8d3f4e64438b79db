package sh

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/imulink/pkg/l1"
	"github.com/robotalks/imulink/pkg/l1/comm"
	"github.com/robotalks/imulink/pkg/l1/comm/mqtt"
	"github.com/robotalks/imulink/pkg/l1/msgs"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	BrokerURL   string

	Shell   *ishell.Shell
	Monitor *MonitorLoop

	queue *mqtt.Queue
}

// MonitorLoop receives events of a device from the broker.
type MonitorLoop struct {
	Ref    l1.DeviceRef
	Cancel func()
	Done   <-chan struct{}
}

const (
	shellKey    = "$shell"
	idlePrompt  = "[none] > "
	connTimeout = 5 * time.Second
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	brokerURL  = "mqtt://localhost:1883/imulink/"

	// commands
	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&MonitorCmd,
		&UnmonitorCmd,
	}
)

func init() {
	if val := os.Getenv("IMU_MQTT_URL"); val != "" {
		brokerURL = val
	}
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&brokerURL, "mqtt", brokerURL, "MQTT broker URL.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		BrokerURL:   brokerURL,
		Shell:       ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(idlePrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// FormatInfo prints DeviceInfo into friendly string for display.
func FormatInfo(info l1.DeviceInfo) string {
	var w bytes.Buffer
	fmt.Fprintf(&w, "%s", info.Ref.Name())
	if info.Meta.Description != "" {
		fmt.Fprintf(&w, ": %s", info.Meta.Description)
	}
	if info.Meta.Port != "" {
		fmt.Fprintf(&w, " (%s)", info.Meta.Port)
	}
	return w.String()
}

// FormatEvent prints an event in text or JSON.
func FormatEvent(e *msgs.Event, asJSON bool) string {
	if asJSON {
		out, err := json.Marshal(e)
		if err != nil {
			return err.Error()
		}
		return string(out)
	}
	return e.Text()
}

// Print prints a value in JSON or with the text formatter.
func (s *Shell) Print(c *ishell.Context, v interface{}, text func() string) {
	if !s.OutputJSON {
		c.Println(text())
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// Queue connects the broker on first use.
func (s *Shell) Queue() (*mqtt.Queue, error) {
	if s.queue != nil {
		return s.queue, nil
	}
	q, err := mqtt.NewQueueFromURL(s.BrokerURL)
	if err != nil {
		return nil, err
	}
	token := q.Connect()
	if !token.WaitTimeout(connTimeout) {
		return nil, fmt.Errorf("connect %s timeout", s.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	s.queue = q
	return q, nil
}

// DiscoverDevices discovers devices announced on the broker.
func (s *Shell) DiscoverDevices(filter func(l1.DeviceInfo) bool) ([]l1.DeviceInfo, error) {
	q, err := s.Queue()
	if err != nil {
		return nil, err
	}
	infoList, err := mqtt.Discover(context.TODO(), q, mqtt.DefaultDiscoverTimeout)
	if err != nil || filter == nil {
		return infoList, err
	}
	items := make([]l1.DeviceInfo, 0, len(infoList))
	for _, info := range infoList {
		if filter(info) {
			items = append(items, info)
		}
	}
	return items, nil
}

// SelectDevice discovers devices and asks for a choice.
func (s *Shell) SelectDevice(filter func(l1.DeviceInfo) bool) (*l1.DeviceInfo, error) {
	infoList, err := s.DiscoverDevices(filter)
	if err != nil || len(infoList) == 0 {
		return nil, err
	}
	var index int
	if len(infoList) > 1 {
		if !s.Interactive {
			return nil, fmt.Errorf("more than 1 devices discovered in non-interactive mode")
		}
		items := make([]string, len(infoList))
		for n, info := range infoList {
			items[n] = FormatInfo(info)
		}
		index = s.Shell.MultiChoice(items, "Which one to monitor?")
	}
	return &infoList[index], nil
}

// StartMonitor prints events of the device until Stop.
func (s *Shell) StartMonitor(ref l1.DeviceRef) error {
	q, err := s.Queue()
	if err != nil {
		return err
	}
	s.StopMonitor()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	rw := mqtt.NewPacketReadWriter(q).ForSubscriber(ref)
	pipe := comm.NewPipe(rw)
	pipe.Handler = l1.HandleEventFunc(func(_ context.Context, e *msgs.Event) error {
		s.Shell.Println(FormatEvent(e, s.OutputJSON))
		return nil
	})
	go func() {
		defer close(done)
		if err := pipe.Run(ctx); err != nil && err != context.Canceled {
			s.Shell.Println("monitor:", err)
		}
	}()
	s.Monitor = &MonitorLoop{Ref: ref, Cancel: cancel, Done: done}
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", ref.Name()))
	return nil
}

// StopMonitor stops current monitor.
func (s *Shell) StopMonitor() {
	if s.Monitor != nil {
		s.Monitor.Cancel()
		<-s.Monitor.Done
		s.Monitor = nil
		s.Shell.SetPrompt(idlePrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	defer func() {
		s.StopMonitor()
		if s.queue != nil {
			s.queue.Close()
		}
	}()
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		if s.Monitor != nil {
			// eval only monitor runs until the stream ends.
			<-s.Monitor.Done
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// DiscoverCmd discovers devices.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Help:    "[TYPE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var filter func(l1.DeviceInfo) bool
			if len(c.Args) > 0 {
				filter = func(info l1.DeviceInfo) bool {
					return info.Ref.Type == c.Args[0]
				}
			}
			infoList, err := s.DiscoverDevices(filter)
			if err != nil {
				c.Err(err)
				return
			}
			if len(infoList) == 0 {
				// in case infoList is nil, make it empty slice.
				infoList = []l1.DeviceInfo{}
			}
			s.Print(c, infoList, func() string {
				if len(infoList) == 0 {
					return "No devices found"
				}
				var w bytes.Buffer
				for n, info := range infoList {
					if n > 0 {
						w.WriteByte('\n')
					}
					w.WriteString(FormatInfo(info))
				}
				return w.String()
			})
		},
	}

	// MonitorCmd prints events of a device.
	MonitorCmd = ishell.Cmd{
		Name:    "monitor",
		Aliases: []string{"m"},
		Help:    "[TYPE [ID]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ref l1.DeviceRef
			if len(c.Args) >= 2 {
				ref.Type, ref.ID = c.Args[0], c.Args[1]
			} else {
				var filter func(l1.DeviceInfo) bool
				if len(c.Args) == 1 {
					filter = func(info l1.DeviceInfo) bool {
						return info.Ref.Type == c.Args[0]
					}
				}
				info, err := s.SelectDevice(filter)
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no device discovered"))
					return
				}
				ref = info.Ref
			}
			if err := s.StartMonitor(ref); err != nil {
				c.Err(err)
			}
		},
	}

	// UnmonitorCmd stops the monitor.
	UnmonitorCmd = ishell.Cmd{
		Name:    "unmonitor",
		Aliases: []string{"u"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).StopMonitor()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New().Run(flag.Args()...)
}
