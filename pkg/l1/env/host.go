package env

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fx "github.com/robotalks/imulink/pkg/framework"
	l0 "github.com/robotalks/imulink/pkg/l0/comm"
	"github.com/robotalks/imulink/pkg/l1/comm"
	"github.com/robotalks/imulink/pkg/l1/comm/mqtt"
	"github.com/robotalks/imulink/pkg/l1/comm/stuffed"
	"github.com/robotalks/imulink/pkg/l1/comm/websocket"
)

// MetricsNamespace prefixes all metrics.
const MetricsNamespace = "imulink"

// Env is the host side of a device: events received from the port are
// logged and forwarded to MQTT and websocket clients.
type Env struct {
	Config   *Config
	Link     *l0.Link
	Pipe     *comm.Pipe
	Events   *comm.EventMux
	Hub      *websocket.Hub
	Registry *prometheus.Registry

	// Announcer is nil when MQTT is disabled.
	Announcer *mqtt.Announcer
}

// NewEnv opens the port and creates Env.
func (c *Config) NewEnv() (*Env, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	port, err := c.OpenPort()
	if err != nil {
		return nil, err
	}
	env, err := c.NewEnvWithPort(port, port.ReadTimeout)
	if err != nil {
		port.Close()
	}
	return env, err
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	env, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return env
}

// NewEnvWithPort creates Env on an opened port.
func (c *Config) NewEnvWithPort(port io.ReadWriter, readTimeout bool) (*Env, error) {
	env := &Env{
		Config:   c,
		Events:   &comm.EventMux{Tolerant: true},
		Hub:      websocket.NewHub(),
		Registry: prometheus.NewRegistry(),
	}
	env.Link = l0.NewLink(port)
	env.Link.ReadTimeout = readTimeout
	if c.MaxMessageSize > 0 {
		env.Link.MaxMessageSize = c.MaxMessageSize
	}
	env.Link.Metrics = l0.NewMetrics(env.Registry, MetricsNamespace)
	env.Pipe = comm.NewPipe(stuffed.WithLink(env.Link))
	env.Pipe.Handler = env.Events

	forwarder := (&comm.Forwarder{}).Add(env.Hub)
	env.Events.Add(comm.LogEvents, forwarder)
	if c.MQTTBrokerURL != "" {
		announcer, err := mqtt.NewAnnouncer(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("create MQTT announcer error: %v", err)
		}
		env.Announcer = announcer
		forwarder.Add(announcer)
		env.Events.Add(mqtt.NewPublisher(announcer.Queue, c.Info.Ref))
	}
	return env, nil
}

// ServeMux serves /metrics and /events (websocket).
func (e *Env) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/events", e.Hub)
	return mux
}

// Runnables lists what to run. The Pipe comes first.
func (e *Env) Runnables() []fx.Runnable {
	runnables := []fx.Runnable{fx.NamedRun("pipe", e.Pipe)}
	if e.Announcer != nil {
		runnables = append(runnables, fx.NamedRun("mqtt", e.Announcer))
	}
	if addr := e.Config.ListenAddr; addr != "" {
		runnables = append(runnables, fx.NamedRun("http", fx.RunFunc(func(ctx context.Context) error {
			srv := &http.Server{Addr: addr, Handler: e.ServeMux()}
			glog.Infof("serving on %s", addr)
			err := fx.RunWithContextCancel(ctx, func() { srv.Close() }, srv.ListenAndServe)
			if err == http.ErrServerClosed {
				err = nil
			}
			return err
		})))
	}
	return runnables
}

// Run runs everything until the port is closed or ctx is canceled.
func (e *Env) Run(ctx context.Context) error {
	return fx.NewRunnerWith(ctx).Go(e.Runnables()...).Wait()
}
