package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	fx "github.com/robotalks/imulink/pkg/framework"
	"github.com/robotalks/imulink/pkg/l1/comm"
	"github.com/robotalks/imulink/pkg/l1/comm/stuffed"
	"github.com/robotalks/imulink/pkg/l1/env"
	"github.com/robotalks/imulink/pkg/sim"
)

func init() {
	env.SetupFlags()
	sim.SetupFlags()
}

func main() {
	flag.Parse()

	conf := env.MustNewConfig()
	port, err := conf.OpenPort()
	if err != nil {
		log.Fatalln(err)
	}
	defer port.Close()

	rw := stuffed.New(port)
	rw.Link.ReadTimeout = port.ReadTimeout
	if conf.MaxMessageSize > 0 {
		rw.Link.MaxMessageSize = conf.MaxMessageSize
	}
	device, err := sim.NewConfig().NewDevice()
	if err != nil {
		log.Fatalln(err)
	}
	pipe := comm.NewPipe(rw)
	device.Sink = pipe

	// the pipe drains whatever the host sends, the device stops the
	// simulation when its script completes.
	err = fx.NewRunner().HandleSignals().Go(
		fx.NamedRun("device", device),
		fx.NamedRun("pipe", pipe),
	).Wait()
	if err != nil {
		log.Fatalln(err)
	}
}
