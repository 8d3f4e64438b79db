package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	fx "github.com/robotalks/imulink/pkg/framework"
	"github.com/robotalks/imulink/pkg/l1/env"
)

func init() {
	env.Default().Info.Meta.Description = "IMU sensor controller"
	env.SetupFlags()
}

func main() {
	flag.Parse()

	host := env.MustNewConfig().MustNewEnv()
	runner := fx.NewRunner().HandleSignals()
	if err := runner.Go(host.Runnables()...).Wait(); err != nil {
		log.Fatalln(err)
	}
}
