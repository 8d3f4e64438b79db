package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/imulink/pkg/l1/comm/mqtt"
	"github.com/robotalks/imulink/pkg/l1/msgs"
)

var (
	mqttURL = "mqtt://localhost:1883/imulink/"
)

func init() {
	if val := os.Getenv("IMU_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		switch {
		case strings.HasSuffix(topic, "/"+mqtt.TopicMeta):
			log.Printf("%s: %s", topic, string(payload))
			return
		case !strings.HasSuffix(topic, "/"+mqtt.TopicEvents):
			// JSON copies on events/<kind>.
			return
		}
		e, err := msgs.Decode(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] %s", topic, e.Kind, e.String())
	}))
	<-(chan struct{})(nil)
}
