package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/actuator/pkg/bridge"
	"github.com/robotalks/actuator/pkg/bridge/msgs"
	"github.com/robotalks/actuator/pkg/config"
	fx "github.com/robotalks/actuator/pkg/framework"
	"github.com/robotalks/actuator/pkg/l0/comm"
	"github.com/robotalks/actuator/pkg/mqtt"
)

func init() {
	config.SetupFlags()
}

func printMessage(topic string, payload []byte) {
	switch {
	case topic == comm.LogTopic:
		ev, err := msgs.DecodeEvent(payload)
		if err != nil {
			log.Printf("%s: bad event: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] %s", topic, ev.Source, ev.Message)
	case topic == bridge.CommandTopic:
		msg, err := msgs.DecodeCommand(payload)
		if err != nil {
			log.Printf("%s: bad command: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, msg.Command)
	case strings.HasPrefix(topic, bridge.ResultTopic):
		res, err := msgs.DecodeResult(payload)
		if err != nil {
			log.Printf("%s: bad result: %v", topic, err)
			return
		}
		if res.HasValue {
			log.Printf("%s: %s %d", topic, res.Status, res.Value)
		} else {
			log.Printf("%s: %s %s", topic, res.Status, res.Error)
		}
	}
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)
	conf := config.MustLoad()

	client, err := mqtt.NewFromURL(conf.MQTTURL)
	if err != nil {
		glog.Exit(err)
	}
	client.Subscribe(comm.LogTopic, printMessage)
	client.Subscribe(bridge.CommandTopic, printMessage)
	client.Subscribe(bridge.ResultTopic+"/#", printMessage)

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.RunFunc(func(ctx context.Context) error {
		if err := client.Connect(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return client.Close()
	}))
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
