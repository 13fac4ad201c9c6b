package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/actuator/pkg/bridge"
	"github.com/robotalks/actuator/pkg/config"
	"github.com/robotalks/actuator/pkg/events"
	fx "github.com/robotalks/actuator/pkg/framework"
	"github.com/robotalks/actuator/pkg/l0/comm"
	"github.com/robotalks/actuator/pkg/mqtt"
)

var (
	commandTimeout = 5 * time.Second
	connectTimeout = 10 * time.Second
)

func init() {
	config.SetupFlags()
	flag.DurationVar(&commandTimeout, "command-timeout", commandTimeout, "Timeout of a bridged command.")
	flag.DurationVar(&connectTimeout, "connect-timeout", connectTimeout, "Timeout connecting to the MQTT broker.")
}

func main() {
	flag.Parse()
	conf := config.MustLoad()

	client, err := mqtt.NewFromURL(conf.MQTTURL)
	if err != nil {
		glog.Exit(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	err = client.Connect(ctx)
	cancel()
	if err != nil {
		glog.Exitf("connect MQTT %s: %v", conf.MQTTURL, err)
	}
	defer client.Close()

	sink := events.NewAsync(events.Mux{
		events.Glog{Source: conf.Port},
		&events.MQTT{Publisher: client, Source: conf.Port},
	}, 0)
	engine, err := conf.NewEngine(sink)
	if err != nil {
		glog.Exit(err)
	}
	engine.Notifier = comm.StateChangedFunc(func(_ context.Context, state comm.ConnState) {
		glog.Infof("%s %s", conf.Port, state)
	})
	worker := comm.NewClient(engine)
	b := bridge.New(client, worker)
	b.Timeout = commandTimeout

	runner := fx.NewRunner().HandleSignals()
	runner.Go(
		fx.NamedRun("events", sink),
		fx.NamedRun("worker", worker),
		fx.NamedRun("bridge", b),
	)
	// the first command retries when the port isn't there yet.
	if err := engine.Connect(runner.Context()); err != nil {
		glog.Warningf("connect %s: %v", conf.Port, err)
	}
	if err := runner.Wait(); err != nil {
		glog.Exit(err)
	}
}
