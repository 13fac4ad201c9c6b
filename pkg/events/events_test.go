package events

import (
	"context"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/actuator/pkg/bridge/msgs"
	"github.com/robotalks/actuator/pkg/l0/comm"
)

type recorder struct {
	lock  sync.Mutex
	lines []string
}

func (r *recorder) Publish(topic, message string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.lines = append(r.lines, topic+": "+message)
}

func (r *recorder) get() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.lines...)
}

type testPublisher struct {
	lock     sync.Mutex
	topics   []string
	payloads [][]byte
}

func (p *testPublisher) Publish(topic string, payload []byte) paho.Token {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return &paho.DummyToken{}
}

func TestMux(t *testing.T) {
	r1, r2 := &recorder{}, &recorder{}
	var n int
	Mux{r1, Discard, Func(func(string, string) { n++ }), r2}.Publish("log", "connected")
	require.Equal(t, []string{"log: connected"}, r1.get())
	require.Equal(t, r1.get(), r2.get())
	require.Equal(t, 1, n)
	Glog{Source: "test"}.Publish("log", "connected")
}

func TestAsyncDeliversInOrder(t *testing.T) {
	r := &recorder{}
	a := NewAsync(r, 8)
	a.Publish("log", "a")
	a.Publish("log", "b")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	a.Publish("log", "c")
	require.Eventually(t, func() bool { return len(r.get()) == 3 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	require.Equal(t, []string{"log: a", "log: b", "log: c"}, r.get())
	require.Zero(t, a.Dropped())
}

func TestAsyncDropsWhenFull(t *testing.T) {
	r := &recorder{}
	a := NewAsync(r, 2)
	for _, msg := range []string{"a", "b", "c", "d"} {
		a.Publish("log", msg)
	}
	require.Equal(t, 2, a.Dropped())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)
	require.Equal(t, []string{"log: a", "log: b"}, r.get())
}

func TestAsyncSurvivesSinkPanic(t *testing.T) {
	r := &recorder{}
	a := NewAsync(Mux{Func(func(_, msg string) {
		if msg == "bad" {
			panic(msg)
		}
	}), r}, 4)
	a.Publish("log", "bad")
	a.Publish("log", "good")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)
	require.Equal(t, []string{"log: good"}, r.get())
}

func TestMQTTSink(t *testing.T) {
	pub := &testPublisher{}
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	sink := &MQTT{Publisher: pub, Source: "/dev/ttyACM0", Now: func() time.Time { return at }}

	var engineSink comm.EventSink = sink
	engineSink.Publish(comm.LogTopic, "connected")
	require.Equal(t, []string{"log"}, pub.topics)
	ev, err := msgs.DecodeEvent(pub.payloads[0])
	require.NoError(t, err)
	require.Equal(t, "connected", ev.Message)
	require.Equal(t, "/dev/ttyACM0", ev.Source)
	require.True(t, at.Equal(ev.Time))
}

func TestAsyncKeepsPublishTime(t *testing.T) {
	pub := &testPublisher{}
	sink := &MQTT{Publisher: pub, Now: func() time.Time { return time.Unix(0, 0) }}
	a := NewAsync(sink, 4)
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	a.now = func() time.Time { return at }
	a.Publish("log", "servo id: 3 val: 90")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a.Run(ctx)

	require.Len(t, pub.payloads, 1)
	ev, err := msgs.DecodeEvent(pub.payloads[0])
	require.NoError(t, err)
	require.True(t, at.Equal(ev.Time))
}
