// Package events provides sinks for the status lines published by the
// command engine.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/actuator/pkg/bridge/msgs"
	"github.com/robotalks/actuator/pkg/l0/comm"
)

// Event is a status line with its origin.
type Event = msgs.Event

// Sink receives status lines. It's the same contract as comm.EventSink:
// Publish must not block and must not call back into the engine.
type Sink interface {
	Publish(topic, message string)
}

var _ comm.EventSink = Sink(nil)

// EventSink is implemented by sinks that keep the event time, so Async
// can deliver the time of publishing rather than the time of delivery.
type EventSink interface {
	PublishEvent(Event)
}

// Func is func form of Sink.
type Func func(topic, message string)

// Publish implements Sink.
func (f Func) Publish(topic, message string) {
	f(topic, message)
}

// Discard drops everything.
var Discard Sink = Func(func(string, string) {})

// Glog writes status lines to glog.
type Glog struct {
	Source string
}

// Publish implements Sink.
func (g Glog) Publish(topic, message string) {
	if g.Source != "" {
		glog.Infof("[%s] %s: %s", g.Source, topic, message)
	} else {
		glog.Infof("%s: %s", topic, message)
	}
}

// Mux fans status lines out to multiple sinks.
type Mux []Sink

// Publish implements Sink.
func (m Mux) Publish(topic, message string) {
	for _, s := range m {
		s.Publish(topic, message)
	}
}

// DefaultAsyncSize is the buffer size of Async.
const DefaultAsyncSize = 64

// Async decouples a slow sink from the publisher. Events are buffered
// and delivered from Run; when the buffer is full, events are dropped.
type Async struct {
	Sink Sink

	events  chan Event
	dropped int
	lock    sync.Mutex
	now     func() time.Time
}

// NewAsync creates Async with a buffer of size events.
func NewAsync(sink Sink, size int) *Async {
	if size <= 0 {
		size = DefaultAsyncSize
	}
	return &Async{Sink: sink, events: make(chan Event, size), now: time.Now}
}

// Publish implements Sink. It never blocks.
func (a *Async) Publish(topic, message string) {
	select {
	case a.events <- Event{Topic: topic, Message: message, Time: a.now()}:
	default:
		a.lock.Lock()
		a.dropped++
		a.lock.Unlock()
		glog.V(2).Infof("event dropped: %s: %s", topic, message)
	}
}

// Dropped returns the number of dropped events.
func (a *Async) Dropped() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.dropped
}

// Run implements Runnable. It delivers buffered events until ctx is done,
// then flushes what's left.
func (a *Async) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			a.flush()
			return ctx.Err()
		case ev := <-a.events:
			a.deliver(ev)
		}
	}
}

func (a *Async) flush() {
	for {
		select {
		case ev := <-a.events:
			a.deliver(ev)
		default:
			return
		}
	}
}

func (a *Async) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("event sink panic: %v", r)
		}
	}()
	if es, ok := a.Sink.(EventSink); ok {
		es.PublishEvent(ev)
		return
	}
	a.Sink.Publish(ev.Topic, ev.Message)
}
