package events

import (
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/actuator/pkg/bridge/msgs"
)

// Publisher publishes a payload to a topic without waiting.
// *mqtt.Client implements it.
type Publisher interface {
	Publish(topic string, payload []byte) paho.Token
}

// MQTT publishes every status line as an encoded msgs.Event on its topic.
// It never waits for the publish token, wrap it with Async when the
// underlying client may block.
type MQTT struct {
	Publisher Publisher
	Source    string
	Now       func() time.Time
}

// Publish implements Sink.
func (m *MQTT) Publish(topic, message string) {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	m.PublishEvent(Event{Topic: topic, Message: message, Time: now()})
}

// PublishEvent implements EventSink.
func (m *MQTT) PublishEvent(ev Event) {
	if ev.Source == "" {
		ev.Source = m.Source
	}
	data, err := msgs.EncodeEvent(ev)
	if err != nil {
		glog.Errorf("encode event: %v", err)
		return
	}
	m.Publisher.Publish(ev.Topic, data)
}
