// Package bridge exposes the command worker on MQTT.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/actuator/pkg/bridge/msgs"
	"github.com/robotalks/actuator/pkg/l0/comm"
	"github.com/robotalks/actuator/pkg/mqtt"
)

// Topics relative to the MQTT topic prefix.
const (
	CommandTopic = "serial"
	ResultTopic  = "serial/result"
)

// Doer queues a command. *comm.Client implements it.
type Doer interface {
	Do(context.Context, comm.Command) *comm.Pending
}

// Bridge runs commands received on CommandTopic and publishes results.
type Bridge struct {
	MQTT *mqtt.Client
	Doer Doer
	// Timeout bounds the wait for a queued command, 0 means no limit.
	Timeout time.Duration

	lock     sync.Mutex
	stopping bool
	wg       sync.WaitGroup
}

// New creates a Bridge.
func New(client *mqtt.Client, doer Doer) *Bridge {
	return &Bridge{MQTT: client, Doer: doer}
}

// Run implements Runnable. Commands are accepted until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	sub := b.MQTT.Subscribe(CommandTopic, func(_ string, payload []byte) {
		b.handle(ctx, payload)
	})
	<-ctx.Done()
	if err := sub.Close(); err != nil {
		glog.Warningf("unsubscribe %s: %v", CommandTopic, err)
	}
	b.lock.Lock()
	b.stopping = true
	b.lock.Unlock()
	b.wg.Wait()
	return ctx.Err()
}

func (b *Bridge) handle(ctx context.Context, payload []byte) {
	if ctx.Err() != nil {
		return
	}
	msg, err := msgs.DecodeCommand(payload)
	replyTo := msg.ReplyTo
	if replyTo == "" {
		replyTo = ResultTopic
	}
	if err != nil {
		glog.Warningf("bad command: %v", err)
		res := msgs.ResultFrom(comm.Result{}, err)
		res.Seq = msg.Seq
		b.reply(replyTo, res)
		return
	}
	glog.V(2).Infof("bridge command %s seq %d reply to %s", msg.Command, msg.Seq, replyTo)

	// Add must not race with Wait in Run.
	b.lock.Lock()
	if b.stopping {
		b.lock.Unlock()
		glog.V(2).Infof("bridge stopping, drop command %s", msg.Command)
		return
	}
	b.wg.Add(1)
	b.lock.Unlock()

	cmdCtx, cancel := ctx, context.CancelFunc(func() {})
	if b.Timeout > 0 {
		cmdCtx, cancel = context.WithTimeout(ctx, b.Timeout)
	}
	pending := b.Doer.Do(cmdCtx, msg.Command)
	go func() {
		defer b.wg.Done()
		defer cancel()
		// the outcome always arrives, the worker fails queued commands
		// with ErrClosed when stopped.
		o := <-pending.ResultChan()
		res := msgs.ResultFrom(o.Result, o.Err)
		res.Seq = msg.Seq
		b.reply(replyTo, res)
	}()
}

func (b *Bridge) reply(topic string, res msgs.ResultMsg) {
	data, err := msgs.EncodeResult(res)
	if err != nil {
		glog.Errorf("encode result: %v", err)
		return
	}
	b.MQTT.Publish(topic, data)
}

// RemoteError is a command error reported by the bridge.
type RemoteError struct {
	Message string
}

// Error implements error.
func (e *RemoteError) Error() string {
	return "remote: " + e.Message
}

// Remote sends commands to a Bridge over MQTT and waits for results.
// Commands are sent one at a time, each with a new sequence number.
// Results not carrying the number of the command being waited on are
// discarded.
type Remote struct {
	MQTT    *mqtt.Client
	ReplyTo string

	lock    sync.Mutex
	sub     *mqtt.Subscription
	seq     uint32
	waiting atomic.Uint32
	results chan msgs.ResultMsg
}

// NewRemote creates a Remote receiving results on a topic unique to id.
func NewRemote(client *mqtt.Client, id string) *Remote {
	return &Remote{
		MQTT:    client,
		ReplyTo: ResultTopic + "/" + id,
		results: make(chan msgs.ResultMsg, 1),
	}
}

// Send sends cmd and waits for the result.
func (r *Remote) Send(ctx context.Context, cmd comm.Command) (comm.Result, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.seq++
	if r.seq == 0 {
		r.seq = 1
	}
	data, err := msgs.EncodeCommand(msgs.CommandMsg{Command: cmd, ReplyTo: r.ReplyTo, Seq: r.seq})
	if err != nil {
		return comm.Result{}, err
	}
	if r.sub == nil {
		r.sub = r.MQTT.Subscribe(r.ReplyTo, r.receive)
	}
	select {
	case <-r.results:
	default:
	}
	r.waiting.Store(r.seq)
	defer r.waiting.Store(0)
	r.MQTT.Publish(CommandTopic, data)

	select {
	case <-ctx.Done():
		return comm.Result{}, ctx.Err()
	case msg := <-r.results:
		return resultOf(msg)
	}
}

func (r *Remote) receive(_ string, payload []byte) {
	msg, err := msgs.DecodeResult(payload)
	if err != nil {
		glog.Warningf("bad result on %s: %v", r.ReplyTo, err)
		return
	}
	if seq := r.waiting.Load(); seq == 0 || msg.Seq != seq {
		glog.V(2).Infof("discard result seq %d on %s", msg.Seq, r.ReplyTo)
		return
	}
	select {
	case r.results <- msg:
	default:
		glog.Warningf("duplicate result seq %d on %s", msg.Seq, r.ReplyTo)
	}
}

// Close stops receiving results.
func (r *Remote) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.sub == nil {
		return nil
	}
	err := r.sub.Close()
	r.sub = nil
	return err
}

func resultOf(msg msgs.ResultMsg) (comm.Result, error) {
	switch msg.Status {
	case comm.StatusSent.String():
		return comm.Result{Status: comm.StatusSent, Value: msg.Value, HasValue: msg.HasValue}, nil
	case comm.StatusDisconnected.String():
		return comm.Result{Status: comm.StatusDisconnected}, nil
	case msgs.StatusError:
		if msg.Error == "" {
			return comm.Result{}, errors.New("remote: unknown error")
		}
		return comm.Result{}, &RemoteError{Message: msg.Error}
	}
	return comm.Result{}, fmt.Errorf("remote: unknown status %q", msg.Status)
}
