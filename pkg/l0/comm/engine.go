package comm

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Channel is an open byte stream to the firmware.
// If it also implements SetReadTimeout(time.Duration) error or
// SetReadDeadline(time.Time) error, the engine uses it to bound replies.
type Channel interface {
	io.ReadWriteCloser
}

// Opener opens the byte channel.
type Opener interface {
	Open(context.Context) (Channel, error)
}

// OpenFunc is func form of Opener.
type OpenFunc func(context.Context) (Channel, error)

// Open implements Opener.
func (f OpenFunc) Open(ctx context.Context) (Channel, error) {
	return f(ctx)
}

// EventSink receives human-readable status lines.
// Publish is called after the engine lock is released and should not block.
type EventSink interface {
	Publish(topic, message string)
}

// StateNotifier is called when the connection state changes.
type StateNotifier interface {
	StateChanged(context.Context, ConnState)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, ConnState)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state ConnState) {
	f(ctx, state)
}

// ConnState is the state of the byte channel as seen by the engine.
type ConnState int

// Connection states.
const (
	Disconnected ConnState = iota
	Connected
)

// String implements fmt.Stringer.
func (s ConnState) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Status tells what happened to a command.
type Status int

const (
	// StatusSent means the whole frame was written.
	StatusSent Status = iota
	// StatusDisconnected means no channel could be opened and the command
	// was dropped without writing anything.
	StatusDisconnected
)

// String implements fmt.Stringer.
func (s Status) String() string {
	if s == StatusSent {
		return "sent"
	}
	return "disconnected"
}

// Result is the result of Send.
type Result struct {
	Status   Status
	Value    int16
	HasValue bool
}

// LogTopic is the topic status lines are published to.
const LogTopic = "log"

// DefaultReadTimeout bounds the wait for a reply.
const DefaultReadTimeout = time.Second

// Engine sends commands over a single byte channel and owns the
// connection state. Send calls are serialized.
type Engine struct {
	Opener      Opener
	Sink        EventSink
	Notifier    StateNotifier
	ReadTimeout time.Duration
	// Handshake sends HELLO after open and expects HELLO or
	// ALREADY_CONNECTED back.
	Handshake bool

	ch    Channel
	state ConnState
	lock  sync.Mutex
	// notifications queued while locked.
	deferred []func()
}

// NewEngine creates an Engine.
func NewEngine(opener Opener, sink EventSink) *Engine {
	return &Engine{
		Opener:      opener,
		Sink:        sink,
		ReadTimeout: DefaultReadTimeout,
	}
}

// State gets the connection state.
func (e *Engine) State() ConnState {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.state
}

// Connect opens the channel if it's not open yet.
func (e *Engine) Connect(ctx context.Context) error {
	e.lock.Lock()
	defer e.unlock()
	if e.ch != nil {
		return nil
	}
	e.publish("connecting...")
	return e.open(ctx)
}

// Send encodes cmd and writes it. If the channel is not open, one open
// attempt is made; when that fails the command is dropped and the result
// status is StatusDisconnected with a nil error.
// Encoding errors are returned before any I/O. Transport errors drop the
// channel so the next Send starts with a fresh open.
func (e *Engine) Send(ctx context.Context, cmd Command) (Result, error) {
	frame, err := cmd.Frame()
	if err != nil {
		return Result{}, err
	}
	if err = ctx.Err(); err != nil {
		return Result{}, err
	}

	e.lock.Lock()
	defer e.unlock()
	if e.ch == nil {
		e.publish("attempting to recover connection...")
		if err := e.open(ctx); err != nil {
			return Result{Status: StatusDisconnected}, nil
		}
	}

	e.publish(cmd.String())
	if err = e.write(ctx, frame); err != nil {
		return Result{Status: StatusDisconnected}, err
	}
	if !cmd.ExpectsReply() {
		return Result{Status: StatusSent}, nil
	}
	val, err := e.readReply(ctx)
	if err != nil {
		return Result{Status: StatusDisconnected}, err
	}
	return Result{Status: StatusSent, Value: val, HasValue: true}, nil
}

// Close closes the channel.
func (e *Engine) Close() error {
	e.lock.Lock()
	defer e.unlock()
	if e.ch == nil {
		return nil
	}
	err := e.ch.Close()
	e.ch = nil
	e.setState(context.Background(), Disconnected)
	e.publish("closed")
	return err
}

func (e *Engine) open(ctx context.Context) error {
	if e.Opener == nil {
		return ErrNoChannel
	}
	ch, err := e.Opener.Open(ctx)
	if err != nil {
		glog.Warningf("open channel failed: %v", err)
		e.publish(fmt.Sprintf("connection failed: %v", err))
		return &ChannelError{Op: "open", Err: err}
	}
	if e.ReadTimeout > 0 {
		if st, ok := ch.(interface{ SetReadTimeout(time.Duration) error }); ok {
			if err = st.SetReadTimeout(e.ReadTimeout); err != nil {
				glog.Warningf("set read timeout failed: %v", err)
			}
		}
	}
	if e.Handshake {
		if err = e.greet(ch); err != nil {
			ch.Close()
			glog.Warningf("handshake failed: %v", err)
			e.publish(fmt.Sprintf("connection failed: %v", err))
			return err
		}
	}
	e.ch = ch
	e.setState(ctx, Connected)
	e.publish("connected")
	return nil
}

func (e *Engine) greet(ch Channel) error {
	hello := AppendOrder(nil, OrderHello)
	if _, err := ch.Write(hello); err != nil {
		return &ChannelError{Op: "handshake", Err: err}
	}
	setReadDeadline(ch, e.ReadTimeout)
	reply, err := ReadOrder(ch)
	if err != nil {
		return err
	}
	if !reply.IsGreeting() {
		return &ChannelError{Op: "handshake", Err: fmt.Errorf("unexpected reply %s", reply)}
	}
	glog.V(2).Infof("handshake reply %s", reply)
	return nil
}

func (e *Engine) write(ctx context.Context, frame []byte) error {
	glog.V(3).Infof("TX % x", frame)
	n, err := e.ch.Write(frame)
	if err == nil && n < len(frame) {
		err = io.ErrShortWrite
	}
	if err != nil {
		e.drop(ctx, err)
		return &ChannelError{Op: "write", Err: err}
	}
	return nil
}

func (e *Engine) readReply(ctx context.Context) (int16, error) {
	setReadDeadline(e.ch, e.ReadTimeout)
	val, err := ReadI16(e.ch)
	if err != nil {
		e.drop(ctx, err)
		return 0, err
	}
	glog.V(3).Infof("RX %d", val)
	return val, nil
}

// drop discards the channel after a transport failure. A partially
// transferred frame can't be recovered.
func (e *Engine) drop(ctx context.Context, cause error) {
	glog.Warningf("channel dropped: %v", cause)
	if err := e.ch.Close(); err != nil {
		glog.V(2).Infof("close channel: %v", err)
	}
	e.ch = nil
	e.setState(ctx, Disconnected)
	e.publish(fmt.Sprintf("disconnected: %v", cause))
}

// unlock releases the lock and then delivers queued notifications, so
// sinks and notifiers may call back into the engine.
func (e *Engine) unlock() {
	deferred := e.deferred
	e.deferred = nil
	e.lock.Unlock()
	for _, fn := range deferred {
		fn()
	}
}

func (e *Engine) setState(ctx context.Context, state ConnState) {
	if e.state == state {
		return
	}
	e.state = state
	if n := e.Notifier; n != nil {
		e.deferred = append(e.deferred, func() {
			defer recoverNotify("state notifier")
			n.StateChanged(ctx, state)
		})
	}
}

func (e *Engine) publish(msg string) {
	if sink := e.Sink; sink != nil {
		e.deferred = append(e.deferred, func() {
			defer recoverNotify("event sink")
			sink.Publish(LogTopic, msg)
		})
	}
}

// recoverNotify never lets a notification affect the protocol.
func recoverNotify(what string) {
	if r := recover(); r != nil {
		glog.Errorf("%s panic: %v", what, r)
	}
}

func setReadDeadline(ch Channel, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	if sd, ok := ch.(interface{ SetReadDeadline(time.Time) error }); ok {
		if err := sd.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			glog.V(2).Infof("set read deadline: %v", err)
		}
	}
}
