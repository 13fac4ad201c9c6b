package comm

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueFull indicates the command queue is full.
var ErrQueueFull = errors.New("command queue full")

// DefaultQueueSize is the number of commands Client buffers.
const DefaultQueueSize = 16

// Outcome is the result of a command using Do.
type Outcome struct {
	Result
	Err error
}

// Pending represents a queued command waiting for its outcome.
type Pending struct {
	cmd      Command
	ctx      context.Context
	resultCh chan Outcome
}

// Command returns the queued command.
func (p *Pending) Command() Command {
	return p.cmd
}

// ResultChan returns the chan to retrieve the outcome.
func (p *Pending) ResultChan() <-chan Outcome {
	return p.resultCh
}

// Wait blocks until the outcome is available or ctx is done.
// The command may still be sent after ctx is done.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case o := <-p.resultCh:
		return o.Result, o.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Client runs commands through an Engine from a single goroutine, so
// frames from concurrent callers never interleave on the wire.
type Client struct {
	engine *Engine
	queue  chan *Pending
	closed bool
	lock   sync.Mutex
}

// NewClient creates client and wraps the engine.
func NewClient(engine *Engine) *Client {
	return &Client{
		engine: engine,
		queue:  make(chan *Pending, DefaultQueueSize),
	}
}

// Engine gets wrapped Engine.
func (c *Client) Engine() *Engine {
	return c.engine
}

// DoWith queues a command and delivers the outcome to the provided chan.
// ch should have room for one outcome: when the command is rejected the
// outcome is sent before DoWith returns, otherwise the worker blocks on
// ch until it is received.
func (c *Client) DoWith(ctx context.Context, cmd Command, ch chan Outcome) *Pending {
	p := &Pending{cmd: cmd, ctx: ctx, resultCh: ch}

	var err error
	c.lock.Lock()
	if c.closed {
		err = ErrClosed
	} else {
		select {
		case c.queue <- p:
		default:
			err = ErrQueueFull
		}
	}
	c.lock.Unlock()
	if err != nil {
		p.resultCh <- Outcome{Err: err}
	}
	return p
}

// Do queues a command and returns a Pending for the outcome.
func (c *Client) Do(ctx context.Context, cmd Command) *Pending {
	return c.DoWith(ctx, cmd, make(chan Outcome, 1))
}

// Send queues a command and waits for the outcome.
func (c *Client) Send(ctx context.Context, cmd Command) (Result, error) {
	return c.Do(ctx, cmd).Wait(ctx)
}

// Run implements Runnable. It owns the engine until ctx is done, then
// closes the channel and fails all queued commands with ErrClosed.
func (c *Client) Run(ctx context.Context) error {
	defer c.shutdown()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-c.queue:
			res, err := c.engine.Send(p.ctx, p.cmd)
			p.resultCh <- Outcome{Result: res, Err: err}
		}
	}
}

func (c *Client) shutdown() {
	c.lock.Lock()
	c.closed = true
	c.lock.Unlock()
	for {
		select {
		case p := <-c.queue:
			p.resultCh <- Outcome{Err: ErrClosed}
		default:
			c.engine.Close()
			return
		}
	}
}
