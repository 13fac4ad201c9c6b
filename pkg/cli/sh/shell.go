// Package sh provides the interactive shell of actuatorctl.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/actuator/pkg/bridge"
	"github.com/robotalks/actuator/pkg/config"
	"github.com/robotalks/actuator/pkg/env"
	"github.com/robotalks/actuator/pkg/events"
	fx "github.com/robotalks/actuator/pkg/framework"
	"github.com/robotalks/actuator/pkg/l0/comm"
	"github.com/robotalks/actuator/pkg/mqtt"
)

// Sender runs a command and waits for the result.
// *comm.Client and *bridge.Remote implement it.
type Sender interface {
	Send(context.Context, comm.Command) (comm.Result, error)
}

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Remote      bool
	Timeout     time.Duration

	Shell  *ishell.Shell
	Config *config.Config
	Sender Sender
	// Engine is nil in remote mode.
	Engine *comm.Engine

	runner *fx.Runner
	closer func()
}

const (
	shellKey = "$shell"
	prompt   = "actuator > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	remote     bool
	timeout    = 3 * time.Second

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
		&StatusCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.BoolVar(&remote, "remote", remote, "Send commands through actuatord over MQTT.")
	flag.DurationVar(&timeout, "timeout", timeout, "Timeout of a command.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *config.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Remote:      remote,
		Timeout:     timeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Start creates the Sender: a local command worker on the configured
// port, or a Remote through the MQTT bridge.
func (s *Shell) Start() error {
	if s.Remote {
		client, err := mqtt.NewFromURL(s.Config.MQTTURL)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		defer cancel()
		if err = client.Connect(ctx); err != nil {
			return fmt.Errorf("connect MQTT %s: %w", s.Config.MQTTURL, err)
		}
		r := bridge.NewRemote(client, env.ShortID())
		s.Sender = r
		s.closer = func() {
			r.Close()
			client.Close()
		}
		return nil
	}

	var sink events.Sink = events.Glog{Source: s.Config.Port}
	if s.Interactive {
		sink = events.Mux{sink, events.Func(func(topic, msg string) {
			s.Shell.Println(msg)
		})}
	}
	async := events.NewAsync(sink, 0)
	engine, err := s.Config.NewEngine(async)
	if err != nil {
		return err
	}
	worker := comm.NewClient(engine)
	s.Engine, s.Sender = engine, worker
	s.runner = fx.NewRunner()
	s.runner.Go(fx.NamedRun("events", async), fx.NamedRun("worker", worker))
	s.closer = func() {
		s.runner.Stop()
		if err := s.runner.Wait(); err != nil {
			glog.Warningf("stop: %v", err)
		}
	}
	return nil
}

// Close stops the Sender.
func (s *Shell) Close() {
	if s.closer != nil {
		s.closer()
		s.closer = nil
	}
}

// Result is the printed form of a command result.
type Result struct {
	Status string `json:"status"`
	Value  *int16 `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ResultOf converts the outcome of a command.
func ResultOf(res comm.Result, err error) Result {
	if err != nil {
		return Result{Status: "error", Error: err.Error()}
	}
	r := Result{Status: res.Status.String()}
	if res.HasValue {
		val := res.Value
		r.Value = &val
	}
	return r
}

// String implements fmt.Stringer.
func (r Result) String() string {
	switch {
	case r.Error != "":
		return r.Error
	case r.Value != nil:
		return fmt.Sprintf("%d", *r.Value)
	case r.Status == comm.StatusSent.String():
		return "OK"
	}
	return r.Status
}

// DoCommand runs a command and prints the result.
func DoCommand(c *ishell.Context, cmd comm.Command) error {
	s := ShellFrom(c)
	if s.Sender == nil {
		err := fmt.Errorf("not started")
		c.Err(err)
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	res, err := s.Sender.Send(ctx, cmd)
	out := ResultOf(res, err)
	if s.OutputJSON {
		data, jerr := json.Marshal(out)
		if jerr != nil {
			c.Err(jerr)
			return jerr
		}
		c.Println(string(data))
		return err
	}
	if err != nil {
		c.Err(err)
		return err
	}
	c.Println(out.String())
	return nil
}

// MustBeLocal wraps command func requiring the local engine.
func MustBeLocal(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Engine == nil {
			c.Err(fmt.Errorf("not available in remote mode"))
			return
		}
		fn(c)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Start(); err != nil {
		glog.Exit(err)
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}

var (
	// ConnectCmd opens the channel now rather than on the first command.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "open the channel",
		Func: MustBeLocal(func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
			defer cancel()
			if err := s.Engine.Connect(ctx); err != nil {
				c.Err(err)
			}
		}),
	}

	// DisconnectCmd closes the channel.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "close the channel",
		Func: MustBeLocal(func(c *ishell.Context) {
			if err := ShellFrom(c).Engine.Close(); err != nil {
				c.Err(err)
			}
		}),
	}

	// StatusCmd prints the connection state.
	StatusCmd = ishell.Cmd{
		Name: "status",
		Help: "print the connection state",
		Func: MustBeLocal(func(c *ishell.Context) {
			s := ShellFrom(c)
			c.Printf("%s %s\n", s.Config.Port, s.Engine.State())
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(config.MustLoad()).Run(flag.Args()...)
}
