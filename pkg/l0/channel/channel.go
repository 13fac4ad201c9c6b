// Package channel opens the byte channel to the actuator firmware.
//
// The channel is selected by URL:
//
//	serial:///dev/ttyACM0?baud=115200   native serial port
//	tarm:///dev/ttyACM0?baud=115200     serial port through tarm/serial
//	ws://host:port/path                 serial-over-websocket bridge
//	tcp://host:port                     raw TCP, e.g. ser2net
//
// A bare device path is the same as serial://.
package channel

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/actuator/pkg/l0/comm"
)

// DefaultBaud is the baud rate of the firmware.
const DefaultBaud = 115200

// Scheme names.
const (
	SchemeSerial = "serial"
	SchemeTarm   = "tarm"
	SchemeWS     = "ws"
	SchemeWSS    = "wss"
	SchemeTCP    = "tcp"
)

// Options are defaults applied when the URL doesn't specify them.
type Options struct {
	Baud        int
	ReadTimeout time.Duration
}

// Target is a parsed channel URL.
type Target struct {
	Scheme string
	// Address is the device path, host:port or the full websocket URL.
	Address     string
	Baud        int
	ReadTimeout time.Duration
}

// String implements fmt.Stringer.
func (t Target) String() string {
	switch t.Scheme {
	case SchemeSerial, SchemeTarm:
		return fmt.Sprintf("%s://%s?baud=%d", t.Scheme, t.Address, t.Baud)
	case SchemeTCP:
		return "tcp://" + t.Address
	}
	return t.Address
}

type dialFunc func(ctx context.Context, t Target) (comm.Channel, error)

var dialers = map[string]dialFunc{
	SchemeSerial: openSerial,
	SchemeTarm:   openTarm,
	SchemeWS:     dialWebsocket,
	SchemeWSS:    dialWebsocket,
	SchemeTCP:    dialTCP,
}

// Parse parses a channel URL.
func Parse(rawURL string, opts Options) (t Target, err error) {
	t.Baud, t.ReadTimeout = opts.Baud, opts.ReadTimeout
	if t.Baud <= 0 {
		t.Baud = DefaultBaud
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return t, fmt.Errorf("empty channel url")
	}
	if !strings.Contains(rawURL, "://") {
		t.Scheme, t.Address = SchemeSerial, rawURL
		return t, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return t, fmt.Errorf("invalid channel url %q: %w", rawURL, err)
	}
	t.Scheme = strings.ToLower(u.Scheme)
	if _, ok := dialers[t.Scheme]; !ok {
		return t, fmt.Errorf("unsupported channel scheme %q", u.Scheme)
	}
	query := u.Query()
	switch t.Scheme {
	case SchemeSerial, SchemeTarm:
		t.Address = u.Host + u.Path
		if t.Address == "" {
			t.Address = u.Opaque
		}
		if s := query.Get("baud"); s != "" {
			if t.Baud, err = strconv.Atoi(s); err != nil || t.Baud <= 0 {
				return t, fmt.Errorf("invalid baud %q", s)
			}
		}
	case SchemeTCP:
		t.Address = u.Host
	default:
		t.Address = u.String()
	}
	if s := query.Get("timeout"); s != "" {
		if t.ReadTimeout, err = time.ParseDuration(s); err != nil {
			return t, fmt.Errorf("invalid timeout %q: %w", s, err)
		}
	}
	if t.Address == "" {
		return t, fmt.Errorf("missing address in channel url %q", rawURL)
	}
	return t, nil
}

// Open opens the channel at target.
func (t Target) Open(ctx context.Context) (comm.Channel, error) {
	dial, ok := dialers[t.Scheme]
	if !ok {
		return nil, fmt.Errorf("unsupported channel scheme %q", t.Scheme)
	}
	glog.V(2).Infof("opening channel %s", t)
	return dial(ctx, t)
}

// Open parses rawURL and opens the channel.
func Open(ctx context.Context, rawURL string, opts Options) (comm.Channel, error) {
	t, err := Parse(rawURL, opts)
	if err != nil {
		return nil, err
	}
	return t.Open(ctx)
}

// NewOpener validates rawURL and returns an Opener for the engine.
func NewOpener(rawURL string, opts Options) (comm.Opener, error) {
	t, err := Parse(rawURL, opts)
	if err != nil {
		return nil, err
	}
	return t, nil
}
