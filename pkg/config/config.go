// Package config provides the common options of the actuator binaries.
//
// Values are taken, from lowest to highest precedence, from the built-in
// defaults, the -config file, ACTUATOR_* environment variables and the
// command line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/actuator/pkg/events"
	"github.com/robotalks/actuator/pkg/l0/channel"
	"github.com/robotalks/actuator/pkg/l0/comm"
)

// Config provides common options to connect to the actuator firmware.
type Config struct {
	// Port is the channel URL or a serial device path.
	Port        string
	Baud        int
	ReadTimeout time.Duration
	Handshake   bool
	// MQTTURL specifies the MQTT broker and topic prefix.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTURL    string
	ConfigFile string

	// names of options set from the environment.
	fromEnv map[string]bool
}

// Option names, shared by flags and file keys.
const (
	OptPort        = "port"
	OptBaud        = "baud"
	OptReadTimeout = "read-timeout"
	OptHandshake   = "handshake"
	OptMQTT        = "mqtt"
	OptConfig      = "config"
)

var defaultConfig = Config{
	Port:        "/dev/ttyACM0",
	Baud:        channel.DefaultBaud,
	ReadTimeout: comm.DefaultReadTimeout,
	MQTTURL:     "mqtt://localhost:1883/actuator/",
}

func init() {
	if err := defaultConfig.applyEnv(os.LookupEnv); err != nil {
		glog.Warningf("ignored environment: %v", err)
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(name string) {
		if c.fromEnv == nil {
			c.fromEnv = make(map[string]bool)
		}
		c.fromEnv[name] = true
	}
	if val, ok := lookup("ACTUATOR_PORT"); ok && val != "" {
		c.Port = val
		set(OptPort)
	}
	if val, ok := lookup("ACTUATOR_BAUD"); ok && val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("ACTUATOR_BAUD: %w", err)
		}
		c.Baud = baud
		set(OptBaud)
	}
	if val, ok := lookup("ACTUATOR_READ_TIMEOUT"); ok && val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("ACTUATOR_READ_TIMEOUT: %w", err)
		}
		c.ReadTimeout = timeout
		set(OptReadTimeout)
	}
	if val, ok := lookup("ACTUATOR_HANDSHAKE"); ok && val != "" {
		handshake, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("ACTUATOR_HANDSHAKE: %w", err)
		}
		c.Handshake = handshake
		set(OptHandshake)
	}
	if val, ok := lookup("ACTUATOR_MQTT_URL"); ok && val != "" {
		c.MQTTURL = val
		set(OptMQTT)
	}
	if val, ok := lookup("ACTUATOR_CONFIG"); ok && val != "" {
		c.ConfigFile = val
		set(OptConfig)
	}
	return nil
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	defaultConfig.SetupFlagSet(flag.CommandLine)
}

// SetupFlagSet binds the options to fs.
func (c *Config) SetupFlagSet(fs *flag.FlagSet) {
	fs.StringVar(&c.Port, OptPort, c.Port, "Channel URL or serial device, e.g. /dev/ttyACM0, tcp://host:port, ws://host/path")
	fs.IntVar(&c.Baud, OptBaud, c.Baud, "Serial baud rate")
	fs.DurationVar(&c.ReadTimeout, OptReadTimeout, c.ReadTimeout, "Timeout waiting for a reply")
	fs.BoolVar(&c.Handshake, OptHandshake, c.Handshake, "Send HELLO after opening the channel")
	fs.StringVar(&c.MQTTURL, OptMQTT, c.MQTTURL, "MQTT broker URL")
	fs.StringVar(&c.ConfigFile, OptConfig, c.ConfigFile, "Config file (.yaml, .yml or .toml)")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load applies the config file of the default config after flags are
// parsed. Options set by flags or environment are kept.
func Load() (*Config, error) {
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})
	if err := defaultConfig.LoadFile(defaultConfig.ConfigFile, setFlags); err != nil {
		return nil, err
	}
	return &defaultConfig, nil
}

// MustLoad is Load and fails on error.
func MustLoad() *Config {
	conf, err := Load()
	if err != nil {
		glog.Exit(err)
	}
	return conf
}

// fileConfig is the schema of the config file.
type fileConfig struct {
	Port        *string `yaml:"port" toml:"port"`
	Baud        *int    `yaml:"baud" toml:"baud"`
	ReadTimeout *string `yaml:"read_timeout" toml:"read_timeout"`
	Handshake   *bool   `yaml:"handshake" toml:"handshake"`
	MQTTURL     *string `yaml:"mqtt_url" toml:"mqtt_url"`
}

// LoadFile reads options from a YAML or TOML file. Options named in keep,
// or set from the environment, are not overwritten. Empty path is a no-op.
func (c *Config) LoadFile(path string, keep map[string]bool) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		var md toml.MetaData
		md, err = toml.Decode(string(data), &fc)
		if err == nil {
			for _, key := range md.Undecoded() {
				glog.Warningf("config %s: unknown key %q", path, key.String())
			}
		}
	default:
		return fmt.Errorf("config %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	apply := func(name string) bool {
		return !keep[name] && !c.fromEnv[name]
	}
	if fc.Port != nil && apply(OptPort) {
		c.Port = *fc.Port
	}
	if fc.Baud != nil && apply(OptBaud) {
		c.Baud = *fc.Baud
	}
	if fc.ReadTimeout != nil && apply(OptReadTimeout) {
		if c.ReadTimeout, err = time.ParseDuration(*fc.ReadTimeout); err != nil {
			return fmt.Errorf("config %s: read_timeout: %w", path, err)
		}
	}
	if fc.Handshake != nil && apply(OptHandshake) {
		c.Handshake = *fc.Handshake
	}
	if fc.MQTTURL != nil && apply(OptMQTT) {
		c.MQTTURL = *fc.MQTTURL
	}
	return nil
}

// NewOpener creates the channel opener for Port.
func (c *Config) NewOpener() (comm.Opener, error) {
	opener, err := channel.NewOpener(c.Port, channel.Options{Baud: c.Baud, ReadTimeout: c.ReadTimeout})
	if err != nil {
		return nil, fmt.Errorf("invalid port: %w", err)
	}
	return opener, nil
}

// NewEngine creates an engine publishing status lines to sink.
func (c *Config) NewEngine(sink events.Sink) (*comm.Engine, error) {
	opener, err := c.NewOpener()
	if err != nil {
		return nil, err
	}
	engine := comm.NewEngine(opener, sink)
	engine.ReadTimeout = c.ReadTimeout
	engine.Handshake = c.Handshake
	return engine, nil
}

// MustNewClient creates a command worker and fails on error.
func (c *Config) MustNewClient(sink events.Sink) *comm.Client {
	engine, err := c.NewEngine(sink)
	if err != nil {
		glog.Exit(err)
	}
	return comm.NewClient(engine)
}
