// Package config loads the description of a simulation run.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.yaml.in/yaml/v3"

	"github.com/sarchlab/nicsim/host"
)

// LogConfig selects how much is logged and how.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LinkConfig describes a point-to-point link.
type LinkConfig struct {
	LatencyNs   uint64 `yaml:"latency_ns"`
	Buffer      int    `yaml:"buffer"`
	MaxInFlight int    `yaml:"max_in_flight"`
}

// HostConfig describes the host.
type HostConfig struct {
	MemoryBytes uint64 `yaml:"memory_bytes"`
}

// WireConfig describes the far end of the Ethernet link.
type WireConfig struct {
	Loopback bool `yaml:"loopback"`
}

// TraceConfig selects where message traces go.
type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MonitorConfig controls the monitoring server.
type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"open_browser"`
}

// Frame is a frame injected from the wire. AtNs counts from the start of
// the run.
type Frame struct {
	AtNs uint64        `yaml:"at_ns"`
	Port uint8         `yaml:"port"`
	Data host.HexBytes `yaml:"data"`
}

// Config is everything a run needs. StartNs sets the simulated time the
// run begins at; max_time_ns and frame times count from there.
type Config struct {
	Log       LogConfig     `yaml:"log"`
	PCIe      LinkConfig    `yaml:"pcie"`
	Ethernet  LinkConfig    `yaml:"ethernet"`
	Host      HostConfig    `yaml:"host"`
	Wire      WireConfig    `yaml:"wire"`
	Trace     TraceConfig   `yaml:"trace"`
	Pcap      string        `yaml:"pcap"`
	Monitor   MonitorConfig `yaml:"monitor"`
	StartNs   uint64        `yaml:"start_ns"`
	MaxTimeNs uint64        `yaml:"max_time_ns"`
	Scenario  host.Script   `yaml:"scenario"`
	Frames    []Frame       `yaml:"frames"`
}

// Defaults returns the values used for every field a file leaves out.
func Defaults() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		PCIe: LinkConfig{
			LatencyNs:   1000,
			Buffer:      64,
			MaxInFlight: 64,
		},
		Ethernet: LinkConfig{
			LatencyNs:   1000,
			Buffer:      64,
			MaxInFlight: 64,
		},
		Host: HostConfig{MemoryBytes: 1 << 30},
	}
}

// Parse decodes a YAML document and fills the missing fields with defaults.
func Parse(b []byte) (Config, error) {
	var c Config

	if err := yaml.Unmarshal(b, &c); err != nil {
		return Config{}, err
	}

	if err := mergo.Merge(&c, Defaults()); err != nil {
		return Config{}, err
	}

	return c, nil
}

// Load reads a config file. An empty path gives the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Defaults(), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	c, err := Parse(b)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

// LoadDotEnv loads environment variables from the given files. With no
// file, .env in the working directory is loaded if it exists.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}

	return godotenv.Load(files...)
}

// ApplyEnv overrides fields with NICSIM_* environment variables.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("NICSIM_LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	if v, ok := os.LookupEnv("NICSIM_LOG_FORMAT"); ok {
		c.Log.Format = v
	}

	if v, ok := os.LookupEnv("NICSIM_TRACE"); ok {
		c.Trace.Enabled = true
		c.Trace.Path = v
	}

	if v, ok := os.LookupEnv("NICSIM_PCAP"); ok {
		c.Pcap = v
	}

	if v, ok := os.LookupEnv("NICSIM_MONITOR_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NICSIM_MONITOR_PORT: %w", err)
		}

		c.Monitor.Enabled = true
		c.Monitor.Port = port
	}

	return nil
}

func (l LinkConfig) validate(name string) error {
	var errs []error

	if l.LatencyNs == 0 {
		errs = append(errs, fmt.Errorf("%s: latency must be positive", name))
	}

	if l.Buffer <= 0 {
		errs = append(errs, fmt.Errorf("%s: buffer must be positive", name))
	}

	if l.MaxInFlight <= 0 {
		errs = append(errs, fmt.Errorf("%s: max_in_flight must be positive", name))
	}

	return errors.Join(errs...)
}

// Validate reports every problem of the config.
func (c Config) Validate() error {
	errs := []error{
		c.PCIe.validate("pcie"),
		c.Ethernet.validate("ethernet"),
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log: unknown format %q", c.Log.Format))
	}

	if err := c.Scenario.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scenario: %w", err))
	}

	for i, f := range c.Frames {
		if len(f.Data) == 0 {
			errs = append(errs, fmt.Errorf("frames: frame %d has no data", i))
		}
	}

	return errors.Join(errs...)
}

// NewLogger creates the logger the config asks for, writing to w.
func (c Config) NewLogger(w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)

	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return l, nil
}
