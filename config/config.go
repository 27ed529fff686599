package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains configuration for the dawscript runtime
type Config struct {
	LogLevel  string `yaml:"log_level"`  // logrus level name
	SentryDSN string `yaml:"sentry_dsn"` // Sentry DSN (optional)

	// MIDIInputs restricts the console controller to matching ports.
	// Empty means every input.
	MIDIInputs []string `yaml:"midi_inputs"`

	EchoWindow time.Duration `yaml:"echo_window"`
	CLITick    time.Duration `yaml:"cli_tick"`

	Bitwig Bitwig `yaml:"bitwig"`
	Web    Web    `yaml:"web"`

	GadgetsFile string `yaml:"gadgets"` // gadget YAML file (optional)
}

// Bitwig configures the bridge to the Bitwig extension.
type Bitwig struct {
	Host string        `yaml:"host"`
	Port int           `yaml:"port"`
	Tick time.Duration `yaml:"tick"`
}

// Addr returns host:port.
func (b Bitwig) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

// Web configures the remote bridge.
type Web struct {
	Enabled  bool   `yaml:"enabled"`
	WSPort   int    `yaml:"ws_port"`
	HTTPPort int    `yaml:"http_port"`
	Htdocs   string `yaml:"htdocs"`
}

const (
	DefaultWSPort   = 49152
	DefaultHTTPPort = 8080
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:   "info",
		EchoWindow: 100 * time.Millisecond,
		CLITick:    time.Second / 30,
		Bitwig: Bitwig{
			Host: "127.0.0.1",
			Port: 8887,
			Tick: 33 * time.Millisecond,
		},
		Web: Web{
			WSPort:   DefaultWSPort,
			HTTPPort: DefaultHTTPPort,
		},
	}
}

// Load reads a YAML file over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overlays DAWSCRIPT_* environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("DAWSCRIPT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		c.SentryDSN = v
	}
	if v := os.Getenv("DAWSCRIPT_MIDI_INPUTS"); v != "" {
		c.MIDIInputs = nil
		for _, in := range strings.Split(v, ",") {
			if in = strings.TrimSpace(in); in != "" {
				c.MIDIInputs = append(c.MIDIInputs, in)
			}
		}
	}
	if v := os.Getenv("DAWSCRIPT_BITWIG_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DAWSCRIPT_BITWIG_PORT: %w", err)
		}
		c.Bitwig.Port = port
	}
	if v := os.Getenv("DAWSCRIPT_WEB"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DAWSCRIPT_WEB: %w", err)
		}
		c.Web.Enabled = enabled
	}
	if v := os.Getenv("DAWSCRIPT_HTDOCS"); v != "" {
		c.Web.Htdocs = v
	}
	if v := os.Getenv("DAWSCRIPT_GADGETS"); v != "" {
		c.GadgetsFile = v
	}
	return c.Validate()
}

// Validate checks ranges.
func (c *Config) Validate() error {
	for name, port := range map[string]int{
		"bitwig.port":   c.Bitwig.Port,
		"web.ws_port":   c.Web.WSPort,
		"web.http_port": c.Web.HTTPPort,
	} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s: invalid port %d", name, port)
		}
	}
	if c.EchoWindow < 0 {
		return fmt.Errorf("echo_window must not be negative")
	}
	if c.CLITick <= 0 {
		return fmt.Errorf("cli_tick must be positive")
	}
	return nil
}
