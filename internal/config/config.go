package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr string `yaml:"addr"`
}

type Relay struct {
	// ReadyTimeout bounds how long the post-join broadcast waits for the
	// joiner's ready signal. Duration string, e.g. "1s".
	ReadyTimeout string `yaml:"readyTimeout"`
}

type Limits struct {
	MessagesPerSecond float64 `yaml:"messagesPerSecond"`
	Burst             int     `yaml:"burst"`
}

type Logging struct {
	Env     string `yaml:"env"`     // dev|prod
	Service string `yaml:"service"` // drawbridge
	Version string `yaml:"version"` // v0.1.0
	Backend string `yaml:"backend"` // std|zap
	Debug   bool   `yaml:"debug"`
}

type Config struct {
	Server  Server  `yaml:"server"`
	Relay   Relay   `yaml:"relay"`
	Limits  Limits  `yaml:"limits"`
	Logging Logging `yaml:"logging"`
}

// Load reads the YAML config named by CONFIG_PATH (default
// ./config.yaml). A missing file is not an error: the defaults cover a
// local run.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// run on defaults
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Relay.ReadyTimeout == "" {
		c.Relay.ReadyTimeout = "1s"
	}
	if c.Limits.MessagesPerSecond <= 0 {
		c.Limits.MessagesPerSecond = 100
	}
	if c.Limits.Burst <= 0 {
		c.Limits.Burst = 200
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Service == "" {
		c.Logging.Service = "drawbridge"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
}

// Timeout parses the configured ready timeout, falling back to one
// second on a bad value.
func (r Relay) Timeout() time.Duration {
	return parseDurationOr(time.Second, r.ReadyTimeout)
}

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
