package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level client configuration.
type Config struct {
	Endpoint  string          `yaml:"endpoint"`
	Path      string          `yaml:"path"`
	Token     string          `yaml:"token"`
	Dial      DialConfig      `yaml:"dial"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Publish   PublishConfig   `yaml:"publish"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// DialConfig controls connection establishment and keepalive.
type DialConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// ReconnectConfig controls the automatic reconnect schedule.
// Enabled defaults to true; set enabled: false to fail hard on disconnect.
type ReconnectConfig struct {
	Enabled     *bool         `yaml:"enabled"`
	Initial     time.Duration `yaml:"initial"`
	Max         time.Duration `yaml:"max"`
	Factor      float64       `yaml:"factor"`
	Jitter      float64       `yaml:"jitter"`
	MaxAttempts int           `yaml:"max_attempts"` // 0 = unlimited
}

// PublishConfig throttles outgoing publishes.
type PublishConfig struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// OutboxConfig enables the on-disk queue for publishes made while offline.
type OutboxConfig struct {
	Path        string `yaml:"path"`
	ReplayBatch int    `yaml:"replay_batch"`
}

// TelemetryConfig controls JSONL event recording.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LogPath     string `yaml:"log_path"`
	LogToStdout bool   `yaml:"log_to_stdout"`
}

// ReconnectEnabled resolves the tri-state enabled flag.
func (r ReconnectConfig) ReconnectEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- path comes from an explicit --config flag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses YAML config bytes and applies defaults.
// Environment variable references in values are expanded first.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := ExpandEnvWithDefaults(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Path == "" {
		c.Path = DefaultSocketPath
	}
	if c.Dial.Timeout == 0 {
		c.Dial.Timeout = DefaultDialTimeout
	}
	if c.Dial.CallTimeout == 0 {
		c.Dial.CallTimeout = DefaultCallTimeout
	}
	if c.Dial.PingInterval == 0 {
		c.Dial.PingInterval = DefaultPingInterval
	}
	if c.Reconnect.Initial == 0 {
		c.Reconnect.Initial = DefaultReconnectInitial
	}
	if c.Reconnect.Max == 0 {
		c.Reconnect.Max = DefaultReconnectMax
	}
	if c.Reconnect.Factor == 0 {
		c.Reconnect.Factor = DefaultReconnectFactor
	}
	if c.Reconnect.Jitter == 0 {
		c.Reconnect.Jitter = DefaultReconnectJitter
	}
	if c.Publish.Rate == 0 {
		c.Publish.Rate = DefaultPublishRate
	}
	if c.Publish.Burst == 0 {
		c.Publish.Burst = DefaultPublishBurst
	}
	if c.Outbox.ReplayBatch == 0 {
		c.Outbox.ReplayBatch = DefaultOutboxReplayBatch
	}
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// ExpandEnvWithDefaults expands ${VAR} and ${VAR:-default} references in s.
// Unset variables without a default expand to the empty string.
func ExpandEnvWithDefaults(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRefPattern.FindStringSubmatch(ref)
		if v, ok := os.LookupEnv(m[1]); ok && v != "" {
			return v
		}
		if m[2] != "" {
			return m[3]
		}
		return ""
	})
}

// Validate checks fields that would otherwise fail deep inside the client.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must be >= 0")
	}
	if c.Publish.Rate < 0 {
		return fmt.Errorf("publish.rate must be >= 0")
	}
	return nil
}
