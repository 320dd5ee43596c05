package pulsewire

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/pulsewire/pulsewire-go/internal/backoff"
	"github.com/pulsewire/pulsewire-go/internal/config"
	"github.com/pulsewire/pulsewire-go/internal/telemetry"
)

// Option configures the Client.
type Option func(*Client)

// WithToken sets the bearer token sent during the WebSocket handshake.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithDefaultPath overrides the path appended to endpoints without one.
func WithDefaultPath(path string) Option {
	return func(c *Client) {
		c.defaultPath = path
	}
}

// WithDialTimeout bounds connection establishment.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.dialTimeout = d
	}
}

// WithCallTimeout bounds ack-confirmed operations (subscribe, publish).
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.callTimeout = d
	}
}

// WithPingInterval sets the keepalive cadence. Zero disables keepalive.
func WithPingInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pingInterval = d
	}
}

// WithBackoff replaces the reconnect schedule.
func WithBackoff(p backoff.Policy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithoutReconnect disables automatic reconnection; the client reports
// disconnects to callers instead of redialing.
func WithoutReconnect() Option {
	return func(c *Client) {
		c.reconnect = false
	}
}

// WithMaxReconnectAttempts caps reconnect attempts. Zero means unlimited.
func WithMaxReconnectAttempts(n int) Option {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithRateLimit throttles Publish to r per second with the given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithOutbox persists publishes made while disconnected to a SQLite file at
// path and replays them after reconnecting.
func WithOutbox(path string) Option {
	return func(c *Client) {
		c.outboxPath = path
	}
}

// WithTelemetry records connection and message events as JSONL at path.
func WithTelemetry(cfg telemetry.Config) Option {
	return func(c *Client) {
		c.telemetryCfg = cfg
	}
}

// optionsFromConfig translates a loaded config file into client options.
func optionsFromConfig(cfg *config.Config) []Option {
	opts := []Option{
		WithDefaultPath(cfg.Path),
		WithDialTimeout(cfg.Dial.Timeout),
		WithCallTimeout(cfg.Dial.CallTimeout),
		WithPingInterval(cfg.Dial.PingInterval),
		WithBackoff(backoff.Policy{
			Initial: cfg.Reconnect.Initial,
			Max:     cfg.Reconnect.Max,
			Factor:  cfg.Reconnect.Factor,
			Jitter:  cfg.Reconnect.Jitter,
		}),
		WithMaxReconnectAttempts(cfg.Reconnect.MaxAttempts),
		WithRateLimit(cfg.Publish.Rate, cfg.Publish.Burst),
	}
	if cfg.Token != "" {
		opts = append(opts, WithToken(cfg.Token))
	}
	if !cfg.Reconnect.ReconnectEnabled() {
		opts = append(opts, WithoutReconnect())
	}
	if cfg.Outbox.Path != "" {
		opts = append(opts, WithOutbox(cfg.Outbox.Path))
	}
	if cfg.Telemetry.Enabled {
		opts = append(opts, WithTelemetry(telemetry.Config{
			Enabled:     true,
			LogPath:     cfg.Telemetry.LogPath,
			LogToStdout: cfg.Telemetry.LogToStdout,
		}))
	}
	return opts
}
