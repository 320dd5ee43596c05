// Package pulsewire is a realtime WebSocket client with channel
// subscriptions, ack-confirmed publishes, automatic reconnection and an
// optional on-disk outbox for messages sent while offline.
//
// FILES:
//   - client.go:       connection lifecycle, publish, reconnect loop
//   - subscription.go: channel subscriptions and message delivery
//   - frame.go:        wire envelope encoding/decoding
//   - options.go:      functional options and config translation
package pulsewire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/pulsewire/pulsewire-go/internal/backoff"
	"github.com/pulsewire/pulsewire-go/internal/config"
	"github.com/pulsewire/pulsewire-go/internal/outbox"
	"github.com/pulsewire/pulsewire-go/internal/telemetry"
	"github.com/pulsewire/pulsewire-go/internal/utils"
	"github.com/pulsewire/pulsewire-go/wsurl"
)

// Sentinel errors returned by client operations.
var (
	// ErrClosed is returned after Close has been called.
	ErrClosed = errors.New("client is closed")

	// ErrNotConnected is returned when an operation needs a live connection
	// and no outbox is configured to absorb it.
	ErrNotConnected = errors.New("not connected")

	// ErrReconnectFailed is surfaced by Subscription.Recv after the
	// reconnect attempt budget is exhausted; the client will not redial.
	ErrReconnectFailed = errors.New("reconnection attempts exhausted")
)

// Client is a realtime socket client. Create with NewClient, establish the
// connection with Connect, then Subscribe and Publish. All methods are safe
// for concurrent use.
type Client struct {
	endpoint    string
	token       string
	defaultPath string

	dialTimeout  time.Duration
	callTimeout  time.Duration
	pingInterval time.Duration

	reconnect   bool
	maxAttempts int
	policy      backoff.Policy

	limiter    *rate.Limiter
	outboxPath string
	box        *outbox.Store

	telemetryCfg telemetry.Config
	tracker      *telemetry.Tracker

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	writeMu      sync.Mutex
	conn         *websocket.Conn
	connected    bool
	closed       bool
	reconnecting bool
	subs         map[string]*Subscription
	pending      map[string]chan *frame
}

// NewClient creates a client for the given endpoint. The endpoint is
// normalized with wsurl.Normalize before the first dial, so bare hosts and
// protocol-relative addresses are accepted; http(s) endpoints are rejected.
// It reads PULSEWIRE_ENDPOINT and PULSEWIRE_TOKEN from the environment when
// not provided.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = os.Getenv("PULSEWIRE_ENDPOINT")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		defaultPath:  config.DefaultSocketPath,
		dialTimeout:  config.DefaultDialTimeout,
		callTimeout:  config.DefaultCallTimeout,
		pingInterval: config.DefaultPingInterval,
		reconnect:    true,
		policy: backoff.Policy{
			Initial: config.DefaultReconnectInitial,
			Max:     config.DefaultReconnectMax,
			Factor:  config.DefaultReconnectFactor,
			Jitter:  config.DefaultReconnectJitter,
		},
		limiter: rate.NewLimiter(rate.Limit(config.DefaultPublishRate), config.DefaultPublishBurst),
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[string]*Subscription),
		pending: make(map[string]chan *frame),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.token == "" {
		c.token = os.Getenv("PULSEWIRE_TOKEN")
	}

	normalized, err := wsurl.Normalize(endpoint, c.defaultPath)
	if err != nil {
		cancel()
		return nil, err
	}
	c.endpoint = normalized

	if c.outboxPath != "" {
		box, err := outbox.Open(c.outboxPath)
		if err != nil {
			cancel()
			return nil, err
		}
		c.box = box
	}

	tracker, err := telemetry.NewTracker(c.telemetryCfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}
	c.tracker = tracker

	return c, nil
}

// NewClientFromConfig creates a client from a loaded YAML config.
func NewClientFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewClient(cfg.Endpoint, append(optionsFromConfig(cfg), opts...)...)
}

// Endpoint returns the normalized connection URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Connect dials the server and starts the read and keepalive loops.
// On later disconnects the client redials on its own unless reconnection
// was disabled.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.dial(ctx); err != nil {
		return err
	}

	c.replayOutbox()
	return nil
}

// dial establishes the WebSocket connection and starts per-connection loops.
func (c *Client) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	var header http.Header
	if c.token != "" {
		header = http.Header{"Authorization": {"Bearer " + c.token}}
		log.Debug().Str("token", utils.MaskToken(c.token)).Msg("dialing with auth token")
	}

	conn, resp, err := websocket.Dial(dialCtx, c.endpoint, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.endpoint, err)
	}

	c.mu.Lock()
	if c.closed || c.conn != nil {
		// Lost a dial race (caller Connect vs the reconnect loop) or the
		// client was closed mid-dial. Exactly one connection may be live.
		wasClosed := c.closed
		c.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "duplicate connection")
		if wasClosed {
			return ErrClosed
		}
		return nil
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	log.Info().Str("endpoint", c.endpoint).Msg("connected")
	c.tracker.RecordConn(&telemetry.ConnEvent{
		Timestamp: time.Now(),
		Event:     "connect",
		Endpoint:  c.endpoint,
	})

	go c.readLoop(conn)
	if c.pingInterval > 0 {
		go c.pingLoop(conn)
	}
	return nil
}

// Publish sends payload (raw JSON) to a channel and waits for the server
// ack. While disconnected, publishes are queued to the outbox if one is
// configured, otherwise ErrNotConnected is returned.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	id := uuid.New().String()
	data, err := encodePublish(id, channel, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	closed, connected := c.closed, c.connected
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	if !connected {
		if c.box == nil {
			return ErrNotConnected
		}
		return c.enqueueOffline(id, channel, payload)
	}

	if _, err := c.call(ctx, id, data); err != nil {
		// The connection can drop between the snapshot above and the call;
		// queued-while-offline still has to hold for that message.
		if errors.Is(err, ErrNotConnected) && c.box != nil {
			return c.enqueueOffline(id, channel, payload)
		}
		c.tracker.RecordMessage(&telemetry.MessageEvent{
			Timestamp: time.Now(), Event: "publish", Channel: channel,
			MessageID: id, Bytes: len(payload), Error: err.Error(),
		})
		return err
	}

	c.tracker.RecordMessage(&telemetry.MessageEvent{
		Timestamp: time.Now(), Event: "publish", Channel: channel,
		MessageID: id, Bytes: len(payload), Success: true,
	})
	return nil
}

// enqueueOffline queues a publish for replay after the next reconnect.
func (c *Client) enqueueOffline(id, channel string, payload []byte) error {
	if err := c.box.Enqueue(id, channel, payload); err != nil {
		return err
	}
	log.Debug().Str("channel", channel).Str("message_id", id).Msg("queued publish to outbox")
	c.tracker.RecordMessage(&telemetry.MessageEvent{
		Timestamp: time.Now(), Event: "publish", Channel: channel,
		MessageID: id, Bytes: len(payload), Success: true,
	})
	return nil
}

// call writes an already-encoded frame and waits for the matching ack.
func (c *Client) call(ctx context.Context, id string, data []byte) (*frame, error) {
	ch := make(chan *frame, 1)

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := c.conn
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	if err := c.writeRaw(callCtx, conn, data); err != nil {
		return nil, err
	}

	select {
	case fr := <-ch:
		if fr == nil {
			return nil, ErrNotConnected
		}
		if fr.Type == frameError || fr.Error != "" {
			return nil, fmt.Errorf("server error: %s", fr.Error)
		}
		return fr, nil
	case <-callCtx.Done():
		return nil, fmt.Errorf("waiting for ack: %w", callCtx.Err())
	case <-c.ctx.Done():
		return nil, ErrClosed
	}
}

func (c *Client) writeFrame(ctx context.Context, conn *websocket.Conn, fr *frame) error {
	data, err := utils.MarshalNoEscape(fr)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	return c.writeRaw(ctx, conn, data)
}

func (c *Client) writeRaw(ctx context.Context, conn *websocket.Conn, data []byte) error {
	// websocket.Conn allows one concurrent writer.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.Write(ctx, websocket.MessageText, data)
}

// readLoop routes incoming frames until the connection drops.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		switch peekFrameType(data) {
		case frameMessage:
			c.dispatchMessage(data)
		case frameAck, frameError:
			var fr frame
			if err := json.Unmarshal(data, &fr); err != nil {
				log.Warn().Err(err).Msg("dropping malformed control frame")
				continue
			}
			c.mu.Lock()
			ch, ok := c.pending[fr.ID]
			c.mu.Unlock()
			if ok {
				ch <- &fr
			}
		default:
			log.Debug().Str("type", peekFrameType(data)).Msg("ignoring unknown frame type")
		}
	}
}

// pingLoop sends protocol-level pings while the connection is up.
func (c *Client) pingLoop(conn *websocket.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-backoff.After(c.pingInterval):
		}

		c.mu.Lock()
		current := c.conn
		connected := c.connected
		c.mu.Unlock()
		if !connected || current != conn {
			return
		}

		pingCtx, cancel := context.WithTimeout(c.ctx, c.callTimeout)
		err := conn.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Debug().Err(err).Msg("keepalive ping failed")
			return
		}
	}
}

// handleDisconnect tears down connection state and kicks off reconnection.
// It is keyed to the connection that failed: a stale connection's death
// must not touch the state of a newer live connection.
func (c *Client) handleDisconnect(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connected = false

	// Fail in-flight calls; their waiters see a nil frame.
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}

	closed := c.closed
	startReconnect := c.reconnect && !closed && !c.reconnecting
	if startReconnect {
		c.reconnecting = true
	}
	c.mu.Unlock()

	if closed {
		return
	}

	log.Warn().Err(cause).Str("endpoint", c.endpoint).Msg("disconnected")
	c.tracker.RecordConn(&telemetry.ConnEvent{
		Timestamp: time.Now(),
		Event:     "disconnect",
		Endpoint:  c.endpoint,
		Error:     cause.Error(),
	})

	if startReconnect {
		go c.reconnectLoop()
	}
}

// reconnectLoop redials with backoff until it succeeds, the attempt budget
// runs out, or the client is closed.
func (c *Client) reconnectLoop() {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	for attempt := 0; c.maxAttempts == 0 || attempt < c.maxAttempts; attempt++ {
		delay := c.policy.Delay(attempt)
		select {
		case <-c.ctx.Done():
			return
		case <-backoff.After(delay):
		}

		log.Info().Int("attempt", attempt+1).Dur("delay", delay).Msg("reconnecting")
		c.tracker.RecordConn(&telemetry.ConnEvent{
			Timestamp: time.Now(),
			Event:     "reconnect",
			Endpoint:  c.endpoint,
			Attempt:   attempt + 1,
		})

		if err := c.dial(c.ctx); err != nil {
			log.Debug().Err(err).Int("attempt", attempt+1).Msg("reconnect attempt failed")
			continue
		}

		c.resubscribeAll()
		c.replayOutbox()
		return
	}

	log.Error().Int("attempts", c.maxAttempts).Msg("giving up on reconnection")
	c.failSubscriptions()
}

// failSubscriptions drops every subscription once reconnection has been
// abandoned, so blocked Recv calls see the terminal state instead of
// waiting on their context.
func (c *Client) failSubscriptions() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]*Subscription)
	c.mu.Unlock()

	for _, s := range subs {
		s.closeWith(ErrReconnectFailed)
	}
}

// resubscribeAll re-establishes every subscription on a fresh connection.
func (c *Client) resubscribeAll() {
	c.mu.Lock()
	subs := make([]*Subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		if err := c.sendSubscribe(c.ctx, s.Channel, s.params); err != nil {
			log.Error().Err(err).Str("channel", s.Channel).Msg("failed to resubscribe")
		}
	}
}

// replayOutbox drains queued publishes in order, deleting each row only
// after the server acks it.
func (c *Client) replayOutbox() {
	if c.box == nil {
		return
	}

	for {
		msgs, err := c.box.Pending(config.DefaultOutboxReplayBatch)
		if err != nil {
			log.Error().Err(err).Msg("outbox: failed to list pending messages")
			return
		}
		if len(msgs) == 0 {
			return
		}

		for _, m := range msgs {
			data, err := encodePublish(m.MessageID, m.Channel, m.Payload)
			if err != nil {
				// Unreplayable row; drop it rather than wedging the queue.
				log.Error().Err(err).Str("message_id", m.MessageID).Msg("outbox: dropping malformed message")
				_ = c.box.Ack(m.MessageID)
				continue
			}
			if _, err := c.call(c.ctx, m.MessageID, data); err != nil {
				log.Warn().Err(err).Str("message_id", m.MessageID).Msg("outbox: replay interrupted")
				return
			}
			if err := c.box.Ack(m.MessageID); err != nil {
				log.Error().Err(err).Str("message_id", m.MessageID).Msg("outbox: failed to ack message")
				return
			}
			c.tracker.RecordMessage(&telemetry.MessageEvent{
				Timestamp: time.Now(), Event: "replay", Channel: m.Channel,
				MessageID: m.MessageID, Bytes: len(m.Payload), Success: true,
			})
		}
	}
}

// Connected reports whether the client currently holds a live connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close shuts the client down. Queued outbox messages stay on disk for the
// next session.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.connected = false
	subs := c.subs
	c.subs = make(map[string]*Subscription)
	c.mu.Unlock()

	c.cancel()

	for _, s := range subs {
		s.close()
	}

	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "done")
	}
	if c.box != nil {
		if cerr := c.box.Close(); err == nil {
			err = cerr
		}
	}
	_ = c.tracker.Close()
	return err
}
