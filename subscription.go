package pulsewire

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/pulsewire/pulsewire-go/internal/telemetry"
	"github.com/pulsewire/pulsewire-go/internal/utils"
)

// subscriptionBuffer is how many undelivered messages a subscription holds
// before new ones are dropped.
const subscriptionBuffer = 64

// Subscription is a live channel subscription. Messages arrive via Recv.
type Subscription struct {
	Channel string

	client *Client
	params map[string]any

	closeOnce sync.Once
	closeErr  error
	msgs      chan json.RawMessage
	done      chan struct{}
}

// Subscribe joins a channel and waits for the server ack. params are
// server-interpreted filters and may be nil. Subscribing again to the same
// channel with deep-equal params returns the existing subscription;
// different params are an error until the first subscription is dropped.
func (c *Client) Subscribe(ctx context.Context, channel string, params map[string]any) (*Subscription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if existing, ok := c.subs[channel]; ok {
		c.mu.Unlock()
		if utils.DeepEqual(existing.params, params) {
			return existing, nil
		}
		return nil, fmt.Errorf("already subscribed to %q with different params", channel)
	}
	c.mu.Unlock()

	// Keep a private copy so later caller mutations can't desync the
	// params we resubscribe with.
	var paramsCopy map[string]any
	if params != nil {
		if err := utils.DeepCopy(&paramsCopy, params); err != nil {
			return nil, fmt.Errorf("invalid subscription params: %w", err)
		}
	}

	if err := c.sendSubscribe(ctx, channel, paramsCopy); err != nil {
		c.tracker.RecordMessage(&telemetry.MessageEvent{
			Timestamp: time.Now(), Event: "subscribe", Channel: channel, Error: err.Error(),
		})
		return nil, err
	}

	sub := &Subscription{
		Channel: channel,
		client:  c,
		params:  paramsCopy,
		msgs:    make(chan json.RawMessage, subscriptionBuffer),
		done:    make(chan struct{}),
	}

	c.mu.Lock()
	if existing, ok := c.subs[channel]; ok {
		// Lost a subscribe race; the server already counts us once.
		c.mu.Unlock()
		sub.close()
		return existing, nil
	}
	c.subs[channel] = sub
	c.mu.Unlock()

	c.tracker.RecordMessage(&telemetry.MessageEvent{
		Timestamp: time.Now(), Event: "subscribe", Channel: channel, Success: true,
	})
	return sub, nil
}

// sendSubscribe performs the ack-confirmed subscribe round trip.
func (c *Client) sendSubscribe(ctx context.Context, channel string, params map[string]any) error {
	fr := &frame{
		Type:    frameSubscribe,
		ID:      uuid.New().String(),
		Channel: channel,
	}
	if params != nil {
		data, err := utils.MarshalNoEscape(params)
		if err != nil {
			return fmt.Errorf("encoding subscription params: %w", err)
		}
		fr.Data = data
	}

	data, err := utils.MarshalNoEscape(fr)
	if err != nil {
		return fmt.Errorf("encoding subscribe frame: %w", err)
	}
	if _, err := c.call(ctx, fr.ID, data); err != nil {
		return fmt.Errorf("subscribing to %q: %w", channel, err)
	}
	return nil
}

// dispatchMessage delivers a message frame to its subscription, if any.
func (c *Client) dispatchMessage(data []byte) {
	channel := gjson.GetBytes(data, "channel").String()

	c.mu.Lock()
	sub, ok := c.subs[channel]
	c.mu.Unlock()
	if !ok {
		log.Debug().Str("channel", channel).Msg("message for unknown channel")
		return
	}

	payload := json.RawMessage(gjson.GetBytes(data, "data").Raw)
	select {
	case sub.msgs <- payload:
	default:
		log.Warn().Str("channel", channel).Msg("subscription buffer full, dropping message")
	}
}

// Recv blocks until the next message, the context ends, or the
// subscription is closed.
func (s *Subscription) Recv(ctx context.Context) (json.RawMessage, error) {
	select {
	case msg, ok := <-s.msgs:
		if !ok {
			return nil, ErrClosed
		}
		return msg, nil
	case <-s.done:
		return nil, s.closeErr
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.client.ctx.Done():
		return nil, ErrClosed
	}
}

// Unsubscribe leaves the channel and releases the subscription. Safe to
// call while disconnected; the server forgets dropped connections anyway.
func (s *Subscription) Unsubscribe(ctx context.Context) error {
	c := s.client

	c.mu.Lock()
	if c.subs[s.Channel] == s {
		delete(c.subs, s.Channel)
	}
	connected := c.connected
	c.mu.Unlock()

	defer s.close()

	if !connected {
		return nil
	}

	fr := &frame{
		Type:    frameUnsubscribe,
		ID:      uuid.New().String(),
		Channel: s.Channel,
	}
	data, err := utils.MarshalNoEscape(fr)
	if err != nil {
		return fmt.Errorf("encoding unsubscribe frame: %w", err)
	}
	if _, err := c.call(ctx, fr.ID, data); err != nil {
		return fmt.Errorf("unsubscribing from %q: %w", s.Channel, err)
	}

	c.tracker.RecordMessage(&telemetry.MessageEvent{
		Timestamp: time.Now(), Event: "unsubscribe", Channel: s.Channel, Success: true,
	})
	return nil
}

func (s *Subscription) close() {
	s.closeWith(ErrClosed)
}

// closeWith releases the subscription with the error future Recv calls
// return. closeErr is written before done is closed, so readers that
// observe the close also observe the error.
func (s *Subscription) closeWith(err error) {
	s.closeOnce.Do(func() {
		s.closeErr = err
		close(s.done)
	})
}
