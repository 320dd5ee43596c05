package telemetry

import "time"

// ConnEvent is a connection state transition.
type ConnEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"` // "connect", "disconnect", "reconnect"
	Endpoint  string    `json:"endpoint"`
	Attempt   int       `json:"attempt,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// MessageEvent is a publish, subscribe or outbox replay.
type MessageEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"` // "publish", "subscribe", "unsubscribe", "replay"
	Channel   string    `json:"channel"`
	MessageID string    `json:"message_id,omitempty"`
	Bytes     int       `json:"bytes,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}
