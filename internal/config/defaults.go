// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined
// here. This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// CONNECTION DEFAULTS
// =============================================================================

// DefaultSocketPath is appended to endpoints that carry no explicit path.
const DefaultSocketPath = "/socket"

// DefaultDialTimeout bounds the WebSocket dial, including the HTTP upgrade.
const DefaultDialTimeout = 15 * time.Second

// DefaultCallTimeout bounds ack-confirmed operations (subscribe, publish).
const DefaultCallTimeout = 10 * time.Second

// DefaultPingInterval is the keepalive ping cadence on an idle connection.
const DefaultPingInterval = 25 * time.Second

// =============================================================================
// RECONNECT DEFAULTS
// =============================================================================

// DefaultReconnectInitial is the delay before the first reconnect attempt.
const DefaultReconnectInitial = 500 * time.Millisecond

// DefaultReconnectMax caps the delay between reconnect attempts.
const DefaultReconnectMax = 30 * time.Second

// DefaultReconnectFactor is the multiplier between attempts.
const DefaultReconnectFactor = 2.0

// DefaultReconnectJitter is the randomized fraction of each delay.
const DefaultReconnectJitter = 0.2

// =============================================================================
// RATE LIMITING
// =============================================================================

// DefaultPublishRate is publishes per second before callers are throttled.
const DefaultPublishRate = 50

// DefaultPublishBurst is the burst size allowed above the steady rate.
const DefaultPublishBurst = 10

// =============================================================================
// OUTBOX
// =============================================================================

// DefaultOutboxReplayBatch is how many queued messages are replayed per
// round trip after a reconnect.
const DefaultOutboxReplayBatch = 100
