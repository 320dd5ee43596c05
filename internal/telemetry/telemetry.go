// Package telemetry records client events to JSONL files.
//
// DESIGN: Tracker writes structured events as JSONL (one JSON object per line):
//   - ConnEvent:    connect, disconnect and reconnect transitions
//   - MessageEvent: publishes, subscribes and outbox replays
//
// Events are appended immediately after each event for real-time logging.
package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Config controls event recording. Zero value disables everything.
type Config struct {
	Enabled     bool
	LogPath     string
	LogToStdout bool
}

// Tracker handles telemetry event recording to file and stdout.
type Tracker struct {
	config       Config
	logPath      string
	connCount    int
	messageCount int
	mu           sync.Mutex
}

// NewTracker creates a new telemetry tracker.
func NewTracker(cfg Config) (*Tracker, error) {
	t := &Tracker{config: cfg}

	if !cfg.Enabled || cfg.LogPath == "" {
		return t, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0750); err != nil {
		return nil, err
	}
	t.logPath = cfg.LogPath
	// Create empty file if it doesn't exist
	if _, err := os.Stat(cfg.LogPath); os.IsNotExist(err) {
		if f, err := os.Create(cfg.LogPath); err == nil {
			_ = f.Close()
		}
	}

	return t, nil
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Write(data)
	return err
}

// RecordConn records a connection state transition.
func (t *Tracker) RecordConn(event *ConnEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.config.LogToStdout {
		log.Info().
			Str("event", event.Event).
			Str("endpoint", event.Endpoint).
			Int("attempt", event.Attempt).
			Msg("telemetry")
	}

	if t.logPath != "" {
		if err := appendJSONL(t.logPath, event); err != nil {
			log.Error().Err(err).Str("path", t.logPath).Msg("telemetry: failed to write conn event")
		} else {
			t.connCount++
		}
	}
}

// RecordMessage records a publish, subscribe or replay event.
func (t *Tracker) RecordMessage(event *MessageEvent) {
	if !t.config.Enabled {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.config.LogToStdout {
		msgID := event.MessageID
		if len(msgID) > 8 {
			msgID = msgID[:8]
		}
		log.Info().
			Str("event", event.Event).
			Str("channel", event.Channel).
			Str("message_id", msgID).
			Bool("success", event.Success).
			Msg("telemetry")
	}

	if t.logPath != "" {
		if err := appendJSONL(t.logPath, event); err != nil {
			log.Error().Err(err).Str("path", t.logPath).Msg("telemetry: failed to write message event")
		} else {
			t.messageCount++
		}
	}
}

// Close logs a session summary.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.logPath != "" && t.connCount+t.messageCount > 0 {
		log.Info().
			Str("path", t.logPath).
			Int("conn_events", t.connCount).
			Int("message_events", t.messageCount).
			Msg("telemetry: session complete")
	}

	return nil
}
