package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerWritesJSONL(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "events", "client.jsonl")

	tr, err := NewTracker(Config{Enabled: true, LogPath: logPath})
	require.NoError(t, err)

	tr.RecordConn(&ConnEvent{Timestamp: time.Now(), Event: "connect", Endpoint: "ws://example.com/socket"})
	tr.RecordMessage(&MessageEvent{Timestamp: time.Now(), Event: "publish", Channel: "orders", MessageID: "m1", Success: true})
	tr.RecordMessage(&MessageEvent{Timestamp: time.Now(), Event: "subscribe", Channel: "orders", Success: true})
	require.NoError(t, tr.Close())

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		lines = append(lines, ev)
	}
	require.Len(t, lines, 3)
	assert.Equal(t, "connect", lines[0]["event"])
	assert.Equal(t, "publish", lines[1]["event"])
	assert.Equal(t, "orders", lines[2]["channel"])
}

func TestTrackerDisabled(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "client.jsonl")

	tr, err := NewTracker(Config{Enabled: false, LogPath: logPath})
	require.NoError(t, err)

	tr.RecordConn(&ConnEvent{Event: "connect"})
	require.NoError(t, tr.Close())

	_, err = os.Stat(logPath)
	assert.True(t, os.IsNotExist(err), "disabled tracker must not create the log file")
}
