package pulsewire

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Frame types exchanged with the server.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	framePublish     = "publish"
	frameAck         = "ack"
	frameMessage     = "message"
	frameError       = "error"
)

// frame is the JSON envelope for every message on the wire.
type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// peekFrameType extracts the frame type without decoding the full envelope.
// Message frames carry arbitrarily large payloads; routing on a single gjson
// lookup avoids decoding those payloads twice.
func peekFrameType(data []byte) string {
	return gjson.GetBytes(data, "type").String()
}

// encodePublish builds a publish frame around a caller-supplied raw JSON
// payload. The payload is stamped into the envelope as-is rather than being
// decoded and re-encoded.
func encodePublish(id, channel string, payload []byte) ([]byte, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("publish payload is not valid JSON")
	}

	buf := []byte(`{"type":"` + framePublish + `"}`)
	buf, err := sjson.SetBytes(buf, "id", id)
	if err != nil {
		return nil, fmt.Errorf("encoding publish frame: %w", err)
	}
	buf, err = sjson.SetBytes(buf, "channel", channel)
	if err != nil {
		return nil, fmt.Errorf("encoding publish frame: %w", err)
	}
	buf, err = sjson.SetRawBytes(buf, "data", payload)
	if err != nil {
		return nil, fmt.Errorf("encoding publish frame: %w", err)
	}
	return buf, nil
}
