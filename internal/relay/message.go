// Package relay implements the topic-based signaling broker used by
// browser peers to exchange WebRTC session descriptions. Payloads are
// opaque to the relay; peers encrypt them end to end.
package relay

import (
	"encoding/json"
	"fmt"
)

// FrameType tags the signaling message kinds.
type FrameType string

// Supported frame types.
const (
	FrameSubscribe   FrameType = "subscribe"
	FrameUnsubscribe FrameType = "unsubscribe"
	FramePublish     FrameType = "publish"
	FramePing        FrameType = "ping"
	FramePong        FrameType = "pong"
)

// Frame is the JSON envelope exchanged over a signaling connection.
type Frame struct {
	Type   FrameType       `json:"type"`
	Topics []string        `json:"topics,omitempty"`
	Topic  string          `json:"topic,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

var pongPayload = []byte(`{"type":"pong"}`)

// ParseFrame decodes and validates an inbound frame. Unknown type tags
// are rejected explicitly rather than silently ignored.
func ParseFrame(raw []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	switch f.Type {
	case FrameSubscribe, FrameUnsubscribe:
		if len(f.Topics) == 0 {
			return Frame{}, fmt.Errorf("%s frame requires topics", f.Type)
		}
	case FramePublish:
		if f.Topic == "" {
			return Frame{}, fmt.Errorf("publish frame requires a topic")
		}
	case FramePing:
	default:
		return Frame{}, fmt.Errorf("unknown frame type %q", f.Type)
	}
	return f, nil
}
