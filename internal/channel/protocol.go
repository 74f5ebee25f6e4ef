package channel

import (
	"encoding/json"
	"fmt"
)

// Protocol events shared between client and server.
const (
	EventJoin      = "phx_join"
	EventLeave     = "phx_leave"
	EventReply     = "phx_reply"
	EventHeartbeat = "heartbeat"

	// TopicHeartbeat carries heartbeat pushes; it is never joined.
	TopicHeartbeat = "phoenix"

	StatusOK    = "ok"
	StatusError = "error"
)

// Message is the wire format for everything sent over the socket.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
	JoinRef string          `json:"join_ref,omitempty"`
}

// Reply is the payload of a phx_reply message.
type Reply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
}

var emptyPayload = json.RawMessage(`{}`)

// ParseReply decodes a phx_reply payload.
func ParseReply(payload json.RawMessage) (Reply, error) {
	var r Reply
	if err := json.Unmarshal(payload, &r); err != nil {
		return Reply{}, fmt.Errorf("unmarshal reply: %w", err)
	}
	return r, nil
}

// ReplyPayload builds a phx_reply payload for a server implementation.
func ReplyPayload(status string, response any) (json.RawMessage, error) {
	resp, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return json.Marshal(Reply{Status: status, Response: resp})
}
