package history

import (
	"encoding/json"
	"time"
)

// Kind discriminates logical message types. It doubles as the JSON
// discriminator field of the stored encoding.
type Kind string

const (
	// KindUser is a user-authored prompt.
	KindUser Kind = "user"
	// KindModel is a model-authored text reply.
	KindModel Kind = "model"
	// KindTool is a tool invocation or result record. Its payload is opaque
	// to the persistence core and passes through to the agent unchanged.
	KindTool Kind = "tool"
)

// Message is one decoded unit of conversation content.
type Message struct {
	Kind      Kind            `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Content   string          `json:"content,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// User builds a user prompt message.
func User(content string, ts time.Time) Message {
	return Message{Kind: KindUser, Timestamp: ts, Content: content}
}

// Model builds a model reply message.
func Model(content string, ts time.Time) Message {
	return Message{Kind: KindModel, Timestamp: ts, Content: content}
}
