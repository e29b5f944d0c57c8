package history

import (
	"encoding/json"
	"fmt"
)

// UnknownVersionError reports a stored payload whose version tag has no
// registered decoder. This is a configuration error, never guessed around.
type UnknownVersionError struct {
	Version string
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("history: no decoder for payload version %q", e.Version)
}

// Encode serializes messages as the version "0.0.1" payload: a JSON array
// of kind-discriminated records.
func Encode(msgs []Message) ([]byte, error) {
	for i, m := range msgs {
		if err := validKind(m.Kind); err != nil {
			return nil, fmt.Errorf("history: message %d: %w", i, err)
		}
	}
	return json.Marshal(msgs)
}

// Decode deserializes a stored payload under its recorded version tag.
// Unknown versions and malformed payloads are hard errors.
func Decode(version string, data []byte) ([]Message, error) {
	switch version {
	case "0.0.1":
		return decodeV1(data)
	default:
		return nil, &UnknownVersionError{Version: version}
	}
}

func decodeV1(data []byte) ([]Message, error) {
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("history: decode payload: %w", err)
	}
	for i, m := range msgs {
		if err := validKind(m.Kind); err != nil {
			return nil, fmt.Errorf("history: message %d: %w", i, err)
		}
		if m.Timestamp.IsZero() {
			return nil, fmt.Errorf("history: message %d: missing timestamp", i)
		}
	}
	return msgs, nil
}

func validKind(k Kind) error {
	switch k {
	case KindUser, KindModel, KindTool:
		return nil
	}
	return fmt.Errorf("unknown message kind %q", k)
}
