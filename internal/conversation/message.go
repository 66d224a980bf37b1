// Package conversation keeps a visitor's chat with the FAQ bot: the message
// history, the open/closed widget flag and the simulated typing delay.
package conversation

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies who sent a message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleBot
}

// TimestampLayout is the ISO-8601 form timestamps are persisted in.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Message is one chat turn. Messages are immutable once created.
type Message struct {
	Role      Role
	Text      string
	Timestamp time.Time
}

// NewMessage stamps a message with now, truncated to the persisted precision.
func NewMessage(role Role, text string, now time.Time) Message {
	return Message{Role: role, Text: text, Timestamp: now.UTC().Truncate(time.Millisecond)}
}

type wireMessage struct {
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		Role:      m.Role,
		Text:      m.Text,
		Timestamp: m.Timestamp.UTC().Format(TimestampLayout),
	})
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Role.Valid() {
		return fmt.Errorf("unknown role %q", w.Role)
	}
	ts, err := time.Parse(time.RFC3339Nano, w.Timestamp)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	*m = Message{Role: w.Role, Text: w.Text, Timestamp: ts.UTC()}
	return nil
}
