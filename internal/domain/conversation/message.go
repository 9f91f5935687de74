package conversation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"jan-server/services/conversation-api/internal/utils/functional"
)

// ===============================================
// Message Types
// ===============================================

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single immutable entry of a thread's log.
type Message struct {
	ID         string         `json:"id"`
	Role       Role           `json:"role"`
	Content    string         `json:"content"`
	Timestamp  int64          `json:"timestamp"`
	AIProvider string         `json:"ai_provider,omitempty"`
	AIModel    string         `json:"ai_model,omitempty"`
	Metadata   map[string]any `json:"metadata"`
}

// NewMessage builds a message with a fresh UUID.
func NewMessage(role Role, content string, timestamp int64, provider, model string, metadata map[string]any) Message {
	return Message{
		ID:         uuid.NewString(),
		Role:       role,
		Content:    content,
		Timestamp:  timestamp,
		AIProvider: provider,
		AIModel:    model,
		Metadata:   metadata,
	}
}

// ===============================================
// Message Log
// ===============================================

// MessageLog is the ordered message sequence of a thread. It is stored as a JSON array.
type MessageLog []Message

// IndexOf returns the position of the message with the given id, or -1.
func (l MessageLog) IndexOf(messageID string) int {
	return functional.FindIndex(l, func(m Message) bool { return m.ID == messageID })
}

// Contains reports whether a message with the given id is in the log.
func (l MessageLog) Contains(messageID string) bool {
	return l.IndexOf(messageID) >= 0
}

// PrefixThrough returns a copy of the messages up to and including messageID.
func (l MessageLog) PrefixThrough(messageID string) (MessageLog, bool) {
	idx := l.IndexOf(messageID)
	if idx < 0 {
		return nil, false
	}
	return l[:idx+1].Clone(), true
}

// Clone returns a copy whose slice and metadata maps are not shared with l.
func (l MessageLog) Clone() MessageLog {
	if l == nil {
		return nil
	}
	out := make(MessageLog, len(l))
	for i, m := range l {
		if m.Metadata != nil {
			md := make(map[string]any, len(m.Metadata))
			for k, v := range m.Metadata {
				md[k] = v
			}
			m.Metadata = md
		}
		out[i] = m
	}
	return out
}

// FirstByRole returns the first message with the given role.
func (l MessageLog) FirstByRole(role Role) (Message, bool) {
	return functional.Find(l, func(m Message) bool { return m.Role == role })
}

// Validate checks roles and id uniqueness.
func (l MessageLog) Validate() error {
	seen := make(map[string]struct{}, len(l))
	for i, m := range l {
		if m.ID == "" {
			return fmt.Errorf("message %d has no id", i)
		}
		if !m.Role.Valid() {
			return fmt.Errorf("message %s has invalid role %q", m.ID, m.Role)
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("duplicate message id %s", m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

// Encode serializes the log. A nil log encodes as an empty array.
func (l MessageLog) Encode() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Message(l))
}

// DecodeMessageLog parses a serialized log. Empty input yields an empty log.
// Numbers inside metadata are kept as json.Number so they round-trip unchanged.
func DecodeMessageLog(data []byte) (MessageLog, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return MessageLog{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var messages []Message
	if err := dec.Decode(&messages); err != nil {
		return nil, fmt.Errorf("decode message log: %w", err)
	}
	log := MessageLog(messages)
	if err := log.Validate(); err != nil {
		return nil, fmt.Errorf("decode message log: %w", err)
	}
	return log, nil
}
