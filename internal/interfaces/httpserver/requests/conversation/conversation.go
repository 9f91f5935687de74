package conversationrequests

import (
	"github.com/shopspring/decimal"

	"jan-server/services/conversation-api/internal/domain/conversation"
)

// MessageInput is a message supplied by the client, without id or timestamp.
type MessageInput struct {
	Role     string         `json:"role" binding:"required,oneof=user assistant"`
	Content  string         `json:"content"`
	Provider string         `json:"ai_provider,omitempty"`
	Model    string         `json:"ai_model,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ToMessages stamps the inputs as new log entries.
func ToMessages(inputs []MessageInput, timestamp int64) []conversation.Message {
	messages := make([]conversation.Message, 0, len(inputs))
	for _, in := range inputs {
		messages = append(messages, conversation.NewMessage(conversation.Role(in.Role), in.Content, timestamp, in.Provider, in.Model, in.Metadata))
	}
	return messages
}

// CreateConversationRequest represents the request to create a conversation
type CreateConversationRequest struct {
	Title       string           `json:"title,omitempty" binding:"max=255"`
	Messages    []MessageInput   `json:"messages,omitempty" binding:"max=100,dive"`
	Provider    string           `json:"provider,omitempty"`
	Model       string           `json:"model,omitempty"`
	Temperature *decimal.Decimal `json:"temperature,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty" binding:"omitempty,gt=0"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// UpdateConversationRequest represents the request to update a conversation
type UpdateConversationRequest struct {
	Title           *string          `json:"title,omitempty" binding:"omitempty,max=255"`
	Provider        *string          `json:"provider,omitempty"`
	Model           *string          `json:"model,omitempty"`
	Temperature     *decimal.Decimal `json:"temperature,omitempty"`
	MaxTokens       *int             `json:"max_tokens,omitempty" binding:"omitempty,gt=0"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
	DefaultThreadID *string          `json:"default_thread_id,omitempty"`
}

// CreateThreadRequest creates a root thread.
type CreateThreadRequest struct {
	Title    *string        `json:"title,omitempty" binding:"omitempty,max=255"`
	Messages []MessageInput `json:"messages,omitempty" binding:"max=100,dive"`
}

// BranchThreadRequest forks a thread after one of its messages.
type BranchThreadRequest struct {
	MessageID string  `json:"message_id" binding:"required,uuid"`
	Title     *string `json:"title,omitempty" binding:"omitempty,max=255"`
}

// AppendMessageRequest appends one message to a thread.
type AppendMessageRequest struct {
	MessageInput
}
