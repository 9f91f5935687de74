package conversationresponses

import (
	"github.com/shopspring/decimal"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/resolver"
)

// ConversationResponse is the public view of a conversation.
type ConversationResponse struct {
	ID              string          `json:"id"`
	Object          string          `json:"object"`
	Title           string          `json:"title"`
	OwnerID         string          `json:"owner_id"`
	Provider        string          `json:"provider,omitempty"`
	Model           string          `json:"model,omitempty"`
	Temperature     decimal.Decimal `json:"temperature"`
	MaxTokens       int             `json:"max_tokens"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	DefaultThreadID *string         `json:"default_thread_id,omitempty"`
	CreatedAt       int64           `json:"created_at"`
	UpdatedAt       int64           `json:"updated_at"`
}

// ConversationListResponse represents a paginated list of conversations
type ConversationListResponse struct {
	Object  string                 `json:"object"`
	Data    []ConversationResponse `json:"data"`
	FirstID string                 `json:"first_id"`
	LastID  string                 `json:"last_id"`
	HasMore bool                   `json:"has_more"`
	Total   int64                  `json:"total"`
}

// CreateConversationResponse returns the conversation and its root thread.
type CreateConversationResponse struct {
	ConversationResponse
	Thread *ThreadResponse `json:"thread"`
}

// ThreadResponse is the public view of a thread.
type ThreadResponse struct {
	ID                   string                  `json:"id"`
	Object               string                  `json:"object"`
	ConversationID       string                  `json:"conversation_id"`
	ParentThreadID       *string                 `json:"parent_thread_id,omitempty"`
	BranchPointMessageID *string                 `json:"branch_point_message_id,omitempty"`
	Title                *string                 `json:"title,omitempty"`
	DisplayTitle         string                  `json:"display_title"`
	ParentLabel          string                  `json:"parent_label,omitempty"`
	IsDefault            bool                    `json:"is_default"`
	MessageCount         int                     `json:"message_count"`
	Messages             conversation.MessageLog `json:"messages,omitempty"`
	CreatedAt            int64                   `json:"created_at"`
	UpdatedAt            int64                   `json:"updated_at"`
}

// ThreadListResponse lists a conversation's threads, oldest first, without messages.
type ThreadListResponse struct {
	Object string           `json:"object"`
	Data   []ThreadResponse `json:"data"`
	Total  int              `json:"total"`
}

// MessageResponse reports an appended message.
type MessageResponse struct {
	ID       string `json:"id"`
	Object   string `json:"object"`
	ThreadID string `json:"thread_id"`
}

// SessionResponse describes the session's active conversation.
type SessionResponse struct {
	Object         string `json:"object"`
	Active         bool   `json:"active"`
	ConversationID string `json:"conversation_id,omitempty"`
	ThreadID       string `json:"thread_id,omitempty"`
	StartedAt      int64  `json:"started_at,omitempty"`
}

// NewConversationResponse creates a response from a domain conversation
func NewConversationResponse(conv *conversation.Conversation) *ConversationResponse {
	return &ConversationResponse{
		ID:              conv.PublicID,
		Object:          "conversation",
		Title:           conv.Title,
		OwnerID:         conv.OwnerID,
		Provider:        conv.Provider,
		Model:           conv.Model,
		Temperature:     conv.Temperature,
		MaxTokens:       conv.MaxTokens,
		Metadata:        conv.Metadata,
		DefaultThreadID: conv.DefaultThreadID,
		CreatedAt:       conv.CreatedAt.Unix(),
		UpdatedAt:       conv.UpdatedAt.Unix(),
	}
}

// NewConversationListResponse creates a conversation list response
func NewConversationListResponse(conversations []*conversation.Conversation, offset int, total int64) *ConversationListResponse {
	data := make([]ConversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		if conv == nil {
			continue
		}
		data = append(data, *NewConversationResponse(conv))
	}

	firstID := ""
	lastID := ""
	if len(data) > 0 {
		firstID = data[0].ID
		lastID = data[len(data)-1].ID
	}

	return &ConversationListResponse{
		Object:  "list",
		Data:    data,
		FirstID: firstID,
		LastID:  lastID,
		HasMore: int64(offset+len(data)) < total,
		Total:   total,
	}
}

// NewThreadResponse creates a thread response. parent is the parent thread when it
// still exists; withMessages controls whether the log is included.
func NewThreadResponse(thread *conversation.Thread, parent *conversation.Thread, conv *conversation.Conversation, withMessages bool) *ThreadResponse {
	resp := &ThreadResponse{
		ID:                   thread.PublicID,
		Object:               "thread",
		ConversationID:       thread.ConversationID,
		ParentThreadID:       thread.ParentThreadID,
		BranchPointMessageID: thread.BranchPointMessageID,
		Title:                thread.Title,
		DisplayTitle:         thread.DisplayTitle(),
		ParentLabel:          conversation.ParentLabel(thread, parent),
		MessageCount:         len(thread.Messages),
		CreatedAt:            thread.CreatedAt.Unix(),
		UpdatedAt:            thread.UpdatedAt.Unix(),
	}
	if conv != nil && conv.DefaultThreadID != nil {
		resp.IsDefault = *conv.DefaultThreadID == thread.PublicID
	}
	if withMessages {
		resp.Messages = thread.Messages
		if resp.Messages == nil {
			resp.Messages = conversation.MessageLog{}
		}
	}
	return resp
}

// NewThreadListResponse labels every thread with its parent.
func NewThreadListResponse(threads []*conversation.Thread, conv *conversation.Conversation) *ThreadListResponse {
	byID := make(map[string]*conversation.Thread, len(threads))
	for _, t := range threads {
		byID[t.PublicID] = t
	}

	data := make([]ThreadResponse, 0, len(threads))
	for _, t := range threads {
		var parent *conversation.Thread
		if t.ParentThreadID != nil {
			parent = byID[*t.ParentThreadID]
		}
		data = append(data, *NewThreadResponse(t, parent, conv, false))
	}
	return &ThreadListResponse{
		Object: "list",
		Data:   data,
		Total:  len(data),
	}
}

// NewSessionResponse describes an active conversation, or an empty session when nil.
func NewSessionResponse(active *resolver.ActiveConversation) *SessionResponse {
	if active == nil {
		return &SessionResponse{Object: "session", Active: false}
	}
	return &SessionResponse{
		Object:         "session",
		Active:         true,
		ConversationID: active.ConversationID,
		ThreadID:       active.ThreadID,
		StartedAt:      active.StartedAt,
	}
}

// NewTargetSessionResponse reports the target a session was just attached to.
func NewTargetSessionResponse(target resolver.Target, startedAt int64) *SessionResponse {
	return &SessionResponse{
		Object:         "session",
		Active:         true,
		ConversationID: target.ConversationID,
		ThreadID:       target.ThreadID,
		StartedAt:      startedAt,
	}
}
