package resolver

import (
	"context"
	"fmt"
)

const activeConversationKey = "conversation.active"

// ActiveConversation is the conversation and thread a session is currently attached to.
type ActiveConversation struct {
	ConversationID string `json:"conversation_id"`
	ThreadID       string `json:"thread_id"`
	StartedAt      int64  `json:"started_at"`
}

// SessionStore is a scoped key/value store. Values are JSON encoded by implementations.
// Get reports false when the key is absent.
type SessionStore interface {
	Get(ctx context.Context, sessionID, key string, dest any) (bool, error)
	Set(ctx context.Context, sessionID, key string, value any) error
	Has(ctx context.Context, sessionID, key string) (bool, error)
	Delete(ctx context.Context, sessionID, key string) error
}

// Sessions gives typed access to the values the resolver keeps in a SessionStore.
type Sessions struct {
	store SessionStore
}

func NewSessions(store SessionStore) Sessions {
	return Sessions{store: store}
}

// Active returns the session's active conversation, or nil when none is set.
func (s Sessions) Active(ctx context.Context, sessionID string) (*ActiveConversation, error) {
	var active ActiveConversation
	found, err := s.store.Get(ctx, sessionID, activeConversationKey, &active)
	if err != nil {
		return nil, fmt.Errorf("read active conversation: %w", err)
	}
	if !found || active.ConversationID == "" || active.ThreadID == "" {
		return nil, nil
	}
	return &active, nil
}

func (s Sessions) SetActive(ctx context.Context, sessionID string, active ActiveConversation) error {
	if err := s.store.Set(ctx, sessionID, activeConversationKey, active); err != nil {
		return fmt.Errorf("write active conversation: %w", err)
	}
	return nil
}

func (s Sessions) ClearActive(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID, activeConversationKey); err != nil {
		return fmt.Errorf("clear active conversation: %w", err)
	}
	return nil
}
