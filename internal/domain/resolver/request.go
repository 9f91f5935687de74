package resolver

import (
	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/identity"
)

const (
	FreshConversationTemperature = 1.0
	FreshConversationMaxTokens   = 1000
)

// Configuration is the generation configuration supplied with a chat request.
type Configuration struct {
	Temperature *float64       `json:"temperature,omitempty"`
	MaxTokens   *int           `json:"max_tokens,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

func (c Configuration) asMetadata() map[string]any {
	out := make(map[string]any, len(c.Extra)+2)
	for k, v := range c.Extra {
		out[k] = v
	}
	if c.Temperature != nil {
		out["temperature"] = *c.Temperature
	}
	if c.MaxTokens != nil {
		out["max_tokens"] = *c.MaxTokens
	}
	return out
}

// ChatRequest is an inbound chat turn as seen by the resolver. CorrelationKey ties the
// user turn capture to the assistant turn capture of the same request.
type ChatRequest struct {
	CorrelationKey       string
	SessionID            string
	Actor                identity.Principal
	PortalConversationID string
	Messages             []ChatMessage
	ProviderID           string
	ModelID              string
	Configuration        Configuration
	Tags                 []string
}

// UserContent returns the content of the last user message.
func (r ChatRequest) UserContent() (string, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == string(conversation.RoleUser) {
			return r.Messages[i].Content, true
		}
	}
	return "", false
}

type TargetSource string

const (
	SourcePortal  TargetSource = "portal"
	SourceSession TargetSource = "session"
	SourceFresh   TargetSource = "fresh"
)

// Target is the conversation and thread a turn is written to.
type Target struct {
	ConversationID string `json:"conversation_id"`
	ThreadID       string `json:"thread_id"`
}

// Turn is the result of a successful user turn capture. History is the thread log
// including the captured user message, ready to be replayed to the provider.
type Turn struct {
	Target
	Source        TargetSource
	UserMessageID string
	History       conversation.MessageLog
}

// AssistantTurn carries the provider output of a completed call.
type AssistantTurn struct {
	CorrelationKey string
	ProviderID     string
	ModelID        string
	Output         any
	Metadata       map[string]any
}
