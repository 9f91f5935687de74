package chatrequests

import (
	openai "github.com/sashabaranov/go-openai"
)

// ChatCompletionRequest extends OpenAI's ChatCompletionRequest with conversation support
type ChatCompletionRequest struct {
	openai.ChatCompletionRequest

	// Temperature shadows the embedded field, whose omitempty float cannot tell an
	// explicit 0 from an absent value.
	Temperature *float64 `json:"temperature,omitempty"`
	// ConversationID pins the turn to a conversation the caller owns, overriding the
	// session's active conversation.
	ConversationID string `json:"conversation_id,omitempty"`
	// Provider is recorded on the captured assistant message.
	Provider string `json:"provider,omitempty"`
	// Tags are stored in the metadata of conversations started by this request.
	Tags []string `json:"tags,omitempty"`
	// Extra generation settings stored alongside temperature and max_tokens.
	Configuration map[string]any `json:"configuration,omitempty"`
}
