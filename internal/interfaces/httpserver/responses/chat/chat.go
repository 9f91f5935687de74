package chatresponses

import (
	openai "github.com/sashabaranov/go-openai"
)

// ChatCompletionResponse extends OpenAI's ChatCompletionResponse with conversation context
type ChatCompletionResponse struct {
	openai.ChatCompletionResponse
	Conversation *ConversationContext `json:"conversation,omitempty"`
}

// ConversationContext tells the client where the turn was recorded.
type ConversationContext struct {
	ID                 string `json:"id"`
	ThreadID           string `json:"thread_id"`
	Source             string `json:"source,omitempty"`
	UserMessageID      string `json:"user_message_id,omitempty"`
	AssistantMessageID string `json:"assistant_message_id,omitempty"`
}

// NewChatCompletionResponse creates a response with optional conversation context
func NewChatCompletionResponse(openaiResp openai.ChatCompletionResponse, conversation *ConversationContext) *ChatCompletionResponse {
	return &ChatCompletionResponse{
		ChatCompletionResponse: openaiResp,
		Conversation:           conversation,
	}
}
