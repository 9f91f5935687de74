package chathandler

import (
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/resolver"
	chatrequests "jan-server/services/conversation-api/internal/interfaces/httpserver/requests/chat"
)

func TestReplayMessages_KeepsSystemPromptsAndHistory(t *testing.T) {
	requested := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: "be brief"},
		{Role: openai.ChatMessageRoleUser, Content: "latest"},
	}
	turn := &resolver.Turn{History: conversation.MessageLog{
		conversation.NewMessage(conversation.RoleUser, "earlier", 1, "", "", nil),
		conversation.NewMessage(conversation.RoleAssistant, "reply", 2, "jan", "jan-v1-4b", nil),
		conversation.NewMessage(conversation.RoleUser, "latest", 3, "", "", nil),
	}}

	out := replayMessages(requested, turn)
	require.Len(t, out, 4)
	assert.Equal(t, "be brief", out[0].Content)
	assert.Equal(t, openai.ChatMessageRoleAssistant, out[2].Role)
	assert.Equal(t, "latest", out[3].Content)
}

func TestReplayMessages_EmptyHistoryKeepsRequest(t *testing.T) {
	requested := []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "hi"}}
	assert.Equal(t, requested, replayMessages(requested, &resolver.Turn{}))
}

func TestMessageText(t *testing.T) {
	assert.Equal(t, "plain", messageText(openai.ChatCompletionMessage{Content: "plain"}))
	assert.Equal(t, "a\nb", messageText(openai.ChatCompletionMessage{MultiContent: []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: "a"},
		{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: "https://example.com/cat.png"}},
		{Type: openai.ChatMessagePartTypeText, Text: "b"},
	}}))
}

func TestConfigurationOf(t *testing.T) {
	req := chatrequests.ChatCompletionRequest{
		ChatCompletionRequest: openai.ChatCompletionRequest{Temperature: 0.5, MaxTokens: 100, MaxCompletionTokens: 200},
		Configuration:         map[string]any{"top_k": 40},
	}
	cfg := configurationOf(req)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.5, *cfg.Temperature, 1e-6)
	require.NotNil(t, cfg.MaxTokens)
	assert.Equal(t, 200, *cfg.MaxTokens)
	assert.Equal(t, 40, cfg.Extra["top_k"])

	empty := configurationOf(chatrequests.ChatCompletionRequest{})
	assert.Nil(t, empty.Temperature)
	assert.Nil(t, empty.MaxTokens)
}

func TestConfigurationOf_ExplicitZeroTemperature(t *testing.T) {
	var req chatrequests.ChatCompletionRequest
	require.NoError(t, json.Unmarshal([]byte(`{"model":"jan-v1-4b","temperature":0,"messages":[{"role":"user","content":"hi"}]}`), &req))

	cfg := configurationOf(req)
	require.NotNil(t, cfg.Temperature)
	assert.Zero(t, *cfg.Temperature)

	require.NoError(t, json.Unmarshal([]byte(`{"model":"jan-v1-4b","messages":[{"role":"user","content":"hi"}]}`), &req))
	req.Temperature = nil
	assert.Nil(t, configurationOf(req).Temperature)
}

func TestReplyMetadata(t *testing.T) {
	metadata := replyMetadata(openai.ChatCompletionResponse{
		ID:      "chatcmpl-9",
		Usage:   openai.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
		Choices: []openai.ChatCompletionChoice{{FinishReason: openai.FinishReasonLength}},
	})
	assert.Equal(t, "chatcmpl-9", metadata["response_id"])
	assert.Equal(t, "length", metadata["finish_reason"])
	assert.Equal(t, 7, metadata["usage"].(map[string]any)["total_tokens"])
}
