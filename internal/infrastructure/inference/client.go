package inference

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"resty.dev/v3"

	"jan-server/services/conversation-api/internal/domain/resolver"
	"jan-server/services/conversation-api/internal/utils/httpclients"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

// Config points the client at an OpenAI compatible endpoint.
type Config struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Provider string
}

// Client calls the chat completion endpoint of an OpenAI compatible provider.
type Client struct {
	client   *resty.Client
	baseURL  string
	apiKey   string
	provider string
}

func NewClient(cfg Config) *Client {
	client := httpclients.NewClient("inferenceClient")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Client{
		client:   client,
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:   cfg.APIKey,
		provider: cfg.Provider,
	}
}

// Provider is the provider id recorded on assistant messages.
func (c *Client) Provider() string {
	return c.provider
}

func (c *Client) CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (*ChatOutput, error) {
	request.Stream = false

	var respBody openai.ChatCompletionResponse
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(request).
		SetResult(&respBody)
	if key := strings.TrimSpace(c.apiKey); key != "" && strings.ToLower(key) != "none" {
		req.SetHeader("Authorization", fmt.Sprintf("Bearer %s", key))
	}

	resp, err := req.Post(c.baseURL + "/chat/completions")
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, "inference request failed", err, "4d1b8e62-a7c3-4f09-b5e2-0c9a3f6d7e18")
	}
	if resp.IsError() {
		return nil, errorFromResponse(ctx, resp, "inference request failed")
	}
	return &ChatOutput{Response: respBody}, nil
}

func errorFromResponse(ctx context.Context, resp *resty.Response, message string) error {
	message = fmt.Sprintf("%s with status %d", message, resp.StatusCode())
	if resp.RawResponse == nil || resp.RawResponse.Body == nil {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, message, nil, "e6a0c3d9-12f4-4b87-9e5a-7d2b0f8c1a36")
	}
	defer resp.RawResponse.Body.Close()
	body, err := io.ReadAll(resp.RawResponse.Body)
	if err != nil || strings.TrimSpace(string(body)) == "" {
		return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, message, nil, "b07e5f18-3c6a-4d92-a1e4-8f0d2c7b9e53")
	}
	return platformerrors.NewError(ctx, platformerrors.LayerInfrastructure, platformerrors.ErrorTypeExternal, fmt.Sprintf("%s: %s", message, strings.TrimSpace(string(body))), nil, "71c9d2a4-e08b-4f35-96d1-3a5e0b7c2f84")
}

// ChatOutput is the provider result handed to the resolver. It presents the
// response choices as chat messages.
type ChatOutput struct {
	Response openai.ChatCompletionResponse
}

var (
	_ resolver.Normalizer   = (*ChatOutput)(nil)
	_ resolver.TextAccessor = (*ChatOutput)(nil)
)

func (o *ChatOutput) Normalized() any {
	messages := make([]resolver.ChatMessage, 0, len(o.Response.Choices))
	for _, choice := range o.Response.Choices {
		messages = append(messages, resolver.ChatMessage{
			Role:    choice.Message.Role,
			Content: messageText(choice.Message),
		})
	}
	return messages
}

func (o *ChatOutput) Text() string {
	if len(o.Response.Choices) == 0 {
		return ""
	}
	return messageText(o.Response.Choices[0].Message)
}

// Model returns the model reported by the provider.
func (o *ChatOutput) Model() string {
	return o.Response.Model
}

func messageText(msg openai.ChatCompletionMessage) string {
	if msg.Content != "" {
		return msg.Content
	}
	parts := make([]string, 0, len(msg.MultiContent))
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText && part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "\n")
}
