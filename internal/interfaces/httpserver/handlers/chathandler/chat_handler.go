package chathandler

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"

	"jan-server/services/conversation-api/internal/config"
	"jan-server/services/conversation-api/internal/domain/identity"
	"jan-server/services/conversation-api/internal/domain/resolver"
	"jan-server/services/conversation-api/internal/infrastructure/inference"
	"jan-server/services/conversation-api/internal/infrastructure/metrics"
	"jan-server/services/conversation-api/internal/infrastructure/observability"
	chatrequests "jan-server/services/conversation-api/internal/interfaces/httpserver/requests/chat"
	chatresponses "jan-server/services/conversation-api/internal/interfaces/httpserver/responses/chat"
	"jan-server/services/conversation-api/internal/utils/httpclients"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

// ChatHandler runs chat turns: the user turn is captured, the provider is called with
// the thread history and the reply is captured on the same thread.
type ChatHandler struct {
	resolver        *resolver.Resolver
	inference       *inference.Client
	defaultModel    string
	defaultProvider string
	logger          zerolog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(
	resolver *resolver.Resolver,
	inferenceClient *inference.Client,
	cfg *config.Config,
	logger zerolog.Logger,
) *ChatHandler {
	return &ChatHandler{
		resolver:        resolver,
		inference:       inferenceClient,
		defaultModel:    cfg.DefaultModel,
		defaultProvider: cfg.DefaultProvider,
		logger:          logger.With().Str("component", "chat-handler").Logger(),
	}
}

// CreateChatCompletion runs one chat turn. Failing to record the turn never fails the
// request; a provider failure does, and releases the pending turn.
func (h *ChatHandler) CreateChatCompletion(
	ctx context.Context,
	actor identity.Principal,
	sessionID string,
	requestID string,
	req chatrequests.ChatCompletionRequest,
) (*chatresponses.ChatCompletionResponse, error) {
	ctx, span := observability.StartSpan(ctx, "chat.CreateChatCompletion")
	defer span.End()

	if len(req.Messages) == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeValidation, "messages must not be empty", nil, "c8f2a0d6-4e19-4b73-9a5c-1d7e3b0f6a92")
	}
	if req.Stream {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerHandler, platformerrors.ErrorTypeNotImplemented, "streaming is not supported", nil, "07b3e9c1-5d28-4f6a-b4e0-9c2a7d1f3e85")
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.defaultModel
	}
	provider := strings.TrimSpace(req.Provider)
	if provider == "" {
		provider = h.defaultProvider
	}

	correlationKey := uuid.NewString()
	log := h.logger.With().
		Str("correlation_key", correlationKey).
		Str("request_id", requestID).
		Str("user_id", actor.ID).
		Logger()

	turn, captured := h.resolver.CaptureUserTurn(ctx, resolver.ChatRequest{
		CorrelationKey:       correlationKey,
		SessionID:            sessionID,
		Actor:                actor,
		PortalConversationID: strings.TrimSpace(req.ConversationID),
		Messages:             toResolverMessages(req.Messages),
		ProviderID:           provider,
		ModelID:              model,
		Configuration:        configurationOf(req),
		Tags:                 req.Tags,
	})

	upstream := req.ChatCompletionRequest
	upstream.Model = model
	if req.Temperature != nil {
		upstream.Temperature = float32(*req.Temperature)
	}
	if captured {
		span.SetAttributes(
			attribute.String("conversation.id", turn.ConversationID),
			attribute.String("thread.id", turn.ThreadID),
		)
		upstream.Messages = replayMessages(req.Messages, turn)
	}

	start := time.Now()
	output, err := h.inference.CreateChatCompletion(context.WithValue(ctx, httpclients.RequestID{}, requestID), upstream)
	metrics.RecordInference(provider, model, err, time.Since(start))
	if err != nil {
		if captured {
			h.resolver.ReleaseTurn(correlationKey)
		}
		observability.RecordError(ctx, err)
		log.Error().Err(err).Msg("chat completion failed")
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "chat completion failed")
	}

	if !captured {
		return chatresponses.NewChatCompletionResponse(output.Response, nil), nil
	}

	conversationCtx := &chatresponses.ConversationContext{
		ID:            turn.ConversationID,
		ThreadID:      turn.ThreadID,
		Source:        string(turn.Source),
		UserMessageID: turn.UserMessageID,
	}
	replyModel := output.Model()
	if replyModel == "" {
		replyModel = model
	}
	if messageID, ok := h.resolver.CaptureAssistantTurn(ctx, resolver.AssistantTurn{
		CorrelationKey: correlationKey,
		ProviderID:     provider,
		ModelID:        replyModel,
		Output:         output,
		Metadata:       replyMetadata(output.Response),
	}); ok {
		conversationCtx.AssistantMessageID = messageID
	}
	return chatresponses.NewChatCompletionResponse(output.Response, conversationCtx), nil
}

func toResolverMessages(messages []openai.ChatCompletionMessage) []resolver.ChatMessage {
	out := make([]resolver.ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, resolver.ChatMessage{Role: m.Role, Content: messageText(m)})
	}
	return out
}

// replayMessages sends the request's system prompts followed by the thread history,
// which already ends with the captured user message.
func replayMessages(requested []openai.ChatCompletionMessage, turn *resolver.Turn) []openai.ChatCompletionMessage {
	if len(turn.History) == 0 {
		return requested
	}
	out := make([]openai.ChatCompletionMessage, 0, len(turn.History)+1)
	for _, m := range requested {
		if m.Role == openai.ChatMessageRoleSystem || m.Role == openai.ChatMessageRoleDeveloper {
			out = append(out, m)
		}
	}
	for _, m := range turn.History {
		out = append(out, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func configurationOf(req chatrequests.ChatCompletionRequest) resolver.Configuration {
	cfg := resolver.Configuration{Extra: req.Configuration}
	switch {
	case req.Temperature != nil:
		temperature := *req.Temperature
		cfg.Temperature = &temperature
	case req.ChatCompletionRequest.Temperature != 0:
		temperature := float64(req.ChatCompletionRequest.Temperature)
		cfg.Temperature = &temperature
	}
	maxTokens := req.MaxCompletionTokens
	if maxTokens == 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		cfg.MaxTokens = &maxTokens
	}
	return cfg
}

func replyMetadata(resp openai.ChatCompletionResponse) map[string]any {
	metadata := map[string]any{
		"response_id": resp.ID,
		"usage": map[string]any{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 && resp.Choices[0].FinishReason != "" {
		metadata["finish_reason"] = string(resp.Choices[0].FinishReason)
	}
	return metadata
}

func messageText(msg openai.ChatCompletionMessage) string {
	if msg.Content != "" || len(msg.MultiContent) == 0 {
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
