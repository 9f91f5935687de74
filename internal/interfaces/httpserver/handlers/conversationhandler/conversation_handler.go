package conversationhandler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"jan-server/services/conversation-api/internal/domain/access"
	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/identity"
	"jan-server/services/conversation-api/internal/domain/query"
	"jan-server/services/conversation-api/internal/domain/resolver"
	"jan-server/services/conversation-api/internal/infrastructure/metrics"
	conversationrequests "jan-server/services/conversation-api/internal/interfaces/httpserver/requests/conversation"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/responses"
	conversationresponses "jan-server/services/conversation-api/internal/interfaces/httpserver/responses/conversation"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

// Context keys for conversation data
type ConversationContextKey string

const (
	ConversationContextKeyPublicID ConversationContextKey = "conv_id"
	ConversationContextEntity      ConversationContextKey = "ConversationContextEntity"
)

// ConversationHandler handles conversation and session requests
type ConversationHandler struct {
	conversationService *conversation.ConversationService
	policy              *access.Policy
	resolver            *resolver.Resolver
	clock               conversation.Clock
	logger              zerolog.Logger
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(
	conversationService *conversation.ConversationService,
	policy *access.Policy,
	resolver *resolver.Resolver,
	clock conversation.Clock,
	logger zerolog.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		policy:              policy,
		resolver:            resolver,
		clock:               clock,
		logger:              logger.With().Str("component", "conversation-handler").Logger(),
	}
}

// CreateConversation creates a conversation with its root thread and makes it the
// session's active conversation.
func (h *ConversationHandler) CreateConversation(
	ctx context.Context,
	actor identity.Principal,
	sessionID string,
	req conversationrequests.CreateConversationRequest,
) (*conversationresponses.CreateConversationResponse, error) {
	if err := access.ToError(ctx, h.policy.CheckConversation(actor, access.OpCreate, nil)); err != nil {
		return nil, err
	}

	conv, root, err := h.conversationService.CreateConversation(ctx, conversation.CreateConversationInput{
		Title:           req.Title,
		ActorID:         actor.ID,
		InitialMessages: conversationrequests.ToMessages(req.Messages, h.clock.Now().Unix()),
		Provider:        req.Provider,
		Model:           req.Model,
		Temperature:     req.Temperature,
		MaxTokens:       req.MaxTokens,
		Metadata:        req.Metadata,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to create conversation")
	}
	metrics.ConversationsCreatedTotal.WithLabelValues("api").Inc()
	metrics.RecordThreadCreated(false)

	if _, err := h.resolver.ResumeThread(ctx, sessionID, conv.PublicID, root.PublicID); err != nil {
		h.logger.Warn().Err(err).Str("conversation_id", conv.PublicID).Msg("failed to activate new conversation for session")
	}

	return &conversationresponses.CreateConversationResponse{
		ConversationResponse: *conversationresponses.NewConversationResponse(conv),
		Thread:               conversationresponses.NewThreadResponse(root, nil, conv, true),
	}, nil
}

// GetConversation returns a conversation the actor may view.
func (h *ConversationHandler) GetConversation(
	ctx context.Context,
	actor identity.Principal,
	conv *conversation.Conversation,
) (*conversationresponses.ConversationResponse, error) {
	if err := access.ToError(ctx, h.policy.CheckConversation(actor, access.OpView, conv)); err != nil {
		return nil, err
	}
	return conversationresponses.NewConversationResponse(conv), nil
}

// ListConversations lists the actor's own conversations, most recently updated first.
func (h *ConversationHandler) ListConversations(
	ctx context.Context,
	actor identity.Principal,
	pagination query.Pagination,
) (*conversationresponses.ConversationListResponse, error) {
	own := &conversation.Conversation{OwnerID: actor.ID}
	if err := access.ToError(ctx, h.policy.CheckConversation(actor, access.OpView, own)); err != nil {
		return nil, err
	}

	pagination.Normalize(0)
	conversations, total, err := h.conversationService.ListByOwner(ctx, actor.ID, pagination)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to list conversations")
	}
	return conversationresponses.NewConversationListResponse(conversations, pagination.Offset, total), nil
}

// UpdateConversation patches a conversation the actor may edit.
func (h *ConversationHandler) UpdateConversation(
	ctx context.Context,
	actor identity.Principal,
	conv *conversation.Conversation,
	req conversationrequests.UpdateConversationRequest,
) (*conversationresponses.ConversationResponse, error) {
	if err := access.ToError(ctx, h.policy.CheckConversation(actor, access.OpUpdate, conv)); err != nil {
		return nil, err
	}

	updated, err := h.conversationService.UpdateConversation(ctx, conv.PublicID, conversation.UpdateConversationInput{
		Title:       req.Title,
		Model:       req.Model,
		Provider:    req.Provider,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to update conversation")
	}

	if req.DefaultThreadID != nil {
		updated, err = h.conversationService.SetDefaultThread(ctx, conv.PublicID, *req.DefaultThreadID)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to set default thread")
		}
	}
	return conversationresponses.NewConversationResponse(updated), nil
}

// DeleteConversation removes a conversation the actor may delete. A session attached
// to it is detached.
func (h *ConversationHandler) DeleteConversation(
	ctx context.Context,
	actor identity.Principal,
	sessionID string,
	conv *conversation.Conversation,
) (*responses.DeletedResponse, error) {
	if err := access.ToError(ctx, h.policy.CheckConversation(actor, access.OpDelete, conv)); err != nil {
		return nil, err
	}
	if err := h.conversationService.DeleteConversation(ctx, conv.PublicID); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to delete conversation")
	}

	if active, err := h.resolver.ActiveConversation(ctx, sessionID); err == nil && active != nil && active.ConversationID == conv.PublicID {
		if err := h.resolver.ResetSession(ctx, sessionID); err != nil {
			h.logger.Warn().Err(err).Str("conversation_id", conv.PublicID).Msg("failed to detach session from deleted conversation")
		}
	}

	return &responses.DeletedResponse{ID: conv.PublicID, Object: "conversation.deleted", Deleted: true}, nil
}

// ResumeConversation attaches the session to the conversation's resumable thread.
func (h *ConversationHandler) ResumeConversation(
	ctx context.Context,
	actor identity.Principal,
	sessionID string,
	conv *conversation.Conversation,
) (*conversationresponses.SessionResponse, error) {
	if err := access.ToError(ctx, h.policy.CheckConversation(actor, access.OpView, conv)); err != nil {
		return nil, err
	}
	target, err := h.resolver.ResumeConversation(ctx, sessionID, conv.PublicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to resume conversation")
	}
	return conversationresponses.NewTargetSessionResponse(target, h.clock.Now().Unix()), nil
}

// ActiveSession reports the session's active conversation.
func (h *ConversationHandler) ActiveSession(ctx context.Context, sessionID string) (*conversationresponses.SessionResponse, error) {
	active, err := h.resolver.ActiveConversation(ctx, sessionID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to read session")
	}
	return conversationresponses.NewSessionResponse(active), nil
}

// ResetSession detaches the session so the next chat turn starts a new conversation.
func (h *ConversationHandler) ResetSession(ctx context.Context, sessionID string) (*conversationresponses.SessionResponse, error) {
	if err := h.resolver.ResetSession(ctx, sessionID); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to reset session")
	}
	return conversationresponses.NewSessionResponse(nil), nil
}

// ConversationMiddleware loads the conversation named by the path into the gin context.
// Access checks are left to the handler methods, which know the operation.
func (h *ConversationHandler) ConversationMiddleware() gin.HandlerFunc {
	return func(reqCtx *gin.Context) {
		ctx := reqCtx.Request.Context()

		publicID := reqCtx.Param(string(ConversationContextKeyPublicID))
		if publicID == "" {
			responses.HandleNewError(reqCtx, platformerrors.ErrorTypeValidation, "missing conversation id", "2c8e5a91-f7d3-4b06-9e14-a0b6d3f8c527")
			return
		}

		conv, err := h.conversationService.LoadConversation(ctx, publicID)
		if err != nil {
			responses.HandleError(reqCtx, err, "Failed to retrieve conversation")
			return
		}
		SetConversationToContext(reqCtx, conv)
		reqCtx.Next()
	}
}

// SetConversationToContext stores a conversation in the request context
func SetConversationToContext(reqCtx *gin.Context, conv *conversation.Conversation) {
	reqCtx.Set(string(ConversationContextEntity), conv)
}

// GetConversationFromContext retrieves a conversation from the request context
func GetConversationFromContext(reqCtx *gin.Context) (*conversation.Conversation, bool) {
	conv, ok := reqCtx.Get(string(ConversationContextEntity))
	if !ok {
		return nil, false
	}
	v, ok := conv.(*conversation.Conversation)
	return v, ok
}
