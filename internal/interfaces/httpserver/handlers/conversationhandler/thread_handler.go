package conversationhandler

import (
	"context"

	"github.com/rs/zerolog"

	"jan-server/services/conversation-api/internal/domain/access"
	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/identity"
	"jan-server/services/conversation-api/internal/domain/resolver"
	"jan-server/services/conversation-api/internal/infrastructure/metrics"
	conversationrequests "jan-server/services/conversation-api/internal/interfaces/httpserver/requests/conversation"
	"jan-server/services/conversation-api/internal/interfaces/httpserver/responses"
	conversationresponses "jan-server/services/conversation-api/internal/interfaces/httpserver/responses/conversation"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

// ThreadHandler handles thread requests inside a loaded conversation
type ThreadHandler struct {
	threadService *conversation.ThreadService
	policy        *access.Policy
	resolver      *resolver.Resolver
	clock         conversation.Clock
	logger        zerolog.Logger
}

// NewThreadHandler creates a new thread handler
func NewThreadHandler(
	threadService *conversation.ThreadService,
	policy *access.Policy,
	resolver *resolver.Resolver,
	clock conversation.Clock,
	logger zerolog.Logger,
) *ThreadHandler {
	return &ThreadHandler{
		threadService: threadService,
		policy:        policy,
		resolver:      resolver,
		clock:         clock,
		logger:        logger.With().Str("component", "thread-handler").Logger(),
	}
}

// ListThreads lists the conversation's threads with their parent labels.
func (h *ThreadHandler) ListThreads(
	ctx context.Context,
	actor identity.Principal,
	conv *conversation.Conversation,
) (*conversationresponses.ThreadListResponse, error) {
	if err := access.ToError(ctx, h.policy.CheckThread(actor, access.OpView, nil, conv)); err != nil {
		return nil, err
	}
	threads, err := h.threadService.ListByConversation(ctx, conv.PublicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to list threads")
	}
	return conversationresponses.NewThreadListResponse(threads, conv), nil
}

// CreateThread creates a root thread, optionally seeded with messages.
func (h *ThreadHandler) CreateThread(
	ctx context.Context,
	actor identity.Principal,
	conv *conversation.Conversation,
	req conversationrequests.CreateThreadRequest,
) (*conversationresponses.ThreadResponse, error) {
	if err := access.ToError(ctx, h.policy.CheckThread(actor, access.OpCreate, nil, conv)); err != nil {
		return nil, err
	}
	thread, err := h.threadService.CreateThread(ctx, conversation.CreateThreadInput{
		ConversationID:  conv.PublicID,
		InitialMessages: conversationrequests.ToMessages(req.Messages, h.clock.Now().Unix()),
		Title:           req.Title,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to create thread")
	}
	metrics.RecordThreadCreated(false)
	return conversationresponses.NewThreadResponse(thread, nil, conv, true), nil
}

// GetThread returns a thread with its messages.
func (h *ThreadHandler) GetThread(
	ctx context.Context,
	actor identity.Principal,
	conv *conversation.Conversation,
	threadID string,
) (*conversationresponses.ThreadResponse, error) {
	thread, err := h.loadThread(ctx, actor, access.OpView, conv, threadID)
	if err != nil {
		return nil, err
	}
	return conversationresponses.NewThreadResponse(thread, h.parentOf(ctx, thread), conv, true), nil
}

// DeleteThread removes a thread. Branches of it keep a dangling parent reference.
func (h *ThreadHandler) DeleteThread(
	ctx context.Context,
	actor identity.Principal,
	conv *conversation.Conversation,
	threadID string,
) (*responses.DeletedResponse, error) {
	if _, err := h.loadThread(ctx, actor, access.OpDelete, conv, threadID); err != nil {
		return nil, err
	}
	if err := h.threadService.DeleteThread(ctx, threadID); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to delete thread")
	}
	return &responses.DeletedResponse{ID: threadID, Object: "thread.deleted", Deleted: true}, nil
}

// BranchThread forks the thread after req.MessageID.
func (h *ThreadHandler) BranchThread(
	ctx context.Context,
	actor identity.Principal,
	conv *conversation.Conversation,
	threadID string,
	req conversationrequests.BranchThreadRequest,
) (*conversationresponses.ThreadResponse, error) {
	source, err := h.loadThread(ctx, actor, access.OpView, conv, threadID)
	if err != nil {
		return nil, err
	}
	if err := access.ToError(ctx, h.policy.CheckThread(actor, access.OpCreate, nil, conv)); err != nil {
		return nil, err
	}

	branch, err := h.threadService.BranchThread(ctx, threadID, req.MessageID, req.Title)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to branch thread")
	}
	metrics.RecordThreadCreated(true)
	return conversationresponses.NewThreadResponse(branch, source, conv, true), nil
}

// ResumeThread attaches the session to the thread.
func (h *ThreadHandler) ResumeThread(
	ctx context.Context,
	actor identity.Principal,
	sessionID string,
	conv *conversation.Conversation,
	threadID string,
) (*conversationresponses.SessionResponse, error) {
	if err := access.ToError(ctx, h.policy.CheckThread(actor, access.OpView, nil, conv)); err != nil {
		return nil, err
	}
	target, err := h.resolver.ResumeThread(ctx, sessionID, conv.PublicID, threadID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to resume thread")
	}
	return conversationresponses.NewTargetSessionResponse(target, h.clock.Now().Unix()), nil
}

// AppendMessage appends a message to the thread outside of a chat turn.
func (h *ThreadHandler) AppendMessage(
	ctx context.Context,
	actor identity.Principal,
	conv *conversation.Conversation,
	threadID string,
	req conversationrequests.AppendMessageRequest,
) (*conversationresponses.MessageResponse, error) {
	if _, err := h.loadThread(ctx, actor, access.OpUpdate, conv, threadID); err != nil {
		return nil, err
	}
	messageID, err := h.threadService.AppendMessage(ctx, threadID, conversation.AppendMessageInput{
		Role:     conversation.Role(req.Role),
		Content:  req.Content,
		Provider: req.Provider,
		Model:    req.Model,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to append message")
	}
	metrics.MessagesAppendedTotal.WithLabelValues(req.Role).Inc()
	return &conversationresponses.MessageResponse{ID: messageID, Object: "message", ThreadID: threadID}, nil
}

// loadThread loads a thread of conv and checks op on it.
func (h *ThreadHandler) loadThread(
	ctx context.Context,
	actor identity.Principal,
	op access.Operation,
	conv *conversation.Conversation,
	threadID string,
) (*conversation.Thread, error) {
	thread, err := h.threadService.GetConversationThread(ctx, conv.PublicID, threadID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerHandler, err, "failed to get thread")
	}
	if err := access.ToError(ctx, h.policy.CheckThread(actor, op, thread, conv)); err != nil {
		return nil, err
	}
	return thread, nil
}

// parentOf returns the parent thread, or nil when it is unset or gone.
func (h *ThreadHandler) parentOf(ctx context.Context, thread *conversation.Thread) *conversation.Thread {
	if thread.ParentThreadID == nil {
		return nil
	}
	parent, err := h.threadService.GetThread(ctx, *thread.ParentThreadID)
	if err != nil {
		if !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			h.logger.Warn().Err(err).Str("thread_id", thread.PublicID).Msg("failed to load parent thread")
		}
		return nil
	}
	return parent
}
