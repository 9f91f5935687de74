package resolver

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

const (
	phaseUser      = "user"
	phaseAssistant = "assistant"
)

// Resolver attaches chat turns to conversations. For every request it picks a target
// conversation and thread (portal override, then the session's active conversation,
// then a fresh one), records the user message, and later records the assistant reply
// under the same correlation key. Capture failures are logged and reported through
// the boolean results; they never abort the chat call.
type Resolver struct {
	conversations *conversation.ConversationService
	threads       *conversation.ThreadService
	sessions      Sessions
	pending       *CorrelationCache
	clock         conversation.Clock
	observer      Observer
	logger        zerolog.Logger
	tracer        trace.Tracer
}

func NewResolver(
	conversations *conversation.ConversationService,
	threads *conversation.ThreadService,
	store SessionStore,
	pending *CorrelationCache,
	clock conversation.Clock,
	observer Observer,
	logger zerolog.Logger,
) *Resolver {
	if clock == nil {
		clock = conversation.SystemClock
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Resolver{
		conversations: conversations,
		threads:       threads,
		sessions:      NewSessions(store),
		pending:       pending,
		clock:         clock,
		observer:      observer,
		logger:        logger.With().Str("component", "conversation-resolver").Logger(),
		tracer:        otel.Tracer("conversation-resolver"),
	}
}

// ===============================================
// Turn Capture
// ===============================================

// CaptureUserTurn resolves the target of req, appends the user message and records the
// target under req.CorrelationKey. ok is false when nothing was recorded.
func (r *Resolver) CaptureUserTurn(ctx context.Context, req ChatRequest) (turn *Turn, ok bool) {
	ctx, span := r.tracer.Start(ctx, "resolver.CaptureUserTurn")
	defer span.End()

	log := r.logger.With().
		Str("correlation_key", req.CorrelationKey).
		Str("user_id", req.Actor.ID).
		Logger()

	defer func() {
		if rec := recover(); rec != nil {
			r.fail(span, log, phaseUser, fmt.Errorf("panic: %v", rec), "user turn capture panicked")
			turn, ok = nil, false
		}
	}()

	if req.CorrelationKey == "" {
		log.Warn().Msg("chat request has no correlation key, skipping capture")
		return nil, false
	}
	content, found := req.UserContent()
	if !found {
		log.Warn().Msg("chat request has no user message, skipping capture")
		return nil, false
	}

	target, source, err := r.resolveTarget(ctx, req, content, log)
	if err != nil {
		r.fail(span, log, phaseUser, err, "failed to resolve conversation target")
		return nil, false
	}
	span.SetAttributes(
		attribute.String("conversation.id", target.ConversationID),
		attribute.String("thread.id", target.ThreadID),
		attribute.String("conversation.source", string(source)),
	)

	messageID, err := r.threads.AppendMessage(ctx, target.ThreadID, conversation.AppendMessageInput{
		Role:    conversation.RoleUser,
		Content: content,
	})
	if err != nil {
		r.fail(span, log, phaseUser, err, "failed to append user message")
		return nil, false
	}
	r.pending.Put(req.CorrelationKey, target)
	r.observer.MessageCaptured(phaseUser)

	turn = &Turn{Target: target, Source: source, UserMessageID: messageID}
	thread, err := r.threads.GetThread(ctx, target.ThreadID)
	if err != nil {
		log.Warn().Err(err).Str("thread_id", target.ThreadID).Msg("failed to load thread history")
	} else {
		turn.History = thread.Messages
	}

	log.Debug().
		Str("conversation_id", target.ConversationID).
		Str("thread_id", target.ThreadID).
		Str("source", string(source)).
		Msg("captured user turn")
	return turn, true
}

// CaptureAssistantTurn appends the reply extracted from turn.Output to the thread
// recorded for turn.CorrelationKey. The correlation entry is removed in every outcome.
func (r *Resolver) CaptureAssistantTurn(ctx context.Context, turn AssistantTurn) (messageID string, ok bool) {
	ctx, span := r.tracer.Start(ctx, "resolver.CaptureAssistantTurn")
	defer span.End()

	log := r.logger.With().Str("correlation_key", turn.CorrelationKey).Logger()

	defer func() {
		if rec := recover(); rec != nil {
			r.pending.Remove(turn.CorrelationKey)
			r.fail(span, log, phaseAssistant, fmt.Errorf("panic: %v", rec), "assistant turn capture panicked")
			messageID, ok = "", false
		}
	}()

	target, found := r.pending.Take(turn.CorrelationKey)
	if !found {
		log.Warn().Msg("no captured user turn for correlation key, skipping assistant capture")
		return "", false
	}

	text, strategy := ExtractReply(turn.Output)
	r.observer.ReplyExtracted(strategy)
	if strategy == ExtractNone {
		log.Warn().
			Str("error_type", string(platformerrors.ErrorTypeExtraction)).
			Str("output_shape", describeShape(turn.Output)).
			Msg("could not extract reply text, storing empty reply")
	}

	messageID, err := r.threads.AppendMessage(ctx, target.ThreadID, conversation.AppendMessageInput{
		Role:     conversation.RoleAssistant,
		Content:  text,
		Provider: turn.ProviderID,
		Model:    turn.ModelID,
		Metadata: turn.Metadata,
	})
	if err != nil {
		r.fail(span, log, phaseAssistant, err, "failed to append assistant message")
		return "", false
	}
	r.observer.MessageCaptured(phaseAssistant)
	return messageID, true
}

// ReleaseTurn drops the correlation entry of a turn whose provider call failed.
func (r *Resolver) ReleaseTurn(correlationKey string) {
	r.pending.Remove(correlationKey)
}

// Pending reports whether a user turn is waiting for its assistant reply.
func (r *Resolver) Pending(correlationKey string) bool {
	return r.pending.Contains(correlationKey)
}

func (r *Resolver) fail(span trace.Span, log zerolog.Logger, phase string, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	r.observer.CaptureFailed(phase)
	log.Error().Err(err).Str("phase", phase).Msg(msg)
}

// ===============================================
// Target Resolution
// ===============================================

func (r *Resolver) resolveTarget(ctx context.Context, req ChatRequest, content string, log zerolog.Logger) (Target, TargetSource, error) {
	if req.PortalConversationID != "" {
		if target, ok := r.portalTarget(ctx, req, log); ok {
			r.remember(ctx, req.SessionID, target, log)
			r.observer.TargetResolved(SourcePortal)
			return target, SourcePortal, nil
		}
	}

	if req.SessionID != "" {
		if target, ok := r.sessionTarget(ctx, req, log); ok {
			r.observer.TargetResolved(SourceSession)
			return target, SourceSession, nil
		}
	}

	target, err := r.freshTarget(ctx, req, content)
	if err != nil {
		return Target{}, "", err
	}
	r.remember(ctx, req.SessionID, target, log)
	r.observer.TargetResolved(SourceFresh)
	r.observer.ConversationCreated(SourceFresh)
	return target, SourceFresh, nil
}

func (r *Resolver) portalTarget(ctx context.Context, req ChatRequest, log zerolog.Logger) (Target, bool) {
	log = log.With().Str("portal_conversation_id", req.PortalConversationID).Logger()

	conv, err := r.conversations.LoadConversation(ctx, req.PortalConversationID)
	if err != nil {
		log.Warn().Err(err).Msg("portal conversation unavailable, falling back")
		return Target{}, false
	}
	if !conv.IsOwnedBy(req.Actor.ID) {
		log.Warn().Str("owner_id", conv.OwnerID).Msg("portal conversation not owned by user, falling back")
		return Target{}, false
	}

	threadID, err := r.resumableThread(ctx, conv.PublicID)
	if err != nil {
		log.Warn().Err(err).Msg("portal conversation has no usable thread, falling back")
		return Target{}, false
	}
	return Target{ConversationID: conv.PublicID, ThreadID: threadID}, true
}

func (r *Resolver) sessionTarget(ctx context.Context, req ChatRequest, log zerolog.Logger) (Target, bool) {
	active, err := r.sessions.Active(ctx, req.SessionID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read session, starting fresh")
		return Target{}, false
	}
	if active == nil {
		return Target{}, false
	}
	log = log.With().Str("conversation_id", active.ConversationID).Str("thread_id", active.ThreadID).Logger()

	conv, err := r.conversations.LoadConversation(ctx, active.ConversationID)
	if err != nil {
		log.Info().Err(err).Msg("session conversation no longer available")
		r.forget(ctx, req.SessionID, log)
		return Target{}, false
	}
	if !conv.IsOwnedBy(req.Actor.ID) {
		log.Warn().Msg("session conversation belongs to another user, ignoring")
		return Target{}, false
	}

	if _, err := r.threads.GetConversationThread(ctx, conv.PublicID, active.ThreadID); err == nil {
		return Target{ConversationID: conv.PublicID, ThreadID: active.ThreadID}, true
	}

	threadID, err := r.resumableThread(ctx, conv.PublicID)
	if err != nil {
		log.Warn().Err(err).Msg("session thread gone and conversation has no usable thread")
		r.forget(ctx, req.SessionID, log)
		return Target{}, false
	}
	target := Target{ConversationID: conv.PublicID, ThreadID: threadID}
	r.remember(ctx, req.SessionID, target, log)
	return target, true
}

// freshTarget starts a conversation titled from content, the user message being captured.
func (r *Resolver) freshTarget(ctx context.Context, req ChatRequest, content string) (Target, error) {
	temperature := decimal.NewFromFloat(FreshConversationTemperature)
	if req.Configuration.Temperature != nil {
		temperature = decimal.NewFromFloat(*req.Configuration.Temperature)
	}
	maxTokens := FreshConversationMaxTokens
	if req.Configuration.MaxTokens != nil && *req.Configuration.MaxTokens > 0 {
		maxTokens = *req.Configuration.MaxTokens
	}

	metadata := map[string]any{
		"request_thread_id": req.CorrelationKey,
		"configuration":     req.Configuration.asMetadata(),
	}
	if len(req.Tags) > 0 {
		metadata["tags"] = req.Tags
	}

	conv, root, err := r.conversations.CreateConversation(ctx, conversation.CreateConversationInput{
		Title:       conversation.GenerateTitle([]conversation.Message{{Role: conversation.RoleUser, Content: content}}, r.conversations.TitleMaxLength()),
		ActorID:     req.Actor.ID,
		Provider:    req.ProviderID,
		Model:       req.ModelID,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		Metadata:    metadata,
	})
	if err != nil {
		return Target{}, err
	}
	return Target{ConversationID: conv.PublicID, ThreadID: root.PublicID}, nil
}

// resumableThread returns the thread a conversation continues on, creating a root
// thread when the conversation has none.
func (r *Resolver) resumableThread(ctx context.Context, conversationID string) (string, error) {
	threadID, ok, err := r.conversations.Resume(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if ok {
		return threadID, nil
	}

	thread, err := r.threads.CreateThread(ctx, conversation.CreateThreadInput{ConversationID: conversationID})
	if err != nil {
		return "", err
	}
	if _, err := r.conversations.SetDefaultThread(ctx, conversationID, thread.PublicID); err != nil {
		return "", err
	}
	return thread.PublicID, nil
}

func (r *Resolver) remember(ctx context.Context, sessionID string, target Target, log zerolog.Logger) {
	if sessionID == "" {
		return
	}
	active := ActiveConversation{
		ConversationID: target.ConversationID,
		ThreadID:       target.ThreadID,
		StartedAt:      r.clock.Now().Unix(),
	}
	if err := r.sessions.SetActive(ctx, sessionID, active); err != nil {
		log.Warn().Err(err).Msg("failed to store active conversation in session")
	}
}

func (r *Resolver) forget(ctx context.Context, sessionID string, log zerolog.Logger) {
	if err := r.sessions.ClearActive(ctx, sessionID); err != nil {
		log.Warn().Err(err).Msg("failed to clear active conversation from session")
	}
}

// ===============================================
// Session Operations
// ===============================================

// ActiveConversation returns the conversation the session is attached to, or nil.
func (r *Resolver) ActiveConversation(ctx context.Context, sessionID string) (*ActiveConversation, error) {
	active, err := r.sessions.Active(ctx, sessionID)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to read session", err, "9c4e1a7b-3d05-4f82-b6a9-e20d7c5f1b38")
	}
	return active, nil
}

// ResetSession detaches the session so the next chat turn starts a new conversation.
func (r *Resolver) ResetSession(ctx context.Context, sessionID string) error {
	if err := r.sessions.ClearActive(ctx, sessionID); err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to reset session", err, "e7b2d9f4-6a13-4c58-90e1-3f8a5c0d7b26")
	}
	return nil
}

// ResumeConversation attaches the session to the conversation's resumable thread.
func (r *Resolver) ResumeConversation(ctx context.Context, sessionID, conversationID string) (Target, error) {
	threadID, err := r.resumableThread(ctx, conversationID)
	if err != nil {
		return Target{}, err
	}
	return r.attach(ctx, sessionID, Target{ConversationID: conversationID, ThreadID: threadID})
}

// ResumeThread attaches the session to a specific thread of the conversation.
func (r *Resolver) ResumeThread(ctx context.Context, sessionID, conversationID, threadID string) (Target, error) {
	if _, err := r.threads.GetConversationThread(ctx, conversationID, threadID); err != nil {
		return Target{}, err
	}
	return r.attach(ctx, sessionID, Target{ConversationID: conversationID, ThreadID: threadID})
}

func (r *Resolver) attach(ctx context.Context, sessionID string, target Target) (Target, error) {
	active := ActiveConversation{
		ConversationID: target.ConversationID,
		ThreadID:       target.ThreadID,
		StartedAt:      r.clock.Now().Unix(),
	}
	if err := r.sessions.SetActive(ctx, sessionID, active); err != nil {
		return Target{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to update session", err, "41f8c6e0-b2d7-4a93-8e15-d6a0f3b9c274")
	}
	return target, nil
}
