package conversation

import (
	"context"

	"github.com/shopspring/decimal"

	"jan-server/services/conversation-api/internal/domain/query"
	"jan-server/services/conversation-api/internal/utils/idgen"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

// ConversationService handles business logic for conversations
type ConversationService struct {
	repo           ConversationRepository
	threads        *ThreadService
	tx             Transactor
	clock          Clock
	validator      *ConversationValidator
	titleMaxLength int
	listLimit      int
}

// ConversationServiceConfig tunes defaults that come from configuration.
type ConversationServiceConfig struct {
	TitleMaxLength   int
	DefaultListLimit int
}

func NewConversationService(
	repo ConversationRepository,
	threads *ThreadService,
	tx Transactor,
	clock Clock,
	cfg ConversationServiceConfig,
) *ConversationService {
	if clock == nil {
		clock = SystemClock
	}
	if cfg.TitleMaxLength <= 0 {
		cfg.TitleMaxLength = DefaultTitleMaxLength
	}
	if cfg.DefaultListLimit <= 0 {
		cfg.DefaultListLimit = query.DefaultLimit
	}
	return &ConversationService{
		repo:           repo,
		threads:        threads,
		tx:             tx,
		clock:          clock,
		validator:      NewConversationValidator(nil),
		titleMaxLength: cfg.TitleMaxLength,
		listLimit:      cfg.DefaultListLimit,
	}
}

// TitleMaxLength is the limit used when titles are generated.
func (s *ConversationService) TitleMaxLength() int {
	return s.titleMaxLength
}

// ===============================================
// Create
// ===============================================

// CreateConversationInput describes a new conversation. OwnerID falls back to ActorID.
type CreateConversationInput struct {
	Title           string
	OwnerID         string
	ActorID         string
	InitialMessages []Message
	Provider        string
	Model           string
	Temperature     *decimal.Decimal
	MaxTokens       *int `validate:"omitempty,gt=0"`
	Metadata        map[string]any
}

// CreateConversation creates the conversation together with its root thread and
// points DefaultThreadID at that thread.
func (s *ConversationService) CreateConversation(ctx context.Context, input CreateConversationInput) (*Conversation, *Thread, error) {
	if err := s.validator.ValidateStruct(input); err != nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid conversation input", err, "4e2b8d17-a9c0-4f53-8e61-d7b3a0c5f924")
	}

	ownerID := input.OwnerID
	if ownerID == "" {
		ownerID = input.ActorID
	}
	if ownerID == "" {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation owner is required", nil, "a07c3e95-2d6b-48f1-b9a3-6f1e0d4c8b72")
	}

	title := input.Title
	if title == "" {
		title = GenerateTitle(input.InitialMessages, s.titleMaxLength)
	}
	if err := s.validator.ValidateTitle(title); err != nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid title", err, "d5f91b03-7e2c-4a68-83d0-b4e6c1a9f057")
	}
	if err := s.validator.ValidateMetadata(input.Metadata); err != nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid metadata", err, "1b6e4a2f-c830-4d97-a5e1-9f2d7c0b3e68")
	}

	publicID, err := idgen.GenerateSecureID(idgen.PrefixConversation, 16)
	if err != nil {
		return nil, nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to generate conversation id", err, "72c0e8d4-5b19-4f3a-9d6e-a1f4b7c2e035")
	}

	conv := NewConversation(publicID, ownerID, title, s.clock.Now())
	conv.Provider = input.Provider
	conv.Model = input.Model
	if input.Temperature != nil {
		conv.Temperature = *input.Temperature
	}
	if input.MaxTokens != nil {
		conv.MaxTokens = *input.MaxTokens
	}
	for k, v := range input.Metadata {
		conv.Metadata[k] = v
	}

	var root *Thread
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, conv); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create conversation")
		}

		thread, err := s.threads.CreateThread(ctx, CreateThreadInput{
			ConversationID:  conv.PublicID,
			InitialMessages: input.InitialMessages,
		})
		if err != nil {
			return err
		}
		root = thread

		conv.DefaultThreadID = &thread.PublicID
		if err := s.repo.Update(ctx, conv); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to set default thread")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return conv, root, nil
}

// ===============================================
// Read
// ===============================================

// LoadConversation returns the conversation or a NotFound error.
func (s *ConversationService) LoadConversation(ctx context.Context, publicID string) (*Conversation, error) {
	if err := s.validator.ValidateConversationID(publicID); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "conversation not found", err, "e8a2d0f6-3b71-4c95-a0e4-5d9c1b7f2a83")
	}
	conv, err := s.repo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "conversation not found")
	}
	return conv, nil
}

// ListByOwner returns one page of the owner's conversations, most recently active
// first, with the total count.
func (s *ConversationService) ListByOwner(ctx context.Context, ownerID string, pagination query.Pagination) ([]*Conversation, int64, error) {
	pagination.Normalize(s.listLimit)
	filter := ConversationFilter{OwnerID: &ownerID}

	conversations, err := s.repo.FindByFilter(ctx, filter, &pagination)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list conversations")
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to count conversations")
	}
	return conversations, total, nil
}

// Resume picks the thread a conversation continues on: the default thread, else
// the most recently created one. ok is false when the conversation has no threads.
func (s *ConversationService) Resume(ctx context.Context, publicID string) (threadID string, ok bool, err error) {
	conv, err := s.LoadConversation(ctx, publicID)
	if err != nil {
		return "", false, err
	}
	if conv.DefaultThreadID != nil && *conv.DefaultThreadID != "" {
		return *conv.DefaultThreadID, true, nil
	}

	threads, err := s.threads.ListByConversation(ctx, publicID)
	if err != nil {
		return "", false, err
	}
	if len(threads) == 0 {
		return "", false, nil
	}
	return threads[len(threads)-1].PublicID, true, nil
}

// ===============================================
// Update & Delete
// ===============================================

// UpdateConversationInput patches the non-nil fields.
type UpdateConversationInput struct {
	Title       *string
	Model       *string
	Provider    *string
	Temperature *decimal.Decimal
	MaxTokens   *int `validate:"omitempty,gt=0"`
	Metadata    map[string]any
}

func (s *ConversationService) UpdateConversation(ctx context.Context, publicID string, input UpdateConversationInput) (*Conversation, error) {
	if err := s.validator.ValidateStruct(input); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid conversation update", err, "3f9a6c01-e2d7-4b58-a0c3-8d1e5b7f4a29")
	}
	if input.Temperature != nil && input.Temperature.IsNegative() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "temperature must not be negative", nil, "b6d2e9a4-0c73-4f18-95a1-e7c3f0b8d562")
	}

	conv, err := s.LoadConversation(ctx, publicID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		if err := s.validator.ValidateTitle(*input.Title); err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid title", err, "c0e47b3d-9a21-4f86-b5d8-2e6f1a9c7d40")
		}
		conv.Title = *input.Title
	}
	if input.Model != nil {
		conv.Model = *input.Model
	}
	if input.Provider != nil {
		conv.Provider = *input.Provider
	}
	if input.Temperature != nil {
		conv.Temperature = *input.Temperature
	}
	if input.MaxTokens != nil {
		conv.MaxTokens = *input.MaxTokens
	}
	if input.Metadata != nil {
		if err := s.validator.ValidateMetadata(input.Metadata); err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid metadata", err, "58a1f3c7-d4e0-4b92-a6f5-0c8e2d7b1f93")
		}
		conv.Metadata = input.Metadata
	}
	conv.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, conv); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update conversation")
	}
	return conv, nil
}

// SetDefaultThread points the conversation at one of its own threads.
func (s *ConversationService) SetDefaultThread(ctx context.Context, publicID, threadID string) (*Conversation, error) {
	var conv *Conversation
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		loaded, err := s.LoadConversation(ctx, publicID)
		if err != nil {
			return err
		}
		if _, err := s.threads.GetConversationThread(ctx, publicID, threadID); err != nil {
			return err
		}
		loaded.DefaultThreadID = &threadID
		loaded.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, loaded); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to set default thread")
		}
		conv = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// DeleteConversation removes the conversation and all of its threads.
func (s *ConversationService) DeleteConversation(ctx context.Context, publicID string) error {
	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.LoadConversation(ctx, publicID); err != nil {
			return err
		}
		if err := s.threads.threads.DeleteByConversationID(ctx, publicID); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete threads")
		}
		if err := s.repo.Delete(ctx, publicID); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete conversation")
		}
		return nil
	})
}
