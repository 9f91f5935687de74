package conversation

import (
	"context"

	"jan-server/services/conversation-api/internal/utils/idgen"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

// ThreadService owns threads and their message logs.
type ThreadService struct {
	conversations ConversationRepository
	threads       ThreadRepository
	tx            Transactor
	locker        ThreadLocker
	clock         Clock
	validator     *ConversationValidator
}

func NewThreadService(
	conversations ConversationRepository,
	threads ThreadRepository,
	tx Transactor,
	locker ThreadLocker,
	clock Clock,
) *ThreadService {
	if clock == nil {
		clock = SystemClock
	}
	return &ThreadService{
		conversations: conversations,
		threads:       threads,
		tx:            tx,
		locker:        locker,
		clock:         clock,
		validator:     NewConversationValidator(nil),
	}
}

// ===============================================
// Thread Operations
// ===============================================

// CreateThreadInput describes a new thread. ParentThreadID and BranchPointMessageID
// must be set together; a branched thread starts from the parent's prefix and takes
// no InitialMessages.
type CreateThreadInput struct {
	ConversationID       string
	InitialMessages      []Message
	ParentThreadID       *string
	BranchPointMessageID *string
	Title                *string
}

// CreateThread persists a thread in an existing conversation.
func (s *ThreadService) CreateThread(ctx context.Context, input CreateThreadInput) (*Thread, error) {
	if input.ConversationID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "conversation_id is required", nil, "6f0e7a52-1c3b-4d88-9b6e-2a4c81d0f3a7")
	}
	if (input.ParentThreadID == nil) != (input.BranchPointMessageID == nil) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "parent_thread_id and branch_point_message_id must be set together", nil, "c91d2e0b-47af-4a5e-8d13-7b0f6e9a2c54")
	}
	if input.Title != nil {
		if err := s.validator.ValidateTitle(*input.Title); err != nil {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid thread title", err, "0d8b5f3e-92c1-4e67-a4f0-5c3e1b7d9a26")
		}
	}

	if _, err := s.conversations.FindByPublicID(ctx, input.ConversationID); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "conversation not found")
	}

	messages := MessageLog(input.InitialMessages).Clone()
	if input.ParentThreadID != nil {
		if len(input.InitialMessages) > 0 {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "a branched thread cannot take initial messages", nil, "5a27c9e4-0b3f-4d1a-96e8-f2c4d07b1e83")
		}
		parent, err := s.threads.FindByPublicID(ctx, *input.ParentThreadID)
		if err != nil {
			return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "parent thread not found")
		}
		prefix, ok := parent.Messages.PrefixThrough(*input.BranchPointMessageID)
		if !ok {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "branch point message not found in parent thread", nil, "e4b1a6d0-3c75-4f92-8a0e-91d6c2f7b358")
		}
		messages = prefix
	}
	if messages == nil {
		messages = MessageLog{}
	}
	if err := messages.Validate(); err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid initial messages", err, "8c3f0a19-d6e2-4b75-b1a4-07e9f5c2d863")
	}

	publicID, err := idgen.GenerateSecureID(idgen.PrefixThread, 16)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, "failed to generate thread id", err, "27d9e3b0-6a14-4c8f-9e52-b0a3f7c1d496")
	}

	now := s.clock.Now()
	thread := &Thread{
		PublicID:             publicID,
		ConversationID:       input.ConversationID,
		ParentThreadID:       input.ParentThreadID,
		BranchPointMessageID: input.BranchPointMessageID,
		Title:                input.Title,
		Messages:             messages,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.threads.Create(ctx, thread); err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to create thread")
	}
	return thread, nil
}

// BranchThread creates a thread holding the source's messages up to and including
// branchPointMessageID. The source thread is not modified.
func (s *ThreadService) BranchThread(ctx context.Context, sourceThreadID, branchPointMessageID string, title *string) (*Thread, error) {
	source, err := s.threads.FindByPublicID(ctx, sourceThreadID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "source thread not found")
	}
	if !source.Messages.Contains(branchPointMessageID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "branch point message not found in source thread", nil, "b3f7d0c2-58e1-4a96-a2d4-6e0c9b1f7a35")
	}

	parentID := source.PublicID
	branchPoint := branchPointMessageID
	return s.CreateThread(ctx, CreateThreadInput{
		ConversationID:       source.ConversationID,
		ParentThreadID:       &parentID,
		BranchPointMessageID: &branchPoint,
		Title:                title,
	})
}

// AppendMessageInput is a message about to be appended.
type AppendMessageInput struct {
	Role     Role
	Content  string
	Provider string
	Model    string
	Metadata map[string]any
}

// AppendMessage appends a message under the thread lock and bumps updated_at of the
// thread and its conversation in one transaction. It returns the new message id.
func (s *ThreadService) AppendMessage(ctx context.Context, threadID string, input AppendMessageInput) (string, error) {
	if !input.Role.Valid() {
		return "", platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "invalid message role", nil, "f1a8c4e7-0d29-4b63-95c2-3e7b0d6a1f48")
	}

	var messageID string
	err := s.locker.WithThreadLock(ctx, threadID, func(ctx context.Context) error {
		return s.tx.Transaction(ctx, func(ctx context.Context) error {
			thread, err := s.threads.FindByPublicID(ctx, threadID)
			if err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "thread not found")
			}

			now := s.clock.Now()
			msg := NewMessage(input.Role, input.Content, now.Unix(), input.Provider, input.Model, input.Metadata)
			for thread.Messages.Contains(msg.ID) {
				msg = NewMessage(input.Role, input.Content, now.Unix(), input.Provider, input.Model, input.Metadata)
			}

			thread.Messages = append(thread.Messages, msg)
			thread.UpdatedAt = now
			if err := s.threads.Update(ctx, thread); err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to save thread")
			}
			if err := s.conversations.Touch(ctx, thread.ConversationID, now); err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to update conversation")
			}
			messageID = msg.ID
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// GetThread loads a thread by public id.
func (s *ThreadService) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	thread, err := s.threads.FindByPublicID(ctx, threadID)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "thread not found")
	}
	return thread, nil
}

// GetConversationThread loads a thread and checks it belongs to conversationID.
func (s *ThreadService) GetConversationThread(ctx context.Context, conversationID, threadID string) (*Thread, error) {
	thread, err := s.GetThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if thread.ConversationID != conversationID {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound, "thread does not belong to this conversation", nil, "93e0b7c5-1f4a-4d28-b6e9-c05a2d8f3e71")
	}
	return thread, nil
}

// ListByConversation returns the conversation's threads, oldest first.
func (s *ThreadService) ListByConversation(ctx context.Context, conversationID string) ([]*Thread, error) {
	threads, err := s.threads.FindByFilter(ctx, ThreadFilter{ConversationID: &conversationID}, nil)
	if err != nil {
		return nil, platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to list threads")
	}
	return threads, nil
}

// DeleteThread removes a thread. Child threads keep their dangling parent reference.
// When the thread was its conversation's default, the pointer is cleared.
func (s *ThreadService) DeleteThread(ctx context.Context, threadID string) error {
	return s.tx.Transaction(ctx, func(ctx context.Context) error {
		thread, err := s.threads.FindByPublicID(ctx, threadID)
		if err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "thread not found")
		}
		conv, err := s.conversations.FindByPublicID(ctx, thread.ConversationID)
		if err != nil && !platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound) {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to load conversation")
		}
		if conv != nil && conv.DefaultThreadID != nil && *conv.DefaultThreadID == threadID {
			conv.DefaultThreadID = nil
			conv.UpdatedAt = s.clock.Now()
			if err := s.conversations.Update(ctx, conv); err != nil {
				return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to clear default thread")
			}
		}
		if err := s.threads.Delete(ctx, threadID); err != nil {
			return platformerrors.AsError(ctx, platformerrors.LayerDomain, err, "failed to delete thread")
		}
		return nil
	})
}
