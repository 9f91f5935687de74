// Package conversationtest provides in-memory collaborators for conversation services.
package conversationtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/query"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

type MemoryConversationRepository struct {
	mu    sync.Mutex
	items map[string]*conversation.Conversation
	seq   uint
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{items: map[string]*conversation.Conversation{}}
}

func copyConversation(c *conversation.Conversation) *conversation.Conversation {
	cp := *c
	if c.Metadata != nil {
		cp.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			cp.Metadata[k] = v
		}
	}
	if c.DefaultThreadID != nil {
		id := *c.DefaultThreadID
		cp.DefaultThreadID = &id
	}
	return &cp
}

func (r *MemoryConversationRepository) Create(_ context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	c.ID = r.seq
	r.items[c.PublicID] = copyConversation(c)
	return nil
}

func (r *MemoryConversationRepository) FindByPublicID(ctx context.Context, publicID string) (*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[publicID]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "")
	}
	return copyConversation(c), nil
}

func (r *MemoryConversationRepository) FindByFilter(_ context.Context, filter conversation.ConversationFilter, pagination *query.Pagination) ([]*conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*conversation.Conversation, 0)
	for _, c := range r.items {
		if filter.OwnerID != nil && c.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.PublicID != nil && c.PublicID != *filter.PublicID {
			continue
		}
		out = append(out, copyConversation(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if pagination != nil {
		if pagination.Offset >= len(out) {
			return []*conversation.Conversation{}, nil
		}
		out = out[pagination.Offset:]
		if pagination.Limit > 0 && pagination.Limit < len(out) {
			out = out[:pagination.Limit]
		}
	}
	return out, nil
}

func (r *MemoryConversationRepository) Count(ctx context.Context, filter conversation.ConversationFilter) (int64, error) {
	all, err := r.FindByFilter(ctx, filter, nil)
	return int64(len(all)), err
}

func (r *MemoryConversationRepository) Update(ctx context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[c.PublicID]; !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "")
	}
	r.items[c.PublicID] = copyConversation(c)
	return nil
}

func (r *MemoryConversationRepository) Touch(ctx context.Context, publicID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[publicID]
	if !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "conversation not found", nil, "")
	}
	c.UpdatedAt = at
	return nil
}

func (r *MemoryConversationRepository) Delete(_ context.Context, publicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, publicID)
	return nil
}

type MemoryThreadRepository struct {
	mu    sync.Mutex
	items map[string]*conversation.Thread
	seq   uint
}

func NewMemoryThreadRepository() *MemoryThreadRepository {
	return &MemoryThreadRepository{items: map[string]*conversation.Thread{}}
}

func copyThread(t *conversation.Thread) *conversation.Thread {
	cp := *t
	cp.Messages = t.Messages.Clone()
	return &cp
}

func (r *MemoryThreadRepository) Create(_ context.Context, t *conversation.Thread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	t.ID = r.seq
	r.items[t.PublicID] = copyThread(t)
	return nil
}

func (r *MemoryThreadRepository) FindByPublicID(ctx context.Context, publicID string) (*conversation.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[publicID]
	if !ok {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "thread not found", nil, "")
	}
	return copyThread(t), nil
}

func (r *MemoryThreadRepository) FindByFilter(_ context.Context, filter conversation.ThreadFilter, _ *query.Pagination) ([]*conversation.Thread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*conversation.Thread, 0)
	for _, t := range r.items {
		if filter.ConversationID != nil && t.ConversationID != *filter.ConversationID {
			continue
		}
		if filter.ParentThreadID != nil && (t.ParentThreadID == nil || *t.ParentThreadID != *filter.ParentThreadID) {
			continue
		}
		out = append(out, copyThread(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryThreadRepository) Update(ctx context.Context, t *conversation.Thread) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[t.PublicID]; !ok {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "thread not found", nil, "")
	}
	r.items[t.PublicID] = copyThread(t)
	return nil
}

func (r *MemoryThreadRepository) Delete(_ context.Context, publicID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, publicID)
	return nil
}

func (r *MemoryThreadRepository) DeleteByConversationID(_ context.Context, conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.items {
		if t.ConversationID == conversationID {
			delete(r.items, id)
		}
	}
	return nil
}

type PassthroughTransactor struct{}

func (PassthroughTransactor) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type MutexLocker struct {
	mu sync.Mutex
}

func (l *MutexLocker) WithThreadLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(ctx)
}

// StepClock advances one second on every reading.
type StepClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStepClock() *StepClock {
	return &StepClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// Fixture wires both services over in-memory repositories.
type Fixture struct {
	Conversations *MemoryConversationRepository
	ThreadRepo    *MemoryThreadRepository
	Threads       *conversation.ThreadService
	Service       *conversation.ConversationService
	Clock         *StepClock
}

func NewFixture() *Fixture {
	convRepo := NewMemoryConversationRepository()
	threadRepo := NewMemoryThreadRepository()
	clock := NewStepClock()
	threads := conversation.NewThreadService(convRepo, threadRepo, PassthroughTransactor{}, &MutexLocker{}, clock)
	service := conversation.NewConversationService(convRepo, threads, PassthroughTransactor{}, clock, conversation.ConversationServiceConfig{})
	return &Fixture{
		Conversations: convRepo,
		ThreadRepo:    threadRepo,
		Threads:       threads,
		Service:       service,
		Clock:         clock,
	}
}
