package conversation

import (
	"context"
	"fmt"
	"time"

	"jan-server/services/conversation-api/internal/domain/query"
	"jan-server/services/conversation-api/internal/utils/stringutils"
)

const (
	MainThreadLabel     = "Main thread"
	UntitledThreadLabel = "Untitled Thread"
	threadPreviewLength = 50
)

// Thread is an ordered message log inside a conversation. A thread with a parent was
// branched from that parent at BranchPointMessageID.
type Thread struct {
	ID                   uint       `json:"-"`
	PublicID             string     `json:"id"`
	ConversationID       string     `json:"conversation_id"`
	ParentThreadID       *string    `json:"parent_thread_id,omitempty"`
	BranchPointMessageID *string    `json:"branch_point_message_id,omitempty"`
	Title                *string    `json:"title,omitempty"`
	Messages             MessageLog `json:"messages"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (t *Thread) IsRoot() bool {
	return t.ParentThreadID == nil
}

// DisplayTitle is the title, or a preview of the first message when untitled.
func (t *Thread) DisplayTitle() string {
	if t.Title != nil && *t.Title != "" {
		return *t.Title
	}
	if len(t.Messages) == 0 {
		return UntitledThreadLabel
	}
	return stringutils.Preview(t.Messages[0].Content, threadPreviewLength)
}

// ParentLabel describes where a thread came from. parent is nil when the parent
// thread has been deleted or was never set.
func ParentLabel(t *Thread, parent *Thread) string {
	if t.IsRoot() {
		return MainThreadLabel
	}
	if parent == nil {
		return fmt.Sprintf("Deleted thread %s", *t.ParentThreadID)
	}
	return parent.DisplayTitle()
}

// ===============================================
// Thread Repository
// ===============================================

type ThreadFilter struct {
	PublicID       *string
	ConversationID *string
	ParentThreadID *string
}

// ThreadRepository lists are ordered by created_at ascending.
type ThreadRepository interface {
	Create(ctx context.Context, thread *Thread) error
	FindByPublicID(ctx context.Context, publicID string) (*Thread, error)
	FindByFilter(ctx context.Context, filter ThreadFilter, pagination *query.Pagination) ([]*Thread, error)
	Update(ctx context.Context, thread *Thread) error
	Delete(ctx context.Context, publicID string) error
	DeleteByConversationID(ctx context.Context, conversationID string) error
}
