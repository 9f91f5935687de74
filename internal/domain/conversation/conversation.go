package conversation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"jan-server/services/conversation-api/internal/domain/query"
)

// ===============================================
// Conversation Structure
// ===============================================

const DefaultMaxTokens = 1000

// DefaultTemperature is applied to conversations created without an explicit temperature.
var DefaultTemperature = decimal.RequireFromString("0.7")

type Conversation struct {
	ID              uint            `json:"-"`
	PublicID        string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	Title           string          `json:"title"`
	Model           string          `json:"model,omitempty"`
	Provider        string          `json:"provider,omitempty"`
	Temperature     decimal.Decimal `json:"temperature"`
	MaxTokens       int             `json:"max_tokens"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
	DefaultThreadID *string         `json:"default_thread_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsOwnedBy reports whether userID owns the conversation.
func (c *Conversation) IsOwnedBy(userID string) bool {
	return userID != "" && c.OwnerID == userID
}

// NewConversation creates a conversation with defaults applied.
func NewConversation(publicID, ownerID, title string, now time.Time) *Conversation {
	return &Conversation{
		PublicID:    publicID,
		OwnerID:     ownerID,
		Title:       title,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Metadata:    map[string]any{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ===============================================
// Conversation Repository
// ===============================================

type ConversationFilter struct {
	PublicID *string
	OwnerID  *string
}

// ConversationRepository lists are ordered by updated_at descending.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *Conversation) error
	FindByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	FindByFilter(ctx context.Context, filter ConversationFilter, pagination *query.Pagination) ([]*Conversation, error)
	Count(ctx context.Context, filter ConversationFilter) (int64, error)
	Update(ctx context.Context, conversation *Conversation) error
	Touch(ctx context.Context, publicID string, at time.Time) error
	Delete(ctx context.Context, publicID string) error
}

// ===============================================
// Collaborators
// ===============================================

// Transactor runs fn inside a storage transaction carried by the returned context.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ThreadLocker serializes work on a single thread.
type ThreadLocker interface {
	WithThreadLock(ctx context.Context, threadID string, fn func(ctx context.Context) error) error
}

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)
