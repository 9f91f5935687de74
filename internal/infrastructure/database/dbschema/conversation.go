package dbschema

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Conversation{})
}

// Conversation represents the database schema for conversations
type Conversation struct {
	BaseModel
	PublicID        string            `gorm:"type:varchar(50);uniqueIndex;not null"`
	OwnerID         string            `gorm:"type:varchar(128);index;not null"`
	Title           string            `gorm:"type:varchar(256);not null;default:''"`
	Model           string            `gorm:"type:varchar(128);not null;default:''"`
	Provider        string            `gorm:"type:varchar(128);not null;default:''"`
	Temperature     decimal.Decimal   `gorm:"type:numeric(10,2);not null"`
	MaxTokens       int               `gorm:"not null;default:1000"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb"`
	DefaultThreadID *string           `gorm:"type:varchar(50)"`
}

// NewSchemaConversation converts a domain conversation into a schema instance.
func NewSchemaConversation(c *conversation.Conversation) *Conversation {
	if c == nil {
		return nil
	}
	var metadata datatypes.JSONMap
	if c.Metadata != nil {
		metadata = datatypes.JSONMap(c.Metadata)
	}
	return &Conversation{
		BaseModel: BaseModel{
			ID:        c.ID,
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.UpdatedAt,
		},
		PublicID:        c.PublicID,
		OwnerID:         c.OwnerID,
		Title:           c.Title,
		Model:           c.Model,
		Provider:        c.Provider,
		Temperature:     c.Temperature,
		MaxTokens:       c.MaxTokens,
		Metadata:        metadata,
		DefaultThreadID: c.DefaultThreadID,
	}
}

// EtoD converts the schema entity into its domain representation.
func (c *Conversation) EtoD() *conversation.Conversation {
	metadata := map[string]any{}
	for k, v := range c.Metadata {
		metadata[k] = v
	}
	return &conversation.Conversation{
		ID:              c.ID,
		PublicID:        c.PublicID,
		OwnerID:         c.OwnerID,
		Title:           c.Title,
		Model:           c.Model,
		Provider:        c.Provider,
		Temperature:     c.Temperature,
		MaxTokens:       c.MaxTokens,
		Metadata:        metadata,
		DefaultThreadID: c.DefaultThreadID,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
