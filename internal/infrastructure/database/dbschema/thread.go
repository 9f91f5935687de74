package dbschema

import (
	"database/sql/driver"
	"fmt"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Thread{})
}

// Thread represents the database schema for threads. The message log is stored as
// a JSON array in a text column.
type Thread struct {
	BaseModel
	PublicID             string      `gorm:"type:varchar(50);uniqueIndex;not null"`
	ConversationID       string      `gorm:"type:varchar(50);index;not null"`
	ParentThreadID       *string     `gorm:"type:varchar(50);index"`
	BranchPointMessageID *string     `gorm:"type:varchar(64)"`
	Title                *string     `gorm:"type:varchar(256)"`
	Messages             JSONMessage `gorm:"type:text;not null"`
}

// JSONMessage stores a conversation.MessageLog as JSON text
type JSONMessage conversation.MessageLog

func (j JSONMessage) Value() (driver.Value, error) {
	data, err := conversation.MessageLog(j).Encode()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (j *JSONMessage) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		data = nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported message log column type %T", value)
	}
	log, err := conversation.DecodeMessageLog(data)
	if err != nil {
		return err
	}
	*j = JSONMessage(log)
	return nil
}

// NewSchemaThread converts a domain thread into a schema instance.
func NewSchemaThread(t *conversation.Thread) *Thread {
	if t == nil {
		return nil
	}
	return &Thread{
		BaseModel: BaseModel{
			ID:        t.ID,
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		},
		PublicID:             t.PublicID,
		ConversationID:       t.ConversationID,
		ParentThreadID:       t.ParentThreadID,
		BranchPointMessageID: t.BranchPointMessageID,
		Title:                t.Title,
		Messages:             JSONMessage(t.Messages),
	}
}

// EtoD converts the schema entity into its domain representation.
func (t *Thread) EtoD() *conversation.Thread {
	messages := conversation.MessageLog(t.Messages)
	if messages == nil {
		messages = conversation.MessageLog{}
	}
	return &conversation.Thread{
		ID:                   t.ID,
		PublicID:             t.PublicID,
		ConversationID:       t.ConversationID,
		ParentThreadID:       t.ParentThreadID,
		BranchPointMessageID: t.BranchPointMessageID,
		Title:                t.Title,
		Messages:             messages,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}
